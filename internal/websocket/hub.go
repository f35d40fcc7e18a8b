package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"advanced-todo/internal/notify"
	"advanced-todo/internal/store"
	"advanced-todo/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one connected websocket.
type Client struct {
	Conn Conn
	Mu   sync.Mutex
}

// Message is the envelope pushed to every client.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	MessageReminder = "reminder"
	MessageTasks    = "tasks"
	MessageSession  = "session"
)

// Hub fans reminders and store events out to the connected clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logger.Loggers
}

func NewHub(log *logger.Loggers) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves register, unregister and broadcast until ctx is done, then
// closes every remaining connection. It must be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.log.System.Info("Websocket client connected", zap.Int("clients", len(h.clients)))
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			for client := range h.clients {
				client.Mu.Lock()
				err := client.Conn.WriteMessage(websocket.TextMessage, message)
				client.Mu.Unlock()
				if err != nil {
					h.log.Error.Error("Websocket write failed", zap.Error(err))
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		_ = client.Conn.Close()
	}
}

// Register adds conn to the hub. Once the hub has stopped conn is closed
// right away.
func (h *Hub) Register(conn Conn) *Client {
	client := &Client{Conn: conn}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
	}
	return client
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues msg for every client. It never blocks; messages are dropped
// when the queue is full.
func (h *Hub) Publish(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error.Error("Failed to encode websocket message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.log.System.Warn("Websocket queue full, message dropped", zap.String("type", msg.Type))
	}
}

// Deliver pushes a due reminder to the clients.
func (h *Hub) Deliver(req notify.Request) {
	h.Publish(Message{Type: MessageReminder, Data: req})
}

// PublishEvent pushes a store change to the clients.
func (h *Hub) PublishEvent(e store.Event) {
	typ := MessageTasks
	if e.Kind == store.EventSessionChanged {
		typ = MessageSession
	}
	h.Publish(Message{Type: typ, Data: e})
}
