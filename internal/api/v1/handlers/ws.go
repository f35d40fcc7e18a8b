package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireUpgrade rejects plain HTTP requests to the websocket endpoint.
func RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Stream pushes reminders and store events to the connection until the
// client goes away. Incoming messages are ignored.
func (h *Handler) Stream(c *websocket.Conn) {
	client := h.deps.Hub.Register(c)
	defer h.deps.Hub.Unregister(client)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
