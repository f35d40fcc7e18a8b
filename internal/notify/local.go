package notify

import (
	"sync"
	"time"

	"advanced-todo/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stopper interface {
	Stop() bool
}

type pending struct {
	req   Request
	timer stopper
	seq   uint64
}

// LocalScheduler runs reminders on in-process timers, one per id.
type LocalScheduler struct {
	mu      sync.Mutex
	pending map[uuid.UUID]pending
	seq     uint64
	granted bool

	deliver Deliverer
	log     *logger.Loggers

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) stopper
}

// NewLocalScheduler returns a scheduler that hands due reminders to deliver.
// When granted is false every call is logged and ignored.
func NewLocalScheduler(deliver Deliverer, granted bool, log *logger.Loggers) *LocalScheduler {
	return &LocalScheduler{
		pending: make(map[uuid.UUID]pending),
		granted: granted,
		deliver: deliver,
		log:     log,
		now:     time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
}

// Authorize reports whether reminders may be scheduled.
func (s *LocalScheduler) Authorize() error {
	if !s.granted {
		s.log.Security.Warn("Notification permission denied")
		return ErrPermissionDenied
	}
	s.log.System.Info("Notification permission granted")
	return nil
}

func (s *LocalScheduler) Schedule(req Request) {
	if !s.granted {
		s.log.Security.Warn("Reminder not scheduled", zap.String("task_id", req.ID.String()), zap.Error(ErrPermissionDenied))
		return
	}

	delay := req.FireAt.Sub(s.now())
	if delay <= 0 {
		s.log.System.Info("Reminder dropped, trigger time has passed",
			zap.String("task_id", req.ID.String()),
			zap.Time("fire_at", req.FireAt))
		s.Cancel(req.ID)
		return
	}

	s.mu.Lock()
	if prev, ok := s.pending[req.ID]; ok {
		prev.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.pending[req.ID] = pending{
		req:   req,
		seq:   seq,
		timer: s.afterFunc(delay, func() { s.fire(req.ID, seq) }),
	}
	s.mu.Unlock()

	s.log.Audit.Info("Reminder scheduled",
		zap.String("task_id", req.ID.String()),
		zap.Time("fire_at", req.FireAt))
}

func (s *LocalScheduler) Cancel(id uuid.UUID) {
	if !s.granted {
		s.log.Security.Warn("Reminder not cancelled", zap.String("task_id", id.String()), zap.Error(ErrPermissionDenied))
		return
	}

	s.mu.Lock()
	p, ok := s.pending[id]
	if ok {
		p.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if ok {
		s.log.Audit.Info("Reminder cancelled", zap.String("task_id", id.String()))
	}
}

// Pending returns the request waiting for id, if any.
func (s *LocalScheduler) Pending(id uuid.UUID) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	return p.req, ok
}

// Stop cancels every pending timer.
func (s *LocalScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, id)
	}
}

func (s *LocalScheduler) fire(id uuid.UUID, seq uint64) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if !ok || p.seq != seq {
		// replaced or cancelled after the timer fired
		s.mu.Unlock()
		return
	}
	delete(s.pending, id)
	s.mu.Unlock()

	s.log.System.Info("Reminder delivered", zap.String("task_id", id.String()))
	s.deliver.Deliver(p.req)
}
