package events

import (
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/taberna/internal/interfaces"
)

// Service is the in-process pub/sub bus for job lifecycle events.
// Handlers run synchronously on the publisher's goroutine; subscribers that
// do slow work (like websocket writes) buffer on their own side.
type Service struct {
	mu       sync.RWMutex
	handlers map[int]interfaces.EventHandler
	nextID   int
	logger   arbor.ILogger
}

// NewService creates an empty event bus.
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		handlers: make(map[int]interfaces.EventHandler),
		logger:   logger,
	}
}

// Publish delivers the event to every current subscriber.
func (s *Service) Publish(event interfaces.Event) {
	s.mu.RLock()
	handlers := make([]interfaces.EventHandler, 0, len(s.handlers))
	for _, handler := range s.handlers {
		handlers = append(handlers, handler)
	}
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}

	s.logger.Debug().
		Str("event", string(event.Type)).
		Str("job_id", event.JobID).
		Int("subscribers", len(handlers)).
		Msg("Published job event")
}

// Subscribe registers a handler and returns its unsubscribe function.
func (s *Service) Subscribe(handler interfaces.EventHandler) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = handler
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}
