package sinks

import (
	"context"
	"sync"

	"rift-and-ruin/server/logging"
)

// MemorySink retains a bounded window of events for diagnostics endpoints
// and tests. When capacity is reached the oldest events fall off.
type MemorySink struct {
	mu       sync.RWMutex
	events   []logging.Event
	capacity int
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity < 0 {
		capacity = 0
	}
	return &MemorySink{events: make([]logging.Event, 0), capacity: capacity}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if s.capacity > 0 && len(s.events) > s.capacity {
		overflow := len(s.events) - s.capacity
		s.events = append(s.events[:0], s.events[overflow:]...)
	}
	return nil
}

func (s *MemorySink) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]logging.Event, len(s.events))
	copy(copied, s.events)
	return copied
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
