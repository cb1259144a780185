package httpapi

import (
	"log/slog"
	"sync"
)

// Event is one server-sent message. Terminal marks the last event of a
// run's stream; the SSE handler closes the connection after sending it.
type Event struct {
	Name     string
	Data     string
	Terminal bool
}

// StreamManager fans run events out to SSE subscribers, keyed by run ID.
type StreamManager struct {
	mu          sync.RWMutex
	logger      *slog.Logger
	subscribers map[string]map[chan Event]struct{}
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a listener for a run's events. The returned cancel
// function removes the subscription and closes the channel.
func (sm *StreamManager) Subscribe(runID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 16)
	if _, ok := sm.subscribers[runID]; !ok {
		sm.subscribers[runID] = make(map[chan Event]struct{})
	}
	sm.subscribers[runID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[runID]; ok {
			if _, present := subs[ch]; present {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(sm.subscribers, runID)
			}
		}
	}
}

// Broadcast delivers an event to every subscriber of runID. Slow clients
// lose events rather than stalling the executor.
func (sm *StreamManager) Broadcast(runID string, ev Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[runID] {
		select {
		case ch <- ev:
		default:
			sm.logger.Warn("sse client buffer full, dropping event",
				slog.String("run_id", runID), slog.String("event", ev.Name))
		}
	}
}
