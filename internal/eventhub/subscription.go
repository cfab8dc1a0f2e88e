package eventhub

import (
	"sync"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
)

// Subscription is an in-process listener on the hub
type Subscription struct {
	hub   *Hub
	types map[event.Type]bool // nil means every type
	q     *queue
	once  sync.Once
}

func (s *Subscription) wants(t event.Type) bool {
	return s.types == nil || s.types[t]
}

// C delivers matching events in publish order
func (s *Subscription) C() <-chan event.Event {
	return s.q.ch
}

// Dropped counts events evicted because the subscriber fell behind
func (s *Subscription) Dropped() int64 {
	return s.q.dropped.Load()
}

// Close detaches the subscription; C is not closed so pending reads drain
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
	})
}
