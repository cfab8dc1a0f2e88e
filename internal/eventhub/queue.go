package eventhub

import (
	"sync"
	"sync/atomic"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
)

// queue is a bounded FIFO that evicts its oldest event when full, so a slow
// reader never stalls the publisher
type queue struct {
	mu      sync.Mutex
	ch      chan event.Event
	dropped atomic.Int64
}

func newQueue(size int) *queue {
	return &queue{ch: make(chan event.Event, size)}
}

func (q *queue) push(evt event.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		select {
		case q.ch <- evt:
			return
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}
