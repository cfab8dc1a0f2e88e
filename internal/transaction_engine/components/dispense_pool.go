package components

import (
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kiosk-transaction-orchestrator/internal/transaction_engine/service"
)

// DispensePool runs dispense jobs on a bounded ants pool
type DispensePool struct {
	pool           *ants.Pool
	releaseTimeout time.Duration
	logger         *slog.Logger
}

var _ service.TaskRunner = (*DispensePool)(nil)

func NewDispensePool(size int, releaseTimeout time.Duration, logger *slog.Logger) (*DispensePool, error) {
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(p any) {
		logger.Error("Dispense task panicked", "panic", p)
	}))
	if err != nil {
		return nil, err
	}

	return &DispensePool{
		pool:           pool,
		releaseTimeout: releaseTimeout,
		logger:         logger,
	}, nil
}

// Submit queues task, blocking while every worker is busy
func (p *DispensePool) Submit(task func()) error {
	return p.pool.Submit(task)
}

// Shutdown waits up to the release timeout for in-flight dispenses
func (p *DispensePool) Shutdown() {
	p.logger.Info("Shutting down dispense pool", "running_workers", p.pool.Running())
	if err := p.pool.ReleaseTimeout(p.releaseTimeout); err != nil {
		p.logger.Error("Dispense pool did not drain in time", "error", err)
	}
}

// Running returns the number of running workers in the pool.
func (p *DispensePool) Running() int {
	return p.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (p *DispensePool) Capacity() int {
	return p.pool.Cap()
}
