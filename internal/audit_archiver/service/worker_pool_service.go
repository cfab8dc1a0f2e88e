package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
)

// WorkerPoolArchivingService bounds concurrent archive writes with an ants pool
type WorkerPoolArchivingService struct {
	baseService ArchivingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolArchivingService(
	baseService ArchivingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolArchivingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive worker pool: %w", err)
	}

	return &WorkerPoolArchivingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

var _ ArchivingService = (*WorkerPoolArchivingService)(nil)

// Archive runs the base service on a pooled worker and waits for its result.
func (s *WorkerPoolArchivingService) Archive(ctx context.Context, entry *journal.Entry) error {
	resultChan := make(chan error, 1)

	entryCopy := *entry
	err := s.pool.Submit(func() {
		resultChan <- s.baseService.Archive(ctx, &entryCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit journal entry to worker pool",
			"transaction_id", entry.TransactionID.String(),
			"entry_id", entry.ID,
			"error", err,
		)
		return fmt.Errorf("failed to submit entry %d: %w", entry.ID, err)
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolArchivingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolArchivingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolArchivingService) Capacity() int {
	return s.pool.Cap()
}
