// Package journal_relay ships pending journal entries to the event stream.
package journal_relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/config"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/platform/messaging/producers"
)

// Relay publishes pending journal entries, keyed by transaction so each
// transaction's history stays ordered on one partition
type Relay struct {
	journalRepo      journal.Repository
	publisher        producers.MessagePublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewRelay(
	cfg *config.OutboxConfig,
	journalRepo journal.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *Relay {
	return &Relay{
		journalRepo:      journalRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (r *Relay) Start(ctx context.Context) {
	r.logger.Info("Starting journal relay",
		"poll_interval", r.pollInterval.String(),
		"batch_size", r.batchSize,
		"max_retry_attempts", r.maxRetryAttempts,
	)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Journal relay stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := r.relayPending(ctx); err != nil {
				r.logger.Error("Error during batch relay of journal entries", "error", err)
			}
		}
	}
}

func (r *Relay) relayPending(ctx context.Context) error {
	entries, err := r.journalRepo.GetPending(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending journal entries: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	r.logger.Debug("Fetched pending journal entries", "count", len(entries))

	// A failed entry blocks the rest of its transaction for this round
	blocked := make(map[string]bool)
	for _, entry := range entries {
		txID := entry.TransactionID.String()
		if blocked[txID] {
			continue
		}
		if err := r.relay(ctx, entry); err != nil {
			blocked[txID] = true
		}
	}
	return nil
}

func (r *Relay) relay(ctx context.Context, entry *journal.Entry) error {
	txID := entry.TransactionID.String()

	if err := r.publisher.Publish(ctx, txID, entry); err != nil {
		r.logger.Error("Failed to publish journal entry",
			"entry_id", entry.ID, "transaction_id", txID, "current_attempts", entry.Attempts, "error", err,
		)

		if errInc := r.journalRepo.IncrementAttempts(ctx, entry.ID); errInc != nil {
			r.logger.Error("Failed to increment attempts for journal entry", "entry_id", entry.ID, "error", errInc)
			return err
		}
		if entry.Attempts+1 >= r.maxRetryAttempts {
			r.logger.Warn("Max retry attempts reached for journal entry, marking as FAILED_TO_PUBLISH",
				"entry_id", entry.ID, "transaction_id", txID, "attempts_made", entry.Attempts+1,
			)
			if errUpdate := r.journalRepo.UpdateStatus(ctx, entry.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				r.logger.Error("Failed to mark journal entry FAILED_TO_PUBLISH", "entry_id", entry.ID, "error", errUpdate)
			}
		}
		return err
	}

	if err := r.journalRepo.UpdateStatus(ctx, entry.ID, shared.OutboxStatusProcessed); err != nil {
		r.logger.Error("Journal entry published but could not be marked PROCESSED",
			"entry_id", entry.ID, "transaction_id", txID, "error", err,
		)
		return err
	}

	r.logger.Debug("Relayed journal entry",
		"entry_id", entry.ID,
		"transaction_id", txID,
		"event_type", entry.EventType,
	)
	return nil
}
