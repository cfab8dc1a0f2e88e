package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

// ErrUnarchivable marks entries that will never archive, however often they are retried
var ErrUnarchivable = errors.New("journal entry cannot be archived")

// JournalArchivingService writes entries to an archive.Repository
type JournalArchivingService struct {
	repo   archive.Repository
	logger *slog.Logger
}

func NewJournalArchivingService(logger *slog.Logger, repo archive.Repository) *JournalArchivingService {
	return &JournalArchivingService{
		repo:   repo,
		logger: logger.With("component", "journal_archiver"),
	}
}

var _ ArchivingService = (*JournalArchivingService)(nil)

// Archive decodes the snapshot carried by entry and appends the transition to
// the transaction's record. Redelivered entries are absorbed by the repository.
func (s *JournalArchivingService) Archive(ctx context.Context, entry *journal.Entry) error {
	if entry.TransactionID == uuid.Nil || entry.ToState == "" {
		return fmt.Errorf("%w: entry %d has no transaction or target state", ErrUnarchivable, entry.ID)
	}

	var snapshot transaction.Snapshot
	if err := entry.DecodePayload(&snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrUnarchivable, err)
	}
	if snapshot.TransactionID != entry.TransactionID.String() {
		return fmt.Errorf("%w: entry %d carries snapshot of %q", ErrUnarchivable, entry.ID, snapshot.TransactionID)
	}

	if err := s.repo.Append(ctx, snapshot, archive.TransitionFromEntry(entry)); err != nil {
		return fmt.Errorf("failed to archive entry %d: %w", entry.ID, err)
	}

	logger := s.logger.With("transaction_id", snapshot.TransactionID, "entry_id", entry.ID)
	if entry.Terminal() {
		logger.Info("Archived finished transaction", "state", snapshot.State, "reason", entry.Reason)
	} else {
		logger.Debug("Archived transition", "from", entry.FromState, "to", entry.ToState)
	}
	return nil
}
