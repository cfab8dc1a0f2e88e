package journal

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Repository reads and maintains journal entries. Entries are only ever
// inserted through transaction.Repository so they commit with the transition.
type Repository interface {
	GetPending(ctx context.Context, limit int) ([]*Entry, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*Entry, error)
}

// ErrEntryNotFound indicates a missing journal entry
type ErrEntryNotFound struct {
	ID int64
}

func (e ErrEntryNotFound) Error() string {
	return "journal entry not found: " + strconv.FormatInt(e.ID, 10)
}
