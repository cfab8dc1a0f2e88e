package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// ErrVersionConflict is returned when an update races another writer
var ErrVersionConflict = errors.New("transaction was modified concurrently")

// Repository is the transaction registry. Every write carries the journal
// entries describing it and commits them atomically with the change.
type Repository interface {
	// Create fails with ConflictingTransaction when the session already
	// holds a non-terminal transaction.
	Create(ctx context.Context, tx *Transaction, entry *journal.Entry) error
	// Get fails with UnknownTransaction when id is absent.
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// Update persists tx if its stored version still equals tx.Version and
	// then bumps tx.Version.
	Update(ctx context.Context, tx *Transaction, entries ...*journal.Entry) error
	Delete(ctx context.Context, id uuid.UUID) error
	// FindActive returns nil, nil when the session is idle.
	FindActive(ctx context.Context, sessionKey string) (*Transaction, error)
	// ListExpired returns CREATED or AWAITING_PAYMENT transactions whose deadline is before now.
	ListExpired(ctx context.Context, now time.Time) ([]*Transaction, error)
	ListByStates(ctx context.Context, states ...shared.TransactionState) ([]*Transaction, error)
}

// UnknownTransaction builds the not-found error for id
func UnknownTransaction(id uuid.UUID) error {
	return shared.NewError(shared.KindUnknownTransaction, "transaction not found").For(id, "")
}

// ConflictingTransaction builds the one-active violation for a session
func ConflictingTransaction(sessionKey string, activeID uuid.UUID) error {
	return shared.NewError(shared.KindConflictingTransaction,
		"session %s already has an active transaction", sessionKey).For(activeID, "")
}
