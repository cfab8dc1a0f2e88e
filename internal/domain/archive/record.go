// Package archive describes the long-term audit copy of finished transactions.
package archive

import (
	"context"
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

// Transition is one journal step as kept in the archive
type Transition struct {
	EntryID   int64     `json:"entry_id" bson:"entry_id"`
	From      string    `json:"from,omitempty" bson:"from,omitempty"`
	To        string    `json:"to" bson:"to"`
	EventType string    `json:"event_type" bson:"event_type"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
	At        time.Time `json:"at" bson:"at"`
}

// Record is the archived state of a transaction and its full history
type Record struct {
	TransactionID string               `json:"transaction_id" bson:"_id"`
	ServiceType   string               `json:"type" bson:"type"`
	State         string               `json:"state" bson:"state"`
	Terminal      bool                 `json:"terminal" bson:"terminal"`
	Snapshot      transaction.Snapshot `json:"snapshot" bson:"snapshot"`
	Transitions   []Transition         `json:"transitions" bson:"transitions"`
	UpdatedAt     time.Time            `json:"updated_at" bson:"updated_at"`
}

// TransitionFromEntry converts a relayed journal entry
func TransitionFromEntry(e *journal.Entry) Transition {
	return Transition{
		EntryID:   e.ID,
		From:      string(e.FromState),
		To:        string(e.ToState),
		EventType: e.EventType,
		Reason:    e.Reason,
		At:        e.CreatedAt,
	}
}

// Repository stores archive records. Append must be idempotent per entry so
// redelivered stream messages do not duplicate history.
type Repository interface {
	Append(ctx context.Context, snapshot transaction.Snapshot, transition Transition) error
	Get(ctx context.Context, transactionID string) (*Record, error)
	ListFinished(ctx context.Context, limit, offset int) ([]*Record, error)
	CountFinished(ctx context.Context) (int64, error)
}

// ErrRecordNotFound indicates a transaction that was never archived
type ErrRecordNotFound struct {
	TransactionID string
}

func (e ErrRecordNotFound) Error() string {
	return "archive record not found: " + e.TransactionID
}
