// Package journal records every transaction state transition. Entries are
// written atomically with the transaction update and double as the outbox
// relayed to the event stream.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Entry is one transition of one transaction
type Entry struct {
	ID            int64                   `json:"id"`
	TransactionID uuid.UUID               `json:"transaction_id"`
	FromState     shared.TransactionState `json:"from_state,omitempty"`
	ToState       shared.TransactionState `json:"to_state"`
	EventType     string                  `json:"event_type"`
	Reason        string                  `json:"reason,omitempty"`
	Payload       json.RawMessage         `json:"payload"`
	Status        shared.OutboxStatus     `json:"status"`
	Attempts      int                     `json:"attempts"`
	CreatedAt     time.Time               `json:"created_at"`
	LastAttemptAt *time.Time              `json:"last_attempt_at,omitempty"`
}

// NewEntry captures a transition together with the snapshot it produced
func NewEntry(txID uuid.UUID, from, to shared.TransactionState, eventType string, snapshot any) (*Entry, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journal payload: %w", err)
	}

	return &Entry{
		TransactionID: txID,
		FromState:     from,
		ToState:       to,
		EventType:     eventType,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// WithReason tags the entry with why the transition happened, e.g. PAYMENT_TIMEOUT
func (e *Entry) WithReason(reason string) *Entry {
	e.Reason = reason
	return e
}

func (e *Entry) IncrementAttempts() {
	e.Attempts++
	now := time.Now().UTC()
	e.LastAttemptAt = &now
}

func (e *Entry) MarkAsProcessed() {
	e.Status = shared.OutboxStatusProcessed
	now := time.Now().UTC()
	e.LastAttemptAt = &now
}

func (e *Entry) MarkAsFailed() {
	e.Status = shared.OutboxStatusFailedToPublish
	now := time.Now().UTC()
	e.LastAttemptAt = &now
}

// DecodePayload unmarshals the captured snapshot into v
func (e *Entry) DecodePayload(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("failed to decode journal payload for entry %d: %w", e.ID, err)
	}
	return nil
}

// Terminal reports whether the entry closed its transaction
func (e *Entry) Terminal() bool {
	return e.ToState.IsTerminal()
}
