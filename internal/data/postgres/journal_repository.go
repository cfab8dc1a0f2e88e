package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/platform/persistence"
)

const journalColumns = `id, transaction_id, from_state, to_state, event_type, reason, payload, status, attempts, created_at, last_attempt_at`

// JournalRepository implements journal.Repository for PostgreSQL
type JournalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

var _ journal.Repository = (*JournalRepository)(nil)

func NewJournalRepository(logger *slog.Logger, db *persistence.PostgresDB) *JournalRepository {
	return &JournalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to tx so entries commit with the transition
func (r *JournalRepository) WithTx(tx pgx.Tx) *JournalRepository {
	return &JournalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Insert appends an entry and fills in its id
func (r *JournalRepository) Insert(ctx context.Context, entry *journal.Entry) error {
	query := `
		INSERT INTO transaction_journal (transaction_id, from_state, to_state, event_type, reason, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		entry.TransactionID,
		entry.FromState,
		entry.ToState,
		entry.EventType,
		entry.Reason,
		[]byte(entry.Payload),
		entry.Status,
		entry.Attempts,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		r.logger.Error("Failed to insert journal entry",
			"transaction_id", entry.TransactionID.String(),
			"to_state", string(entry.ToState),
			"error", err,
		)
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	return nil
}

// GetPending returns unpublished entries in commit order
func (r *JournalRepository) GetPending(ctx context.Context, limit int) ([]*journal.Entry, error) {
	query := `
		SELECT ` + journalColumns + `
		FROM transaction_journal
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending journal entries", "error", err)
		return nil, fmt.Errorf("failed to get pending journal entries: %w", err)
	}
	return r.collect(rows)
}

// ListByTransaction returns the full transition history of one transaction
func (r *JournalRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*journal.Entry, error) {
	query := `
		SELECT ` + journalColumns + `
		FROM transaction_journal
		WHERE transaction_id = $1
		ORDER BY id ASC
	`

	rows, err := r.querier.Query(ctx, query, transactionID)
	if err != nil {
		r.logger.Error("Failed to list journal entries",
			"transaction_id", transactionID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return r.collect(rows)
}

// UpdateStatus sets the relay status of an entry
func (r *JournalRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `
		UPDATE transaction_journal
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update journal entry status",
			"id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update journal entry status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return journal.ErrEntryNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts counts a failed relay attempt
func (r *JournalRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE transaction_journal
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to increment journal entry attempts",
			"id", id,
			"error", err,
		)
		return fmt.Errorf("failed to increment journal entry attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return journal.ErrEntryNotFound{ID: id}
	}

	return nil
}

func (r *JournalRepository) collect(rows pgx.Rows) ([]*journal.Entry, error) {
	defer rows.Close()

	entries := []*journal.Entry{}
	for rows.Next() {
		var (
			entry   journal.Entry
			payload []byte
		)
		err := rows.Scan(
			&entry.ID,
			&entry.TransactionID,
			&entry.FromState,
			&entry.ToState,
			&entry.EventType,
			&entry.Reason,
			&payload,
			&entry.Status,
			&entry.Attempts,
			&entry.CreatedAt,
			&entry.LastAttemptAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan journal entry", "error", err)
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entry.Payload = payload
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over journal entries", "error", err)
		return nil, fmt.Errorf("error iterating over journal entries: %w", err)
	}

	return entries, nil
}
