// Package postgres provides the durable PostgreSQL transaction store. Every
// transition is written together with its journal entries in one database
// transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
	"github.com/kiosk-transaction-orchestrator/internal/platform/persistence"
)

const uniqueViolation = "23505"

const transactionColumns = `id, session_key, service_type, state, phase, target_amount, fee, total_due,
		amount_to_dispense, converted_amount, transfer_amount, exchange_rate, insert_currency, dispense_currency,
		inserted, inserted_amount, selected_dispense, dispense_plan, dispense_result, dispensed_amount,
		deadline, refund_due, failure_reason, error_code, error_message, version, created_at, updated_at, completed_at`

// TransactionRepository implements transaction.Repository for PostgreSQL
type TransactionRepository struct {
	pool    persistence.Pool
	journal *JournalRepository
	logger  *slog.Logger
}

var _ transaction.Repository = (*TransactionRepository)(nil)

func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) *TransactionRepository {
	return newTransactionRepository(logger, db.Pool())
}

func newTransactionRepository(logger *slog.Logger, pool persistence.Pool) *TransactionRepository {
	return &TransactionRepository{
		pool:    pool,
		journal: &JournalRepository{querier: pool, logger: logger},
		logger:  logger,
	}
}

// Create inserts a new transaction. The partial unique index on session_key
// rejects a second open transaction for the same session.
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction, entry *journal.Entry) error {
	query := `
		INSERT INTO kiosk_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29)
	`

	args, err := rowArgs(tx)
	if err != nil {
		return err
	}

	err = persistence.RunInTx(ctx, r.pool, func(dbTx pgx.Tx) error {
		if _, err := dbTx.Exec(ctx, query, args...); err != nil {
			return err
		}
		if entry != nil {
			return r.journal.WithTx(dbTx).Insert(ctx, entry)
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return transaction.ConflictingTransaction(tx.SessionKey, uuid.Nil)
		}
		r.logger.Error("Failed to create transaction",
			"transaction_id", tx.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM kiosk_transactions
		WHERE id = $1
	`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.UnknownTransaction(id)
		}
		r.logger.Error("Failed to get transaction",
			"transaction_id", id.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// Update writes tx if nobody else has since it was read, appending entries
// in the same database transaction
func (r *TransactionRepository) Update(ctx context.Context, tx *transaction.Transaction, entries ...*journal.Entry) error {
	query := `
		UPDATE kiosk_transactions
		SET state = $2, phase = $3, inserted = $4, inserted_amount = $5, dispense_plan = $6,
			dispense_result = $7, dispensed_amount = $8, deadline = $9, refund_due = $10,
			failure_reason = $11, error_code = $12, error_message = $13, updated_at = $14,
			completed_at = $15, version = version + 1
		WHERE id = $1 AND version = $16
	`

	inserted, err := json.Marshal(tx.Inserted)
	if err != nil {
		return fmt.Errorf("failed to marshal inserted counts: %w", err)
	}
	plan, err := json.Marshal(tx.DispensePlan)
	if err != nil {
		return fmt.Errorf("failed to marshal dispense plan: %w", err)
	}
	result, err := marshalResult(tx.DispenseResult)
	if err != nil {
		return err
	}

	err = persistence.RunInTx(ctx, r.pool, func(dbTx pgx.Tx) error {
		tag, err := dbTx.Exec(ctx, query,
			tx.ID,
			tx.State,
			tx.Phase,
			inserted,
			tx.InsertedAmount,
			plan,
			result,
			tx.DispensedAmount,
			tx.Deadline,
			tx.RefundDue,
			tx.FailureReason,
			tx.ErrorCode,
			tx.ErrorMessage,
			tx.UpdatedAt,
			tx.CompletedAt,
			tx.Version,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.missOrConflict(ctx, dbTx, tx.ID)
		}

		jr := r.journal.WithTx(dbTx)
		for _, e := range entries {
			if err := jr.Insert(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, transaction.ErrVersionConflict) || errors.Is(err, shared.ErrUnknownTransaction) {
			return err
		}
		r.logger.Error("Failed to update transaction",
			"transaction_id", tx.ID.String(),
			"state", string(tx.State),
			"error", err,
		)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	tx.Version++
	return nil
}

func (r *TransactionRepository) missOrConflict(ctx context.Context, q persistence.Querier, id uuid.UUID) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM kiosk_transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check transaction existence: %w", err)
	}
	if !exists {
		return transaction.UnknownTransaction(id)
	}
	return transaction.ErrVersionConflict
}

func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM kiosk_transactions WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction",
			"transaction_id", id.String(),
			"error", err,
		)
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.UnknownTransaction(id)
	}

	return nil
}

func (r *TransactionRepository) FindActive(ctx context.Context, sessionKey string) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM kiosk_transactions
		WHERE session_key = $1 AND state NOT IN ('COMPLETED', 'CANCELLED', 'FAILED')
		LIMIT 1
	`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, sessionKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to find active transaction",
			"session_key", sessionKey,
			"error", err,
		)
		return nil, fmt.Errorf("failed to find active transaction: %w", err)
	}

	return tx, nil
}

func (r *TransactionRepository) ListExpired(ctx context.Context, now time.Time) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM kiosk_transactions
		WHERE state IN ('CREATED', 'AWAITING_PAYMENT') AND deadline < $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		r.logger.Error("Failed to list expired transactions", "error", err)
		return nil, fmt.Errorf("failed to list expired transactions: %w", err)
	}
	return r.collect(rows)
}

func (r *TransactionRepository) ListByStates(ctx context.Context, states ...shared.TransactionState) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM kiosk_transactions
		WHERE state = ANY($1)
		ORDER BY created_at ASC
	`

	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, string(s))
	}

	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		r.logger.Error("Failed to list transactions by state", "states", names, "error", err)
		return nil, fmt.Errorf("failed to list transactions by state: %w", err)
	}
	return r.collect(rows)
}

func (r *TransactionRepository) collect(rows pgx.Rows) ([]*transaction.Transaction, error) {
	defer rows.Close()

	var txs []*transaction.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txs, nil
}

func rowArgs(tx *transaction.Transaction) ([]any, error) {
	inserted, err := json.Marshal(tx.Inserted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inserted counts: %w", err)
	}
	selected, err := json.Marshal(tx.SelectedDispense)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal selected denominations: %w", err)
	}
	plan, err := json.Marshal(tx.DispensePlan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dispense plan: %w", err)
	}
	result, err := marshalResult(tx.DispenseResult)
	if err != nil {
		return nil, err
	}

	return []any{
		tx.ID, tx.SessionKey, tx.ServiceType, tx.State, tx.Phase, tx.TargetAmount, tx.Fee, tx.TotalDue,
		tx.AmountToDispense, tx.ConvertedAmount, tx.TransferAmount, tx.ExchangeRate, tx.InsertCurrency, tx.DispenseCurrency,
		inserted, tx.InsertedAmount, selected, plan, result, tx.DispensedAmount,
		tx.Deadline, tx.RefundDue, tx.FailureReason, tx.ErrorCode, tx.ErrorMessage, tx.Version, tx.CreatedAt, tx.UpdatedAt, tx.CompletedAt,
	}, nil
}

func marshalResult(res *dispense.Result) ([]byte, error) {
	if res == nil {
		return nil, nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dispense result: %w", err)
	}
	return raw, nil
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var (
		tx                               transaction.Transaction
		inserted, selected, plan, result []byte
	)
	err := row.Scan(
		&tx.ID, &tx.SessionKey, &tx.ServiceType, &tx.State, &tx.Phase, &tx.TargetAmount, &tx.Fee, &tx.TotalDue,
		&tx.AmountToDispense, &tx.ConvertedAmount, &tx.TransferAmount, &tx.ExchangeRate, &tx.InsertCurrency, &tx.DispenseCurrency,
		&inserted, &tx.InsertedAmount, &selected, &plan, &result, &tx.DispensedAmount,
		&tx.Deadline, &tx.RefundDue, &tx.FailureReason, &tx.ErrorCode, &tx.ErrorMessage, &tx.Version, &tx.CreatedAt, &tx.UpdatedAt, &tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Inserted = map[string]int{}
	if len(inserted) > 0 {
		if err := json.Unmarshal(inserted, &tx.Inserted); err != nil {
			return nil, fmt.Errorf("failed to decode inserted counts: %w", err)
		}
	}
	if len(selected) > 0 {
		if err := json.Unmarshal(selected, &tx.SelectedDispense); err != nil {
			return nil, fmt.Errorf("failed to decode selected denominations: %w", err)
		}
	}
	if len(plan) > 0 {
		if err := json.Unmarshal(plan, &tx.DispensePlan); err != nil {
			return nil, fmt.Errorf("failed to decode dispense plan: %w", err)
		}
	}
	if len(result) > 0 {
		tx.DispenseResult = &dispense.Result{}
		if err := json.Unmarshal(result, tx.DispenseResult); err != nil {
			return nil, fmt.Errorf("failed to decode dispense result: %w", err)
		}
	}
	return &tx, nil
}
