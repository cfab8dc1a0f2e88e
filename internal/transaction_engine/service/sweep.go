package service

import (
	"context"
	"errors"
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

// SweepExpired applies the timeout policy to every transaction whose payment
// window closed before now and returns how many it acted on:
//   - nothing inserted: cancelled with PAYMENT_TIMEOUT
//   - partly paid in the normal phase with a top-up channel: moved to TOP_UP
//   - otherwise: cancelled with the inserted money as refund_due
func (o *OrchestratorImpl) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := o.repo.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	var (
		handled int
		errs    []error
	)
	for _, candidate := range expired {
		acted, err := o.expire(ctx, candidate, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if acted {
			handled++
		}
	}
	return handled, errors.Join(errs...)
}

func (o *OrchestratorImpl) expire(ctx context.Context, candidate *transaction.Transaction, now time.Time) (bool, error) {
	unlock := o.locks.Lock(candidate.ID)
	defer unlock()

	// Re-read under the lock; an acceptance may have landed since the listing
	tx, err := o.repo.Get(ctx, candidate.ID)
	if err != nil {
		return false, err
	}
	if tx.State != shared.StateCreated && tx.State != shared.StateAwaitingPayment {
		return false, nil
	}
	if !tx.Deadline.Before(now) {
		return false, nil
	}

	if tx.InsertedAmount > 0 && tx.Phase == shared.PhaseNormal {
		svc, err := o.catalog.Lookup(tx.ServiceType)
		if err != nil {
			return false, err
		}
		if _, ok := svc.SecondaryKind(); ok {
			return true, o.enterTopUp(ctx, tx, now)
		}
	}

	_, err = o.cancelLocked(ctx, tx, shared.FailureReasonPaymentTimeout)
	return err == nil, err
}

// enterTopUp gives a partly paid transaction a last window on its secondary channel
func (o *OrchestratorImpl) enterTopUp(ctx context.Context, tx *transaction.Transaction, now time.Time) error {
	tx.Phase = shared.PhaseTopUp
	tx.Deadline = now.Add(o.settings.TopUpTimeout)
	tx.UpdatedAt = now

	entry, err := o.entry(tx, tx.State, event.TransactionStateChanged)
	if err != nil {
		return err
	}
	if err := o.repo.Update(ctx, tx, entry.WithReason(string(shared.PhaseTopUp))); err != nil {
		o.logger.Error("Failed to persist top-up phase", "transaction_id", tx.ID.String(), "error", err)
		return err
	}

	o.logger.Info("Transaction entered top-up phase",
		"transaction_id", tx.ID.String(),
		"inserted_amount", tx.InsertedAmount,
		"total_due", tx.TotalDue,
		"deadline", tx.Deadline,
	)
	o.publishTransition(tx.Snapshot(), tx.State)
	return nil
}
