package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// dispense runs a confirmed transaction's plan. The transaction lock is
// released while the hardware works; nothing else may touch a DISPENSING
// transaction.
func (o *OrchestratorImpl) dispense(id uuid.UUID) {
	ctx := o.dispenseCtx
	logger := o.logger.With("transaction_id", id.String())

	// 1. CONFIRMED -> DISPENSING
	unlock := o.locks.Lock(id)
	tx, err := o.repo.Get(ctx, id)
	if err != nil {
		unlock()
		logger.Error("Failed to load transaction for dispense", "error", err)
		return
	}
	if tx.State != shared.StateConfirmed {
		unlock()
		logger.Warn("Skipping dispense", "state", string(tx.State))
		return
	}
	if err := tx.TransitionTo(shared.StateDispensing, o.now()); err != nil {
		unlock()
		logger.Error("Failed to start dispense", "error", err)
		return
	}
	entry, err := o.entry(tx, shared.StateConfirmed, event.TransactionStateChanged)
	if err == nil {
		err = o.repo.Update(ctx, tx, entry)
	}
	unlock()
	if err != nil {
		logger.Error("Failed to persist dispense start", "error", err)
		return
	}
	o.publishTransition(tx.Snapshot(), shared.StateConfirmed)

	// 2. Pay out
	plan := tx.DispensePlan
	res := o.executor.Execute(ctx, id, plan)

	// 3. DISPENSING -> COMPLETED or FAILED
	unlock = o.locks.Lock(id)
	defer unlock()

	tx, err = o.repo.Get(ctx, id)
	if err != nil {
		logger.Error("Failed to load transaction after dispense",
			"dispensed_amount", res.TotalDispensed,
			"claim_ticket_code", res.ClaimTicketCode,
			"error", err,
		)
		return
	}
	tx.DispenseResult = &res
	tx.DispensedAmount = res.TotalDispensed

	if !res.Success {
		reason := shared.FailureReasonHardwareFault
		switch {
		case errors.Is(res.Err, shared.ErrUnsatisfiableDispenseAmount):
			reason = shared.FailureReasonUnsatisfiable
		case res.TotalDispensed > 0:
			reason = shared.FailureReasonPartialDispense
		}
		cause := res.Err
		if cause == nil {
			cause = shared.NewError(shared.KindHardwareFault, "dispense did not complete")
		}
		if _, err := o.failLocked(ctx, tx, reason, cause); err != nil {
			logger.Error("Failed to record dispense failure", "error", err)
		}
		o.publishAlerts()
		return
	}

	if over := tx.InsertedAmount - tx.TotalDue; over > 0 {
		tx.RefundDue = over
	}
	if err := tx.TransitionTo(shared.StateCompleted, o.now()); err != nil {
		logger.Error("Failed to complete transaction", "error", err)
		return
	}
	entry, err = o.entry(tx, shared.StateDispensing, event.TransactionComplete)
	if err != nil {
		logger.Error("Failed to journal completion", "error", err)
		return
	}
	if err := o.repo.Update(ctx, tx, entry); err != nil {
		logger.Error("Failed to persist completion", "error", err)
		return
	}

	logger.Info("Transaction completed",
		"dispensed_amount", tx.DispensedAmount,
		"refund_due", tx.RefundDue,
	)

	o.publishTransition(tx.Snapshot(), shared.StateDispensing)
	o.publishStatus(ctx)
	o.publishAlerts()
}

// Recover settles transactions left in flight by a restart. A dispense that
// had started cannot be trusted and fails for reconciliation; one that had
// only been confirmed is scheduled again.
func (o *OrchestratorImpl) Recover(ctx context.Context) error {
	inFlight, err := o.repo.ListByStates(ctx, shared.StateConfirmed, shared.StateDispensing)
	if err != nil {
		return err
	}

	var errs []error
	for _, tx := range inFlight {
		id := tx.ID
		switch tx.State {
		case shared.StateDispensing:
			unlock := o.locks.Lock(id)
			cause := shared.NewError(shared.KindHardwareFault,
				"dispense was interrupted by a restart; reconcile the dispenser").For(id, tx.State)
			_, err := o.failLocked(ctx, tx, shared.FailureReasonCrashRecovery, cause)
			unlock()
			if err != nil {
				errs = append(errs, err)
			}
		case shared.StateConfirmed:
			o.logger.Info("Resuming confirmed transaction", "transaction_id", id.String())
			if err := o.runner.Submit(func() { o.dispense(id) }); err != nil {
				errs = append(errs, err)
			}
		}
	}

	o.logger.Info("Recovery finished", "in_flight", len(inFlight), "errors", len(errs))
	return errors.Join(errs...)
}
