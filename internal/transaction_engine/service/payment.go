package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

// RecordAcceptance books one unit of money reported by an acceptor. The
// acceptance event is always published before the state change it causes.
func (o *OrchestratorImpl) RecordAcceptance(ctx context.Context, id uuid.UUID, req AcceptanceRequest) (transaction.Snapshot, error) {
	logger := o.requestLogger(req.CorrelationID)

	unlock := o.locks.Lock(id)
	defer unlock()

	tx, err := o.repo.Get(ctx, id)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	svc, err := o.catalog.Lookup(tx.ServiceType)
	if err != nil {
		return transaction.Snapshot{}, err
	}

	now := o.now()
	if !tx.AcceptingPayment(now) {
		return transaction.Snapshot{}, shared.NewError(shared.KindTransactionNotAcceptingPayment,
			"transaction is %s and no longer takes payment", tx.State).For(tx.ID, tx.State)
	}
	d, err := o.validator.ValidateAcceptance(svc, req)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	if !tx.AllowsKind(svc, d.Kind) {
		return transaction.Snapshot{}, shared.NewError(shared.KindTransactionNotAcceptingPayment,
			"%s is not accepted during the %s phase", d.Kind, tx.Phase).For(tx.ID, tx.State)
	}

	// 1. Book the money and move the state along
	prev := tx.State
	if err := tx.Accept(d, now); err != nil {
		return transaction.Snapshot{}, shared.NewError(shared.KindInvalidAmount, "%s cannot be booked", d).
			For(tx.ID, tx.State).Wrap(err)
	}
	tx.Deadline = now.Add(o.settings.PaymentTimeout)
	if tx.Phase == shared.PhaseTopUp {
		tx.Deadline = now.Add(o.settings.TopUpTimeout)
	}

	steps := []shared.TransactionState{}
	if tx.State == shared.StateCreated {
		steps = append(steps, shared.StateAwaitingPayment)
	}
	if tx.Covered() {
		steps = append(steps, shared.StatePaymentMatched)
	}
	for _, next := range steps {
		if err := tx.TransitionTo(next, now); err != nil {
			return transaction.Snapshot{}, err
		}
	}

	// 2. Journal the acceptance followed by each transition
	entries, err := o.acceptanceEntries(tx, prev, steps, d)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	if err := o.repo.Update(ctx, tx, entries...); err != nil {
		logger.Error("Failed to persist acceptance", "transaction_id", id.String(), "error", err)
		return transaction.Snapshot{}, err
	}
	o.inventory.Store(d)

	logger.Info("Payment accepted",
		"transaction_id", id.String(),
		"denomination", d.Key(),
		"inserted_amount", tx.InsertedAmount,
		"total_due", tx.TotalDue,
		"state", string(tx.State),
	)

	// 3. Publish in causal order
	snapshot := tx.Snapshot()
	o.publishAcceptance(snapshot, d)
	if len(steps) == 0 {
		o.publishTransition(snapshot, prev)
	}
	from := prev
	for _, next := range steps {
		view := snapshot
		view.State = string(next)
		o.publishTransition(view, from)
		from = next
	}
	o.publishAlerts()
	return snapshot, nil
}

// SimulateInsert feeds a fake acceptance through the regular path
func (o *OrchestratorImpl) SimulateInsert(ctx context.Context, id uuid.UUID, req AcceptanceRequest) (transaction.Snapshot, error) {
	o.requestLogger(req.CorrelationID).Debug("Simulating insert",
		"transaction_id", id.String(),
		"denomination", req.Denomination,
		"insert_type", req.Kind,
	)
	return o.RecordAcceptance(ctx, id, req)
}

func (o *OrchestratorImpl) acceptanceEntries(tx *transaction.Transaction, prev shared.TransactionState,
	steps []shared.TransactionState, d shared.Denomination) ([]*journal.Entry, error) {
	accepted := event.TransactionStateChanged
	switch d.Kind {
	case shared.KindBill:
		accepted = event.BillStored
	case shared.KindCoin:
		accepted = event.CoinInserted
	}

	snapshot := tx.Snapshot()
	first, err := journal.NewEntry(tx.ID, prev, prev, string(accepted), snapshot)
	if err != nil {
		return nil, err
	}
	entries := []*journal.Entry{first.WithReason(d.Key())}

	from := prev
	for _, next := range steps {
		e, err := journal.NewEntry(tx.ID, from, next, string(transitionEvent(next)), snapshot)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
		from = next
	}
	return entries, nil
}

// Confirm commits a fully paid transaction and hands the payout to the
// dispense pool. The response does not wait for the dispense.
func (o *OrchestratorImpl) Confirm(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	tx, err := o.repo.Get(ctx, id)
	if err != nil {
		return transaction.Snapshot{}, err
	}

	// 1. Gate on state, money and hardware
	switch {
	case tx.State.IsTerminal(), tx.State == shared.StateConfirmed, tx.State == shared.StateDispensing:
		return tx.Snapshot(), shared.NewError(shared.KindInvalidTransition,
			"transaction is already %s", tx.State).For(tx.ID, tx.State)
	case !tx.Covered():
		return tx.Snapshot(), shared.NewError(shared.KindAmountNotMatched,
			"inserted %d of %d due", tx.InsertedAmount, tx.TotalDue).For(tx.ID, tx.State)
	case tx.State != shared.StatePaymentMatched:
		return tx.Snapshot(), shared.NewError(shared.KindInvalidTransition,
			"transaction is %s, not %s", tx.State, shared.StatePaymentMatched).For(tx.ID, tx.State)
	}
	if tx.AmountToDispense > 0 && o.disconnected(machine.DeviceDispenser) {
		return tx.Snapshot(), shared.NewError(shared.KindConnectivityLost,
			"dispenser is disconnected").For(tx.ID, tx.State)
	}

	// 2. Re-plan against what the dispenser holds now
	plan, err := o.plan(tx.AmountToDispense, tx.SelectedDispense)
	if err != nil {
		return tx.Snapshot(), err
	}
	tx.DispensePlan = plan

	// 3. Freeze the transaction
	if err := tx.TransitionTo(shared.StateConfirmed, o.now()); err != nil {
		return tx.Snapshot(), err
	}
	entry, err := o.entry(tx, shared.StatePaymentMatched, event.TransactionStateChanged)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	if err := o.repo.Update(ctx, tx, entry); err != nil {
		o.logger.Error("Failed to persist confirmation", "transaction_id", id.String(), "error", err)
		return transaction.Snapshot{}, err
	}
	snapshot := tx.Snapshot()
	o.publishTransition(snapshot, shared.StatePaymentMatched)

	// 4. Dispense off the request path
	if err := o.runner.Submit(func() { o.dispense(id) }); err != nil {
		o.logger.Error("Failed to schedule dispense", "transaction_id", id.String(), "error", err)
		failure := shared.NewError(shared.KindHardwareFault, "dispense could not be scheduled").
			For(tx.ID, tx.State).Wrap(err)
		failed, ferr := o.failLocked(ctx, tx, shared.FailureReasonHardwareFault, failure)
		if ferr != nil {
			return snapshot, ferr
		}
		return failed, failure
	}

	o.logger.Info("Transaction confirmed",
		"transaction_id", id.String(),
		"amount_to_dispense", tx.AmountToDispense,
		"units", len(plan),
	)
	return snapshot, nil
}

// Cancel backs out of a transaction that has not been confirmed. Any money
// already inserted is recorded as refund_due.
func (o *OrchestratorImpl) Cancel(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error) {
	unlock := o.locks.Lock(id)
	defer unlock()

	tx, err := o.repo.Get(ctx, id)
	if err != nil {
		return transaction.Snapshot{}, err
	}

	switch {
	case tx.State.IsTerminal():
		return tx.Snapshot(), shared.NewError(shared.KindInvalidTransition,
			"transaction is already %s", tx.State).For(tx.ID, tx.State)
	case !transaction.Cancellable(tx.State):
		return tx.Snapshot(), shared.NewError(shared.KindCannotCancelInFlight,
			"transaction is %s and can no longer be cancelled", tx.State).For(tx.ID, tx.State)
	}

	snapshot, err := o.cancelLocked(ctx, tx, shared.FailureReasonUserCancelled)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	return snapshot, nil
}

// cancelLocked moves tx to CANCELLED. The caller holds tx's lock.
func (o *OrchestratorImpl) cancelLocked(ctx context.Context, tx *transaction.Transaction, reason shared.FailureReason) (transaction.Snapshot, error) {
	prev := tx.State
	tx.RefundDue = tx.InsertedAmount
	tx.FailureReason = reason
	if err := tx.TransitionTo(shared.StateCancelled, o.now()); err != nil {
		return transaction.Snapshot{}, err
	}
	entry, err := o.entry(tx, prev, event.TransactionCancelled)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	if err := o.repo.Update(ctx, tx, entry.WithReason(string(reason))); err != nil {
		o.logger.Error("Failed to persist cancellation", "transaction_id", tx.ID.String(), "error", err)
		return transaction.Snapshot{}, err
	}

	o.logger.Info("Transaction cancelled",
		"transaction_id", tx.ID.String(),
		"reason", string(reason),
		"refund_due", tx.RefundDue,
	)

	snapshot := tx.Snapshot()
	o.publishTransition(snapshot, prev)
	o.publishStatus(ctx)
	return snapshot, nil
}

// failLocked moves tx to FAILED with the kind carried by cause. The caller
// holds tx's lock.
func (o *OrchestratorImpl) failLocked(ctx context.Context, tx *transaction.Transaction, reason shared.FailureReason, cause error) (transaction.Snapshot, error) {
	prev := tx.State
	tx.Fail(reason, errorKind(cause), errorMessage(cause))
	if err := tx.TransitionTo(shared.StateFailed, o.now()); err != nil {
		return transaction.Snapshot{}, err
	}
	entry, err := o.entry(tx, prev, event.TransactionError)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	if err := o.repo.Update(ctx, tx, entry.WithReason(string(reason))); err != nil {
		o.logger.Error("Failed to persist failure", "transaction_id", tx.ID.String(), "error", err)
		return transaction.Snapshot{}, err
	}

	o.logger.Error("Transaction failed",
		"transaction_id", tx.ID.String(),
		"reason", string(reason),
		"error", cause,
	)

	snapshot := tx.Snapshot()
	o.publishTransition(snapshot, prev)
	o.publishStatus(ctx)
	return snapshot, nil
}
