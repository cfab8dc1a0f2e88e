package service

import (
	"context"
	"fmt"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

// transitionEvent is the hub and journal event for reaching state
func transitionEvent(state shared.TransactionState) event.Type {
	switch state {
	case shared.StateCompleted:
		return event.TransactionComplete
	case shared.StateCancelled:
		return event.TransactionCancelled
	case shared.StateFailed:
		return event.TransactionError
	default:
		return event.TransactionStateChanged
	}
}

// publishTransition announces that snapshot was reached from prev. Callers
// must have persisted the transition first.
func (o *OrchestratorImpl) publishTransition(snapshot transaction.Snapshot, prev shared.TransactionState) {
	state := shared.TransactionState(snapshot.State)
	evtType := transitionEvent(state)
	if evtType == event.TransactionError {
		o.publisher.Publish(event.New(evtType, event.TransactionErrorPayload{
			TransactionID: snapshot.TransactionID,
			ErrorCode:     snapshot.ErrorCode,
			ErrorMessage:  snapshot.ErrorMessage,
		}))
		return
	}
	o.publisher.Publish(event.New(evtType, event.StateChangedPayload{
		TransactionID: snapshot.TransactionID,
		State:         snapshot.State,
		PreviousState: string(prev),
		Phase:         snapshot.Phase,
		Transaction:   snapshot,
	}))
}

func (o *OrchestratorImpl) publishAcceptance(snapshot transaction.Snapshot, d shared.Denomination) {
	switch d.Kind {
	case shared.KindBill:
		o.publisher.Publish(event.New(event.BillStored, event.BillStoredPayload{
			TransactionID:  snapshot.TransactionID,
			Value:          d.Value,
			Currency:       string(d.Currency),
			Denomination:   d.Key(),
			InsertedAmount: snapshot.InsertedAmount,
		}))
	case shared.KindCoin:
		o.publisher.Publish(event.New(event.CoinInserted, event.CoinInsertedPayload{
			TransactionID:  snapshot.TransactionID,
			Denomination:   d.Value,
			Currency:       string(d.Currency),
			InsertedAmount: snapshot.InsertedAmount,
		}))
	}
}

// PublishStatus pushes the machine snapshot as STATE_CHANGE
func (o *OrchestratorImpl) PublishStatus(ctx context.Context) {
	o.publishStatus(ctx)
}

func (o *OrchestratorImpl) publishStatus(ctx context.Context) {
	o.publisher.Publish(event.New(event.StateChange, o.MachineStatus(ctx)))
}

// publishAlerts sends INVENTORY_ALERT when the set of alerts changed since
// the last call
func (o *OrchestratorImpl) publishAlerts() {
	alerts := o.inventory.Alerts()
	key := fmt.Sprint(alerts)

	o.alertsMu.Lock()
	changed := key != o.lastAlerts
	o.lastAlerts = key
	o.alertsMu.Unlock()

	if !changed || len(alerts) == 0 {
		return
	}
	o.logger.Warn("Inventory needs attention", "alerts", len(alerts))
	o.publisher.Publish(event.New(event.InventoryAlert, event.InventoryAlertPayload{Alerts: alerts}))
}
