package transaction

import "github.com/kiosk-transaction-orchestrator/internal/domain/shared"

var transitions = map[shared.TransactionState][]shared.TransactionState{
	shared.StateCreated:         {shared.StateAwaitingPayment, shared.StateCancelled},
	shared.StateAwaitingPayment: {shared.StatePaymentMatched, shared.StateCancelled},
	shared.StatePaymentMatched:  {shared.StateConfirmed, shared.StateCancelled},
	shared.StateConfirmed:       {shared.StateDispensing, shared.StateFailed},
	shared.StateDispensing:      {shared.StateCompleted, shared.StateFailed},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to shared.TransactionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether a customer may still back out
func Cancellable(s shared.TransactionState) bool {
	return CanTransition(s, shared.StateCancelled)
}
