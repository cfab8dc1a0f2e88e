// Package transaction models a kiosk transaction and its lifecycle.
package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/ledger"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Transaction is one customer interaction from service selection to payout.
// Pricing fields are fixed at creation; the rate is locked for its lifetime.
type Transaction struct {
	ID          uuid.UUID
	SessionKey  string
	ServiceType shared.ServiceType
	State       shared.TransactionState
	Phase       shared.Phase

	TargetAmount     int64
	Fee              int64
	TotalDue         int64
	AmountToDispense int64
	ConvertedAmount  int64
	TransferAmount   int64
	ExchangeRate     float64
	InsertCurrency   shared.Currency
	DispenseCurrency shared.Currency

	Inserted         map[string]int // denomination key -> count
	InsertedAmount   int64
	SelectedDispense []shared.Denomination
	DispensePlan     []dispense.PlanItem
	DispenseResult   *dispense.Result
	DispensedAmount  int64

	Deadline      time.Time
	RefundDue     int64
	FailureReason shared.FailureReason
	ErrorCode     string
	ErrorMessage  string

	Version     int // For optimistic locking
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// NewTransaction prices a request and returns it in CREATED
func NewTransaction(sessionKey string, svc fee.ServiceConfig, amount int64, quote fee.Quote,
	selected []shared.Denomination, plan []dispense.PlanItem, now time.Time, deadline time.Time) *Transaction {
	return &Transaction{
		ID:               uuid.New(),
		SessionKey:       sessionKey,
		ServiceType:      svc.Type,
		State:            shared.StateCreated,
		Phase:            shared.PhaseNormal,
		TargetAmount:     amount,
		Fee:              quote.Fee,
		TotalDue:         quote.TotalDue,
		AmountToDispense: quote.AmountToDispense,
		ConvertedAmount:  quote.ConvertedAmount,
		TransferAmount:   quote.TransferAmount,
		ExchangeRate:     quote.ExchangeRate,
		InsertCurrency:   svc.InsertCurrency,
		DispenseCurrency: svc.DispenseCurrency,
		Inserted:         make(map[string]int),
		SelectedDispense: selected,
		DispensePlan:     plan,
		Deadline:         deadline,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Ledger rebuilds the money ledger from the persisted counts
func (t *Transaction) Ledger() (*ledger.Ledger, error) {
	return ledger.FromCounts(t.InsertCurrency, t.Inserted)
}

// Accept adds one accepted denomination. It only touches money; state
// changes are driven by the caller.
func (t *Transaction) Accept(d shared.Denomination, now time.Time) error {
	l, err := t.Ledger()
	if err != nil {
		return err
	}
	if err := l.Add(d, 1); err != nil {
		return err
	}
	t.Inserted = l.Counts()
	t.InsertedAmount = l.Total()
	t.UpdatedAt = now
	return nil
}

// Covered reports whether enough money has been inserted
func (t *Transaction) Covered() bool {
	return t.InsertedAmount >= t.TotalDue
}

// AcceptingPayment reports whether the transaction may take money at now
func (t *Transaction) AcceptingPayment(now time.Time) bool {
	if t.State != shared.StateCreated && t.State != shared.StateAwaitingPayment {
		return false
	}
	return !now.After(t.Deadline)
}

// AllowsKind reports whether kind may be inserted in the current phase. The
// top-up window only takes the secondary channel.
func (t *Transaction) AllowsKind(svc fee.ServiceConfig, kind shared.InsertKind) bool {
	if t.Phase == shared.PhaseTopUp {
		secondary, ok := svc.SecondaryKind()
		return ok && kind == secondary
	}
	for _, k := range svc.InsertKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// TransitionTo moves the transaction to next, enforcing the transition table
func (t *Transaction) TransitionTo(next shared.TransactionState, now time.Time) error {
	if !CanTransition(t.State, next) {
		return shared.NewError(shared.KindInvalidTransition, "cannot move from %s to %s", t.State, next).
			For(t.ID, t.State)
	}
	t.State = next
	t.UpdatedAt = now
	if next.IsTerminal() {
		completed := now
		t.CompletedAt = &completed
	}
	return nil
}

// Fail records why the transaction ended badly
func (t *Transaction) Fail(reason shared.FailureReason, code shared.ErrorKind, message string) {
	t.FailureReason = reason
	t.ErrorCode = string(code)
	t.ErrorMessage = message
}

// Clone returns a deep copy, used by stores that hand out values
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.Inserted = make(map[string]int, len(t.Inserted))
	for k, v := range t.Inserted {
		c.Inserted[k] = v
	}
	c.SelectedDispense = append([]shared.Denomination(nil), t.SelectedDispense...)
	c.DispensePlan = append([]dispense.PlanItem(nil), t.DispensePlan...)
	if t.DispenseResult != nil {
		res := *t.DispenseResult
		res.Dispensed = append([]dispense.PlanItem(nil), t.DispenseResult.Dispensed...)
		c.DispenseResult = &res
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		c.CompletedAt = &completed
	}
	return &c
}
