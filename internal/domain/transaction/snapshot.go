package transaction

import (
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/ledger"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Snapshot is the external view of a transaction, shared by the REST API,
// hub events, the journal and the archive
type Snapshot struct {
	TransactionID    string              `json:"transaction_id" bson:"transaction_id"`
	Type             string              `json:"type" bson:"type"`
	State            string              `json:"state" bson:"state"`
	Phase            string              `json:"phase" bson:"phase"`
	TargetAmount     int64               `json:"target_amount" bson:"target_amount"`
	Fee              int64               `json:"fee" bson:"fee"`
	TotalDue         int64               `json:"total_due" bson:"total_due"`
	AmountToDispense int64               `json:"amount_to_dispense" bson:"amount_to_dispense"`
	ConvertedAmount  int64               `json:"converted_amount,omitempty" bson:"converted_amount,omitempty"`
	TransferAmount   int64               `json:"transfer_amount,omitempty" bson:"transfer_amount,omitempty"`
	ExchangeRate     float64             `json:"exchange_rate,omitempty" bson:"exchange_rate,omitempty"`
	InsertCurrency   string              `json:"insert_currency" bson:"insert_currency"`
	DispenseCurrency string              `json:"dispense_currency" bson:"dispense_currency"`
	InsertedAmount   int64               `json:"inserted_amount" bson:"inserted_amount"`
	InsertedDenoms   []ledger.Item       `json:"inserted_denominations" bson:"inserted_denominations"`
	DispensedAmount  int64               `json:"dispensed_amount" bson:"dispensed_amount"`
	DispensePlan     []dispense.PlanItem `json:"dispense_plan" bson:"dispense_plan"`
	DispenseResult   *dispense.Result    `json:"dispense_result,omitempty" bson:"dispense_result,omitempty"`
	SelectedDispense []int64             `json:"selected_dispense_denoms" bson:"selected_dispense_denoms"`
	Deadline         time.Time           `json:"deadline" bson:"deadline"`
	RefundDue        int64               `json:"refund_due,omitempty" bson:"refund_due,omitempty"`
	FailureReason    string              `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	ErrorCode        string              `json:"error_code,omitempty" bson:"error_code,omitempty"`
	ErrorMessage     string              `json:"error_message,omitempty" bson:"error_message,omitempty"`
	CreatedAt        time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at" bson:"updated_at"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// Snapshot renders the transaction for the outside world
func (t *Transaction) Snapshot() Snapshot {
	items := []ledger.Item{}
	if l, err := t.Ledger(); err == nil {
		items = l.Items()
	}

	selected := make([]int64, 0, len(t.SelectedDispense))
	seen := make(map[int64]bool)
	for _, d := range t.SelectedDispense {
		if !seen[d.Value] {
			seen[d.Value] = true
			selected = append(selected, d.Value)
		}
	}

	plan := t.DispensePlan
	if plan == nil {
		plan = []dispense.PlanItem{}
	}

	return Snapshot{
		TransactionID:    t.ID.String(),
		Type:             string(t.ServiceType),
		State:            string(t.State),
		Phase:            string(t.Phase),
		TargetAmount:     t.TargetAmount,
		Fee:              t.Fee,
		TotalDue:         t.TotalDue,
		AmountToDispense: t.AmountToDispense,
		ConvertedAmount:  t.ConvertedAmount,
		TransferAmount:   t.TransferAmount,
		ExchangeRate:     t.ExchangeRate,
		InsertCurrency:   string(t.InsertCurrency),
		DispenseCurrency: string(t.DispenseCurrency),
		InsertedAmount:   t.InsertedAmount,
		InsertedDenoms:   items,
		DispensedAmount:  t.DispensedAmount,
		DispensePlan:     plan,
		DispenseResult:   t.DispenseResult,
		SelectedDispense: selected,
		Deadline:         t.Deadline,
		RefundDue:        t.RefundDue,
		FailureReason:    string(t.FailureReason),
		ErrorCode:        t.ErrorCode,
		ErrorMessage:     t.ErrorMessage,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		CompletedAt:      t.CompletedAt,
	}
}

// Terminal reports whether the snapshot describes a finished transaction
func (s Snapshot) Terminal() bool {
	return shared.TransactionState(s.State).IsTerminal()
}
