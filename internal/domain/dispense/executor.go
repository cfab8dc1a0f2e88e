package dispense

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

const (
	claimTicketAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	claimTicketLength   = 8
)

// Dispenser pays out one physical unit. A failure is a hardware fault and is
// never retried.
type Dispenser interface {
	DispenseUnit(ctx context.Context, d shared.Denomination) error
}

// Result is the outcome of executing a plan
type Result struct {
	Success            bool                 `json:"success" bson:"success"`
	TotalDispensed     int64                `json:"total_dispensed" bson:"total_dispensed"`
	Shortfall          int64                `json:"shortfall" bson:"shortfall"`
	Dispensed          []PlanItem           `json:"dispensed" bson:"dispensed"`
	FailedDenomination *shared.Denomination `json:"failed_denomination,omitempty" bson:"failed_denomination,omitempty"`
	FailedCount        int                  `json:"failed_count,omitempty" bson:"failed_count,omitempty"`
	ClaimTicketCode    string               `json:"claim_ticket_code,omitempty" bson:"claim_ticket_code,omitempty"`
	Err                error                `json:"-" bson:"-"`
}

// Executor runs dispense plans unit by unit, reporting progress as it goes
type Executor struct {
	dispenser Dispenser
	inventory *Inventory
	publisher event.Publisher
	logger    *slog.Logger
}

func NewExecutor(dispenser Dispenser, inventory *Inventory, publisher event.Publisher, logger *slog.Logger) *Executor {
	return &Executor{
		dispenser: dispenser,
		inventory: inventory,
		publisher: publisher,
		logger:    logger.With("component", "dispense_executor"),
	}
}

// Execute reserves the plan's inventory and dispenses it. On a fault it stops,
// returns the undispensed units to the inventory and issues a claim ticket for
// the shortfall. DISPENSE_COMPLETE is published in every case.
func (e *Executor) Execute(ctx context.Context, txID uuid.UUID, plan []PlanItem) Result {
	target := PlanTotal(plan)
	totalUnits := PlanUnits(plan)

	if err := e.inventory.Reserve(plan); err != nil {
		res := e.fail(txID, Result{Shortfall: target, Err: err}, nil, 0)
		e.publishComplete(txID, res)
		return res
	}

	var (
		res       Result
		completed int
		bills     int
		coins     int
	)
	for idx, item := range plan {
		for n := 0; n < item.Count; n++ {
			if err := e.dispenser.DispenseUnit(ctx, item.Denomination); err != nil {
				left := undispensed(plan, idx, n)
				e.inventory.Restore(left)

				res.Shortfall = target - res.TotalDispensed
				res.Err = shared.NewError(shared.KindHardwareFault,
					"dispenser failed on %s after %d of %d units", item.Denomination, completed, totalUnits).
					For(txID, shared.StateDispensing).Wrap(err)
				d := item.Denomination
				res = e.fail(txID, res, &d, item.Count-n)
				e.publishComplete(txID, res)
				return res
			}

			completed++
			res.TotalDispensed += item.Denomination.Value
			res.Dispensed = addUnit(res.Dispensed, item.Denomination)
			if item.Denomination.Kind == shared.KindCoin {
				coins++
			} else {
				bills++
			}

			e.publisher.Publish(event.New(event.DispenseProgress, event.DispenseProgressPayload{
				TransactionID:   txID.String(),
				CompletedItems:  completed,
				TotalItems:      totalUnits,
				DispensedAmount: res.TotalDispensed,
				DispensedBills:  bills,
				DispensedCoins:  coins,
			}))
		}
	}

	res.Success = true
	e.logger.Info("dispense completed",
		"transaction_id", txID,
		"dispensed_amount", res.TotalDispensed,
		"units", completed)
	e.publishComplete(txID, res)
	return res
}

func (e *Executor) fail(txID uuid.UUID, res Result, failed *shared.Denomination, failedCount int) Result {
	res.Success = false
	res.FailedDenomination = failed
	res.FailedCount = failedCount

	code, err := NewClaimTicketCode()
	if err != nil {
		e.logger.Error("failed to generate claim ticket", "transaction_id", txID, "error", err)
	}
	res.ClaimTicketCode = code

	e.logger.Error("dispense failed",
		"transaction_id", txID,
		"dispensed_amount", res.TotalDispensed,
		"shortfall", res.Shortfall,
		"claim_ticket_code", code,
		"error", res.Err)
	return res
}

func (e *Executor) publishComplete(txID uuid.UUID, res Result) {
	payload := event.DispenseCompletePayload{
		TransactionID:   txID.String(),
		Success:         res.Success,
		TotalDispensed:  res.TotalDispensed,
		Shortfall:       res.Shortfall,
		FailedCount:     res.FailedCount,
		ClaimTicketCode: res.ClaimTicketCode,
	}
	for _, item := range res.Dispensed {
		if item.Denomination.Kind == shared.KindCoin {
			payload.DispensedCoins += item.Count
		} else {
			payload.DispensedBills += item.Count
		}
	}
	if res.FailedDenomination != nil {
		payload.FailedDenomination = res.FailedDenomination.Key()
	}
	e.publisher.Publish(event.New(event.DispenseComplete, payload))
}

// undispensed is what remains of plan from unit n of item idx onwards
func undispensed(plan []PlanItem, idx, n int) []PlanItem {
	left := []PlanItem{{Denomination: plan[idx].Denomination, Count: plan[idx].Count - n}}
	return append(left, plan[idx+1:]...)
}

func addUnit(items []PlanItem, d shared.Denomination) []PlanItem {
	if last := len(items) - 1; last >= 0 && items[last].Denomination == d {
		items[last].Count++
		return items
	}
	return append(items, PlanItem{Denomination: d, Count: 1})
}

// NewClaimTicketCode returns an 8 character A-Z0-9 code the customer presents
// to collect a shortfall
func NewClaimTicketCode() (string, error) {
	limit := big.NewInt(int64(len(claimTicketAlphabet)))
	code := make([]byte, claimTicketLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		code[i] = claimTicketAlphabet[n.Int64()]
	}
	return string(code), nil
}
