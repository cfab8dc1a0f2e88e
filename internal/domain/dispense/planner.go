// Package dispense plans and executes payouts against the dispenser inventory.
package dispense

import (
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// PlanItem is a number of units of one denomination to pay out
type PlanItem struct {
	Denomination shared.Denomination `json:"denomination" bson:"denomination"`
	Count        int                 `json:"count" bson:"count"`
}

// Subtotal is the value of the item
func (p PlanItem) Subtotal() int64 {
	return p.Denomination.Value * int64(p.Count)
}

// PlanTotal sums the value of a plan
func PlanTotal(plan []PlanItem) int64 {
	var total int64
	for _, item := range plan {
		total += item.Subtotal()
	}
	return total
}

// PlanUnits counts the physical units in a plan
func PlanUnits(plan []PlanItem) int {
	units := 0
	for _, item := range plan {
		units += item.Count
	}
	return units
}

// PlanDispense splits amount into the allowed denominations, bounded by what
// is available. It prefers the largest denominations and falls back to
// searching smaller combinations only when the greedy split leaves a
// remainder, e.g. 60 from {20, 50}. It never rounds.
func PlanDispense(amount int64, allowed []shared.Denomination, available map[shared.Denomination]int) ([]PlanItem, error) {
	if amount < 0 {
		return nil, shared.NewError(shared.KindInvalidAmount, "cannot dispense a negative amount %d", amount)
	}
	if amount == 0 {
		return []PlanItem{}, nil
	}

	denoms := make([]shared.Denomination, 0, len(allowed))
	for _, d := range allowed {
		if d.Value > 0 && available[d] > 0 {
			denoms = append(denoms, d)
		}
	}
	shared.SortDenominations(denoms)

	if plan, ok := greedy(amount, denoms, available); ok {
		return plan, nil
	}

	s := &search{denoms: denoms, available: available, dead: make(map[state]bool)}
	counts := make([]int, len(denoms))
	if !s.solve(0, amount, counts) {
		return nil, shared.NewError(shared.KindUnsatisfiableDispenseAmount,
			"%d cannot be made from the available denominations", amount)
	}
	return toPlan(denoms, counts), nil
}

func greedy(amount int64, denoms []shared.Denomination, available map[shared.Denomination]int) ([]PlanItem, bool) {
	counts := make([]int, len(denoms))
	remaining := amount
	for i, d := range denoms {
		n := remaining / d.Value
		if limit := int64(available[d]); n > limit {
			n = limit
		}
		counts[i] = int(n)
		remaining -= n * d.Value
	}
	if remaining != 0 {
		return nil, false
	}
	return toPlan(denoms, counts), true
}

type state struct {
	index     int
	remaining int64
}

// search is a depth-first walk over counts, largest denomination first,
// remembering (index, remaining) pairs that cannot be completed.
type search struct {
	denoms    []shared.Denomination
	available map[shared.Denomination]int
	dead      map[state]bool
}

func (s *search) solve(i int, remaining int64, counts []int) bool {
	if remaining == 0 {
		for j := i; j < len(counts); j++ {
			counts[j] = 0
		}
		return true
	}
	if i == len(s.denoms) || s.dead[state{i, remaining}] {
		return false
	}

	d := s.denoms[i]
	most := remaining / d.Value
	if limit := int64(s.available[d]); most > limit {
		most = limit
	}
	for n := most; n >= 0; n-- {
		counts[i] = int(n)
		if s.solve(i+1, remaining-n*d.Value, counts) {
			return true
		}
	}
	counts[i] = 0
	s.dead[state{i, remaining}] = true
	return false
}

func toPlan(denoms []shared.Denomination, counts []int) []PlanItem {
	plan := make([]PlanItem, 0, len(denoms))
	for i, d := range denoms {
		if counts[i] > 0 {
			plan = append(plan, PlanItem{Denomination: d, Count: counts[i]})
		}
	}
	return plan
}
