package dispense

import (
	"sync"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

type AlertLevel string

const (
	AlertLow         AlertLevel = "LOW"
	AlertEmpty       AlertLevel = "EMPTY"
	AlertStorageFull AlertLevel = "STORAGE_FULL"
)

// Alert flags a denomination that needs operator attention
type Alert struct {
	Level        AlertLevel          `json:"level"`
	Denomination shared.Denomination `json:"denomination"`
	Count        int                 `json:"count"`
}

// Thresholds drive Alerts
type Thresholds struct {
	LowBillCount    int
	LowCoinCount    int
	StorageCapacity int
}

// Stock is the count held for one denomination
type Stock struct {
	Denomination shared.Denomination `json:"denomination"`
	Count        int                 `json:"count"`
}

// Snapshot is a point-in-time copy of the machine's cash
type Snapshot struct {
	Dispenser []Stock `json:"dispenser"`
	Storage   []Stock `json:"storage"`
	Alerts    []Alert `json:"alerts"`
}

// Inventory tracks cash loaded in the dispenser and cash accepted into storage.
// It is safe for concurrent use.
type Inventory struct {
	mu         sync.Mutex
	dispenser  map[shared.Denomination]int
	storage    map[shared.Denomination]int
	thresholds Thresholds
}

func NewInventory(initial map[shared.Denomination]int, thresholds Thresholds) *Inventory {
	inv := &Inventory{
		dispenser:  make(map[shared.Denomination]int, len(initial)),
		storage:    make(map[shared.Denomination]int),
		thresholds: thresholds,
	}
	for d, n := range initial {
		if n > 0 {
			inv.dispenser[d] = n
		}
	}
	return inv
}

// Available returns dispenser counts for the given denominations
func (inv *Inventory) Available(denoms []shared.Denomination) map[shared.Denomination]int {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make(map[shared.Denomination]int, len(denoms))
	for _, d := range denoms {
		out[d] = inv.dispenser[d]
	}
	return out
}

// Reserve takes the plan's units out of the dispenser, all or nothing
func (inv *Inventory) Reserve(plan []PlanItem) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, item := range plan {
		if inv.dispenser[item.Denomination] < item.Count {
			return shared.NewError(shared.KindUnsatisfiableDispenseAmount,
				"only %d of %s left, need %d", inv.dispenser[item.Denomination], item.Denomination, item.Count)
		}
	}
	for _, item := range plan {
		inv.dispenser[item.Denomination] -= item.Count
	}
	return nil
}

// Restore puts reserved but undispensed units back
func (inv *Inventory) Restore(items []PlanItem) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, item := range items {
		if item.Count > 0 {
			inv.dispenser[item.Denomination] += item.Count
		}
	}
}

// Refill adds units to the dispenser
func (inv *Inventory) Refill(d shared.Denomination, count int) error {
	if count <= 0 || d.Value <= 0 {
		return shared.NewError(shared.KindInvalidAmount, "refill of %d %s is not positive", count, d)
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.dispenser[d] += count
	return nil
}

// Set overwrites dispenser counts, as after an operator recount
func (inv *Inventory) Set(counts map[shared.Denomination]int) error {
	for d, n := range counts {
		if n < 0 || d.Value <= 0 {
			return shared.NewError(shared.KindInvalidAmount, "count %d for %s is invalid", n, d)
		}
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for d, n := range counts {
		inv.dispenser[d] = n
	}
	return nil
}

// Store records accepted cash. E-wallet credits are not physical and are ignored.
func (inv *Inventory) Store(d shared.Denomination) {
	if d.Kind == shared.KindEWallet {
		return
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	inv.storage[d]++
}

// Accepting reports whether storage still has room for d
func (inv *Inventory) Accepting(d shared.Denomination) bool {
	if d.Kind == shared.KindEWallet || inv.thresholds.StorageCapacity <= 0 {
		return true
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	return inv.storage[d] < inv.thresholds.StorageCapacity
}

func (inv *Inventory) Snapshot() Snapshot {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	return Snapshot{
		Dispenser: stocks(inv.dispenser),
		Storage:   stocks(inv.storage),
		Alerts:    inv.alertsLocked(),
	}
}

// Alerts reports low or empty dispenser slots and full storage
func (inv *Inventory) Alerts() []Alert {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	return inv.alertsLocked()
}

func (inv *Inventory) alertsLocked() []Alert {
	var alerts []Alert
	for _, s := range stocks(inv.dispenser) {
		low := inv.thresholds.LowBillCount
		if s.Denomination.Kind == shared.KindCoin {
			low = inv.thresholds.LowCoinCount
		}
		switch {
		case s.Count == 0:
			alerts = append(alerts, Alert{Level: AlertEmpty, Denomination: s.Denomination})
		case s.Count <= low:
			alerts = append(alerts, Alert{Level: AlertLow, Denomination: s.Denomination, Count: s.Count})
		}
	}
	if inv.thresholds.StorageCapacity > 0 {
		for _, s := range stocks(inv.storage) {
			if s.Count >= inv.thresholds.StorageCapacity {
				alerts = append(alerts, Alert{Level: AlertStorageFull, Denomination: s.Denomination, Count: s.Count})
			}
		}
	}
	return alerts
}

func stocks(counts map[shared.Denomination]int) []Stock {
	denoms := make([]shared.Denomination, 0, len(counts))
	for d := range counts {
		denoms = append(denoms, d)
	}
	shared.SortDenominations(denoms)

	out := make([]Stock, 0, len(denoms))
	for _, d := range denoms {
		out = append(out, Stock{Denomination: d, Count: counts[d]})
	}
	return out
}
