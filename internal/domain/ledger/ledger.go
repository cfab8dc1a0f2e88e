// Package ledger accumulates the money accepted for a single transaction.
// The running total is always derived from the per-denomination counts.
package ledger

import (
	"fmt"

	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Item is one denomination and how many units of it were accepted
type Item struct {
	Denomination shared.Denomination `json:"denomination" bson:"denomination"`
	Count        int                 `json:"count" bson:"count"`
}

// Subtotal returns value × count
func (i Item) Subtotal() int64 {
	return i.Denomination.Value * int64(i.Count)
}

// Ledger tracks accepted denominations in a single currency. It is not safe
// for concurrent use; the owning transaction is serialized by its caller.
type Ledger struct {
	currency shared.Currency
	counts   map[string]int
	denoms   map[string]shared.Denomination
}

// New returns an empty ledger for currency
func New(currency shared.Currency) *Ledger {
	return &Ledger{
		currency: currency,
		counts:   make(map[string]int),
		denoms:   make(map[string]shared.Denomination),
	}
}

// FromCounts rebuilds a ledger from persisted denomination-key counts
func FromCounts(currency shared.Currency, counts map[string]int) (*Ledger, error) {
	l := New(currency)
	for key, n := range counts {
		if n == 0 {
			continue
		}
		d, err := shared.ParseDenominationKey(key)
		if err != nil {
			return nil, err
		}
		if err := l.Add(d, n); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add records count units of d. Counts only ever grow.
func (l *Ledger) Add(d shared.Denomination, count int) error {
	if count <= 0 {
		return shared.NewError(shared.KindInvalidAmount, "count must be positive, got %d", count)
	}
	if d.Value <= 0 {
		return shared.NewError(shared.KindInvalidAmount, "denomination value must be positive, got %d", d.Value)
	}
	if d.Currency != l.currency {
		return shared.NewError(shared.KindInvalidAmount, "ledger holds %s, cannot accept %s", l.currency, d.Currency)
	}
	key := d.Key()
	l.counts[key] += count
	l.denoms[key] = d
	return nil
}

// Total is Σ value × count over every accepted denomination
func (l *Ledger) Total() int64 {
	var total int64
	for key, n := range l.counts {
		total += l.denoms[key].Value * int64(n)
	}
	return total
}

// Currency returns the ledger currency
func (l *Ledger) Currency() shared.Currency {
	return l.currency
}

// Counts returns a copy of the denomination-key counts
func (l *Ledger) Counts() map[string]int {
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// CountOf returns how many units of kind were accepted
func (l *Ledger) CountOf(kind shared.InsertKind) int {
	n := 0
	for key, c := range l.counts {
		if l.denoms[key].Kind == kind {
			n += c
		}
	}
	return n
}

// Items lists accepted denominations in dispense order
func (l *Ledger) Items() []Item {
	denoms := make([]shared.Denomination, 0, len(l.denoms))
	for _, d := range l.denoms {
		denoms = append(denoms, d)
	}
	shared.SortDenominations(denoms)

	items := make([]Item, 0, len(denoms))
	for _, d := range denoms {
		items = append(items, Item{Denomination: d, Count: l.counts[d.Key()]})
	}
	return items
}

func (l *Ledger) String() string {
	return fmt.Sprintf("ledger(%s, total=%d)", l.currency, l.Total())
}
