package dispense

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

type fakeDispenser struct {
	failOn int // 1-based unit that faults; 0 never faults
	units  []shared.Denomination
}

func (f *fakeDispenser) DispenseUnit(_ context.Context, d shared.Denomination) error {
	if f.failOn > 0 && len(f.units)+1 == f.failOn {
		return errors.New("jam at exit slot")
	}
	f.units = append(f.units, d)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(evt event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) ofType(t event.Type) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTestExecutor(d Dispenser, inv *Inventory, pub event.Publisher) *Executor {
	return NewExecutor(d, inv, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecutor_Execute_Success(t *testing.T) {
	b100 := shared.Bill(shared.CurrencyPHP, 100)
	c5 := shared.Coin(shared.CurrencyPHP, 5)
	inv := NewInventory(map[shared.Denomination]int{b100: 5, c5: 5}, Thresholds{})
	dispenser := &fakeDispenser{}
	pub := &recorder{}
	exec := newTestExecutor(dispenser, inv, pub)

	txID := uuid.New()
	plan := []PlanItem{{Denomination: b100, Count: 2}, {Denomination: c5, Count: 1}}

	res := exec.Execute(context.Background(), txID, plan)

	require.True(t, res.Success)
	assert.NoError(t, res.Err)
	assert.Equal(t, int64(205), res.TotalDispensed)
	assert.Zero(t, res.Shortfall)
	assert.Empty(t, res.ClaimTicketCode)
	assert.Equal(t, plan, res.Dispensed)
	assert.Len(t, dispenser.units, 3)

	progress := pub.ofType(event.DispenseProgress)
	require.Len(t, progress, 3)
	last := progress[2].Payload.(event.DispenseProgressPayload)
	assert.Equal(t, 3, last.CompletedItems)
	assert.Equal(t, 3, last.TotalItems)
	assert.Equal(t, int64(205), last.DispensedAmount)
	assert.Equal(t, 2, last.DispensedBills)
	assert.Equal(t, 1, last.DispensedCoins)

	complete := pub.ofType(event.DispenseComplete)
	require.Len(t, complete, 1)
	payload := complete[0].Payload.(event.DispenseCompletePayload)
	assert.True(t, payload.Success)
	assert.Equal(t, txID.String(), payload.TransactionID)

	avail := inv.Available([]shared.Denomination{b100, c5})
	assert.Equal(t, 3, avail[b100])
	assert.Equal(t, 4, avail[c5])
}

func TestExecutor_Execute_HardwareFault(t *testing.T) {
	b100 := shared.Bill(shared.CurrencyPHP, 100)
	b20 := shared.Bill(shared.CurrencyPHP, 20)
	inv := NewInventory(map[shared.Denomination]int{b100: 3, b20: 3}, Thresholds{})
	dispenser := &fakeDispenser{failOn: 2}
	pub := &recorder{}
	exec := newTestExecutor(dispenser, inv, pub)

	txID := uuid.New()
	plan := []PlanItem{{Denomination: b100, Count: 2}, {Denomination: b20, Count: 1}}

	res := exec.Execute(context.Background(), txID, plan)

	require.False(t, res.Success)
	assert.ErrorIs(t, res.Err, shared.ErrHardwareFault)
	assert.Equal(t, int64(100), res.TotalDispensed)
	assert.Equal(t, int64(120), res.Shortfall)
	require.NotNil(t, res.FailedDenomination)
	assert.Equal(t, b100, *res.FailedDenomination)
	assert.Equal(t, 1, res.FailedCount)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{8}$`), res.ClaimTicketCode)
	assert.Len(t, dispenser.units, 1, "no retry after a fault")

	// only the one unit that left the machine is gone
	avail := inv.Available([]shared.Denomination{b100, b20})
	assert.Equal(t, 2, avail[b100])
	assert.Equal(t, 3, avail[b20])

	complete := pub.ofType(event.DispenseComplete)
	require.Len(t, complete, 1)
	payload := complete[0].Payload.(event.DispenseCompletePayload)
	assert.False(t, payload.Success)
	assert.Equal(t, "PHP_BILL_100", payload.FailedDenomination)
	assert.Equal(t, res.ClaimTicketCode, payload.ClaimTicketCode)
	assert.Equal(t, 1, payload.DispensedBills)
}

func TestExecutor_Execute_InventoryShort(t *testing.T) {
	b50 := shared.Bill(shared.CurrencyPHP, 50)
	inv := NewInventory(map[shared.Denomination]int{b50: 1}, Thresholds{})
	dispenser := &fakeDispenser{}
	pub := &recorder{}
	exec := newTestExecutor(dispenser, inv, pub)

	res := exec.Execute(context.Background(), uuid.New(), []PlanItem{{Denomination: b50, Count: 2}})

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, shared.ErrUnsatisfiableDispenseAmount)
	assert.Equal(t, int64(100), res.Shortfall)
	assert.Empty(t, dispenser.units)
	assert.Equal(t, 1, inv.Available([]shared.Denomination{b50})[b50])
	assert.Len(t, pub.ofType(event.DispenseComplete), 1)
}

func TestNewClaimTicketCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := NewClaimTicketCode()
		require.NoError(t, err)
		assert.Len(t, code, 8)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45)
}
