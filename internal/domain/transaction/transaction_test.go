package transaction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

func newBillToBill(t *testing.T, now time.Time) (*Transaction, fee.ServiceConfig) {
	t.Helper()
	svc, err := fee.DefaultCatalog().Lookup(shared.ServiceBillToBill)
	require.NoError(t, err)

	quote := fee.Quote{Fee: 10, TotalDue: 110, AmountToDispense: 100}
	plan := []dispense.PlanItem{{Denomination: shared.Bill(shared.CurrencyPHP, 100), Count: 1}}
	tx := NewTransaction("kiosk-01", svc, 100, quote, nil, plan, now, now.Add(time.Minute))
	return tx, svc
}

func TestNewTransaction(t *testing.T) {
	now := time.Now()
	tx, _ := newBillToBill(t, now)

	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, shared.StateCreated, tx.State)
	assert.Equal(t, shared.PhaseNormal, tx.Phase)
	assert.Equal(t, int64(110), tx.TotalDue)
	assert.Equal(t, shared.CurrencyPHP, tx.InsertCurrency)
	assert.Equal(t, 1, tx.Version)
	assert.Equal(t, now.Add(time.Minute), tx.Deadline)
	assert.Nil(t, tx.CompletedAt)
}

func TestTransaction_Accept(t *testing.T) {
	now := time.Now()
	tx, _ := newBillToBill(t, now)

	require.NoError(t, tx.Accept(shared.Bill(shared.CurrencyPHP, 100), now))
	assert.False(t, tx.Covered())
	require.NoError(t, tx.Accept(shared.Coin(shared.CurrencyPHP, 10), now))
	assert.True(t, tx.Covered())

	assert.Equal(t, int64(110), tx.InsertedAmount)
	assert.Equal(t, map[string]int{"PHP_BILL_100": 1, "PHP_COIN_10": 1}, tx.Inserted)

	err := tx.Accept(shared.Bill(shared.CurrencyUSD, 10), now)
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)
	assert.Equal(t, int64(110), tx.InsertedAmount)
}

func TestTransaction_AcceptingPayment(t *testing.T) {
	now := time.Now()
	tx, _ := newBillToBill(t, now)

	assert.True(t, tx.AcceptingPayment(now))
	assert.False(t, tx.AcceptingPayment(now.Add(2*time.Minute)), "deadline passed")

	tx.State = shared.StatePaymentMatched
	assert.False(t, tx.AcceptingPayment(now))
}

func TestTransaction_AllowsKind(t *testing.T) {
	tx, svc := newBillToBill(t, time.Now())

	assert.True(t, tx.AllowsKind(svc, shared.KindBill))
	assert.True(t, tx.AllowsKind(svc, shared.KindCoin))
	assert.False(t, tx.AllowsKind(svc, shared.KindEWallet))

	tx.Phase = shared.PhaseTopUp
	assert.False(t, tx.AllowsKind(svc, shared.KindBill))
	assert.True(t, tx.AllowsKind(svc, shared.KindCoin))
}

func TestTransaction_TransitionTo(t *testing.T) {
	tests := []struct {
		from    shared.TransactionState
		to      shared.TransactionState
		allowed bool
	}{
		{shared.StateCreated, shared.StateAwaitingPayment, true},
		{shared.StateCreated, shared.StatePaymentMatched, false},
		{shared.StateAwaitingPayment, shared.StatePaymentMatched, true},
		{shared.StatePaymentMatched, shared.StateConfirmed, true},
		{shared.StatePaymentMatched, shared.StateCancelled, true},
		{shared.StateConfirmed, shared.StateCancelled, false},
		{shared.StateConfirmed, shared.StateDispensing, true},
		{shared.StateDispensing, shared.StateCancelled, false},
		{shared.StateDispensing, shared.StateCompleted, true},
		{shared.StateDispensing, shared.StateFailed, true},
		{shared.StateCompleted, shared.StateFailed, false},
		{shared.StateCancelled, shared.StateAwaitingPayment, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			tx := &Transaction{ID: uuid.New(), State: tt.from}
			now := time.Now()
			err := tx.TransitionTo(tt.to, now)
			if !tt.allowed {
				assert.ErrorIs(t, err, shared.ErrInvalidTransition)
				assert.Equal(t, tt.from, tx.State)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, tx.State)
			if tt.to.IsTerminal() {
				require.NotNil(t, tx.CompletedAt)
				assert.Equal(t, now, *tx.CompletedAt)
			}
		})
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, from := range shared.TerminalStates() {
		for _, to := range append(shared.TerminalStates(), shared.NonTerminalStates()...) {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, Cancellable(shared.StateCreated))
	assert.False(t, Cancellable(shared.StateConfirmed))
}

func TestTransaction_CloneIsDeep(t *testing.T) {
	now := time.Now()
	tx, _ := newBillToBill(t, now)
	require.NoError(t, tx.Accept(shared.Bill(shared.CurrencyPHP, 50), now))
	tx.DispenseResult = &dispense.Result{Dispensed: []dispense.PlanItem{{Count: 1}}}

	c := tx.Clone()
	c.Inserted["PHP_BILL_50"] = 9
	c.DispensePlan[0].Count = 7
	c.DispenseResult.Dispensed[0].Count = 3

	assert.Equal(t, 1, tx.Inserted["PHP_BILL_50"])
	assert.Equal(t, 1, tx.DispensePlan[0].Count)
	assert.Equal(t, 1, tx.DispenseResult.Dispensed[0].Count)
}

func TestTransaction_Snapshot(t *testing.T) {
	now := time.Now()
	tx, svc := newBillToBill(t, now)
	tx.SelectedDispense, _ = svc.ResolveDispense([]int64{100, 50})
	require.NoError(t, tx.Accept(shared.Bill(shared.CurrencyPHP, 100), now))
	require.NoError(t, tx.Accept(shared.Coin(shared.CurrencyPHP, 10), now))

	snap := tx.Snapshot()
	assert.Equal(t, tx.ID.String(), snap.TransactionID)
	assert.Equal(t, "bill-to-bill", snap.Type)
	assert.Equal(t, "CREATED", snap.State)
	assert.Equal(t, int64(110), snap.InsertedAmount)
	assert.Equal(t, []int64{100, 50}, snap.SelectedDispense)
	require.Len(t, snap.InsertedDenoms, 2)
	assert.Equal(t, int64(100), snap.InsertedDenoms[0].Denomination.Value)
	assert.False(t, snap.Terminal())
}
