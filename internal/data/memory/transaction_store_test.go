package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

func newTx(session string, state shared.TransactionState, deadline time.Time) *transaction.Transaction {
	now := time.Now()
	return &transaction.Transaction{
		ID:             uuid.New(),
		SessionKey:     session,
		ServiceType:    shared.ServiceBillToBill,
		State:          state,
		InsertCurrency: shared.CurrencyPHP,
		Inserted:       map[string]int{},
		Deadline:       deadline,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func entryFor(t *testing.T, tx *transaction.Transaction, from shared.TransactionState) *journal.Entry {
	t.Helper()
	e, err := journal.NewEntry(tx.ID, from, tx.State, "TRANSACTION_STATE_CHANGED", tx.Snapshot())
	require.NoError(t, err)
	return e
}

func TestTransactionStore_CreateEnforcesOneActive(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()

	first := newTx("kiosk-01", shared.StateCreated, time.Now().Add(time.Minute))
	require.NoError(t, store.Create(ctx, first, entryFor(t, first, "")))

	second := newTx("kiosk-01", shared.StateCreated, time.Now().Add(time.Minute))
	err := store.Create(ctx, second, entryFor(t, second, ""))
	assert.ErrorIs(t, err, shared.ErrConflictingTransaction)

	other := newTx("kiosk-02", shared.StateCreated, time.Now().Add(time.Minute))
	assert.NoError(t, store.Create(ctx, other, entryFor(t, other, "")))

	active, err := store.FindActive(ctx, "kiosk-01")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID, active.ID)

	none, err := store.FindActive(ctx, "kiosk-03")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestTransactionStore_UpdateIsOptimistic(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()

	tx := newTx("kiosk-01", shared.StateCreated, time.Now().Add(time.Minute))
	require.NoError(t, store.Create(ctx, tx, entryFor(t, tx, "")))

	a, err := store.Get(ctx, tx.ID)
	require.NoError(t, err)
	b, err := store.Get(ctx, tx.ID)
	require.NoError(t, err)

	require.NoError(t, a.TransitionTo(shared.StateAwaitingPayment, time.Now()))
	require.NoError(t, store.Update(ctx, a, entryFor(t, a, shared.StateCreated)))
	assert.Equal(t, 2, a.Version)

	require.NoError(t, b.TransitionTo(shared.StateCancelled, time.Now()))
	err = store.Update(ctx, b, entryFor(t, b, shared.StateCreated))
	assert.ErrorIs(t, err, transaction.ErrVersionConflict)

	stored, err := store.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.StateAwaitingPayment, stored.State)

	entries, err := store.ListByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2, "the rejected update must not leave a journal entry")
	assert.Equal(t, shared.StateAwaitingPayment, entries[1].ToState)
}

func TestTransactionStore_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()

	tx := newTx("kiosk-01", shared.StateCreated, time.Now().Add(time.Minute))
	require.NoError(t, store.Create(ctx, tx, nil))

	got, err := store.Get(ctx, tx.ID)
	require.NoError(t, err)
	got.Inserted["PHP_BILL_100"] = 3
	got.State = shared.StateFailed

	again, err := store.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Inserted)
	assert.Equal(t, shared.StateCreated, again.State)
}

func TestTransactionStore_Unknown(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()

	_, err := store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrUnknownTransaction)

	assert.ErrorIs(t, store.Delete(ctx, uuid.New()), shared.ErrUnknownTransaction)
	assert.ErrorIs(t, store.Update(ctx, newTx("k", shared.StateCreated, time.Now())), shared.ErrUnknownTransaction)
}

func TestTransactionStore_Listing(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()
	now := time.Now()

	expired := newTx("a", shared.StateAwaitingPayment, now.Add(-time.Second))
	fresh := newTx("b", shared.StateCreated, now.Add(time.Minute))
	matched := newTx("c", shared.StatePaymentMatched, now.Add(-time.Second))
	dispensing := newTx("d", shared.StateDispensing, now.Add(-time.Second))
	for _, tx := range []*transaction.Transaction{expired, fresh, matched, dispensing} {
		require.NoError(t, store.Create(ctx, tx, nil))
	}

	list, err := store.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, expired.ID, list[0].ID)

	list, err = store.ListByStates(ctx, shared.StateDispensing, shared.StateConfirmed)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, dispensing.ID, list[0].ID)
}

func TestTransactionStore_Journal(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()

	tx := newTx("kiosk-01", shared.StateCreated, time.Now().Add(time.Minute))
	require.NoError(t, store.Create(ctx, tx, entryFor(t, tx, "")))
	require.NoError(t, tx.TransitionTo(shared.StateAwaitingPayment, time.Now()))
	require.NoError(t, store.Update(ctx, tx, entryFor(t, tx, shared.StateCreated)))

	pending, err := store.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(1), pending[0].ID)

	require.NoError(t, store.IncrementAttempts(ctx, 1))
	require.NoError(t, store.UpdateStatus(ctx, 1, shared.OutboxStatusProcessed))

	pending, err = store.GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].ID)

	entries, err := store.ListByTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.Equal(t, shared.OutboxStatusProcessed, entries[0].Status)

	var notFound journal.ErrEntryNotFound
	assert.ErrorAs(t, store.UpdateStatus(ctx, 99, shared.OutboxStatusProcessed), &notFound)
}

func TestTransactionStore_ConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := newTx("kiosk-01", shared.StateCreated, time.Now().Add(time.Minute))
			if store.Create(ctx, tx, nil) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
