// Package memory provides a process-local transaction store for demos,
// single-kiosk deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

// TransactionStore keeps transactions and their journal in maps guarded by
// one lock, so a transition and its journal entries land together.
type TransactionStore struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*transaction.Transaction
	entries      []*journal.Entry
	nextEntryID  int64
}

var (
	_ transaction.Repository = (*TransactionStore)(nil)
	_ journal.Repository     = (*TransactionStore)(nil)
)

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		transactions: make(map[uuid.UUID]*transaction.Transaction),
	}
}

func (s *TransactionStore) Create(_ context.Context, tx *transaction.Transaction, entry *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active := s.activeLocked(tx.SessionKey); active != nil {
		return transaction.ConflictingTransaction(tx.SessionKey, active.ID)
	}
	s.transactions[tx.ID] = tx.Clone()
	s.appendLocked(entry)
	return nil
}

func (s *TransactionStore) Get(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, transaction.UnknownTransaction(id)
	}
	return tx.Clone(), nil
}

func (s *TransactionStore) Update(_ context.Context, tx *transaction.Transaction, entries ...*journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.transactions[tx.ID]
	if !ok {
		return transaction.UnknownTransaction(tx.ID)
	}
	if stored.Version != tx.Version {
		return transaction.ErrVersionConflict
	}

	tx.Version++
	s.transactions[tx.ID] = tx.Clone()
	for _, e := range entries {
		s.appendLocked(e)
	}
	return nil
}

func (s *TransactionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return transaction.UnknownTransaction(id)
	}
	delete(s.transactions, id)
	return nil
}

func (s *TransactionStore) FindActive(_ context.Context, sessionKey string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tx := s.activeLocked(sessionKey); tx != nil {
		return tx.Clone(), nil
	}
	return nil, nil
}

func (s *TransactionStore) ListExpired(_ context.Context, now time.Time) ([]*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transaction.Transaction
	for _, tx := range s.transactions {
		if (tx.State == shared.StateCreated || tx.State == shared.StateAwaitingPayment) && tx.Deadline.Before(now) {
			out = append(out, tx.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *TransactionStore) ListByStates(_ context.Context, states ...shared.TransactionState) ([]*transaction.Transaction, error) {
	want := make(map[shared.TransactionState]bool, len(states))
	for _, st := range states {
		want[st] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transaction.Transaction
	for _, tx := range s.transactions {
		if want[tx.State] {
			out = append(out, tx.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

// GetPending returns unpublished journal entries, oldest first
func (s *TransactionStore) GetPending(_ context.Context, limit int) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*journal.Entry
	for _, e := range s.entries {
		if e.Status != shared.OutboxStatusPending {
			continue
		}
		c := *e
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *TransactionStore) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(id)
	if e == nil {
		return journal.ErrEntryNotFound{ID: id}
	}
	switch status {
	case shared.OutboxStatusProcessed:
		e.MarkAsProcessed()
	case shared.OutboxStatusFailedToPublish:
		e.MarkAsFailed()
	default:
		e.Status = status
	}
	return nil
}

func (s *TransactionStore) IncrementAttempts(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(id)
	if e == nil {
		return journal.ErrEntryNotFound{ID: id}
	}
	e.IncrementAttempts()
	return nil
}

func (s *TransactionStore) ListByTransaction(_ context.Context, transactionID uuid.UUID) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*journal.Entry{}
	for _, e := range s.entries {
		if e.TransactionID == transactionID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *TransactionStore) activeLocked(sessionKey string) *transaction.Transaction {
	for _, tx := range s.transactions {
		if tx.SessionKey == sessionKey && !tx.State.IsTerminal() {
			return tx
		}
	}
	return nil
}

func (s *TransactionStore) appendLocked(e *journal.Entry) {
	if e == nil {
		return
	}
	s.nextEntryID++
	e.ID = s.nextEntryID
	c := *e
	s.entries = append(s.entries, &c)
}

func (s *TransactionStore) entryLocked(id int64) *journal.Entry {
	// ids are dense and 1-based
	if id < 1 || id > int64(len(s.entries)) {
		return nil
	}
	return s.entries[id-1]
}

func sortByCreation(txs []*transaction.Transaction) {
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
}
