package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
	engine "github.com/kiosk-transaction-orchestrator/internal/transaction_engine/service"
)

// TransactionService is the part of the orchestrator the REST layer drives
type TransactionService interface {
	// Create starts a transaction for the caller's session.
	// Returns ConflictingTransaction if the session already has one open
	Create(ctx context.Context, req engine.CreateRequest) (transaction.Snapshot, error)

	Get(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error)

	// Active returns nil when the session has no open transaction
	Active(ctx context.Context, sessionKey string) (*transaction.Snapshot, error)

	Journal(ctx context.Context, id uuid.UUID) ([]*journal.Entry, error)

	// RecordAcceptance applies money reported by a device adapter
	RecordAcceptance(ctx context.Context, id uuid.UUID, req engine.AcceptanceRequest) (transaction.Snapshot, error)

	// SimulateInsert is the development path for keyboard-driven inserts
	SimulateInsert(ctx context.Context, id uuid.UUID, req engine.AcceptanceRequest) (transaction.Snapshot, error)

	Confirm(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error)

	// Cancel returns the current snapshot alongside a refusal
	Cancel(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error)
}

// MachineService exposes machine status, cash inventory and the service catalog
type MachineService interface {
	Status(ctx context.Context) machine.Status

	Inventory() dispense.Snapshot

	// SetInventory overwrites dispenser counts keyed by denomination key, e.g. PHP_BILL_100
	SetInventory(ctx context.Context, counts map[string]int) (dispense.Snapshot, error)

	// AcceptableDenominations lists denomination keys that can still be taken in.
	// An empty service type covers every service.
	AcceptableDenominations(serviceType string) ([]string, error)

	Services() ServiceCatalog
}

// ArchiveService reads the long-term audit copy of finished transactions
type ArchiveService interface {
	// List returns a page of finished transactions and the total count.
	// Returns ErrArchiveUnavailable when no archive is configured
	List(ctx context.Context, limit, offset int) ([]*archive.Record, int64, error)

	// Get returns ErrRecordNotFound for transactions never archived
	Get(ctx context.Context, transactionID uuid.UUID) (*archive.Record, error)
}
