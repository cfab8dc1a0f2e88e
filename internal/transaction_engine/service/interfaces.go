package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

// Orchestrator owns the lifecycle of kiosk transactions
type Orchestrator interface {
	Create(ctx context.Context, req CreateRequest) (transaction.Snapshot, error)
	RecordAcceptance(ctx context.Context, id uuid.UUID, req AcceptanceRequest) (transaction.Snapshot, error)
	SimulateInsert(ctx context.Context, id uuid.UUID, req AcceptanceRequest) (transaction.Snapshot, error)
	Confirm(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error)
	// Cancel returns the current snapshot alongside a refusal so callers can show it
	Cancel(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error)
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	Get(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error)
	// Active returns nil when the session is idle
	Active(ctx context.Context, sessionKey string) (*transaction.Snapshot, error)
	Journal(ctx context.Context, id uuid.UUID) ([]*journal.Entry, error)
	Recover(ctx context.Context) error
	MachineStatus(ctx context.Context) machine.Status
	InventoryChanged(ctx context.Context)
}

// CreateRequest is a customer's service selection
type CreateRequest struct {
	ServiceType    string
	Amount         int64
	Fee            *int64 // what the display showed, informational only
	DispenseDenoms []int64
	SessionKey     string
	CorrelationID  string
}

// AcceptanceRequest reports one unit of money taken in
type AcceptanceRequest struct {
	Denomination  int64
	Kind          string
	CorrelationID string
}

// RequestValidator checks customer input against the service catalog
type RequestValidator interface {
	ValidateCreate(req CreateRequest) (fee.ServiceConfig, []shared.Denomination, error)
	ValidateAcceptance(svc fee.ServiceConfig, req AcceptanceRequest) (shared.Denomination, error)
}

// DeviceStatus reports hardware connectivity
type DeviceStatus interface {
	Status(d machine.Device) machine.DeviceStatus
	Connected(d machine.Device) bool
}

// RateSource quotes a foreign currency in PHP
type RateSource interface {
	Rate(ctx context.Context, currency shared.Currency) (float64, error)
}

// DispenseExecutor pays out a plan
type DispenseExecutor interface {
	Execute(ctx context.Context, txID uuid.UUID, plan []dispense.PlanItem) dispense.Result
}

// TaskRunner runs dispense jobs off the request path
type TaskRunner interface {
	Submit(task func()) error
}
