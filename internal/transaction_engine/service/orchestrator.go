// Package service drives kiosk transactions through their lifecycle: pricing,
// payment acceptance, confirmation, dispensing, cancellation and expiry.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/device"
	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

// Settings are the machine-level timings and identity
type Settings struct {
	MachineID      string
	PaymentTimeout time.Duration
	TopUpTimeout   time.Duration
}

// Dependencies wires an OrchestratorImpl
type Dependencies struct {
	Transactions transaction.Repository
	Journal      journal.Repository
	Catalog      fee.Catalog
	Policy       fee.Policy
	Validator    RequestValidator
	Rates        RateSource
	Devices      DeviceStatus
	Inventory    *dispense.Inventory
	Executor     DispenseExecutor
	Runner       TaskRunner
	Publisher    event.Publisher
	Clock        func() time.Time // defaults to time.Now
}

type OrchestratorImpl struct {
	repo      transaction.Repository
	journal   journal.Repository
	catalog   fee.Catalog
	policy    fee.Policy
	validator RequestValidator
	rates     RateSource
	devices   DeviceStatus
	inventory *dispense.Inventory
	executor  DispenseExecutor
	runner    TaskRunner
	publisher event.Publisher
	settings  Settings
	logger    *slog.Logger

	// dispenseCtx outlives requests; dispenses are only stopped by hardware
	dispenseCtx context.Context
	now         func() time.Time

	locks    *keyedMutex
	createMu sync.Mutex

	alertsMu   sync.Mutex
	lastAlerts string
}

var _ Orchestrator = (*OrchestratorImpl)(nil)

func NewOrchestrator(appCtx context.Context, deps Dependencies, settings Settings, logger *slog.Logger) *OrchestratorImpl {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = event.Discard
	}
	return &OrchestratorImpl{
		repo:        deps.Transactions,
		journal:     deps.Journal,
		catalog:     deps.Catalog,
		policy:      deps.Policy,
		validator:   deps.Validator,
		rates:       deps.Rates,
		devices:     deps.Devices,
		inventory:   deps.Inventory,
		executor:    deps.Executor,
		runner:      deps.Runner,
		publisher:   publisher,
		settings:    settings,
		logger:      logger.With("component", "orchestrator"),
		dispenseCtx: context.WithoutCancel(appCtx),
		now:         func() time.Time { return clock().UTC() },
		locks:       newKeyedMutex(),
	}
}

// Create prices the request, checks the machine can serve it and opens a
// transaction for the session.
func (o *OrchestratorImpl) Create(ctx context.Context, req CreateRequest) (transaction.Snapshot, error) {
	logger := o.requestLogger(req.CorrelationID)

	// 1. Validate the selection against the catalog
	svc, selected, err := o.validator.ValidateCreate(req)
	if err != nil {
		logger.Warn("Rejected transaction request", "type", req.ServiceType, "amount", req.Amount, "error", err)
		return transaction.Snapshot{}, err
	}

	// 2. Price it, locking the rate for forex
	var rate float64
	if svc.Category == fee.CategoryForex {
		if rate, err = o.rates.Rate(ctx, svc.ForeignCurrency); err != nil {
			return transaction.Snapshot{}, err
		}
	}
	quote, err := fee.ComputeConversion(req.Amount, svc, rate, o.policy)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	if req.Fee != nil && *req.Fee != quote.Fee {
		logger.Warn("Displayed fee differs from computed fee",
			"type", svc.Type,
			"amount", req.Amount,
			"client_fee", *req.Fee,
			"fee", quote.Fee,
		)
	}

	// 3. Make sure the machine can take the money and pay it out
	if acceptor, ok := device.AcceptorFor(svc.PrimaryKind()); ok && o.disconnected(acceptor) {
		return transaction.Snapshot{}, shared.NewError(shared.KindConnectivityLost, "%s is disconnected", acceptor)
	}
	plan, err := o.plan(quote.AmountToDispense, selected)
	if err != nil {
		return transaction.Snapshot{}, err
	}

	// 4. Persist, one active transaction per session
	now := o.now()
	tx := transaction.NewTransaction(o.sessionKey(req.SessionKey), svc, req.Amount, quote, selected, plan,
		now, now.Add(o.settings.PaymentTimeout))
	entry, err := o.entry(tx, "", event.TransactionStateChanged)
	if err != nil {
		return transaction.Snapshot{}, err
	}

	o.createMu.Lock()
	err = o.repo.Create(ctx, tx, entry)
	o.createMu.Unlock()
	if err != nil {
		logger.Warn("Failed to create transaction", "session_key", tx.SessionKey, "error", err)
		return transaction.Snapshot{}, err
	}

	logger.Info("Transaction created",
		"transaction_id", tx.ID.String(),
		"type", svc.Type,
		"amount", req.Amount,
		"fee", quote.Fee,
		"total_due", quote.TotalDue,
	)

	snapshot := tx.Snapshot()
	o.publishTransition(snapshot, "")
	o.publishStatus(ctx)
	return snapshot, nil
}

func (o *OrchestratorImpl) Get(ctx context.Context, id uuid.UUID) (transaction.Snapshot, error) {
	tx, err := o.repo.Get(ctx, id)
	if err != nil {
		return transaction.Snapshot{}, err
	}
	return tx.Snapshot(), nil
}

func (o *OrchestratorImpl) Active(ctx context.Context, sessionKey string) (*transaction.Snapshot, error) {
	tx, err := o.repo.FindActive(ctx, o.sessionKey(sessionKey))
	if err != nil || tx == nil {
		return nil, err
	}
	snapshot := tx.Snapshot()
	return &snapshot, nil
}

// Journal returns the ordered transition history of a transaction
func (o *OrchestratorImpl) Journal(ctx context.Context, id uuid.UUID) ([]*journal.Entry, error) {
	if _, err := o.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return o.journal.ListByTransaction(ctx, id)
}

// MachineStatus assembles the snapshot displays receive on connect and on
// every STATE_CHANGE.
func (o *OrchestratorImpl) MachineStatus(ctx context.Context) machine.Status {
	status := machine.Status{
		MachineID:       o.settings.MachineID,
		BillDevice:      o.devices.Status(machine.DeviceBillAcceptor),
		CoinDevice:      o.devices.Status(machine.DeviceCoinAcceptor),
		Dispenser:       o.devices.Status(machine.DeviceDispenser),
		InventoryAlerts: o.inventory.Alerts(),
		Timestamp:       o.now(),
	}
	if status.InventoryAlerts == nil {
		status.InventoryAlerts = []dispense.Alert{}
	}

	active, err := o.repo.ListByStates(ctx, shared.NonTerminalStates()...)
	if err != nil {
		o.logger.Error("Failed to look up active transaction", "error", err)
		return status
	}
	if n := len(active); n > 0 {
		id := active[n-1].ID.String()
		status.ActiveTransactionID = &id
	}
	return status
}

// InventoryChanged re-evaluates inventory alerts after an operator refill
func (o *OrchestratorImpl) InventoryChanged(ctx context.Context) {
	o.publishAlerts()
	o.publishStatus(ctx)
}

func (o *OrchestratorImpl) plan(amount int64, allowed []shared.Denomination) ([]dispense.PlanItem, error) {
	if amount == 0 {
		return []dispense.PlanItem{}, nil
	}
	return dispense.PlanDispense(amount, allowed, o.inventory.Available(allowed))
}

// disconnected is true only for a device known to be down; a device still
// connecting is given the benefit of the doubt.
func (o *OrchestratorImpl) disconnected(d machine.Device) bool {
	return o.devices.Status(d).Connection == machine.Disconnected
}

func (o *OrchestratorImpl) sessionKey(key string) string {
	if key == "" {
		return o.settings.MachineID
	}
	return key
}

func (o *OrchestratorImpl) requestLogger(correlationID string) *slog.Logger {
	if correlationID == "" {
		return o.logger
	}
	return o.logger.With("correlation_id", correlationID)
}

// entry journals tx's current state as reached from from
func (o *OrchestratorImpl) entry(tx *transaction.Transaction, from shared.TransactionState, evtType event.Type) (*journal.Entry, error) {
	entry, err := journal.NewEntry(tx.ID, from, tx.State, string(evtType), tx.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("failed to journal transaction %s: %w", tx.ID, err)
	}
	return entry, nil
}

// errorKind extracts the kiosk error kind, HARDWARE_FAULT when unknown
func errorKind(err error) shared.ErrorKind {
	var kerr *shared.Error
	if errors.As(err, &kerr) {
		return kerr.Kind
	}
	return shared.KindHardwareFault
}

// errorMessage is the display text of err without the kind prefix
func errorMessage(err error) string {
	var kerr *shared.Error
	if errors.As(err, &kerr) && kerr.Message != "" {
		return kerr.Message
	}
	return err.Error()
}
