package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiosk-transaction-orchestrator/internal/config"
	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
	"github.com/kiosk-transaction-orchestrator/internal/transaction_engine/service"
)

// EngineDependencies are the adapters the engine runs against
type EngineDependencies struct {
	Transactions transaction.Repository
	Journal      journal.Repository
	Devices      service.DeviceStatus
	Rates        service.RateSource
	Dispenser    dispense.Dispenser
	Publisher    event.Publisher
}

// Engine bundles the orchestrator with the state it shares with the API
type Engine struct {
	Orchestrator *service.OrchestratorImpl
	Catalog      fee.Catalog
	Policy       fee.Policy
	Inventory    *dispense.Inventory
	Pool         *DispensePool
}

// CreateEngine builds the orchestrator and everything it needs from configuration.
func CreateEngine(ctx context.Context, cfg *config.Config, deps EngineDependencies, logger *slog.Logger) (*Engine, error) {
	catalog := fee.DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	policy, err := PolicyFromConfig(cfg.Fees, catalog)
	if err != nil {
		return nil, fmt.Errorf("invalid fee policy: %w", err)
	}
	inventory, err := InventoryFromConfig(cfg.Inventory)
	if err != nil {
		return nil, err
	}

	pool, err := NewDispensePool(cfg.WorkerPool.Size, cfg.WorkerPool.ReleaseTimeout, logger.With("component", "dispense_pool"))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispense pool: %w", err)
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = event.Discard
	}
	executor := dispense.NewExecutor(deps.Dispenser, inventory, publisher, logger)

	orchestrator := service.NewOrchestrator(ctx, service.Dependencies{
		Transactions: deps.Transactions,
		Journal:      deps.Journal,
		Catalog:      catalog,
		Policy:       policy,
		Validator:    NewRequestValidator(catalog, logger.With("component", "request_validator")),
		Rates:        deps.Rates,
		Devices:      deps.Devices,
		Inventory:    inventory,
		Executor:     executor,
		Runner:       pool,
		Publisher:    publisher,
	}, service.Settings{
		MachineID:      cfg.Kiosk.MachineID,
		PaymentTimeout: cfg.Kiosk.PaymentTimeout,
		TopUpTimeout:   cfg.Kiosk.TopUpTimeout,
	}, logger)

	logger.Info("Created transaction engine",
		"pool_size", cfg.WorkerPool.Size,
		"fee_mode", string(policy.Mode),
		"services", len(catalog),
	)

	return &Engine{
		Orchestrator: orchestrator,
		Catalog:      catalog,
		Policy:       policy,
		Inventory:    inventory,
		Pool:         pool,
	}, nil
}
