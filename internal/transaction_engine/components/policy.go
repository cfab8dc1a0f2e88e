package components

import (
	"fmt"

	"github.com/kiosk-transaction-orchestrator/internal/config"
	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// PolicyFromConfig builds the fee policy and checks it against the catalog
func PolicyFromConfig(cfg config.FeeConfig, catalog fee.Catalog) (fee.Policy, error) {
	policy := fee.Policy{
		Flat:         make(map[shared.ServiceType]int64, len(cfg.Flat)),
		ForexPercent: cfg.ForexPercent,
		Mode:         fee.Mode(cfg.Mode),
	}
	for raw, amount := range cfg.Flat {
		t, ok := shared.ParseServiceType(raw)
		if !ok {
			return fee.Policy{}, fmt.Errorf("flat fee configured for unknown service %q", raw)
		}
		policy.Flat[t] = amount
	}
	for _, tier := range cfg.EWalletTiers {
		policy.Tiers = append(policy.Tiers, fee.Tier{Min: tier.Min, Max: tier.Max, Fee: tier.Fee})
	}

	if err := policy.Validate(catalog); err != nil {
		return fee.Policy{}, err
	}
	return policy, nil
}

// InventoryFromConfig seeds the dispenser from denomination keys such as PHP_BILL_100
func InventoryFromConfig(cfg config.InventoryConfig) (*dispense.Inventory, error) {
	initial := make(map[shared.Denomination]int, len(cfg.Initial))
	for key, count := range cfg.Initial {
		d, err := shared.ParseDenominationKey(key)
		if err != nil {
			return nil, fmt.Errorf("invalid inventory entry: %w", err)
		}
		initial[d] = count
	}
	return dispense.NewInventory(initial, dispense.Thresholds{
		LowBillCount:    cfg.LowBillCount,
		LowCoinCount:    cfg.LowCoinCount,
		StorageCapacity: cfg.StorageCapacity,
	}), nil
}
