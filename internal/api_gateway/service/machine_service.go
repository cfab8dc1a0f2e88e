package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// StatusProvider is implemented by the orchestrator
type StatusProvider interface {
	MachineStatus(ctx context.Context) machine.Status
	InventoryChanged(ctx context.Context)
}

// RateLister reports the configured exchange rates
type RateLister interface {
	Rates() map[shared.Currency]float64
}

// ServiceInfo describes one service for kiosk displays
type ServiceInfo struct {
	Type             shared.ServiceType  `json:"type"`
	Label            string              `json:"label"`
	Category         fee.Category        `json:"category"`
	AmountOptions    []int64             `json:"amount_options"`
	InsertCurrency   shared.Currency     `json:"insert_currency"`
	InsertKinds      []shared.InsertKind `json:"insert_kinds"`
	AcceptedBills    []int64             `json:"accepted_bills"`
	AcceptedCoins    []int64             `json:"accepted_coins"`
	DispenseCurrency shared.Currency     `json:"dispense_currency"`
	Dispensable      []int64             `json:"dispensable"`
	ForeignCurrency  shared.Currency     `json:"foreign_currency,omitempty"`
	CashOut          bool                `json:"cash_out"`
}

// ServiceCatalog is the catalog together with the fee policy and rates that price it
type ServiceCatalog struct {
	Services  []ServiceInfo               `json:"services"`
	FeePolicy fee.Policy                  `json:"fee_policy"`
	Rates     map[shared.Currency]float64 `json:"rates"`
}

// MachineServiceImpl implements the MachineService interface
type MachineServiceImpl struct {
	status    StatusProvider
	inventory *dispense.Inventory
	catalog   fee.Catalog
	policy    fee.Policy
	rates     RateLister
	logger    *slog.Logger
}

func NewMachineService(
	logger *slog.Logger,
	status StatusProvider,
	inventory *dispense.Inventory,
	catalog fee.Catalog,
	policy fee.Policy,
	rates RateLister,
) MachineService {
	return &MachineServiceImpl{
		status:    status,
		inventory: inventory,
		catalog:   catalog,
		policy:    policy,
		rates:     rates,
		logger:    logger,
	}
}

func (s *MachineServiceImpl) Status(ctx context.Context) machine.Status {
	return s.status.MachineStatus(ctx)
}

func (s *MachineServiceImpl) Inventory() dispense.Snapshot {
	return s.inventory.Snapshot()
}

// SetInventory applies an operator recount. Keys are validated before anything changes.
func (s *MachineServiceImpl) SetInventory(ctx context.Context, counts map[string]int) (dispense.Snapshot, error) {
	if len(counts) == 0 {
		return dispense.Snapshot{}, shared.NewError(shared.KindInvalidAmount, "no counts given")
	}

	parsed := make(map[shared.Denomination]int, len(counts))
	for key, n := range counts {
		d, err := shared.ParseDenominationKey(strings.ToUpper(strings.TrimSpace(key)))
		if err != nil {
			return dispense.Snapshot{}, shared.NewError(shared.KindInvalidAmount, "unknown denomination %q", key)
		}
		if d.Kind == shared.KindEWallet {
			return dispense.Snapshot{}, shared.NewError(shared.KindInvalidAmount, "%s is not physical cash", key)
		}
		parsed[d] = n
	}

	if err := s.inventory.Set(parsed); err != nil {
		return dispense.Snapshot{}, err
	}

	s.logger.Info("Inventory updated by operator", "denominations", len(parsed))
	s.status.InventoryChanged(ctx)
	return s.inventory.Snapshot(), nil
}

func (s *MachineServiceImpl) AcceptableDenominations(serviceType string) ([]string, error) {
	var services []fee.ServiceConfig
	if serviceType == "" {
		for _, t := range shared.AllServiceTypes() {
			if svc, ok := s.catalog[t]; ok {
				services = append(services, svc)
			}
		}
	} else {
		t, ok := shared.ParseServiceType(serviceType)
		if !ok {
			return nil, shared.NewError(shared.KindInvalidServiceType, "unknown service type %q", serviceType)
		}
		svc, err := s.catalog.Lookup(t)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}

	seen := make(map[shared.Denomination]bool)
	var denoms []shared.Denomination
	for _, svc := range services {
		for _, d := range svc.Accepted {
			if seen[d] || !s.inventory.Accepting(d) {
				continue
			}
			seen[d] = true
			denoms = append(denoms, d)
		}
	}
	shared.SortDenominations(denoms)

	keys := make([]string, 0, len(denoms))
	for _, d := range denoms {
		keys = append(keys, d.Key())
	}
	return keys, nil
}

func (s *MachineServiceImpl) Services() ServiceCatalog {
	var infos []ServiceInfo
	for _, t := range shared.AllServiceTypes() {
		svc, ok := s.catalog[t]
		if !ok {
			continue
		}
		infos = append(infos, ServiceInfo{
			Type:             svc.Type,
			Label:            svc.Label,
			Category:         svc.Category,
			AmountOptions:    svc.AmountOptions,
			InsertCurrency:   svc.InsertCurrency,
			InsertKinds:      svc.InsertKinds,
			AcceptedBills:    svc.AcceptedValues(shared.KindBill),
			AcceptedCoins:    svc.AcceptedValues(shared.KindCoin),
			DispenseCurrency: svc.DispenseCurrency,
			Dispensable:      faceValues(svc.Dispensable),
			ForeignCurrency:  svc.ForeignCurrency,
			CashOut:          svc.CashOut,
		})
	}

	rates := make(map[shared.Currency]float64)
	if s.rates != nil {
		rates = s.rates.Rates()
	}

	return ServiceCatalog{Services: infos, FeePolicy: s.policy, Rates: rates}
}

func faceValues(denoms []shared.Denomination) []int64 {
	seen := make(map[int64]bool, len(denoms))
	values := make([]int64, 0, len(denoms))
	for _, d := range denoms {
		if !seen[d.Value] {
			seen[d.Value] = true
			values = append(values, d.Value)
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values
}
