package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/fee"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

type MockStatusProvider struct {
	mock.Mock
}

func (m *MockStatusProvider) MachineStatus(ctx context.Context) machine.Status {
	return m.Called(ctx).Get(0).(machine.Status)
}

func (m *MockStatusProvider) InventoryChanged(ctx context.Context) {
	m.Called(ctx)
}

type staticRates map[shared.Currency]float64

func (r staticRates) Rates() map[shared.Currency]float64 { return r }

func newMachineService(t *testing.T, status *MockStatusProvider, inv *dispense.Inventory) MachineService {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	policy := fee.Policy{
		Flat:         map[shared.ServiceType]int64{shared.ServiceBillToBill: 10},
		Tiers:        []fee.Tier{{Min: 1, Max: 500, Fee: 15}},
		ForexPercent: 5,
		Mode:         fee.ModeAdded,
	}
	return NewMachineService(logger, status, inv, fee.DefaultCatalog(), policy, staticRates{shared.CurrencyUSD: 58.7656})
}

func TestMachineService_SetInventory(t *testing.T) {
	ctx := context.Background()
	b100 := shared.Bill(shared.CurrencyPHP, 100)

	tests := []struct {
		name       string
		counts     map[string]int
		setupMocks func(status *MockStatusProvider)
		wantKind   shared.ErrorKind
		wantCount  int
	}{
		{
			name:   "recount applied and announced",
			counts: map[string]int{"php_bill_100": 40},
			setupMocks: func(status *MockStatusProvider) {
				status.On("InventoryChanged", ctx).Return().Once()
			},
			wantCount: 40,
		},
		{
			name:       "unknown key",
			counts:     map[string]int{"PHP_BILL_abc": 3},
			setupMocks: func(status *MockStatusProvider) {},
			wantKind:   shared.KindInvalidAmount,
			wantCount:  5,
		},
		{
			name:       "negative count",
			counts:     map[string]int{"PHP_BILL_100": -1},
			setupMocks: func(status *MockStatusProvider) {},
			wantKind:   shared.KindInvalidAmount,
			wantCount:  5,
		},
		{
			name:       "empty body",
			counts:     map[string]int{},
			setupMocks: func(status *MockStatusProvider) {},
			wantKind:   shared.KindInvalidAmount,
			wantCount:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := &MockStatusProvider{}
			tt.setupMocks(status)
			inv := dispense.NewInventory(map[shared.Denomination]int{b100: 5}, dispense.Thresholds{})
			svc := newMachineService(t, status, inv)

			_, err := svc.SetInventory(ctx, tt.counts)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, &shared.Error{Kind: tt.wantKind})
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCount, inv.Available([]shared.Denomination{b100})[b100])
			status.AssertExpectations(t)
		})
	}
}

func TestMachineService_AcceptableDenominations(t *testing.T) {
	inv := dispense.NewInventory(nil, dispense.Thresholds{StorageCapacity: 1})
	inv.Store(shared.Bill(shared.CurrencyPHP, 1000))
	svc := newMachineService(t, &MockStatusProvider{}, inv)

	t.Run("service scoped", func(t *testing.T) {
		keys, err := svc.AcceptableDenominations("bill-to-bill")
		require.NoError(t, err)
		assert.Contains(t, keys, "PHP_BILL_20")
		assert.Contains(t, keys, "PHP_COIN_5")
		assert.NotContains(t, keys, "PHP_BILL_1000", "full storage slot")
		assert.NotContains(t, keys, "USD_BILL_100")
	})

	t.Run("all services", func(t *testing.T) {
		keys, err := svc.AcceptableDenominations("")
		require.NoError(t, err)
		assert.Contains(t, keys, "USD_BILL_100")
		assert.Contains(t, keys, "EUR_BILL_50")
	})

	t.Run("unknown service", func(t *testing.T) {
		_, err := svc.AcceptableDenominations("php-to-btc")
		assert.ErrorIs(t, err, shared.ErrInvalidServiceType)
	})
}

func TestMachineService_Services(t *testing.T) {
	svc := newMachineService(t, &MockStatusProvider{}, dispense.NewInventory(nil, dispense.Thresholds{}))

	catalog := svc.Services()
	require.Len(t, catalog.Services, len(shared.AllServiceTypes()))
	assert.Equal(t, shared.ServiceBillToBill, catalog.Services[0].Type)
	assert.Equal(t, []int64{20, 50, 100, 200, 500}, catalog.Services[0].Dispensable)
	assert.Equal(t, int64(10), catalog.FeePolicy.Flat[shared.ServiceBillToBill])
	assert.InDelta(t, 58.7656, catalog.Rates[shared.CurrencyUSD], 1e-9)
}

func TestMachineService_Status(t *testing.T) {
	ctx := context.Background()
	status := &MockStatusProvider{}
	status.On("MachineStatus", ctx).Return(machine.Status{MachineID: "kiosk-01"})

	svc := newMachineService(t, status, dispense.NewInventory(nil, dispense.Thresholds{}))
	assert.Equal(t, "kiosk-01", svc.Status(ctx).MachineID)
	status.AssertExpectations(t)
}
