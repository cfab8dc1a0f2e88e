package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/service"
	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

type MockMachineService struct {
	mock.Mock
}

func (m *MockMachineService) Status(ctx context.Context) machine.Status {
	return m.Called(ctx).Get(0).(machine.Status)
}

func (m *MockMachineService) Inventory() dispense.Snapshot {
	return m.Called().Get(0).(dispense.Snapshot)
}

func (m *MockMachineService) SetInventory(ctx context.Context, counts map[string]int) (dispense.Snapshot, error) {
	args := m.Called(ctx, counts)
	return args.Get(0).(dispense.Snapshot), args.Error(1)
}

func (m *MockMachineService) AcceptableDenominations(serviceType string) ([]string, error) {
	args := m.Called(serviceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMachineService) Services() service.ServiceCatalog {
	return m.Called().Get(0).(service.ServiceCatalog)
}

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) List(ctx context.Context, limit, offset int) ([]*archive.Record, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*archive.Record), args.Get(1).(int64), args.Error(2)
}

func (m *MockArchiveService) Get(ctx context.Context, id uuid.UUID) (*archive.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*archive.Record), args.Error(1)
}

func newMachineRouter(machineSvc *MockMachineService, archiveSvc *MockArchiveService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	mh := NewMachineHandler(logger, machineSvc)
	ah := NewArchiveHandler(logger, archiveSvc)

	r := gin.New()
	r.GET("/status", mh.Status)
	r.GET("/health", mh.Health)
	r.GET("/inventory/", mh.Inventory)
	r.PUT("/inventory/", mh.UpdateInventory)
	r.GET("/inventory/acceptable-denominations", mh.AcceptableDenominations)
	r.GET("/services", mh.Services)
	r.GET("/archive/transactions", ah.List)
	r.GET("/archive/transactions/:id", ah.GetByID)
	return r
}

func TestMachineHandler_StatusAndHealth(t *testing.T) {
	machineSvc := &MockMachineService{}
	active := uuid.NewString()
	machineSvc.On("Status", mock.Anything).Return(machine.Status{
		MachineID:           "kiosk-01",
		BillDevice:          machine.DeviceStatus{Connection: machine.Connected, Firmware: "sim-1.0"},
		CoinDevice:          machine.DeviceStatus{Connection: machine.Connecting},
		Dispenser:           machine.DeviceStatus{Connection: machine.Disconnected, LastError: "jam"},
		ActiveTransactionID: &active,
	})
	r := newMachineRouter(machineSvc, &MockArchiveService{})

	t.Run("status is bare", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodGet, "/status", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, active, body["active_transaction_id"])
		assert.Equal(t, "CONNECTED", body["bill_device"].(map[string]any)["connection"])
		assert.Equal(t, "jam", body["dispenser"].(map[string]any)["last_error"])
	})

	t.Run("health", func(t *testing.T) {
		rr, _ := do(t, r, http.MethodGet, "/health", nil)
		var body HealthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "CONNECTING", body.CoinDevice)
		assert.Equal(t, "DISCONNECTED", body.Dispenser)
	})
}

func TestMachineHandler_Inventory(t *testing.T) {
	b100 := shared.Bill(shared.CurrencyPHP, 100)

	tests := []struct {
		name       string
		body       any
		setupMocks func(svc *MockMachineService)
		wantStatus int
	}{
		{
			name: "refill",
			body: gin.H{"counts": gin.H{"PHP_BILL_100": 50}},
			setupMocks: func(svc *MockMachineService) {
				svc.On("SetInventory", mock.Anything, map[string]int{"PHP_BILL_100": 50}).
					Return(dispense.Snapshot{Dispenser: []dispense.Stock{{Denomination: b100, Count: 50}}}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "invalid key",
			body: gin.H{"counts": gin.H{"PHP_BILL_7": 1}},
			setupMocks: func(svc *MockMachineService) {
				svc.On("SetInventory", mock.Anything, mock.Anything).
					Return(dispense.Snapshot{}, shared.NewError(shared.KindInvalidAmount, "unknown denomination"))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing counts",
			body:       gin.H{},
			setupMocks: func(svc *MockMachineService) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockMachineService{}
			tt.setupMocks(svc)
			rr, _ := do(t, newMachineRouter(svc, &MockArchiveService{}), http.MethodPut, "/inventory/", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			svc.AssertExpectations(t)
		})
	}

	t.Run("get", func(t *testing.T) {
		svc := &MockMachineService{}
		svc.On("Inventory").Return(dispense.Snapshot{Alerts: []dispense.Alert{{Level: dispense.AlertLow, Denomination: b100, Count: 3}}})
		rr, env := do(t, newMachineRouter(svc, &MockArchiveService{}), http.MethodGet, "/inventory/", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, string(env.Data), `"level":"LOW"`)
	})
}

func TestMachineHandler_Catalog(t *testing.T) {
	svc := &MockMachineService{}
	svc.On("AcceptableDenominations", "bill-to-coin").Return([]string{"PHP_BILL_20"}, nil)
	svc.On("AcceptableDenominations", "php-to-btc").Return(nil, shared.NewError(shared.KindInvalidServiceType, "unknown"))
	svc.On("Services").Return(service.ServiceCatalog{Services: []service.ServiceInfo{{Type: shared.ServiceBillToBill}}})
	r := newMachineRouter(svc, &MockArchiveService{})

	rr, env := do(t, r, http.MethodGet, "/inventory/acceptable-denominations?type=bill-to-coin", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"type":"bill-to-coin","denominations":["PHP_BILL_20"]}`, string(env.Data))

	rr, _ = do(t, r, http.MethodGet, "/inventory/acceptable-denominations?type=php-to-btc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env = do(t, r, http.MethodGet, "/services", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), `"bill-to-bill"`)
}

func TestArchiveHandler(t *testing.T) {
	id := uuid.New()

	t.Run("list page", func(t *testing.T) {
		svc := &MockArchiveService{}
		svc.On("List", mock.Anything, 5, 10).Return([]*archive.Record{{TransactionID: id.String(), State: "COMPLETED"}}, int64(11), nil)
		rr, _ := do(t, newMachineRouter(&MockMachineService{}, svc), http.MethodGet, "/archive/transactions?limit=5&offset=10", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var body struct {
			Meta MetaInfo `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, int64(11), body.Meta.TotalItems)
	})

	t.Run("bad pagination", func(t *testing.T) {
		rr, _ := do(t, newMachineRouter(&MockMachineService{}, &MockArchiveService{}), http.MethodGet, "/archive/transactions?limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("archive disabled", func(t *testing.T) {
		svc := &MockArchiveService{}
		svc.On("List", mock.Anything, 20, 0).Return(nil, int64(0), service.ErrArchiveUnavailable)
		rr, env := do(t, newMachineRouter(&MockMachineService{}, svc), http.MethodGet, "/archive/transactions", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Equal(t, "ARCHIVE_UNAVAILABLE", env.Error.Code)
	})

	t.Run("not archived", func(t *testing.T) {
		svc := &MockArchiveService{}
		svc.On("Get", mock.Anything, id).Return(nil, archive.ErrRecordNotFound{TransactionID: id.String()})
		rr, _ := do(t, newMachineRouter(&MockMachineService{}, svc), http.MethodGet, "/archive/transactions/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		svc := &MockArchiveService{}
		svc.On("Get", mock.Anything, id).Return(nil, errors.New("mongo down"))
		rr, _ := do(t, newMachineRouter(&MockMachineService{}, svc), http.MethodGet, "/archive/transactions/"+id.String(), nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
