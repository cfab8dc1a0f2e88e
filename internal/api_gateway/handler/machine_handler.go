package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/service"
)

// MachineHandler serves machine status, inventory and catalog endpoints
type MachineHandler struct {
	machineService service.MachineService
	logger         *slog.Logger
}

func NewMachineHandler(logger *slog.Logger, machineService service.MachineService) *MachineHandler {
	return &MachineHandler{
		machineService: machineService,
		logger:         logger,
	}
}

// Status returns the machine snapshot displays render on connect.
// It is served bare, like the STATE_CHANGE payload.
func (h *MachineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.machineService.Status(c.Request.Context()))
}

// Health reports liveness together with device connectivity
func (h *MachineHandler) Health(c *gin.Context) {
	status := h.machineService.Status(c.Request.Context())
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "ok",
		BillDevice: string(status.BillDevice.Connection),
		CoinDevice: string(status.CoinDevice.Connection),
		Dispenser:  string(status.Dispenser.Connection),
		Timestamp:  time.Now().UTC(),
	})
}

func (h *MachineHandler) Inventory(c *gin.Context) {
	RespondOK(c, h.machineService.Inventory())
}

// UpdateInventory applies an operator refill or recount
func (h *MachineHandler) UpdateInventory(c *gin.Context) {
	var req UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid inventory update", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	snapshot, err := h.machineService.SetInventory(c.Request.Context(), req.Counts)
	if err != nil {
		h.logger.Warn("Inventory update refused", "error", err)
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondOK(c, snapshot)
}

func (h *MachineHandler) AcceptableDenominations(c *gin.Context) {
	serviceType := c.Query("type")
	keys, err := h.machineService.AcceptableDenominations(serviceType)
	if err != nil {
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondOK(c, AcceptableDenominationsResponse{ServiceType: serviceType, Denominations: keys})
}

func (h *MachineHandler) Services(c *gin.Context) {
	RespondOK(c, h.machineService.Services())
}
