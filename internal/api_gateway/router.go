package api_gateway

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/handler"
	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/middleware"
	"github.com/kiosk-transaction-orchestrator/internal/config"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Transaction *handler.TransactionHandler
	Machine     *handler.MachineHandler
	Archive     *handler.ArchiveHandler
	WebSocket   gin.HandlerFunc
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, cfg *config.Config, r *gin.Engine, h Handlers) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.KioskSession(cfg.Kiosk.ActiveScope, cfg.Kiosk.MachineID))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		transactions := v1.Group("/transaction")
		{
			transactions.POST("/", h.Transaction.Create)
			transactions.GET("/active", h.Transaction.Active)
			transactions.GET("/:id", h.Transaction.GetByID)
			transactions.DELETE("/:id", h.Transaction.Cancel)
			transactions.GET("/:id/journal", h.Transaction.Journal)
			transactions.POST("/:id/confirm", h.Transaction.Confirm)
			transactions.POST("/:id/accept", h.Transaction.Accept)
			transactions.POST("/:id/simulate-insert", h.Transaction.SimulateInsert)
		}

		inventory := v1.Group("/inventory")
		{
			inventory.GET("/", h.Machine.Inventory)
			inventory.PUT("/", h.Machine.UpdateInventory)
			inventory.GET("/acceptable-denominations", h.Machine.AcceptableDenominations)
		}

		archived := v1.Group("/archive/transactions")
		{
			archived.GET("", h.Archive.List)
			archived.GET("/:id", h.Archive.GetByID)
		}

		v1.GET("/status", h.Machine.Status)
		v1.GET("/services", h.Machine.Services)
		v1.GET("/ws", h.WebSocket)
		v1.GET("/health", h.Machine.Health)
	}

	// Unversioned liveness for container probes
	r.GET("/health", h.Machine.Health)
}
