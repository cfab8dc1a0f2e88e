package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/handler"
	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/service"
	"github.com/kiosk-transaction-orchestrator/internal/config"
)

// Services are the backends the HTTP layer calls into
type Services struct {
	Transactions service.TransactionService
	Machine      service.MachineService
	Archive      service.ArchiveService
	// WebSocket upgrades /ws requests, typically the event hub
	WebSocket http.HandlerFunc
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger          *slog.Logger
	httpServer      *http.Server
	httpRouter      *gin.Engine
	shutdownTimeout time.Duration
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, svcs Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	setupRouter(log, cfg, httpRouter, Handlers{
		Transaction: handler.NewTransactionHandler(log.With("component", "transaction_handler"), svcs.Transactions, cfg.Kiosk.SimulationEnabled),
		Machine:     handler.NewMachineHandler(log.With("component", "machine_handler"), svcs.Machine),
		Archive:     handler.NewArchiveHandler(log.With("component", "archive_handler"), svcs.Archive),
		WebSocket:   gin.WrapF(svcs.WebSocket),
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout, // cleared on WebSocket upgrade
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:          log,
		httpServer:      httpServer,
		httpRouter:      httpRouter,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Handler exposes the router for in-process tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
