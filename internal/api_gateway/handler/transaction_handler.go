package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/middleware"
	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/service"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
	engine "github.com/kiosk-transaction-orchestrator/internal/transaction_engine/service"
)

// TransactionHandler handles HTTP requests for kiosk transactions
type TransactionHandler struct {
	transactionService service.TransactionService
	simulationEnabled  bool
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService, simulationEnabled bool) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		simulationEnabled:  simulationEnabled,
		logger:             logger,
	}
}

// Create starts a transaction for the caller's session
func (h *TransactionHandler) Create(c *gin.Context) {
	logger := h.requestLogger(c)

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	snapshot, err := h.transactionService.Create(c.Request.Context(), engine.CreateRequest{
		ServiceType:    req.Type,
		Amount:         req.Amount,
		Fee:            req.Fee,
		DispenseDenoms: req.SelectedDispenseDenoms,
		SessionKey:     middleware.GetSessionKey(c),
		CorrelationID:  middleware.GetCorrelationID(c),
	})
	if err != nil {
		logger.Warn("Failed to create transaction", "type", req.Type, "amount", req.Amount, "error", err)
		RespondWithDomainError(c, err, nil)
		return
	}

	RespondCreated(c, snapshot)
}

// GetByID returns the current snapshot, 404 if unknown
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	snapshot, err := h.transactionService.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondOK(c, snapshot)
}

// Active returns the session's open transaction, or data:null
func (h *TransactionHandler) Active(c *gin.Context) {
	snapshot, err := h.transactionService.Active(c.Request.Context(), middleware.GetSessionKey(c))
	if err != nil {
		h.requestLogger(c).Error("Failed to look up active transaction", "error", err)
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondOK(c, snapshot)
}

// Journal returns every recorded transition of a transaction
func (h *TransactionHandler) Journal(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	entries, err := h.transactionService.Journal(c.Request.Context(), id)
	if err != nil {
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondOK(c, mapJournal(entries))
}

// Confirm starts the payout once payment covers the total due
func (h *TransactionHandler) Confirm(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	snapshot, err := h.transactionService.Confirm(c.Request.Context(), id)
	if err != nil {
		h.requestLogger(c).Warn("Confirm refused", "transaction_id", id.String(), "error", err)
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondOK(c, snapshot)
}

// Cancel ends a transaction that has not started paying out
func (h *TransactionHandler) Cancel(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	snapshot, err := h.transactionService.Cancel(c.Request.Context(), id)
	if err != nil {
		h.requestLogger(c).Warn("Cancel refused", "transaction_id", id.String(), "error", err)
		RespondWithDomainError(c, err, snapshotOrNil(snapshot))
		return
	}
	RespondOK(c, snapshot)
}

// Accept is the device adapter path: every refusal is an error response
func (h *TransactionHandler) Accept(c *gin.Context) {
	id, req, ok := h.parseInsert(c)
	if !ok {
		return
	}

	snapshot, err := h.transactionService.RecordAcceptance(c.Request.Context(), id, req)
	if err != nil {
		h.requestLogger(c).Warn("Acceptance refused", "transaction_id", id.String(), "denomination", req.Denomination, "error", err)
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondOK(c, snapshot)
}

// SimulateInsert is best effort: failures are logged and answered with data:null
func (h *TransactionHandler) SimulateInsert(c *gin.Context) {
	if !h.simulationEnabled {
		RespondNotFound(c, "Simulation is disabled")
		return
	}

	id, req, ok := h.parseInsert(c)
	if !ok {
		return
	}

	snapshot, err := h.transactionService.SimulateInsert(c.Request.Context(), id, req)
	if err != nil {
		h.requestLogger(c).Warn("Simulated insert ignored",
			"transaction_id", id.String(),
			"denomination", req.Denomination,
			"insert_type", req.Kind,
			"error", err,
		)
		RespondOK(c, nil)
		return
	}
	RespondOK(c, snapshot)
}

func (h *TransactionHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.requestLogger(c).Warn("Invalid transaction ID", "id", idParam, "error", err)
		RespondWithDomainError(c, shared.NewError(shared.KindUnknownTransaction, "transaction %q not found", idParam), nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *TransactionHandler) parseInsert(c *gin.Context) (uuid.UUID, engine.AcceptanceRequest, bool) {
	id, ok := h.parseID(c)
	if !ok {
		return uuid.Nil, engine.AcceptanceRequest{}, false
	}

	var req InsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.requestLogger(c).Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return uuid.Nil, engine.AcceptanceRequest{}, false
	}

	kind := strings.ToLower(strings.TrimSpace(req.InsertType))
	if kind == "" {
		kind = string(shared.KindBill)
	}

	return id, engine.AcceptanceRequest{
		Denomination:  req.Denom,
		Kind:          kind,
		CorrelationID: middleware.GetCorrelationID(c),
	}, true
}

func (h *TransactionHandler) requestLogger(c *gin.Context) *slog.Logger {
	if correlationID := middleware.GetCorrelationID(c); correlationID != "" {
		return h.logger.With("correlation_id", correlationID)
	}
	return h.logger
}

func snapshotOrNil(s transaction.Snapshot) any {
	if s.TransactionID == "" {
		return nil
	}
	return s
}
