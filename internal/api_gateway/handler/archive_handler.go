package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/service"
)

// ArchiveHandler serves finished transactions from the audit archive
type ArchiveHandler struct {
	archiveService service.ArchiveService
	logger         *slog.Logger
}

func NewArchiveHandler(logger *slog.Logger, archiveService service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{
		archiveService: archiveService,
		logger:         logger,
	}
}

// List returns a page of archived transactions, newest first
func (h *ArchiveHandler) List(c *gin.Context) {
	var query ArchiveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	records, total, err := h.archiveService.List(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondWithPage(c, records, query.Limit, query.Offset, total)
}

// GetByID returns one archive record with its full transition history
func (h *ArchiveHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	record, err := h.archiveService.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithDomainError(c, err, nil)
		return
	}
	RespondOK(c, record)
}
