package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/middleware"
	"github.com/kiosk-transaction-orchestrator/internal/api_gateway/service"
	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Response represents a standard API response. Detail duplicates the error
// message at the top level where kiosk displays read it.
type Response struct {
	Data          any        `json:"data"`
	Detail        string     `json:"detail,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents offset pagination metadata
type MetaInfo struct {
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalItems int64 `json:"total_items"`
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithError sends a JSON response with an error. data may carry the
// current transaction snapshot so the display can re-render.
func RespondWithError(c *gin.Context, statusCode int, code, message string, data any) {
	c.JSON(statusCode, &Response{
		Data:          data,
		Detail:        message,
		Error:         &ErrorInfo{Code: code, Message: message},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithPage sends a page of data with offset metadata
func RespondWithPage(c *gin.Context, data any, limit, offset int, total int64) {
	c.JSON(http.StatusOK, &Response{
		Data:          data,
		Meta:          &MetaInfo{Limit: limit, Offset: offset, TotalItems: total},
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithDomainError maps a kiosk failure to its HTTP status
func RespondWithDomainError(c *gin.Context, err error, data any) {
	var domainErr *shared.Error
	if errors.As(err, &domainErr) {
		message := domainErr.Message
		if message == "" {
			message = string(domainErr.Kind)
		}
		RespondWithError(c, StatusForKind(domainErr.Kind), string(domainErr.Kind), message, data)
		return
	}

	var notArchived archive.ErrRecordNotFound
	switch {
	case errors.As(err, &notArchived):
		RespondNotFound(c, "Transaction not archived")
	case errors.Is(err, service.ErrArchiveUnavailable):
		RespondWithError(c, http.StatusServiceUnavailable, "ARCHIVE_UNAVAILABLE", err.Error(), nil)
	default:
		RespondInternalError(c)
	}
}

// StatusForKind is the single mapping from error kind to HTTP status
func StatusForKind(kind shared.ErrorKind) int {
	switch kind {
	case shared.KindInvalidAmount, shared.KindInvalidServiceType, shared.KindUnsupportedConfiguration:
		return http.StatusBadRequest
	case shared.KindUnsatisfiableDispenseAmount:
		return http.StatusUnprocessableEntity
	case shared.KindUnknownTransaction:
		return http.StatusNotFound
	case shared.KindConflictingTransaction,
		shared.KindTransactionNotAcceptingPayment,
		shared.KindAmountNotMatched,
		shared.KindCannotCancelInFlight,
		shared.KindInvalidTransition:
		return http.StatusConflict
	case shared.KindConnectivityLost:
		return http.StatusServiceUnavailable
	case shared.KindHardwareFault:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data any) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data any) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message, nil)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// RespondInternalError sends a 500 Internal Server Error response with an error
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred", nil)
}
