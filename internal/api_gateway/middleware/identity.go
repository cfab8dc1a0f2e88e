package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kiosk-transaction-orchestrator/internal/config"
)

const (
	// CorrelationIDHeader is the HTTP header for correlation ID
	CorrelationIDHeader = "X-Correlation-ID"
	// CorrelationIDKey is the key used to store correlation ID in the context
	CorrelationIDKey = "correlation_id"

	// KioskSessionHeader lets a display claim its own session in session scope
	KioskSessionHeader = "X-Kiosk-Session"
	// SessionKeyKey stores the resolved one-active scope key
	SessionKeyKey = "session_key"
)

// CorrelationID middleware ensures each request has a unique identifier for tracing
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := strings.TrimSpace(c.GetHeader(CorrelationIDHeader))
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

// KioskSession resolves which session a request belongs to. In process scope
// every request shares the machine id; in session scope the header wins.
func KioskSession(scope, machineID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := machineID
		if scope == config.ScopeSession {
			if header := strings.TrimSpace(c.GetHeader(KioskSessionHeader)); header != "" {
				key = header
			}
		}
		c.Set(SessionKeyKey, key)
		c.Next()
	}
}

// GetCorrelationID retrieves the correlation ID from the gin context if present
func GetCorrelationID(c *gin.Context) string {
	return getString(c, CorrelationIDKey)
}

// GetSessionKey returns the session resolved by KioskSession, or "" when the
// middleware did not run
func GetSessionKey(c *gin.Context) string {
	return getString(c, SessionKeyKey)
}

func getString(c *gin.Context, key string) string {
	if v, exists := c.Get(key); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
