package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"showroom-chat/internal/telemetry"
)

// RegisterDebugRoutes wires endpoints that only exist when debug routes
// are enabled. They verify the audit pipeline end to end without touching
// conversation data.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		requestID := requestIDFromContext(c)
		if conversationID := c.Query("conversation_id"); conversationID != "" {
			emitter.EmitConversation(c.Request.Context(), "INFO", "audit test", conversationID, requestID, userIDFromContext(c))
		} else {
			emitter.Emit(c.Request.Context(), "INFO", "audit test", requestID, userIDFromContext(c))
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestID})
	})
}
