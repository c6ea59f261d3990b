package handlers

import (
	"net/http"

	"github.com/dmalikzadeh/ai-interview/internal/services"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	live services.LiveService
	logs services.TurnLogService
}

func NewAdminHandler(live services.LiveService, logs services.TurnLogService) *AdminHandler {
	return &AdminHandler{live: live, logs: logs}
}

// Live lists the sessions running on this instance.
func (h *AdminHandler) Live(c *gin.Context) {
	sessions := h.live.List()
	c.JSON(http.StatusOK, gin.H{"count": len(sessions), "sessions": sessions})
}

// AILog returns the audit trail of AI calls for a session.
func (h *AdminHandler) AILog(c *gin.Context) {
	sessionID := c.Param("session_id")
	rows, err := h.logs.ListBySession(c.Request.Context(), sessionID, int64(queryLimit(c, 100, 500)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "logs": rows})
}
