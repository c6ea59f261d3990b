package handlers

import (
	"net/http"

	"github.com/dmalikzadeh/ai-interview/internal/services"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	svc services.ConversationService
}

func NewConversationHandler(svc services.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// ListBySession returns the persisted turns oldest first.
func (h *ConversationHandler) ListBySession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	rows, err := h.svc.ListBySession(c.Request.Context(), userID, sessionID, queryLimit(c, 200, 500))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":    sessionID,
		"conversations": rows,
	})
}

// Search finds the candidate's past answers closest to ?q=.
func (h *ConversationHandler) Search(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	q := c.Query("q")
	if q == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ConversationHandler.Search", "missing query parameter 'q'", nil))
		return
	}

	rows, err := h.svc.SearchSimilar(c.Request.Context(), userID, q, queryLimit(c, 5, 50))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": rows})
}
