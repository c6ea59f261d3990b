package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/services"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/gin-gonic/gin"
)

type InterviewHandler struct {
	prep     services.PrepService
	sessions services.SessionService
	live     services.LiveService
	results  services.ResultService
}

func NewInterviewHandler(prep services.PrepService, sessions services.SessionService, live services.LiveService, results services.ResultService) *InterviewHandler {
	return &InterviewHandler{prep: prep, sessions: sessions, live: live, results: results}
}

// PrepareRequest is accepted as JSON or as multipart form fields with an
// optional "cv" file.
type PrepareRequest struct {
	Name          string `json:"name" form:"name"`
	Role          string `json:"role" form:"role"`
	Company       string `json:"company" form:"company"`
	Description   string `json:"description" form:"description"`
	LengthMinutes int    `json:"length_minutes" form:"length_minutes"`
	Language      string `json:"language" form:"language"`
}

type PrepareResponse struct {
	SessionID       string `json:"session_id"`
	Status          string `json:"status"`
	FirstMessage    string `json:"first_message"`
	DurationSeconds int    `json:"duration_seconds"`
	CVSummary       string `json:"cv_summary,omitempty"`
	Description     string `json:"description_summary,omitempty"`
}

func (h *InterviewHandler) Prepare(c *gin.Context) {
	const op = "InterviewHandler.Prepare"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req PrepareRequest
	in := services.PrepareInput{}
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid form", err))
			return
		}
		if fh, err := c.FormFile("cv"); err == nil {
			cv, err := readCVFile(fh)
			if err != nil {
				writeError(c, err)
				return
			}
			in.CV = cv
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
		return
	}

	in.Name = req.Name
	in.Role = req.Role
	in.Company = req.Company
	in.Description = req.Description
	in.LengthMinutes = req.LengthMinutes
	in.Language = req.Language

	sess, err := h.prep.Prepare(c.Request.Context(), userID, in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, PrepareResponse{
		SessionID:       sess.SessionID,
		Status:          sess.Status,
		FirstMessage:    sess.FirstMessage,
		DurationSeconds: sess.Interview.DurationSeconds,
		CVSummary:       sess.Interview.CVSummary,
		Description:     sess.Interview.DescriptionSummary,
	})
}

type SessionResponse struct {
	*models.Session
	Live bool `json:"live"`
}

func (h *InterviewHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.sessions.GetOwned(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	_, live := h.live.Get(sess.SessionID)
	c.JSON(http.StatusOK, SessionResponse{Session: sess, Live: live})
}

func (h *InterviewHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rows, err := h.sessions.ListByUser(c.Request.Context(), userID, int64(queryLimit(c, 20, 100)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": rows})
}

// Discard drops the session and any live state so a new interview can start.
func (h *InterviewHandler) Discard(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.live.Discard(ctx, userID, c.Param("session_id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Results answers 200 with the summary, 202 while it is being produced and
// 502 once it has failed.
func (h *InterviewHandler) Results(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.results.Get(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if view.Status != models.SummaryDone {
		c.JSON(http.StatusAccepted, gin.H{"status": view.Status})
		return
	}
	c.JSON(http.StatusOK, view.Result)
}

func (h *InterviewHandler) RetryResults(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.results.Retry(c.Request.Context(), userID, c.Param("session_id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": models.SummaryPending})
}
