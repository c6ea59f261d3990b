package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/services"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type ProfileHandler struct {
	svc services.ProfileService
}

func NewProfileHandler(svc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// UpdateProfileRequest is a partial update; the CV summary is only set by
// uploading a CV.
type UpdateProfileRequest struct {
	FullName   *string   `json:"full_name,omitempty"`
	TargetRole *string   `json:"target_role,omitempty"`
	Skills     *[]string `json:"skills,omitempty"`

	// raw JSON, ex: preferred interview length, language
	Preferences *json.RawMessage `json:"preferences,omitempty"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ProfileHandler.Update", "invalid request body", err))
		return
	}

	existing, err := h.svc.GetMe(c.Request.Context(), userID)
	if err != nil {
		if !utils.IsCode(err, utils.CodeNotFound) {
			writeError(c, err)
			return
		}
		existing = &models.Profile{UserID: userID}
	}

	if req.FullName != nil {
		existing.FullName = *req.FullName
	}
	if req.TargetRole != nil {
		existing.TargetRole = *req.TargetRole
	}
	if req.Skills != nil {
		existing.Skills = *req.Skills
	}
	if req.Preferences != nil {
		existing.Preferences = datatypes.JSON(*req.Preferences)
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := h.svc.Upsert(c.Request.Context(), existing); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, existing)
}
