package handlers

import (
	"net/http"

	"github.com/dmalikzadeh/ai-interview/internal/services"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/gin-gonic/gin"
)

type CVHandler struct {
	svc services.CVFileService
}

func NewCVHandler(svc services.CVFileService) *CVHandler {
	return &CVHandler{svc: svc}
}

func (h *CVHandler) Upload(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "CVHandler.Upload", "missing multipart field 'file'", err))
		return
	}

	cv, err := readCVFile(fh)
	if err != nil {
		writeError(c, err)
		return
	}

	row, err := h.svc.Upload(c.Request.Context(), userID, *cv)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *CVHandler) Latest(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	view, err := h.svc.Latest(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
