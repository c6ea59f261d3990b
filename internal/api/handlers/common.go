package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmalikzadeh/ai-interview/internal/services"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

// queryLimit reads ?limit=, falling back to def outside 1..upper.
func queryLimit(c *gin.Context, def, upper int) int {
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= upper {
			return n
		}
	}
	return def
}

// readCVFile loads a multipart CV and sniffs its content type. Only PDF
// and plain text are accepted.
func readCVFile(fh *multipart.FileHeader) (*services.CVUpload, error) {
	const op = "handlers.readCVFile"

	if fh.Size <= 0 || fh.Size > services.MaxCVBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "cv file must be between 1 byte and 5MB", nil)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, services.MaxCVBytes+1))
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read upload", err)
	}
	if len(data) > services.MaxCVBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "cv file must be between 1 byte and 5MB", nil)
	}

	ct := http.DetectContentType(data)
	switch {
	case ct == "application/pdf":
	case strings.HasPrefix(ct, "text/plain"):
		ct = "text/plain"
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "cv must be a PDF or plain text file", nil)
	}
	return &services.CVUpload{FileName: fh.Filename, MimeType: ct, Data: data}, nil
}
