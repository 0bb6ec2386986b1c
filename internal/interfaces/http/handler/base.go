// Package handler implements the HTTP trigger endpoints.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rkbridge/backend/internal/infrastructure/logger"
	"github.com/rkbridge/backend/internal/interfaces/http/dto"
	"github.com/rkbridge/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common response helpers
type BaseHandler struct{}

func requestID(c *gin.Context) string {
	return logger.GetRequestID(c.Request.Context())
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponse(code, message, requestID(c)))
}

// BindError answers a failed bind with validation details when available
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(requestID(c), details))
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeBadRequest, "Request body too large")
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Malformed request body")
}

// HandleError maps err to a status and code. Internal errors are logged and
// their text is not exposed.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	code := dto.ErrorCode(err)
	status := dto.GetHTTPStatus(code)
	message := err.Error()
	if code == dto.ErrCodeInternal {
		logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
		message = "An unexpected error occurred"
	}
	_ = c.Error(err)
	h.Error(c, status, code, message)
}
