package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/workspace-gin/internal/service"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// HandleServiceError 将服务层错误映射为 HTTP 响应
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		Error(c, http.StatusNotFound, "resource not found", err.Error())
	case errors.Is(err, service.ErrInvalidState):
		Error(c, http.StatusConflict, "invalid request state", err.Error())
	case errors.Is(err, service.ErrDuplicateDecision):
		Error(c, http.StatusConflict, "decision already recorded for this level", err.Error())
	case errors.Is(err, service.ErrNotEligible):
		Error(c, http.StatusForbidden, "not eligible to approve", err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		Error(c, http.StatusForbidden, "operation not permitted", err.Error())
	case errors.Is(err, service.ErrInvalidTarget):
		Error(c, http.StatusUnprocessableEntity, "invalid delegation target", err.Error())
	case errors.Is(err, service.ErrEmptyPermissionSet):
		Error(c, http.StatusBadRequest, "at least one permission must be granted", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal server error", err.Error())
	}
}
