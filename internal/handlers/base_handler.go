package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/assessment-service/internal/models"
	"github.com/learnhub/assessment-service/internal/services"
)

// BaseHandler carries the shared pieces every handler needs: logging and the
// service-error to HTTP-status translation.
type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request with its request id attached.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	requestID := c.GetString("request_id")
	h.logger.InfoContext(c.Request.Context(), msg, append([]any{"request_id", requestID}, args...)...)
}

// parseIDParam parses a numeric path parameter. On failure it writes a 400
// response and returns 0; callers must return immediately when they see 0.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Message: "Invalid " + name + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// handleServiceError maps service-layer errors onto HTTP responses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	var permissionErr *services.PermissionError
	var businessErr *services.BusinessRuleError

	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Message: err.Error(),
		})
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs.Error(),
		})
	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Message: "Permission denied",
			Details: permissionErr.Reason,
		})
	case errors.As(err, &businessErr):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Message: businessErr.Message,
		})
	case errors.Is(err, services.ErrAssessmentInactive),
		errors.Is(err, services.ErrInsufficientContent):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrAssessmentHasUsage):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Message: err.Error(),
		})
	default:
		h.logger.ErrorContext(c.Request.Context(), "unhandled service error",
			"error", err,
			"path", c.Request.URL.Path,
			"request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// requireUserID reads the authenticated user id from context, writing a 401
// when it is absent.
func (h *BaseHandler) requireUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}
