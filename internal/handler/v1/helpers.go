package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/pharmacy"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/domain/stock"
	"github.com/dmehra2102/prod-golang-projects/sehatsetu/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, APIResponse[any]{Message: message})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func (h *Handler) respondServiceError(c *gin.Context, err error) {
	var validErr *domain.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, prescription.ErrPrescriptionNotFound),
		errors.Is(err, stock.ErrItemNotFound),
		errors.Is(err, pharmacy.ErrProfileNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrDoctorNotFound):
		respondError(c, http.StatusNotFound, err.Error())

	// Duplicates surface as 400 to keep the clients' existing error handling.
	case errors.Is(err, prescription.ErrPrescriptionExists),
		errors.Is(err, stock.ErrItemExists),
		errors.Is(err, pharmacy.ErrProfileExists),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, appointment.ErrInvalidStatus),
		errors.Is(err, appointment.ErrStatusNotSettable),
		errors.Is(err, prescription.ErrInvalidStatus),
		errors.Is(err, prescription.ErrInvalidStatusTransition):
		respondError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, domain.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, err.Error())

	case errors.Is(err, domain.ErrForbidden):
		respondError(c, http.StatusForbidden, "access denied")

	default:
		h.log.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		resp := ErrorResponse{Error: "an unexpected error occurred"}
		if h.exposeErrors {
			resp.Detail = err.Error()
		}
		c.JSON(http.StatusInternalServerError, resp)
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := parseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
