package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fieldtrack/internal/authorization"
	payrolldomain "github.com/smallbiznis/fieldtrack/internal/payroll/domain"
	projectdomain "github.com/smallbiznis/fieldtrack/internal/project/domain"
	tenantdomain "github.com/smallbiznis/fieldtrack/internal/tenant/domain"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, tenantdomain.ErrNotFound) ||
		errors.Is(err, projectdomain.ErrProjectNotFound) ||
		errors.Is(err, projectdomain.ErrSiteNotFound) ||
		errors.Is(err, projectdomain.ErrTaskNotFound) ||
		errors.Is(err, payrolldomain.ErrStructureNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}

func isConflictError(err error) bool {
	return errors.Is(err, tenantdomain.ErrDuplicate) ||
		errors.Is(err, projectdomain.ErrDuplicate) ||
		errors.Is(err, payrolldomain.ErrDuplicate)
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, tenantdomain.ErrInvalidName) ||
		errors.Is(err, tenantdomain.ErrInvalidCode) ||
		errors.Is(err, tenantdomain.ErrInvalidRole) ||
		errors.Is(err, tenantdomain.ErrInvalidEmployee) ||
		errors.Is(err, tenantdomain.ErrInvalidCountry) ||
		errors.Is(err, tenantdomain.ErrCountryInactive) ||
		errors.Is(err, projectdomain.ErrInvalidName) ||
		errors.Is(err, projectdomain.ErrInvalidSiteCode) ||
		errors.Is(err, projectdomain.ErrInvalidStatus) ||
		errors.Is(err, projectdomain.ErrInvalidCountry) ||
		errors.Is(err, payrolldomain.ErrInvalidAmount) ||
		errors.Is(err, payrolldomain.ErrInvalidDuration) ||
		errors.Is(err, payrolldomain.ErrInvalidCompletion)
}
