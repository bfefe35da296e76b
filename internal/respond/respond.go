// Package respond is the HTTP error envelope helper, a direct descendant of
// the teacher's internal/handler/response.go constructor-per-status idiom
// with the JSON shape swapped for the spec's literal
// {error, message?, details?} contract instead of RFC 7807 ProblemDetails.
package respond

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/namma-finance/ledger-core/internal/domain"
)

// Detail is one entry of the `details` validation-issues array.
type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Envelope is the wire shape for every non-2xx response.
type Envelope struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []Detail `json:"details,omitempty"`
}

func Error(c echo.Context, status int, errMsg, message string) error {
	return c.JSON(status, Envelope{Error: errMsg, Message: message})
}

func ValidationError(c echo.Context, errMsg string, details []Detail) error {
	return c.JSON(http.StatusBadRequest, Envelope{Error: errMsg, Details: details})
}

func NotFound(c echo.Context, errMsg string) error {
	return c.JSON(http.StatusNotFound, Envelope{Error: errMsg})
}

func Unauthorized(c echo.Context, errMsg string) error {
	return c.JSON(http.StatusUnauthorized, Envelope{Error: errMsg})
}

func Forbidden(c echo.Context, errMsg string) error {
	return c.JSON(http.StatusForbidden, Envelope{Error: errMsg})
}

func Conflict(c echo.Context, errMsg string) error {
	return c.JSON(http.StatusConflict, Envelope{Error: errMsg})
}

func RateLimited(c echo.Context, errMsg string) error {
	return c.JSON(http.StatusTooManyRequests, Envelope{Error: errMsg})
}

func ServiceUnavailable(c echo.Context, errMsg string) error {
	return c.JSON(http.StatusServiceUnavailable, Envelope{Error: errMsg})
}

// Internal logs the real error under a correlation id and returns only that
// id to the caller, per §7's "generic message and an identifier for the log
// correlation" rule.
func Internal(c echo.Context, err error) error {
	correlationID := uuid.New().String()
	log.Error().Err(err).Str("correlation_id", correlationID).Str("path", c.Request().URL.Path).Msg("internal error")
	return c.JSON(http.StatusInternalServerError, Envelope{
		Error:   "internal error",
		Message: "reference id " + correlationID,
	})
}

// FromDomainError maps a service-layer error to the HTTP taxonomy of §7.
// Handlers call this for any error they don't special-case themselves (e.g.
// the overpayment body that must echo the outstanding total).
func FromDomainError(c echo.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case isAny(err, domain.ErrInvalidTerms, domain.ErrInvalidAmount, domain.ErrChargesExceedPrincipal, domain.ErrValidation):
		return Error(c, http.StatusBadRequest, err.Error(), "")
	case isAny(err, domain.ErrInvalidCredentials, domain.ErrNoSession, domain.ErrTokenExpired):
		return Unauthorized(c, err.Error())
	case isAny(err, domain.ErrNotAuthorized):
		return Forbidden(c, err.Error())
	case isAny(err, domain.ErrUserNotFound, domain.ErrCustomerNotFound, domain.ErrLoanNotFound, domain.ErrCollectionNotFound):
		return NotFound(c, err.Error())
	case isAny(err, domain.ErrStatusNotCollectable, domain.ErrHasOutstandingDues, domain.ErrLoanNotPending,
		domain.ErrLoanNotActive, domain.ErrEmailAlreadyExists, domain.ErrReceiptCollision):
		return Conflict(c, err.Error())
	case isAny(err, domain.ErrStorageConflict, domain.ErrTransientFailure, domain.ErrQueueUnavailable):
		return ServiceUnavailable(c, err.Error())
	default:
		return Internal(c, err)
	}
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
