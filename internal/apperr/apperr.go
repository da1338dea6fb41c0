package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrInput               = errors.New("invalid input")
	ErrAuth                = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrConfiguration       = errors.New("configuration error")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrMalformedOutput     = errors.New("malformed model output")
	ErrSchemaViolation     = errors.New("schema violation")
	ErrPersistence         = errors.New("persistence error")
	ErrDuplicateReport     = errors.New("report already exists for candidate")
)

// Status maps an error to the HTTP status returned to callers.
func Status(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrInput):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrDuplicateReport):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// PublicMessage returns a message that is safe to put in a response body.
// Wrapped details (DSNs, upstream payloads, keys) stay in the server logs.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput):
		return "Invalid request"
	case errors.Is(err, ErrAuth):
		return "Unauthorized"
	case errors.Is(err, ErrNotFound):
		return "Requested room or candidate was not found"
	case errors.Is(err, ErrAccessDenied):
		return "Candidate resume is not accessible"
	case errors.Is(err, ErrConfiguration):
		return "Service is not configured correctly"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "Evaluation service is temporarily unavailable"
	case errors.Is(err, ErrMalformedOutput), errors.Is(err, ErrSchemaViolation):
		return "Evaluation service returned an invalid report"
	case errors.Is(err, ErrDuplicateReport):
		return "A report already exists for this candidate"
	case errors.Is(err, ErrPersistence):
		return "Failed to save interview report"
	default:
		return "Internal server error"
	}
}

// Retryable reports whether the caller may retry the operation unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrMalformedOutput) ||
		errors.Is(err, ErrSchemaViolation)
}
