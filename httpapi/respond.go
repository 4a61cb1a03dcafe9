package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/sessionauth"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message,omitempty"`
	Data    any                      `json:"data,omitempty"`
	Errors  []sessionauth.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// errorWriter maps engine errors onto responses. Unexpected errors are
// logged and reported without detail.
type errorWriter struct {
	logger *slog.Logger
	now    func() time.Time
}

func (ew errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)

	var locked *sessionauth.LockedError
	var limited *sessionauth.RateLimitError
	switch {
	case errors.As(err, &locked):
		setRetryAfter(w, locked.RetryAfter(ew.now()))
	case errors.As(err, &limited):
		setRetryAfter(w, limited.RetryAfter)
	}

	body := envelope{Message: message}
	var verr *sessionauth.ValidationError
	if errors.As(err, &verr) {
		body.Errors = verr.Fields
	}

	if status >= http.StatusInternalServerError {
		ew.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	writeJSON(w, status, body)
}

func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

// statusFor returns the HTTP status and client-facing message for err.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, sessionauth.ErrValidation):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, sessionauth.ErrConflict):
		return http.StatusConflict, "User already exists with this email"
	case errors.Is(err, sessionauth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, sessionauth.ErrAccountLocked):
		return http.StatusUnauthorized, "Account is temporarily locked due to too many failed login attempts"
	case errors.Is(err, sessionauth.ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication required. Please login."
	case errors.Is(err, sessionauth.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid or expired token"
	case errors.Is(err, sessionauth.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, sessionauth.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, sessionauth.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, please try again later"
	case errors.Is(err, sessionauth.ErrAuditQueryUnsupported):
		return http.StatusNotImplemented, "Audit queries are not supported by the configured sink"
	case errors.Is(err, sessionauth.ErrStoreUnavailable),
		errors.Is(err, sessionauth.ErrEngineNotReady):
		return http.StatusServiceUnavailable, "Service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// decodeJSON reads a JSON body into dst. A malformed body is a validation
// error on field "body".
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &sessionauth.ValidationError{Fields: []sessionauth.FieldError{{
			Field:   "body",
			Message: "invalid JSON body",
		}}}
	}
	return nil
}
