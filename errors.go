package sessionauth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrValidation is returned when request input is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when an email is already registered.
	ErrConflict = errors.New("user already exists")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is matched by *LockedError.
	ErrAccountLocked = errors.New("account locked")
	// ErrUnauthenticated is returned when no credential was presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrTokenInvalid covers bad, expired and already-rotated tokens alike.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrNotFound is returned for unknown users and sessions.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller's role is insufficient.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned when a per-IP window is exhausted.
	ErrRateLimited = errors.New("too many requests")
	// ErrInternal wraps unexpected failures (hashing, signing, encoding).
	ErrInternal = errors.New("internal error")
	// ErrStoreUnavailable wraps credential store I/O failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady is returned by a nil or partially built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrAuditQueryUnsupported is returned when the audit sink cannot be queried.
	ErrAuditQueryUnsupported = errors.New("audit sink does not support queries")
)

// LockedError reports an account lock and when it lifts.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// RetryAfter is the remaining lock time relative to now, never negative.
func (e *LockedError) RetryAfter(now time.Time) time.Duration {
	if d := e.Until.Sub(now); d > 0 {
		return d
	}
	return 0
}

// RateLimitError reports an exhausted per-IP window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited.Error(), e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// FieldError is one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every rejected field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}
