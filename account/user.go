package account

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth/session"
)

// Role is the coarse authorization level carried in access tokens.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole maps an optional role string to a Role. Empty input yields RoleUser.
func ParseRole(s string) (Role, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RoleUser, true
	}
	r := Role(s)
	return r, r.Valid()
}

var (
	// ErrNotFound is returned by stores when no user matches the lookup.
	ErrNotFound = errors.New("account: user not found")
	// ErrDuplicateEmail is returned when a create or email change collides.
	ErrDuplicateEmail = errors.New("account: email already registered")
	// ErrConflict is returned when an atomic update kept losing to concurrent writers.
	ErrConflict = errors.New("account: concurrent update conflict")
	// ErrNoChange may be returned by an update callback to skip the write.
	ErrNoChange = errors.New("account: no change")
	// ErrStoreUnavailable wraps backend I/O failures.
	ErrStoreUnavailable = errors.New("account: store unavailable")
)

// NormalizeEmail trims and case-folds an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is the credential-store document. Sessions is owned by the user and is
// only changed through the methods below.
type User struct {
	ID                  string         `json:"id"`
	Email               string         `json:"email"`
	PasswordHash        string         `json:"passwordHash"`
	Role                Role           `json:"role"`
	EmailVerified       bool           `json:"emailVerified"`
	FailedLoginAttempts int            `json:"failedLoginAttempts"`
	LockUntil           *time.Time     `json:"lockUntil,omitempty"`
	Sessions            session.Ledger `json:"sessions"`
	CreatedAt           time.Time      `json:"createdAt"`
	UpdatedAt           time.Time      `json:"updatedAt"`
	// Version is maintained by the store for optimistic concurrency.
	Version int64 `json:"version"`
}

// PublicUser is the projection handed to callers. It never carries the hash.
type PublicUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"isEmailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Public returns the caller-safe projection of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// AddSession appends s to the user's ledger.
func (u *User) AddSession(s session.Session) {
	u.Sessions.Add(s)
}

// RemoveSessions drops every session matching pred and returns them.
func (u *User) RemoveSessions(pred session.Predicate) []session.Session {
	return u.Sessions.RemoveWhere(pred)
}

// FindSession returns the first session matching pred.
func (u *User) FindSession(pred session.Predicate) (session.Session, bool) {
	return u.Sessions.Find(pred)
}

// ActiveSessions returns non-expired sessions, most recently active first.
func (u *User) ActiveSessions(now time.Time) []session.Session {
	return u.Sessions.Active(now)
}

// HasSessions reports whether any session record (expired or not) remains.
func (u *User) HasSessions() bool {
	return u.Sessions.Len() > 0
}

// IsLocked reports whether a lock is in force at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// ClearLockout zeroes the failure counter and lifts any lock.
func (u *User) ClearLockout() {
	u.FailedLoginAttempts = 0
	u.LockUntil = nil
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.LockUntil != nil {
		lock := *u.LockUntil
		out.LockUntil = &lock
	}
	if u.Sessions != nil {
		out.Sessions = make(session.Ledger, len(u.Sessions))
		copy(out.Sessions, u.Sessions)
	}
	return &out
}
