package audit

import (
	"time"
)

// Action is the closed vocabulary of audited operations.
type Action string

const (
	ActionUserRegistered       Action = "USER_REGISTERED"
	ActionLoginSuccess         Action = "USER_LOGIN_SUCCESS"
	ActionLoginFailed          Action = "USER_LOGIN_FAILED"
	ActionLogout               Action = "USER_LOGOUT"
	ActionTokenRefreshed       Action = "TOKEN_REFRESHED"
	ActionProfileViewed        Action = "PROFILE_VIEWED"
	ActionProfileUpdated       Action = "PROFILE_UPDATED"
	ActionAdminViewedUsers     Action = "ADMIN_VIEWED_USERS"
	ActionAdminViewedUser      Action = "ADMIN_VIEWED_USER"
	ActionPasswordChanged      Action = "PASSWORD_CHANGED"
	ActionUnauthorizedAccess   Action = "UNAUTHORIZED_ACCESS_ATTEMPT"
	ActionAccountLocked        Action = "ACCOUNT_LOCKED"
	ActionAccountUnlocked      Action = "ACCOUNT_UNLOCKED"
	ActionAdminViewedAuditLogs Action = "ADMIN_VIEWED_AUDIT_LOGS"
)

var knownActions = map[Action]struct{}{
	ActionUserRegistered:       {},
	ActionLoginSuccess:         {},
	ActionLoginFailed:          {},
	ActionLogout:               {},
	ActionTokenRefreshed:       {},
	ActionProfileViewed:        {},
	ActionProfileUpdated:       {},
	ActionAdminViewedUsers:     {},
	ActionAdminViewedUser:      {},
	ActionPasswordChanged:      {},
	ActionUnauthorizedAccess:   {},
	ActionAccountLocked:        {},
	ActionAccountUnlocked:      {},
	ActionAdminViewedAuditLogs: {},
}

// Valid reports whether a is part of the vocabulary.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// Actions returns every known action.
func Actions() []Action {
	out := make([]Action, 0, len(knownActions))
	for a := range knownActions {
		out = append(out, a)
	}
	return out
}

// Status is the outcome recorded with an entry.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusWarning Status = "warning"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId,omitempty"`
	Email     string            `json:"email"`
	Action    Action            `json:"action"`
	Details   string            `json:"details,omitempty"`
	IPAddress string            `json:"ipAddress"`
	UserAgent string            `json:"userAgent,omitempty"`
	Status    Status            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Filter selects entries for listing. Zero fields match everything.
type Filter struct {
	Action Action
	UserID string
	Page   int
	Limit  int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Normalize clamps page and limit to usable values.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// Offset is the number of entries skipped before the page.
func (f Filter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Page is one slice of a newest-first listing.
type Page struct {
	Entries    []Entry `json:"logs"`
	Total      int     `json:"totalLogs"`
	Page       int     `json:"currentPage"`
	TotalPages int     `json:"totalPages"`
}

// NewPage fills the derived page fields.
func NewPage(entries []Entry, total int, f Filter) Page {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Page{Entries: entries, Total: total, Page: f.Page, TotalPages: pages}
}

// ActionCount is one row of the per-action histogram.
type ActionCount struct {
	Action Action `json:"action"`
	Count  int    `json:"count"`
}
