package sessionauth

import (
	"context"
	"time"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal/audit"
)

// UserStore is the credential store. Update is the only way the engine
// changes a user: implementations run mutate against a fresh copy and
// commit atomically, retrying on concurrent modification. mutate may run
// more than once and may return account.ErrNoChange to skip the write.
//
// storage/redisstore and storage/pgstore provide implementations.
type UserStore interface {
	Create(ctx context.Context, u *account.User) error
	FindByID(ctx context.Context, id string) (*account.User, error)
	FindByEmail(ctx context.Context, email string) (*account.User, error)
	Update(ctx context.Context, id string, mutate func(*account.User) error) (*account.User, error)
	ListUsers(ctx context.Context) ([]*account.User, error)
	UserIDsWithSessions(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// RegisterRequest is the input to Register. Role is optional.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// UpdateProfileRequest is the input to UpdateProfile.
type UpdateProfileRequest struct {
	Email string `json:"email"`
}

// TokenPair is an issued access/refresh pair with their expiries.
type TokenPair struct {
	AccessToken      string    `json:"-"`
	RefreshToken     string    `json:"-"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	User      account.PublicUser
	Tokens    TokenPair
	SessionID string
}

// SessionView is the caller-facing projection of a session.
type SessionView struct {
	TokenID     string    `json:"tokenId"`
	SessionName string    `json:"sessionName"`
	Device      string    `json:"device"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	IPAddress   string    `json:"ipAddress"`
	LastActive  time.Time `json:"lastActive"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	IsCurrent   bool      `json:"isCurrent"`
}

// SweepReport summarizes one expired-session sweep.
type SweepReport struct {
	UsersScanned int `json:"usersScanned"`
	UsersChanged int `json:"usersChanged"`
	Removed      int `json:"removed"`
	// Failed counts users whose update errored; the sweep continues past them.
	Failed int `json:"failed"`
}

// HealthStatus is "ok" or "degraded".
type HealthStatus string

const (
	HealthOK       HealthStatus = "ok"
	HealthDegraded HealthStatus = "degraded"
)

// HealthReport describes dependency reachability.
type HealthReport struct {
	Status    HealthStatus      `json:"status"`
	Checks    map[string]string `json:"checks"`
	CheckedAt time.Time         `json:"checkedAt"`
	Uptime    string            `json:"uptime"`
}

// AuditStats summarizes the audit trail for administrators.
type AuditStats struct {
	TotalLogs     int                 `json:"totalLogs"`
	LoginAttempts int                 `json:"loginAttempts"`
	FailedLogins  int                 `json:"failedLogins"`
	SuccessRate   float64             `json:"successRate"`
	RecentLogs    []audit.Entry       `json:"recentLogs"`
	ActionCounts  []audit.ActionCount `json:"actionStats"`
}
