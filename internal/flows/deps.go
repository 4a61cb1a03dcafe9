package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/jwt"
)

// UserStore is the subset of the credential store the flows use.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*account.User, error)
	FindByEmail(ctx context.Context, email string) (*account.User, error)
	Update(ctx context.Context, id string, mutate func(*account.User) error) (*account.User, error)
	UserIDsWithSessions(ctx context.Context) ([]string, error)
}

// Passwords verifies and, when asked, re-hashes credentials.
type Passwords interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) (bool, error)
}

// Tokens issues and verifies the token pair.
type Tokens interface {
	IssueAccess(claims jwt.AccessClaims, now time.Time) (string, time.Time, error)
	IssueRefresh(claims jwt.RefreshClaims, now time.Time) (string, time.Time, error)
	VerifyRefresh(token string) (*jwt.RefreshClaims, error)
}

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Sessions SessionDeps
	Sweep    SweepDeps
}

// Client is the request metadata stamped on new sessions.
type Client struct {
	IP        string
	UserAgent string
}

// StoreScope bounds a single store call. A nil scope uses ctx unchanged.
type StoreScope func(context.Context) (context.Context, context.CancelFunc)

func (s StoreScope) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	if s == nil {
		return ctx, func() {}
	}
	return s(ctx)
}

func issueAccess(tokens Tokens, u *account.User, now time.Time) (string, time.Time, error) {
	return tokens.IssueAccess(jwt.AccessClaims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
	}, now)
}
