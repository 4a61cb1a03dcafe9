package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/session"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureDecode
	RefreshFailureUserNotFound
	RefreshFailureReuse
	RefreshFailureSessionID
	RefreshFailureIssue
	RefreshFailureStore
)

// RefreshResult carries either the rotated pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error

	UserID           string
	User             *account.User
	Previous         session.Session
	Session          session.Session
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Store  UserStore
	Tokens Tokens
	Scope  StoreScope
}

var errRefreshReuse = errors.New("flows: refresh token not in ledger")

// RunRefresh rotates refreshToken: the matching session is removed and a new
// one appended in a single store update. Of two concurrent calls presenting
// the same token only one can find it in the ledger.
func RunRefresh(ctx context.Context, refreshToken string, client Client, now time.Time, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissing}
	}
	claims, err := deps.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureDecode, Err: err}
	}

	nextID, err := internal.NewSessionID()
	if err != nil {
		return RefreshResult{Failure: RefreshFailureSessionID, Err: err, UserID: claims.UserID}
	}
	nextToken, nextExp, err := deps.Tokens.IssueRefresh(jwt.RefreshClaims{UserID: claims.UserID, SessionID: nextID}, now)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: claims.UserID}
	}

	presented := session.HashToken(refreshToken)
	var previous, next session.Session

	sctx, cancel := deps.Scope.bind(ctx)
	updated, err := deps.Store.Update(sctx, claims.UserID, func(cur *account.User) error {
		removed := cur.RemoveSessions(session.ByTokenHash(presented))
		if len(removed) == 0 {
			return errRefreshReuse
		}
		previous = removed[0]

		next = session.Session{
			TokenID:    nextID,
			TokenHash:  session.HashToken(nextToken),
			Device:     previous.Device,
			Browser:    previous.Browser,
			OS:         previous.OS,
			IPAddress:  previous.IPAddress,
			UserAgent:  previous.UserAgent,
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  nextExp,
		}
		if client.IP != "" {
			next.IPAddress = client.IP
		}
		cur.AddSession(next)
		cur.UpdatedAt = now
		return nil
	})
	cancel()

	switch {
	case errors.Is(err, account.ErrNotFound):
		return RefreshResult{Failure: RefreshFailureUserNotFound, Err: err, UserID: claims.UserID}
	case errors.Is(err, errRefreshReuse):
		return RefreshResult{Failure: RefreshFailureReuse, Err: err, UserID: claims.UserID}
	case err != nil:
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: claims.UserID}
	}

	access, accessExp, err := issueAccess(deps.Tokens, updated, now)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: updated.ID, User: updated}
	}

	return RefreshResult{
		Failure:          RefreshFailureNone,
		UserID:           updated.ID,
		User:             updated,
		Previous:         previous,
		Session:          next,
		AccessToken:      access,
		RefreshToken:     nextToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: nextExp,
	}
}
