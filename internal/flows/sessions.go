package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/session"
)

// SessionFailureKind classifies revocation failures for root-level mapping.
type SessionFailureKind int

const (
	SessionFailureNone SessionFailureKind = iota
	SessionFailureMissingToken
	SessionFailureDecode
	SessionFailureUserNotFound
	SessionFailureSessionNotFound
	SessionFailureStore
)

// SessionResult reports which sessions a revocation removed.
type SessionResult struct {
	Failure SessionFailureKind
	Err     error
	UserID  string
	User    *account.User
	Removed []session.Session
}

// SessionDeps captures revocation flow dependencies.
type SessionDeps struct {
	Store  UserStore
	Tokens Tokens
	Scope  StoreScope
}

var errSessionAbsent = errors.New("flows: session not in ledger")

// RunLogout removes the session bound to refreshToken. A token that verifies
// but is no longer in the ledger is a successful no-op.
func RunLogout(ctx context.Context, refreshToken string, now time.Time, deps SessionDeps) SessionResult {
	if refreshToken == "" {
		return SessionResult{Failure: SessionFailureMissingToken}
	}
	claims, err := deps.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return SessionResult{Failure: SessionFailureDecode, Err: err}
	}
	return removeSessions(ctx, claims.UserID, session.ByToken(refreshToken), false, now, deps)
}

// RunRevokeSession removes one session by its id. An unknown id fails
// without writing.
func RunRevokeSession(ctx context.Context, userID, tokenID string, now time.Time, deps SessionDeps) SessionResult {
	return removeSessions(ctx, userID, session.ByTokenID(tokenID), true, now, deps)
}

// RunRevokeOthers keeps only the session bound to currentToken. Without a
// current token every session is removed.
func RunRevokeOthers(ctx context.Context, userID, currentToken string, now time.Time, deps SessionDeps) SessionResult {
	return removeSessions(ctx, userID, session.Not(session.ByToken(currentToken)), false, now, deps)
}

// RunLogoutAll removes every session of userID.
func RunLogoutAll(ctx context.Context, userID string, now time.Time, deps SessionDeps) SessionResult {
	return removeSessions(ctx, userID, func(session.Session) bool { return true }, false, now, deps)
}

func removeSessions(ctx context.Context, userID string, pred session.Predicate, mustMatch bool, now time.Time, deps SessionDeps) SessionResult {
	var removed []session.Session

	sctx, cancel := deps.Scope.bind(ctx)
	defer cancel()
	updated, err := deps.Store.Update(sctx, userID, func(cur *account.User) error {
		removed = cur.RemoveSessions(pred)
		if len(removed) == 0 {
			if mustMatch {
				return errSessionAbsent
			}
			return account.ErrNoChange
		}
		cur.UpdatedAt = now
		return nil
	})

	switch {
	case errors.Is(err, account.ErrNotFound):
		return SessionResult{Failure: SessionFailureUserNotFound, Err: err, UserID: userID}
	case errors.Is(err, errSessionAbsent):
		return SessionResult{Failure: SessionFailureSessionNotFound, Err: err, UserID: userID}
	case err != nil:
		return SessionResult{Failure: SessionFailureStore, Err: err, UserID: userID}
	}
	return SessionResult{Failure: SessionFailureNone, UserID: userID, User: updated, Removed: removed}
}
