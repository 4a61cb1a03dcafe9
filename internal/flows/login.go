package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal"
	"github.com/MrEthical07/sessionauth/internal/limiters"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/session"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureUnknownUser
	LoginFailureLocked
	LoginFailureBadPassword
	LoginFailureLockedNow
	LoginFailureVerify
	LoginFailureSessionID
	LoginFailureIssue
	LoginFailureStore
)

// LoginResult carries the issued pair or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error

	User      *account.User
	LockUntil time.Time
	Attempts  int

	Session          session.Session
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Evicted          int
	Rehashed         bool
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Store       UserStore
	Passwords   Passwords
	Tokens      Tokens
	Lockout     *limiters.Lockout
	Scope       StoreScope
	MaxSessions int
	UpgradeHash bool
	Warn        func(string, ...any)
}

var (
	errLockedMeanwhile  = errors.New("flows: account locked by a concurrent attempt")
	errCredentialsMoved = errors.New("flows: password changed during login")
)

// RunLogin authenticates email/password and, on success, records a new
// session. A lock in force short-circuits before the password is checked.
func RunLogin(ctx context.Context, email, password string, client Client, now time.Time, deps LoginDeps) LoginResult {
	sctx, cancel := deps.Scope.bind(ctx)
	u, err := deps.Store.FindByEmail(sctx, email)
	cancel()
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return LoginResult{Failure: LoginFailureUnknownUser, Err: err}
		}
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}

	if state := deps.Lockout.Check(u, now); state.Locked {
		return LoginResult{Failure: LoginFailureLocked, User: u, LockUntil: state.Until, Attempts: u.FailedLoginAttempts}
	}

	ok, err := deps.Passwords.Verify(password, u.PasswordHash)
	if err != nil {
		return LoginResult{Failure: LoginFailureVerify, Err: err, User: u}
	}
	if !ok {
		return recordFailedLogin(ctx, u, now, deps)
	}
	return openSession(ctx, u, password, client, now, deps)
}

func recordFailedLogin(ctx context.Context, snapshot *account.User, now time.Time, deps LoginDeps) LoginResult {
	var (
		lockedNow bool
		attempts  int
		lockUntil time.Time
	)
	sctx, cancel := deps.Scope.bind(ctx)
	defer cancel()

	updated, err := deps.Store.Update(sctx, snapshot.ID, func(cur *account.User) error {
		lockedNow, attempts, lockUntil = false, 0, time.Time{}
		if cur.PasswordHash != snapshot.PasswordHash {
			return errCredentialsMoved
		}
		if state := deps.Lockout.Check(cur, now); state.Locked {
			lockUntil = state.Until
			return errLockedMeanwhile
		}
		if !deps.Lockout.Config().Enabled {
			attempts = cur.FailedLoginAttempts
			return account.ErrNoChange
		}
		lockedNow = deps.Lockout.RecordFailure(cur, now)
		attempts = cur.FailedLoginAttempts
		if cur.LockUntil != nil {
			lockUntil = *cur.LockUntil
		}
		cur.UpdatedAt = now
		return nil
	})

	switch {
	case errors.Is(err, errLockedMeanwhile):
		return LoginResult{Failure: LoginFailureLocked, User: snapshot, LockUntil: lockUntil}
	case errors.Is(err, errCredentialsMoved):
		return LoginResult{Failure: LoginFailureBadPassword, User: snapshot, Attempts: snapshot.FailedLoginAttempts}
	case err != nil:
		return LoginResult{Failure: LoginFailureStore, Err: err, User: snapshot}
	}

	if lockedNow {
		return LoginResult{Failure: LoginFailureLockedNow, User: updated, LockUntil: lockUntil, Attempts: attempts}
	}
	return LoginResult{Failure: LoginFailureBadPassword, User: updated, Attempts: attempts}
}

func openSession(ctx context.Context, snapshot *account.User, password string, client Client, now time.Time, deps LoginDeps) LoginResult {
	sessionID, err := internal.NewSessionID()
	if err != nil {
		return LoginResult{Failure: LoginFailureSessionID, Err: err, User: snapshot}
	}
	refresh, refreshExp, err := deps.Tokens.IssueRefresh(jwt.RefreshClaims{UserID: snapshot.ID, SessionID: sessionID}, now)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, User: snapshot}
	}

	var upgraded string
	if deps.UpgradeHash {
		if needs, err := deps.Passwords.NeedsRehash(snapshot.PasswordHash); err == nil && needs {
			if h, err := deps.Passwords.Hash(password); err == nil {
				upgraded = h
			} else if deps.Warn != nil {
				deps.Warn("sessionauth: password rehash failed", "user_id", snapshot.ID, "error", err)
			}
		}
	}

	ua := internal.ParseUserAgent(client.UserAgent)
	sess := session.Session{
		TokenID:    sessionID,
		TokenHash:  session.HashToken(refresh),
		Device:     ua.Device,
		Browser:    ua.Browser,
		OS:         ua.OS,
		IPAddress:  client.IP,
		UserAgent:  client.UserAgent,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  refreshExp,
	}

	var (
		evicted   int
		rehashed  bool
		lockUntil time.Time
	)
	sctx, cancel := deps.Scope.bind(ctx)
	updated, err := deps.Store.Update(sctx, snapshot.ID, func(cur *account.User) error {
		evicted, rehashed, lockUntil = 0, false, time.Time{}
		if cur.PasswordHash != snapshot.PasswordHash {
			return errCredentialsMoved
		}
		if state := deps.Lockout.Check(cur, now); state.Locked {
			lockUntil = state.Until
			return errLockedMeanwhile
		}
		deps.Lockout.Reset(cur)
		if upgraded != "" {
			cur.PasswordHash = upgraded
			rehashed = true
		}
		cur.RemoveSessions(session.ExpiredAt(now))
		cur.AddSession(sess)
		evicted = len(cur.Sessions.TrimOldest(deps.MaxSessions))
		cur.UpdatedAt = now
		return nil
	})
	cancel()

	switch {
	case errors.Is(err, errLockedMeanwhile):
		return LoginResult{Failure: LoginFailureLocked, User: snapshot, LockUntil: lockUntil}
	case errors.Is(err, errCredentialsMoved):
		return LoginResult{Failure: LoginFailureBadPassword, User: snapshot, Attempts: snapshot.FailedLoginAttempts}
	case err != nil:
		return LoginResult{Failure: LoginFailureStore, Err: err, User: snapshot}
	}

	access, accessExp, err := issueAccess(deps.Tokens, updated, now)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, User: updated}
	}

	return LoginResult{
		Failure:          LoginFailureNone,
		User:             updated,
		Session:          sess,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		Evicted:          evicted,
		Rehashed:         rehashed,
	}
}
