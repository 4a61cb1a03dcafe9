package sessionauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth/session"
)

func TestRevokeOtherSessionsKeepsCaller(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "judy@example.com", "")
	env.login(t, "judy@example.com")
	env.login(t, "judy@example.com")
	current := env.login(t, "judy@example.com")

	n, err := env.engine.RevokeOtherSessions(context.Background(), id, current.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("revoke others: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked, got %d", n)
	}

	views, err := env.engine.ListSessions(context.Background(), id, current.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(views) != 1 || views[0].TokenID != current.SessionID || !views[0].IsCurrent {
		t.Fatalf("expected only the current session, got %+v", views)
	}
}

func TestRevokeSessionUnknownIDIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "ken@example.com", "")
	first := env.login(t, "ken@example.com")

	if err := env.engine.RevokeSession(context.Background(), id, "missing-token-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	u, _ := env.engine.store.FindByID(context.Background(), id)
	if u.Sessions.Len() != 1 {
		t.Fatalf("unknown id must not mutate, got %d sessions", u.Sessions.Len())
	}

	if err := env.engine.RevokeSession(context.Background(), id, first.SessionID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := env.engine.Refresh(context.Background(), first.Tokens.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("revoked token must not refresh, got %v", err)
	}
}

func TestLogoutWithRotatedTokenTouchesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "leo@example.com", "")
	stale := env.login(t, "leo@example.com")
	other := env.login(t, "leo@example.com")

	if _, err := env.engine.Refresh(context.Background(), stale.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := env.engine.Logout(context.Background(), stale.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout with rotated token: %v", err)
	}

	u, _ := env.engine.store.FindByID(context.Background(), id)
	if u.Sessions.Len() != 2 {
		t.Fatalf("expected both live sessions to survive, got %d", u.Sessions.Len())
	}
	if _, ok := u.Sessions.Find(session.ByTokenID(other.SessionID)); !ok {
		t.Fatal("unrelated session was removed")
	}
}

func TestLogoutRemovesOnlyThatSession(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "mia@example.com", "")
	a := env.login(t, "mia@example.com")
	env.login(t, "mia@example.com")

	if err := env.engine.Logout(context.Background(), a.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	u, _ := env.engine.store.FindByID(context.Background(), id)
	if u.Sessions.Len() != 1 {
		t.Fatalf("expected one session left, got %d", u.Sessions.Len())
	}
	if env.countAudit(AuditLogout) != 1 {
		t.Fatal("expected USER_LOGOUT audit entry")
	}

	var verr *ValidationError
	if err := env.engine.Logout(context.Background(), ""); !errors.As(err, &verr) {
		t.Fatalf("missing token: expected *ValidationError, got %v", err)
	}
}

func TestListSessionsHidesExpired(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "nina@example.com", "")
	env.login(t, "nina@example.com")

	env.clock.Advance(8 * 24 * time.Hour)
	views, err := env.engine.ListSessions(context.Background(), id, "")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expired sessions must be hidden, got %d", len(views))
	}
}

func TestLogoutAllClearsEverySession(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register(t, "oscar@example.com", "")
	env.login(t, "oscar@example.com")
	env.login(t, "oscar@example.com")

	n, err := env.engine.LogoutAll(context.Background(), id)
	if err != nil || n != 2 {
		t.Fatalf("logout all: n=%d err=%v", n, err)
	}
	ids, err := env.engine.store.UserIDsWithSessions(context.Background())
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("session index not cleared: %v", ids)
	}
}
