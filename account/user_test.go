package account

import (
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth/session"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"", RoleUser, true},
		{" Admin ", RoleAdmin, true},
		{"manager", RoleManager, true},
		{"root", Role("root"), false},
	}
	for _, tc := range cases {
		got, ok := ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseRole(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  A@X.Com "); got != "a@x.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}

func TestIsLockedAndClear(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	until := now.Add(time.Minute)
	u := &User{FailedLoginAttempts: 5, LockUntil: &until}

	if !u.IsLocked(now) {
		t.Fatal("expected locked")
	}
	if u.IsLocked(until) {
		t.Fatal("lock must be lifted once lockUntil is reached")
	}

	u.ClearLockout()
	if u.FailedLoginAttempts != 0 || u.LockUntil != nil {
		t.Fatalf("expected cleared lockout, got %+v", u)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	lock := now
	u := &User{ID: "u1", LockUntil: &lock}
	u.AddSession(session.Session{TokenID: "a", ExpiresAt: now.Add(time.Hour)})

	c := u.Clone()
	c.RemoveSessions(session.ByTokenID("a"))
	*c.LockUntil = now.Add(time.Hour)

	if !u.HasSessions() {
		t.Fatal("clone mutation leaked into original ledger")
	}
	if !u.LockUntil.Equal(now) {
		t.Fatal("clone mutation leaked into original lock")
	}
}

func TestPublicOmitsHash(t *testing.T) {
	u := &User{ID: "u1", Email: "a@x.com", PasswordHash: "secret", Role: RoleAdmin}
	p := u.Public()
	if p.ID != "u1" || p.Role != RoleAdmin || p.Email != "a@x.com" {
		t.Fatalf("unexpected projection %+v", p)
	}
}
