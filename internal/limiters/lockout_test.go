package limiters

import (
	"testing"
	"time"

	"github.com/MrEthical07/sessionauth/account"
)

func defaultLockout() *Lockout {
	return NewLockout(LockoutConfig{Enabled: true, Threshold: 5, Duration: 30 * time.Minute})
}

func TestLockoutLocksAtThreshold(t *testing.T) {
	l := defaultLockout()
	now := time.Unix(1_700_000_000, 0)
	u := &account.User{}

	for i := 1; i < 5; i++ {
		if l.RecordFailure(u, now) {
			t.Fatalf("attempt %d must not lock", i)
		}
	}
	if !l.RecordFailure(u, now) {
		t.Fatal("5th failure must lock")
	}

	state := l.Check(u, now.Add(29*time.Minute))
	if !state.Locked || !state.Until.Equal(now.Add(30*time.Minute)) {
		t.Fatalf("expected lock until +30m, got %+v", state)
	}
}

func TestLockoutLapsedLockRestartsCount(t *testing.T) {
	l := defaultLockout()
	now := time.Unix(1_700_000_000, 0)
	u := &account.User{}
	for i := 0; i < 5; i++ {
		l.RecordFailure(u, now)
	}

	later := now.Add(31 * time.Minute)
	state := l.Check(u, later)
	if state.Locked || !state.Expired {
		t.Fatalf("expected lapsed lock, got %+v", state)
	}

	if l.RecordFailure(u, later) {
		t.Fatal("first failure after lapse must not re-lock")
	}
	if u.FailedLoginAttempts != 1 {
		t.Fatalf("expected counter restarted at 1, got %d", u.FailedLoginAttempts)
	}
}

func TestLockoutDisabledNeverLocks(t *testing.T) {
	l := NewLockout(LockoutConfig{Enabled: false, Threshold: 1, Duration: time.Minute})
	u := &account.User{}
	for i := 0; i < 10; i++ {
		if l.RecordFailure(u, time.Now()) {
			t.Fatal("disabled lockout must not lock")
		}
	}
}

func TestLockoutReset(t *testing.T) {
	l := defaultLockout()
	u := &account.User{}
	if l.Reset(u) {
		t.Fatal("reset of clean user must report no change")
	}
	l.RecordFailure(u, time.Now())
	if !l.Reset(u) || u.FailedLoginAttempts != 0 {
		t.Fatalf("expected reset, got %+v", u)
	}
}
