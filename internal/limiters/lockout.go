package limiters

import (
	"time"

	"github.com/MrEthical07/sessionauth/account"
)

// LockoutConfig holds the automatic account lockout policy.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// LockState is the lockout view of a user at a point in time.
type LockState struct {
	Locked bool
	Until  time.Time
	// Expired is set when a lock was recorded but has already lapsed; the
	// caller should persist Reset.
	Expired           bool
	AttemptsRemaining int
}

// Lockout evaluates and mutates the failure counter and lock stored on a
// user. It holds no state and performs no I/O; callers apply it inside the
// credential store's atomic update.
type Lockout struct {
	config LockoutConfig
}

// NewLockout returns a lockout policy. A disabled policy never locks.
func NewLockout(cfg LockoutConfig) *Lockout {
	return &Lockout{config: cfg}
}

// Config returns the policy settings.
func (l *Lockout) Config() LockoutConfig { return l.config }

// Check reports whether u is locked at now.
func (l *Lockout) Check(u *account.User, now time.Time) LockState {
	state := LockState{AttemptsRemaining: l.remaining(u)}
	if u.LockUntil == nil {
		return state
	}
	if u.LockUntil.After(now) {
		state.Locked = true
		state.Until = *u.LockUntil
		state.AttemptsRemaining = 0
		return state
	}
	state.Expired = true
	state.AttemptsRemaining = l.config.Threshold
	return state
}

// RecordFailure counts one failed password check and reports whether it
// placed a new lock. A lapsed lock is cleared first so the count restarts.
func (l *Lockout) RecordFailure(u *account.User, now time.Time) bool {
	if !l.config.Enabled {
		return false
	}
	if u.LockUntil != nil && !u.LockUntil.After(now) {
		u.ClearLockout()
	}
	if u.IsLocked(now) {
		return false
	}

	u.FailedLoginAttempts++
	if u.FailedLoginAttempts < l.config.Threshold {
		return false
	}

	until := now.Add(l.config.Duration)
	u.LockUntil = &until
	return true
}

// Reset clears the counter and lock. It reports whether anything changed.
func (l *Lockout) Reset(u *account.User) bool {
	if u.FailedLoginAttempts == 0 && u.LockUntil == nil {
		return false
	}
	u.ClearLockout()
	return true
}

func (l *Lockout) remaining(u *account.User) int {
	if !l.config.Enabled {
		return l.config.Threshold
	}
	left := l.config.Threshold - u.FailedLoginAttempts
	if left < 0 {
		return 0
	}
	return left
}
