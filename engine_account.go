package sessionauth

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/session"
)

var errPasswordMoved = errors.New("password changed concurrently")

// Profile returns the caller's public record.
func (e *Engine) Profile(ctx context.Context, userID string) (*account.PublicUser, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	u, err := e.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionProfileViewed,
		userID:  u.ID,
		email:   u.Email,
		details: "User viewed their profile",
	}, nil)

	pub := u.Public()
	return &pub, nil
}

// UpdateProfile changes the caller's email. The new address must be unused.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*account.PublicUser, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email := account.NormalizeEmail(req.Email)
	if msg := validateEmail(email); msg != "" {
		verr := &ValidationError{}
		verr.add("email", msg)
		return nil, verr
	}

	var previous string
	now := e.now()
	sctx, cancel := e.storeScope(ctx)
	updated, err := e.store.Update(sctx, userID, func(cur *account.User) error {
		previous = cur.Email
		if cur.Email == email {
			return account.ErrNoChange
		}
		cur.Email = email
		cur.UpdatedAt = now
		return nil
	})
	cancel()
	if err != nil {
		return nil, e.storeError("update profile", err)
	}

	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionProfileUpdated,
		userID:  updated.ID,
		email:   updated.Email,
		details: "User updated their profile",
	}, func() map[string]string {
		return map[string]string{"oldEmail": previous, "newEmail": updated.Email}
	})

	pub := updated.Public()
	return &pub, nil
}

// ChangePassword verifies oldPassword, stores a hash of newPassword and
// revokes every session except the one bound to currentRefreshToken. It
// returns how many sessions were revoked.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, currentRefreshToken string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	verr := &ValidationError{}
	if oldPassword == "" {
		verr.add("currentPassword", "current password is required")
	}
	e.validatePassword(verr, "newPassword", newPassword)
	if oldPassword != "" && oldPassword == newPassword {
		verr.add("newPassword", "new password must differ from the current one")
	}
	if err := verr.orNil(); err != nil {
		return 0, err
	}

	snapshot, err := e.findUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	ok, err := e.hasher.Verify(oldPassword, snapshot.PasswordHash)
	if err != nil {
		return 0, internalError("verify password", err)
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		return 0, ErrInvalidCredentials
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return 0, internalError("hash password", err)
	}

	var revoked int
	now := e.now()
	sctx, cancel := e.storeScope(ctx)
	updated, err := e.store.Update(sctx, userID, func(cur *account.User) error {
		if cur.PasswordHash != snapshot.PasswordHash {
			return errPasswordMoved
		}
		cur.PasswordHash = hash
		revoked = len(cur.RemoveSessions(session.Not(session.ByToken(currentRefreshToken))))
		cur.UpdatedAt = now
		return nil
	})
	cancel()
	if errors.Is(err, errPasswordMoved) {
		e.metricInc(MetricPasswordChangeInvalidOld)
		return 0, ErrInvalidCredentials
	}
	if err != nil {
		return 0, e.storeError("change password", err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.metricAdd(MetricSessionRevoked, revoked)
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionPasswordChanged,
		userID:  updated.ID,
		email:   updated.Email,
		details: "User changed their password",
	}, func() map[string]string {
		return map[string]string{"revokedSessions": strconv.Itoa(revoked)}
	})
	return revoked, nil
}

// UnlockAccount clears the failure counter and lock of targetUserID.
func (e *Engine) UnlockAccount(ctx context.Context, actor jwt.AccessClaims, targetUserID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireAdmin(ctx, actor, "unlock account"); err != nil {
		return err
	}

	var (
		wasLocked bool
		attempts  int
	)
	now := e.now()
	sctx, cancel := e.storeScope(ctx)
	target, err := e.store.Update(sctx, targetUserID, func(cur *account.User) error {
		wasLocked, attempts = cur.IsLocked(now), cur.FailedLoginAttempts
		if !e.lockout.Reset(cur) {
			return account.ErrNoChange
		}
		cur.UpdatedAt = now
		return nil
	})
	cancel()
	if err != nil {
		return e.storeError("unlock account", err)
	}

	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionAccountUnlocked,
		userID:  actor.UserID,
		email:   actor.Email,
		details: "Admin unlocked account: " + target.Email,
	}, func() map[string]string {
		return map[string]string{
			"targetUserId":   target.ID,
			"targetEmail":    target.Email,
			"wasLocked":      strconv.FormatBool(wasLocked),
			"failedAttempts": strconv.Itoa(attempts),
		}
	})
	return nil
}

// ListUsers returns every account for an administrator.
func (e *Engine) ListUsers(ctx context.Context, actor jwt.AccessClaims) ([]account.PublicUser, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.requireAdmin(ctx, actor, "list users"); err != nil {
		return nil, err
	}

	sctx, cancel := e.storeScope(ctx)
	users, err := e.store.ListUsers(sctx)
	cancel()
	if err != nil {
		return nil, e.storeError("list users", err)
	}

	out := make([]account.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}

	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionAdminViewedUsers,
		userID:  actor.UserID,
		email:   actor.Email,
		details: "Admin viewed all users",
	}, func() map[string]string {
		return map[string]string{"count": strconv.Itoa(len(out))}
	})
	return out, nil
}

// GetUser returns one account for an administrator.
func (e *Engine) GetUser(ctx context.Context, actor jwt.AccessClaims, userID string) (*account.PublicUser, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.requireAdmin(ctx, actor, "view user"); err != nil {
		return nil, err
	}
	u, err := e.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionAdminViewedUser,
		userID:  actor.UserID,
		email:   actor.Email,
		details: "Admin viewed user: " + u.Email,
	}, func() map[string]string {
		return map[string]string{"targetUserId": u.ID}
	})

	pub := u.Public()
	return &pub, nil
}

// RecordUnauthorizedAccess audits a request that failed a role check.
// claims may be nil for anonymous callers.
func (e *Engine) RecordUnauthorizedAccess(ctx context.Context, claims *jwt.AccessClaims, resource string) {
	if e == nil {
		return
	}
	e.metricInc(MetricUnauthorizedAccess)

	rec := auditRecord{
		action:  audit.ActionUnauthorizedAccess,
		status:  audit.StatusWarning,
		details: "Unauthorized access attempt to " + resource,
		err:     ErrForbidden,
	}
	role := ""
	if claims != nil {
		rec.userID, rec.email, role = claims.UserID, claims.Email, claims.Role
	}
	e.emitAudit(ctx, rec, func() map[string]string {
		return map[string]string{"resource": resource, "role": role}
	})
}

func (e *Engine) requireAdmin(ctx context.Context, actor jwt.AccessClaims, resource string) error {
	if account.Role(actor.Role) == account.RoleAdmin {
		return nil
	}
	e.RecordUnauthorizedAccess(ctx, &actor, resource)
	return ErrForbidden
}
