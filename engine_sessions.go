package sessionauth

import (
	"context"
	"strconv"

	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/session"
)

// Logout ends the session bound to refreshToken. A token that verifies but
// was already rotated or revoked is a no-op; no other session is touched.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if err := e.ready(); err != nil {
		return err
	}
	res := flows.RunLogout(ctx, refreshToken, e.now(), e.flows.Sessions)
	if err := e.sessionError("logout", res); err != nil {
		if res.Failure == flows.SessionFailureMissingToken {
			verr := &ValidationError{}
			verr.add("refreshToken", "refresh token is required")
			return verr
		}
		return err
	}

	e.metricInc(MetricLogout)
	e.metricAdd(MetricSessionRevoked, len(res.Removed))
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionLogout,
		userID:  res.User.ID,
		email:   res.User.Email,
		details: "User logged out with email: " + res.User.Email,
	}, func() map[string]string {
		return map[string]string{"removed": strconv.Itoa(len(res.Removed))}
	})
	return nil
}

// LogoutAll drops every session of userID and returns how many it removed.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	res := flows.RunLogoutAll(ctx, userID, e.now(), e.flows.Sessions)
	if err := e.sessionError("logout all", res); err != nil {
		return 0, err
	}

	e.metricInc(MetricLogoutAll)
	e.metricAdd(MetricSessionRevoked, len(res.Removed))
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionLogout,
		userID:  res.User.ID,
		email:   res.User.Email,
		details: "User logged out of all sessions",
	}, func() map[string]string {
		return map[string]string{"scope": "all", "removed": strconv.Itoa(len(res.Removed))}
	})
	return len(res.Removed), nil
}

// ListSessions returns the user's active sessions, most recently active
// first. The session bound to currentRefreshToken is flagged IsCurrent.
func (e *Engine) ListSessions(ctx context.Context, userID, currentRefreshToken string) ([]SessionView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	u, err := e.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	current := ""
	if currentRefreshToken != "" {
		current = session.HashToken(currentRefreshToken)
	}
	active := u.ActiveSessions(e.now())
	views := make([]SessionView, 0, len(active))
	for _, s := range active {
		views = append(views, SessionView{
			TokenID:     s.TokenID,
			SessionName: s.Name(),
			Device:      s.Device,
			Browser:     s.Browser,
			OS:          s.OS,
			IPAddress:   s.IPAddress,
			LastActive:  s.LastActive,
			CreatedAt:   s.CreatedAt,
			ExpiresAt:   s.ExpiresAt,
			IsCurrent:   current != "" && s.TokenHash == current,
		})
	}
	return views, nil
}

// RevokeSession removes one session by id. An unknown id returns
// ErrNotFound and writes nothing.
func (e *Engine) RevokeSession(ctx context.Context, userID, tokenID string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if tokenID == "" {
		return ErrNotFound
	}
	res := flows.RunRevokeSession(ctx, userID, tokenID, e.now(), e.flows.Sessions)
	if err := e.sessionError("revoke session", res); err != nil {
		return err
	}

	e.metricAdd(MetricSessionRevoked, len(res.Removed))
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionLogout,
		userID:  res.User.ID,
		email:   res.User.Email,
		details: "Session revoked: " + res.Removed[0].Name(),
	}, func() map[string]string {
		return map[string]string{"revokedTokenId": tokenID}
	})
	return nil
}

// RevokeOtherSessions keeps only the session bound to currentRefreshToken
// and returns how many it removed.
func (e *Engine) RevokeOtherSessions(ctx context.Context, userID, currentRefreshToken string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	res := flows.RunRevokeOthers(ctx, userID, currentRefreshToken, e.now(), e.flows.Sessions)
	if err := e.sessionError("revoke other sessions", res); err != nil {
		return 0, err
	}

	n := len(res.Removed)
	e.metricAdd(MetricSessionRevoked, n)
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionLogout,
		userID:  res.User.ID,
		email:   res.User.Email,
		details: "Revoked " + strconv.Itoa(n) + " other sessions",
	}, func() map[string]string {
		return map[string]string{"scope": "others", "revokedCount": strconv.Itoa(n)}
	})
	return n, nil
}

func (e *Engine) sessionError(op string, res flows.SessionResult) error {
	switch res.Failure {
	case flows.SessionFailureNone:
		return nil
	case flows.SessionFailureMissingToken:
		return ErrValidation
	case flows.SessionFailureDecode:
		return ErrTokenInvalid
	case flows.SessionFailureUserNotFound, flows.SessionFailureSessionNotFound:
		return ErrNotFound
	default:
		return e.storeError(op, res.Err)
	}
}
