package sessionauth

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
)

// Login authenticates email and password and opens a new session. Client
// IP and User-Agent are read from ctx (see WithClientIP, WithUserAgent).
//
// Unknown email and wrong password both return ErrInvalidCredentials. A
// locked account returns *LockedError without checking the password, and
// the failure that reaches the lockout threshold already returns it.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	started := time.Now()
	defer e.observe(MetricLoginLatency, started)

	email = account.NormalizeEmail(email)
	verr := &ValidationError{}
	if email == "" {
		verr.add("email", "email is required")
	}
	if password == "" {
		verr.add("password", "password is required")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	if err := e.checkRate(ctx, rateScopeLogin, MetricLoginRateLimited); err != nil {
		return nil, err
	}

	now := e.now()
	res := flows.RunLogin(ctx, email, password, e.flowClient(ctx), now, e.flows.Login)

	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureUnknownUser:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditRecord{
			action:  audit.ActionLoginFailed,
			status:  audit.StatusFailure,
			email:   email,
			details: "Login attempt with unknown email: " + email,
			err:     ErrInvalidCredentials,
		}, nil)
		return nil, ErrInvalidCredentials
	case flows.LoginFailureLocked:
		err := &LockedError{Until: res.LockUntil}
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditRecord{
			action:  audit.ActionLoginFailed,
			status:  audit.StatusFailure,
			userID:  res.User.ID,
			email:   res.User.Email,
			details: "Login attempt on locked account",
			err:     err,
		}, func() map[string]string {
			return map[string]string{"lockUntil": res.LockUntil.Format(time.RFC3339)}
		})
		return nil, err
	case flows.LoginFailureBadPassword:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditRecord{
			action:  audit.ActionLoginFailed,
			status:  audit.StatusFailure,
			userID:  res.User.ID,
			email:   res.User.Email,
			details: "Login failed: incorrect password",
			err:     ErrInvalidCredentials,
		}, func() map[string]string {
			return map[string]string{"failedAttempts": strconv.Itoa(res.Attempts)}
		})
		return nil, ErrInvalidCredentials
	case flows.LoginFailureLockedNow:
		err := &LockedError{Until: res.LockUntil}
		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricAccountLocked)
		lockMeta := func() map[string]string {
			return map[string]string{
				"failedAttempts": strconv.Itoa(res.Attempts),
				"lockUntil":      res.LockUntil.Format(time.RFC3339),
			}
		}
		e.emitAudit(ctx, auditRecord{
			action:  audit.ActionLoginFailed,
			status:  audit.StatusFailure,
			userID:  res.User.ID,
			email:   res.User.Email,
			details: "Login failed: incorrect password, account locked",
			err:     err,
		}, lockMeta)
		e.emitAudit(ctx, auditRecord{
			action:  audit.ActionAccountLocked,
			status:  audit.StatusWarning,
			userID:  res.User.ID,
			email:   res.User.Email,
			details: "Account locked after " + strconv.Itoa(res.Attempts) + " failed login attempts",
			err:     err,
		}, lockMeta)
		return nil, err
	case flows.LoginFailureStore:
		return nil, e.storeError("login", res.Err)
	default:
		e.logger.Error("sessionauth: login failed", "error", res.Err)
		return nil, internalError("login", res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.metricAdd(MetricSessionEvicted, res.Evicted)
	if res.Rehashed {
		e.metricInc(MetricPasswordRehashed)
	}
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionLoginSuccess,
		userID:  res.User.ID,
		email:   res.User.Email,
		details: "User logged in successfully with email: " + res.User.Email,
	}, func() map[string]string {
		return map[string]string{
			"tokenId": res.Session.TokenID,
			"session": res.Session.Name(),
			"device":  res.Session.Device,
		}
	})

	return &LoginResult{
		User: res.User.Public(),
		Tokens: TokenPair{
			AccessToken:      res.AccessToken,
			RefreshToken:     res.RefreshToken,
			AccessExpiresAt:  res.AccessExpiresAt,
			RefreshExpiresAt: res.RefreshExpiresAt,
		},
		SessionID: res.Session.TokenID,
	}, nil
}
