package sessionauth

import (
	"context"
	"time"

	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
)

// Refresh rotates a refresh token. The presented token stops working the
// moment this succeeds; presenting it again, or losing a race with a
// concurrent refresh of the same token, yields ErrTokenInvalid.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	started := time.Now()
	defer e.observe(MetricRefreshLatency, started)

	res := flows.RunRefresh(ctx, refreshToken, e.flowClient(ctx), e.now(), e.flows.Refresh)

	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureMissing:
		e.metricInc(MetricRefreshFailure)
		return nil, ErrUnauthenticated
	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshFailure)
		return nil, ErrTokenInvalid
	case flows.RefreshFailureUserNotFound:
		e.metricInc(MetricRefreshFailure)
		return nil, ErrNotFound
	case flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshFailure)
		e.metricInc(MetricRefreshReuseDetected)
		e.logger.Warn("sessionauth: refresh token not in ledger", "user_id", res.UserID, "ip", clientIPFromContext(ctx))
		return nil, ErrTokenInvalid
	case flows.RefreshFailureStore:
		e.metricInc(MetricRefreshFailure)
		return nil, e.storeError("refresh", res.Err)
	default:
		e.metricInc(MetricRefreshFailure)
		e.logger.Error("sessionauth: refresh failed", "error", res.Err)
		return nil, internalError("refresh", res.Err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionTokenRefreshed,
		userID:  res.User.ID,
		email:   res.User.Email,
		details: "Tokens refreshed for user with email: " + res.User.Email,
	}, func() map[string]string {
		return map[string]string{
			"previousTokenId": res.Previous.TokenID,
			"tokenId":         res.Session.TokenID,
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
