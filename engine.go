package sessionauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth/account"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/internal/limiters"
	"github.com/MrEthical07/sessionauth/internal/rate"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/password"
)

// Engine owns every credential and session invariant. It is safe for
// concurrent use; all per-user state lives in the UserStore.
type Engine struct {
	config      Config
	store       UserStore
	redis       redis.UniversalClient
	hasher      *password.Hasher
	policy      password.Policy
	codec       *jwt.Codec
	lockout     *limiters.Lockout
	limiter     *rate.Limiter
	audit       *audit.Dispatcher
	auditReader audit.Reader
	metrics     *Metrics
	logger      *slog.Logger
	clock       func() time.Time
	flows       flows.Deps
	startedAt   time.Time
}

// Close drains the audit dispatcher. The store and Redis client belong to
// the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports entries dropped because the audit buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditFailed reports entries the audit sink rejected.
func (e *Engine) AuditFailed() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Failed()
}

// MetricsSnapshot returns a copy of every engine counter.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL and RefreshTTL expose token lifetimes for cookie Max-Age.
func (e *Engine) AccessTTL() time.Duration { return e.config.JWT.AccessTTL }

func (e *Engine) RefreshTTL() time.Duration { return e.config.JWT.RefreshTTL }

// VerifyAccess checks an access token. Every failure is ErrTokenInvalid.
func (e *Engine) VerifyAccess(token string) (*jwt.AccessClaims, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := e.codec.VerifyAccess(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.codec == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) observe(id MetricID, started time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(started))
}

// storeScope bounds one store call by Store.OperationTimeout.
func (e *Engine) storeScope(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Store.OperationTimeout)
}

func (e *Engine) findUser(ctx context.Context, id string) (*account.User, error) {
	sctx, cancel := e.storeScope(ctx)
	defer cancel()
	u, err := e.store.FindByID(sctx, id)
	if err != nil {
		return nil, e.storeError("find user", err)
	}
	return u, nil
}

// storeError maps credential store failures onto the public taxonomy.
func (e *Engine) storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, account.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, account.ErrDuplicateEmail):
		return ErrConflict
	case errors.Is(err, account.ErrConflict):
		e.metricInc(MetricStoreConflict)
		e.logger.Warn("sessionauth: store update kept conflicting", "op", op)
		return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
	default:
		e.logger.Error("sessionauth: store failure", "op", op, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
	}
}

func (e *Engine) checkRate(ctx context.Context, scope string, metric MetricID) error {
	decision, err := e.limiter.Hit(ctx, scope, clientIPFromContext(ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.metricInc(metric)
		return &RateLimitError{RetryAfter: decision.RetryAfter}
	default:
		// counting failures never block sign-in
		e.logger.Warn("sessionauth: rate limiter unavailable", "scope", scope, "error", err)
		return nil
	}
}

func (e *Engine) flowClient(ctx context.Context) flows.Client {
	return flows.Client{IP: clientIPFromContext(ctx), UserAgent: userAgentFromContext(ctx)}
}

func newAuditID() string {
	return uuid.NewString()
}
