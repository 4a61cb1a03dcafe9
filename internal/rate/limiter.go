package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rule is a fixed-window budget: at most Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Config maps scopes (e.g. "login", "register") to rules. Scopes without a
// rule are never limited.
type Config struct {
	Prefix string
	Rules  map[string]Rule
}

// Decision describes the outcome of one hit.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts hits per scope and key in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	rules := make(map[string]Rule, len(cfg.Rules))
	for scope, rule := range cfg.Rules {
		rules[scope] = rule
	}
	cfg.Rules = rules
	return &Limiter{redis: redisClient, config: cfg}
}

// Hit records one request for key under scope. When the budget is exhausted
// the decision is not allowed and ErrRateLimited is returned alongside it.
// A nil limiter allows everything.
func (l *Limiter) Hit(ctx context.Context, scope, key string) (Decision, error) {
	if l == nil || key == "" {
		return Decision{Allowed: true}, nil
	}
	rule, ok := l.config.Rules[scope]
	if !ok || rule.Limit <= 0 || rule.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	redisKey := l.key(scope, key)
	count, err := l.incrementWithTTL(ctx, redisKey, rule.Window)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{Allowed: count <= int64(rule.Limit)}
	if remaining := int64(rule.Limit) - count; remaining > 0 {
		decision.Remaining = int(remaining)
	}
	if decision.Allowed {
		return decision, nil
	}

	ttl, err := l.redis.PTTL(ctx, redisKey).Result()
	if err != nil {
		return decision, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl > 0 {
		decision.RetryAfter = ttl
	}
	return decision, ErrRateLimited
}

// Reset clears the counter for key under scope.
func (l *Limiter) Reset(ctx context.Context, scope, key string) error {
	if l == nil || key == "" {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(scope, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(scope, key string) string {
	return l.config.Prefix + ":" + scope + ":" + key
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.PExpire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
