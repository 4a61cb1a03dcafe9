package sessionauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth/internal/audit"
)

const testPassword = "Secret123"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *fakeClock
	audit  *audit.MemorySink
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("test-refresh-secret-0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.BufferSize = 0
	cfg.Store.MaxUpdateRetries = 100
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	clock := newFakeClock()
	sink := audit.NewMemorySink()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, rdb: rdb, clock: clock, audit: sink}
}

func (env *testEnv) register(t *testing.T, email, role string) string {
	t.Helper()
	u, err := env.engine.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: testPassword,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u.ID
}

func (env *testEnv) login(t *testing.T, email string) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), email, testPassword)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res
}

func (env *testEnv) countAudit(action audit.Action) int {
	n := 0
	for _, e := range env.audit.Snapshot() {
		if e.Action == action {
			n++
		}
	}
	return n
}
