package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth"
)

const loadPassword = "Loadtest123"

// account is one seeded user and the refresh token it currently holds.
type account struct {
	mu      sync.Mutex
	email   string
	refresh string
}

func main() {
	users := flag.Int("users", 200, "number of users to seed")
	concurrency := flag.Int("concurrency", 64, "number of concurrent workers")
	ops := flag.Int("ops", 5000, "operations per phase")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "redis address; empty starts miniredis")
	prefix := flag.String("prefix", "sa-load", "store key prefix")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency and ops must be > 0")
		os.Exit(2)
	}

	client, closeRedis, err := connect(*redisAddr)
	if err != nil {
		fail("redis", err)
	}
	defer closeRedis()

	engine, err := sessionauth.New().
		WithConfig(loadConfig(*prefix)).
		WithRedis(client).
		WithLogger(logger).
		Build()
	if err != nil {
		fail("build engine", err)
	}
	defer engine.Close()

	ctx := context.Background()
	accounts, err := seed(ctx, engine, *users)
	if err != nil {
		fail("seed", err)
	}

	login := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Login(ctx, accounts[r.Intn(len(accounts))].email, loadPassword)
		return err
	})
	// Login evictions can drop a seeded session, so a failed refresh logs
	// the account back in and carries on.
	refresh := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		a := accounts[r.Intn(len(accounts))]
		a.mu.Lock()
		defer a.mu.Unlock()

		res, err := engine.Refresh(ctx, a.refresh)
		if err != nil {
			if again, lerr := engine.Login(ctx, a.email, loadPassword); lerr == nil {
				a.refresh = again.Tokens.RefreshToken
			}
			return err
		}
		a.refresh = res.Tokens.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	login.print("login")
	refresh.print("refresh")

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: sessions_created=%d evicted=%d reuse_detected=%d store_conflicts=%d\n",
		snap.Counters[sessionauth.MetricSessionCreated],
		snap.Counters[sessionauth.MetricSessionEvicted],
		snap.Counters[sessionauth.MetricRefreshReuseDetected],
		snap.Counters[sessionauth.MetricStoreConflict],
	)
}

func fail(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		if mr, err = miniredis.Run(); err != nil {
			return nil, nil, err
		}
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	return client, func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}, nil
}

// loadConfig uses cheap hashing and disables rate limits and lockout so the
// phases measure store round trips.
func loadConfig(prefix string) sessionauth.Config {
	cfg := sessionauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("loadtest-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("loadtest-refresh-secret-0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.RateLimit.Enabled = false
	cfg.Lockout.Enabled = false
	cfg.Session.MaxSessionsPerUser = 5
	cfg.Store.RedisPrefix = prefix
	cfg.Store.MaxUpdateRetries = 64
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func seed(ctx context.Context, engine *sessionauth.Engine, n int) ([]*account, error) {
	fmt.Printf("seeding %d users...\n", n)
	started := time.Now()

	out := make([]*account, n)
	for i := range out {
		email := fmt.Sprintf("load-%d@example.com", i)
		if _, err := engine.Register(ctx, sessionauth.RegisterRequest{Email: email, Password: loadPassword}); err != nil {
			return nil, fmt.Errorf("register %s: %w", email, err)
		}
		res, err := engine.Login(ctx, email, loadPassword)
		if err != nil {
			return nil, fmt.Errorf("login %s: %w", email, err)
		}
		out[i] = &account{email: email, refresh: res.Tokens.RefreshToken}
	}

	fmt.Printf("seeded in %s\n", time.Since(started).Round(time.Millisecond))
	return out, nil
}

// runPhase runs op ops times across concurrency workers, each with its own
// random source.
func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
	var (
		wg       sync.WaitGroup
		next     atomic.Int64
		failures atomic.Int64
		mu       sync.Mutex
		samples  = make([]time.Duration, 0, ops)
	)

	started := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for next.Add(1) <= int64(ops) {
				t0 := time.Now()
				if err := op(r); err != nil {
					failures.Add(1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			samples = append(samples, local...)
			mu.Unlock()
		}(started.UnixNano() + int64(w)*7919)
	}
	wg.Wait()

	return summarize(time.Since(started), samples, failures.Load())
}

type phaseStats struct {
	elapsed       time.Duration
	ops           int
	failures      int64
	p50, p95, p99 time.Duration
}

func summarize(elapsed time.Duration, samples []time.Duration, failures int64) phaseStats {
	slices.Sort(samples)
	return phaseStats{
		elapsed:  elapsed,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
}

// percentile expects sorted samples.
func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	p = min(max(p, 0), 100)
	return sorted[(len(sorted)-1)*p/100]
}

func (s phaseStats) print(name string) {
	rate := 0.0
	if s.elapsed > 0 {
		rate = float64(s.ops) / s.elapsed.Seconds()
	}
	fmt.Printf("%-8s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name, s.ops, s.failures,
		s.elapsed.Round(time.Millisecond), rate,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
