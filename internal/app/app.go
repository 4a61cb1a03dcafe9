// Package app wires the configured stores, engine and HTTP server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/httpapi"
	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/config"
	"github.com/MrEthical07/sessionauth/metrics/export/prometheus"
	"github.com/MrEthical07/sessionauth/storage/pgstore"
	"github.com/MrEthical07/sessionauth/storage/redisstore"
)

type App struct {
	cfg    config.Config
	log    *slog.Logger
	engine *sessionauth.Engine
	server *httpapi.Server

	closers []io.Closer
}

// New connects the stores and builds the engine. Everything it opened is
// released by Run, or immediately when New fails.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, log: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	engineCfg := cfg.Engine()
	builder := sessionauth.New().
		WithConfig(engineCfg).
		WithLogger(logger)

	var rdb *redis.Client
	if cfg.Store.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		a.closers = append(a.closers, rdb)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		builder.WithRedis(rdb)
	}

	var store sessionauth.UserStore
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.Store.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		pg, err := pgstore.New(ctx, db, pgstore.Options{MaxUpdateRetries: engineCfg.Store.MaxUpdateRetries})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		store = pg
	default:
		store = redisstore.New(rdb, redisstore.Options{
			Prefix:           engineCfg.Store.RedisPrefix,
			MaxUpdateRetries: engineCfg.Store.MaxUpdateRetries,
		})
	}
	builder.WithUserStore(store)

	if cfg.AuditLogFile != "" {
		f, err := os.OpenFile(cfg.AuditLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		a.closers = append(a.closers, f)
		// The store stays first so audit queries keep working.
		builder.WithAuditSink(audit.MultiSink{store.(audit.Sink), audit.NewJSONWriterSink(f)})
	}

	a.engine, err = builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	a.server = httpapi.New(httpapi.Config{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, httpapi.Deps{
		Engine:       a.engine,
		Logger:       logger,
		Metrics:      prometheus.NewPrometheusExporter(a.engine).Handler(),
		Cookies:      httpapi.CookieConfig{Secure: cfg.Production()},
		ClientOrigin: cfg.ClientOrigin,
		TrustProxy:   cfg.TrustProxy,
	})
	return a, nil
}

// Run serves until ctx is cancelled, then shuts down within the configured
// timeout.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.engine.RunSweeper(sweepCtx, a.cfg.SessionSweepInterval)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server starting",
			slog.String("addr", a.cfg.HTTP.Addr),
			slog.String("store", a.cfg.Store.Driver),
			slog.String("env", a.cfg.AppEnv),
		)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	}
}

// close flushes the audit queue before the stores it writes to go away.
func (a *App) close() {
	if a.engine != nil {
		a.engine.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("release resources", slog.Any("error", err))
	}
}
