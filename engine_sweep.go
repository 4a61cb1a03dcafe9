package sessionauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/sessionauth/internal/flows"
)

// SweepExpiredSessions removes expired sessions from every user that has
// any. Per-user failures are counted and logged; the sweep keeps going.
func (e *Engine) SweepExpiredSessions(ctx context.Context) (SweepReport, error) {
	if err := e.ready(); err != nil {
		return SweepReport{}, err
	}

	res, err := flows.RunSweep(ctx, e.flows.Sweep)
	report := SweepReport{
		UsersScanned: res.UsersScanned,
		UsersChanged: res.UsersChanged,
		Removed:      res.Removed,
		Failed:       res.Failed,
	}
	e.metricAdd(MetricSessionsSwept, res.Removed)

	if len(res.Errs) > 0 {
		e.logger.Warn("sessionauth: sweep skipped users",
			slog.Int("failed", res.Failed),
			slog.Any("error", errors.Join(res.Errs...)),
		)
	}
	if err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		return report, e.storeError("sweep", err)
	}
	return report, nil
}

// SweepUserSessions removes the expired sessions of one user.
func (e *Engine) SweepUserSessions(ctx context.Context, userID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	n, err := flows.RunSweepUser(ctx, userID, e.flows.Sweep)
	if err != nil {
		return 0, e.storeError("sweep user", err)
	}
	e.metricAdd(MetricSessionsSwept, n)
	return n, nil
}

// RunSweeper sweeps every interval until ctx is done. A non-positive
// interval uses Session.SweepInterval.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	if e.ready() != nil {
		return
	}
	if interval <= 0 {
		interval = e.config.Session.SweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := e.SweepExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				e.logger.Error("sessionauth: session sweep failed", slog.Any("error", err))
				continue
			}
			if report.Removed > 0 || report.Failed > 0 {
				e.logger.Info("sessionauth: session sweep",
					slog.Int("users_scanned", report.UsersScanned),
					slog.Int("users_changed", report.UsersChanged),
					slog.Int("removed", report.Removed),
					slog.Int("failed", report.Failed),
				)
			}
		}
	}
}
