package sessionauth

import (
	"context"
	"time"
)

// Health pings the credential store and, when configured, Redis.
func (e *Engine) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status: HealthOK,
		Checks: map[string]string{},
	}
	if e.ready() != nil {
		report.Status = HealthDegraded
		report.Checks["engine"] = "not ready"
		return report
	}
	now := e.now()
	report.CheckedAt = now
	report.Uptime = now.Sub(e.startedAt).Truncate(time.Second).String()

	sctx, cancel := e.storeScope(ctx)
	err := e.store.Ping(sctx)
	cancel()
	report.Checks["store"] = checkResult(err)
	if err != nil {
		report.Status = HealthDegraded
	}

	if e.redis != nil {
		sctx, cancel := e.storeScope(ctx)
		err := e.redis.Ping(sctx).Err()
		cancel()
		report.Checks["redis"] = checkResult(err)
		if err != nil {
			report.Status = HealthDegraded
		}
	}

	if dropped := e.AuditDropped(); dropped > 0 {
		report.Checks["audit"] = "dropping entries"
	} else {
		report.Checks["audit"] = "ok"
	}
	return report
}

func checkResult(err error) string {
	if err != nil {
		return "unreachable"
	}
	return "ok"
}
