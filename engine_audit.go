package sessionauth

import (
	"context"
	"errors"
	"math"

	"github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/jwt"
)

// AuditErrorCode is the short failure code recorded in entry metadata.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

type auditRecord struct {
	action  audit.Action
	status  audit.Status
	userID  string
	email   string
	details string
	err     error
}

func (e *Engine) emitAudit(ctx context.Context, rec auditRecord, metadataBuilder func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if code := auditErrorCode(rec.err); code != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["error"] = string(code)
	}
	if rec.status == "" {
		rec.status = audit.StatusSuccess
	}

	e.audit.Emit(ctx, audit.Entry{
		ID:        newAuditID(),
		UserID:    rec.userID,
		Email:     rec.email,
		Action:    rec.action,
		Details:   rec.details,
		IPAddress: clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Status:    rec.status,
		Metadata:  metadata,
		CreatedAt: e.now(),
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrConflict):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrUnauthenticated):
		return auditErrInvalidToken
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

// AuditLogs pages through the audit trail, newest first. Only admins may
// read it and each read is itself audited.
func (e *Engine) AuditLogs(ctx context.Context, actor jwt.AccessClaims, filter audit.Filter) (audit.Page, error) {
	if err := e.ready(); err != nil {
		return audit.Page{}, err
	}
	if err := e.requireAdmin(ctx, actor, "audit logs"); err != nil {
		return audit.Page{}, err
	}
	if e.auditReader == nil {
		return audit.Page{}, ErrAuditQueryUnsupported
	}
	if filter.Action != "" && !filter.Action.Valid() {
		verr := &ValidationError{}
		verr.add("action", "unknown audit action")
		return audit.Page{}, verr
	}

	page, err := e.auditReader.List(ctx, filter.Normalize())
	if err != nil {
		return audit.Page{}, e.storeError("list audit logs", err)
	}

	e.emitAudit(ctx, auditRecord{
		action:  audit.ActionAdminViewedAuditLogs,
		userID:  actor.UserID,
		email:   actor.Email,
		details: "Admin viewed audit logs",
	}, func() map[string]string {
		m := map[string]string{}
		if filter.UserID != "" {
			m["targetUserId"] = filter.UserID
		}
		if filter.Action != "" {
			m["filterAction"] = string(filter.Action)
		}
		return m
	})
	return page, nil
}

// AuditStats summarizes the trail: totals, login success rate, the ten most
// recent entries and per-action counts in descending order. Admin only.
func (e *Engine) AuditStats(ctx context.Context, actor jwt.AccessClaims) (AuditStats, error) {
	if err := e.ready(); err != nil {
		return AuditStats{}, err
	}
	if err := e.requireAdmin(ctx, actor, "audit stats"); err != nil {
		return AuditStats{}, err
	}
	if e.auditReader == nil {
		return AuditStats{}, ErrAuditQueryUnsupported
	}

	counts, err := e.auditReader.ActionCounts(ctx)
	if err != nil {
		return AuditStats{}, e.storeError("audit action counts", err)
	}
	recent, err := e.auditReader.List(ctx, audit.Filter{Page: 1, Limit: 10})
	if err != nil {
		return AuditStats{}, e.storeError("recent audit logs", err)
	}

	stats := AuditStats{
		RecentLogs:   recent.Entries,
		ActionCounts: counts,
	}
	var succeeded int
	for _, c := range counts {
		stats.TotalLogs += c.Count
		switch c.Action {
		case audit.ActionLoginSuccess:
			succeeded = c.Count
		case audit.ActionLoginFailed:
			stats.FailedLogins = c.Count
		}
	}
	stats.LoginAttempts = succeeded + stats.FailedLogins
	if stats.LoginAttempts > 0 {
		rate := float64(succeeded) / float64(stats.LoginAttempts) * 100
		stats.SuccessRate = math.Round(rate*100) / 100
	}
	return stats, nil
}
