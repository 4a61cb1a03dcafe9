package sessionauth

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/sessionauth/jwt"
)

func TestAuditStatsSummarizesLogins(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "xena@example.com", "")
	env.login(t, "xena@example.com")
	_, _ = env.engine.Login(context.Background(), "xena@example.com", "Wrong1234")
	env.login(t, "xena@example.com")
	_, _ = env.engine.Login(context.Background(), "nobody@example.com", "Wrong1234")

	stats, err := env.engine.AuditStats(context.Background(), jwt.AccessClaims{UserID: "auditor", Role: "admin"})
	if err != nil {
		t.Fatalf("audit stats: %v", err)
	}
	if stats.TotalLogs != 5 {
		t.Fatalf("expected 5 entries, got %d", stats.TotalLogs)
	}
	if stats.LoginAttempts != 4 || stats.FailedLogins != 2 {
		t.Fatalf("unexpected login counts %+v", stats)
	}
	if stats.SuccessRate != 50 {
		t.Fatalf("expected 50%% success, got %v", stats.SuccessRate)
	}
	if len(stats.ActionCounts) == 0 || stats.ActionCounts[0].Count < stats.ActionCounts[len(stats.ActionCounts)-1].Count {
		t.Fatalf("action counts not sorted: %+v", stats.ActionCounts)
	}
}

func TestAuditLogsFiltersAndPages(t *testing.T) {
	env := newTestEnv(t, nil)
	admin := adminClaims(t, env, "yara@example.com")
	env.register(t, "zed@example.com", "")
	for i := 0; i < 3; i++ {
		env.login(t, "zed@example.com")
	}

	page, err := env.engine.AuditLogs(context.Background(), admin, AuditFilter{Action: AuditLoginSuccess, Limit: 2})
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	if page.Total != 4 || page.TotalPages != 2 || len(page.Entries) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	for _, e := range page.Entries {
		if e.Action != AuditLoginSuccess {
			t.Fatalf("filter leaked %s", e.Action)
		}
	}

	if _, err := env.engine.AuditLogs(context.Background(), admin, AuditFilter{Action: "BOGUS"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown action, got %v", err)
	}
	if env.countAudit(AuditAdminViewedAuditLogs) != 1 {
		t.Fatal("expected one ADMIN_VIEWED_AUDIT_LOGS entry")
	}
}

func TestAuditQueriesNeedReader(t *testing.T) {
	env := newTestEnv(t, nil)
	env.engine.auditReader = nil

	admin := jwt.AccessClaims{UserID: "auditor", Role: "admin"}
	if _, err := env.engine.AuditStats(context.Background(), admin); !errors.Is(err, ErrAuditQueryUnsupported) {
		t.Fatalf("expected ErrAuditQueryUnsupported, got %v", err)
	}
}

func TestAuditStatsRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "uma@example.com", "")
	user := env.login(t, "uma@example.com")
	claims, err := env.engine.VerifyAccess(user.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}

	if _, err := env.engine.AuditStats(context.Background(), *claims); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if env.countAudit(AuditUnauthorizedAccess) != 1 {
		t.Fatal("expected the refused read to be audited")
	}
}

func TestLockingFailureCountsAsFailedLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "vic@example.com", "")
	for i := 0; i < 5; i++ {
		_, _ = env.engine.Login(context.Background(), "vic@example.com", "Wrong1234")
	}

	if got := env.countAudit(AuditLoginFailed); got != 5 {
		t.Fatalf("expected 5 USER_LOGIN_FAILED entries, got %d", got)
	}
	if got := env.countAudit(AuditAccountLocked); got != 1 {
		t.Fatalf("expected 1 ACCOUNT_LOCKED entry, got %d", got)
	}
	var last AuditEntry
	for _, e := range env.audit.Snapshot() {
		if e.Action == AuditLoginFailed {
			last = e
		}
	}
	if last.Metadata["lockUntil"] == "" {
		t.Fatalf("expected lock expiry on the locking failure, got %+v", last.Metadata)
	}

	stats, err := env.engine.AuditStats(context.Background(), jwt.AccessClaims{UserID: "auditor", Role: "admin"})
	if err != nil {
		t.Fatalf("audit stats: %v", err)
	}
	if stats.FailedLogins != 5 || stats.LoginAttempts != 5 || stats.SuccessRate != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
