package internaldefs

import (
	"github.com/MrEthical07/sessionauth"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram.
type HistogramDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: sessionauth.MetricLoginSuccess, Name: "sessionauth_login_success_total", Help: "Successful logins."},
	{ID: sessionauth.MetricLoginFailure, Name: "sessionauth_login_failure_total", Help: "Logins rejected for unknown email or wrong password."},
	{ID: sessionauth.MetricLoginRateLimited, Name: "sessionauth_login_rate_limited_total", Help: "Login attempts rejected by the per-IP limiter."},
	{ID: sessionauth.MetricLoginLocked, Name: "sessionauth_login_locked_total", Help: "Login attempts on a locked account."},
	{ID: sessionauth.MetricRefreshSuccess, Name: "sessionauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: sessionauth.MetricRefreshFailure, Name: "sessionauth_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: sessionauth.MetricRefreshReuseDetected, Name: "sessionauth_refresh_reuse_detected_total", Help: "Refresh tokens presented after rotation or revocation."},
	{ID: sessionauth.MetricRegisterSuccess, Name: "sessionauth_register_success_total", Help: "Accounts created."},
	{ID: sessionauth.MetricRegisterDuplicate, Name: "sessionauth_register_duplicate_total", Help: "Registrations rejected for an existing email."},
	{ID: sessionauth.MetricRegisterRateLimited, Name: "sessionauth_register_rate_limited_total", Help: "Registrations rejected by the per-IP limiter."},
	{ID: sessionauth.MetricSessionCreated, Name: "sessionauth_session_created_total", Help: "Sessions opened by login."},
	{ID: sessionauth.MetricSessionEvicted, Name: "sessionauth_session_evicted_total", Help: "Sessions evicted by the per-user cap."},
	{ID: sessionauth.MetricSessionRevoked, Name: "sessionauth_session_revoked_total", Help: "Sessions removed by logout or revocation."},
	{ID: sessionauth.MetricLogout, Name: "sessionauth_logout_total", Help: "Single-session logouts."},
	{ID: sessionauth.MetricLogoutAll, Name: "sessionauth_logout_all_total", Help: "Logout-all operations."},
	{ID: sessionauth.MetricSessionsSwept, Name: "sessionauth_sessions_swept_total", Help: "Expired sessions removed by the sweeper."},
	{ID: sessionauth.MetricPasswordChangeSuccess, Name: "sessionauth_password_change_success_total", Help: "Successful password changes."},
	{ID: sessionauth.MetricPasswordChangeInvalidOld, Name: "sessionauth_password_change_invalid_old_total", Help: "Password changes rejected for a wrong current password."},
	{ID: sessionauth.MetricPasswordRehashed, Name: "sessionauth_password_rehashed_total", Help: "Password hashes upgraded at login."},
	{ID: sessionauth.MetricAccountLocked, Name: "sessionauth_account_locked_total", Help: "Accounts locked after repeated failures."},
	{ID: sessionauth.MetricAccountUnlocked, Name: "sessionauth_account_unlocked_total", Help: "Accounts unlocked by an administrator."},
	{ID: sessionauth.MetricUnauthorizedAccess, Name: "sessionauth_unauthorized_access_total", Help: "Requests that failed a role check."},
	{ID: sessionauth.MetricStoreConflict, Name: "sessionauth_store_conflict_total", Help: "Store updates abandoned after exhausting retries."},
}

// Audit dispatcher counters. They come from the engine directly rather than
// from the metrics snapshot.
const (
	AuditDroppedName = "sessionauth_audit_dropped_total"
	AuditDroppedHelp = "Audit entries dropped because the dispatcher buffer was full."
	AuditFailedName  = "sessionauth_audit_failed_total"
	AuditFailedHelp  = "Audit entries the sink rejected."
)

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: sessionauth.MetricLoginLatency, Name: "sessionauth_login_latency_seconds", Help: "Login latency."},
	{ID: sessionauth.MetricRefreshLatency, Name: "sessionauth_refresh_latency_seconds", Help: "Refresh latency."},
}

// BucketCount is the number of latency buckets including +Inf.
const BucketCount = len(sessionauth.HistogramBounds) + 1

// HistogramBounds are the Prometheus le labels, matching
// sessionauth.HistogramBounds plus +Inf.
var HistogramBounds = [BucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling a short
// or missing histogram.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range raw {
		running += raw[i]
		out[i] = running
	}
	return out
}
