// Package sessionauth is a session-based authentication engine: account
// registration, password login with lockout, rotating refresh tokens, a
// per-user session ledger and an append-only audit trail.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessionauth is the public surface. It exposes [Engine], [Builder],
// [Config] and value types such as [LoginResult] and [SessionView].
// Flow orchestration, lockout and rate limiting, and audit dispatch live
// under internal/. Credential stores live in storage/redisstore and
// storage/pgstore; the HTTP transport lives in httpapi.
//
// # Consistency
//
// Every change to a user goes through [UserStore].Update, which applies
// a mutation atomically per user and retries on concurrent modification.
// A refresh token is therefore usable exactly once even when two requests
// race with it.
//
// # Performance contract
//
// VerifyAccess is the hot path and never touches the store. Login,
// Refresh and the session operations make one read and one conditional
// write per attempt.
package sessionauth
