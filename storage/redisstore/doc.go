// Package redisstore persists user documents and the audit trail in Redis.
//
// # Key layout
//
//	<prefix>:user:<id>          JSON user document (sessions embedded)
//	<prefix>:email:<email>      user id, unique email index
//	<prefix>:users              sorted set of user ids scored by creation time
//	<prefix>:users:sessions     set of user ids that hold at least one session
//	<prefix>:audit:entries      newest-first list of JSON audit entries
//	<prefix>:audit:user:<id>    per-user audit list
//	<prefix>:audit:action:<a>   per-action audit list
//	<prefix>:audit:counts       hash of action -> count
//
// # Atomicity
//
// [Store.Update] is an optimistic transaction: the user key (and the target
// email key on an email change) is WATCHed, the callback runs against a fresh
// copy, and the write is committed with MULTI/EXEC. A lost race retries up to
// the configured limit and then fails with account.ErrConflict.
package redisstore
