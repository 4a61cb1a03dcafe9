// Package internal contains helpers private to sessionauth: random session
// identifiers and user-agent classification.
//
// # Sub-packages
//
//   - app: store connection and server wiring for cmd/sessionauthd
//   - audit: entry model, closed action enum, async dispatch
//   - config: environment, .env and YAML loading for the server binary
//   - flows: login, refresh and session-ledger flow orchestration
//   - limiters: account lockout policy
//   - rate: Redis-backed fixed-window request limits
//
// # What this package must NOT do
//
//   - Export types that appear in the public sessionauth API.
//   - Be imported from outside the sessionauth module.
package internal
