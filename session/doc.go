// Package session models the per-user session ledger: one [Session] record per
// live refresh token, held in an ordered [Ledger] embedded in the owning user
// document.
//
// # Architecture boundaries
//
// This package owns the [Session] value and the [Ledger] collection operations
// (add, remove-by-predicate, lookup, expiry filtering). Persistence and
// atomicity belong to the credential store; token issuance belongs to the jwt
// package.
//
// # What this package must NOT do
//
//   - Import sessionauth, jwt, or any storage package (no upward imports).
//   - Store refresh tokens in clear. Only the [HashToken] digest is kept.
//   - Read the wall clock. Every time-dependent operation takes "now".
package session
