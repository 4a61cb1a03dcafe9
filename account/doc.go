// Package account defines the user document persisted by credential stores:
// identity, password hash, role, lockout counters and the embedded session
// ledger.
//
// Stores exchange [User] values and report failures with the sentinel errors
// declared here so the engine can map them without importing a backend.
package account
