// Package flows holds the credential and session algorithms behind the root
// engine. Each flow takes a Deps struct built once by the engine and returns
// a Result carrying either the outcome or a FailureKind the engine maps to
// its public errors, audit entries and metrics.
//
// Flows never import the root package. Every user mutation goes through
// UserStore.Update so the read-modify-write of a user's session ledger and
// lockout state is atomic.
package flows
