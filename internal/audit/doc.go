// Package audit models the append-only audit trail and delivers entries to
// sinks off the request path.
//
// # Components
//
//   - [Entry] with the closed [Action] vocabulary and [Status].
//   - [Sink] for writers and [Reader] for sinks that can answer queries.
//   - [Dispatcher], a buffered relay with drop-if-full semantics and a
//     per-write timeout. Sink errors are logged and counted, never returned.
//
// # What this package must NOT do
//
//   - Decide which operations are audited; the engine does.
//   - Import sessionauth or any sibling internal package.
package audit
