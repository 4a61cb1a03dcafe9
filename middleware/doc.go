// Package middleware adapts the engine to net/http.
//
//   - [ClientMeta] copies the caller's IP and User-Agent into the request
//     context so login, refresh and audit entries can record them.
//   - [RequireAccess] verifies the access token from the accessToken cookie
//     or an Authorization: Bearer header and stores the claims.
//   - [RequireRole] rejects callers whose role is not listed and records the
//     attempt.
//   - [CORS] and [Logging] are the usual edge concerns.
//
// Token checks are delegated to the engine; this package never parses JWTs.
package middleware
