// Package rate implements fixed-window request limits in Redis, keyed by a
// scope ("login", "register") and a caller key, usually the client IP.
//
// A nil [*Limiter] allows every request, so the engine can run without Redis.
package rate
