// Package jwt issues and verifies the two token kinds used by the engine:
// short-lived access tokens carrying identity and role, and long-lived refresh
// tokens carrying only the user and session ids.
//
// Each kind has its own HMAC secret, lifetime and audience, so a leaked access
// secret cannot mint refresh tokens and a refresh token never passes access
// verification. Verification fails closed: expiry, bad signatures and
// malformed payloads all surface as a [*VerifyError] that matches
// [ErrInvalidToken].
package jwt
