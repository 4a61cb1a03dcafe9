// Package limiters holds the account lockout policy applied to failed
// logins.
//
// [Lockout] is pure: it reads and mutates an [account.User] value and never
// performs I/O. The engine calls it inside the store's atomic update, so
// the failure counter and lock deadline always commit together.
package limiters
