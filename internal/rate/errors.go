package rate

import "errors"

// ErrRateLimited means the scope's budget for the current window is spent.
var ErrRateLimited = errors.New("rate limited")

// ErrRedisUnavailable marks a counting failure. Callers decide whether to
// fail open.
var ErrRedisUnavailable = errors.New("redis unavailable")
