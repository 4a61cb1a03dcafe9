package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is one live refresh-token record. TokenHash is the lookup key for
// the credential itself; TokenID is the public handle used for revocation.
type Session struct {
	TokenID   string    `json:"tokenId"`
	TokenHash string    `json:"tokenHash"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	// LastActive is bumped whenever the session is rotated.
	LastActive time.Time `json:"lastActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Active reports whether the session is still usable at now.
func (s Session) Active(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Name returns the human label shown in session listings, e.g. "Chrome on macOS".
func (s Session) Name() string {
	browser := s.Browser
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := s.OS
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}

// HashToken returns the hex SHA-256 digest stored as Session.TokenHash.
// An empty token hashes to the empty string so it never matches a record.
func HashToken(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
