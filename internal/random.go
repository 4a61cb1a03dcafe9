package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const sessionIDSize = 32

// NewSessionID returns 32 random bytes encoded as unpadded base64url.
func NewSessionID() (string, error) {
	var raw [sessionIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidSessionID reports whether id has the shape produced by NewSessionID.
func ValidSessionID(id string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(raw) == sessionIDSize
}
