// Package sessions issues, validates, and revokes the opaque bearer tokens
// that carry a logged-in identity between requests.
package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Session is the stored record for one issued token. The raw token itself
// is never stored; records are keyed by its SHA-256 digest, so a leaked
// store cannot be replayed. Sessions are replaced, not edited: the only
// mutation is the one-way Revoked flip, guarded by Version.
type Session struct {
	TokenDigest string    // hex SHA-256 of the raw token
	Subject     string    // account handle this session authenticates
	DisplayName string
	IssuedAt    time.Time
	ExpiresAt   time.Time // always after IssuedAt
	Revoked     bool      // once true, permanently true
	ClientAddr  string
	UserAgent   string
	Version     int64
}

// Principal is the authenticated identity behind a valid session, handed to
// downstream components for authorization decisions.
type Principal struct {
	Subject     string `json:"username"`
	DisplayName string `json:"displayName"`
}

// TokenDigest derives the storage key for a raw token.
func TokenDigest(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
