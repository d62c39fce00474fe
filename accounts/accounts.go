// Package accounts holds the account record and its storage contract.
// Accounts are created once at registration and never physically deleted;
// a ban flips Disabled instead.
package accounts

import (
	"time"

	"github.com/gasfornuis/kitchenchat-auth/password"
)

// Account is keyed by its case-normalized Handle. Version backs optimistic
// concurrency: updates only succeed against the version that was read.
type Account struct {
	ID          string            `json:"id,omitempty"`
	Handle      string            `json:"handle"`
	DisplayName string            `json:"display_name,omitempty"`
	Verifier    password.Verifier `json:"-"` // never serialize the credential

	FailedAttempts int       `json:"-"` // mutated only by the abuse throttle
	LastFailedAt   time.Time `json:"-"`

	Disabled       bool      `json:"disabled,omitempty"` // set administratively, soft ban
	CreatedAt      time.Time `json:"created_at,omitempty"`
	LastLoginAt    time.Time `json:"last_login,omitempty"`
	RegisteredFrom string    `json:"-"` // client address at registration

	Version int64 `json:"-"`
}
