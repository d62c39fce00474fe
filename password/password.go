// Package password turns plaintext passwords into storable verifiers and
// checks plaintexts against them. It supports two verifier formats so the
// account population can be upgraded lazily: verification never writes
// anything, it only reports that a re-hash is due.
package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost factor for new verifiers. Tuned so a single
// verification lands in the tens-of-milliseconds range on current hardware.
const DefaultCost = 12

// Result is the outcome of a verification. Expected authentication failure
// is an ordinary data path, not an error.
type Result struct {
	Match          bool
	NeedsMigration bool
}

// Hasher produces and checks verifiers.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. Out-of-range costs
// are clamped to the bcrypt limits rather than rejected.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash produces an adaptive-v2 verifier for the given plaintext.
func (h *Hasher) Hash(plaintext string) (Verifier, error) {
	payload, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return Verifier{}, errors.Wrap(err, "[Hasher.Hash] bcrypt.GenerateFromPassword")
	}
	return Verifier{Algorithm: AlgorithmAdaptiveV2, Payload: payload}, nil
}

// Verify checks plaintext against a stored verifier. A malformed verifier
// (unknown tag, corrupt payload) yields Match=false: storage corruption must
// be indistinguishable from a wrong password, never a crash.
func (h *Hasher) Verify(plaintext string, v Verifier) Result {
	switch v.Algorithm {
	case AlgorithmAdaptiveV2:
		err := bcrypt.CompareHashAndPassword(v.Payload, []byte(plaintext))
		return Result{Match: err == nil}
	case AlgorithmLegacyV1:
		if verifyLegacy(plaintext, v.Payload) {
			return Result{Match: true, NeedsMigration: true}
		}
		return Result{}
	default:
		return Result{}
	}
}

// verifyLegacy recomputes the historical salted SHA-256 digest. The payload
// is text of the form "<hexsalt>:<hexdigest>"; the salt is concatenated as
// its hex string, matching how the hashes were originally produced.
func verifyLegacy(plaintext string, payload []byte) bool {
	salt, want, ok := strings.Cut(string(payload), ":")
	if !ok || salt == "" {
		return false
	}
	wantDigest, err := hex.DecodeString(want)
	if err != nil || len(wantDigest) != sha256.Size {
		return false
	}
	got := sha256.Sum256([]byte(plaintext + salt))
	return subtle.ConstantTimeCompare(got[:], wantDigest) == 1
}
