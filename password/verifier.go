package password

import "encoding/json"

// Algorithm tags the stored verifier format.
type Algorithm string

const (
	// AlgorithmLegacyV1 is the pre-migration format: "<hexsalt>:<hexsha256>"
	// where the digest is sha256(plaintext + hexsalt). Kept only so existing
	// accounts can log in; never written for new accounts.
	AlgorithmLegacyV1 Algorithm = "legacy-v1"
	// AlgorithmAdaptiveV2 is a bcrypt hash with a tuned cost factor.
	AlgorithmAdaptiveV2 Algorithm = "adaptive-v2"
)

// Verifier is the stored, non-reversible representation of a password.
// Adding a future algorithm is a new tag plus a new Verify branch; callers
// never look inside Payload.
type Verifier struct {
	Algorithm Algorithm `json:"algorithm"`
	Payload   []byte    `json:"payload"`
}

// IsLegacy reports whether the verifier still uses the pre-migration format.
func (v Verifier) IsLegacy() bool {
	return v.Algorithm == AlgorithmLegacyV1
}

// MarshalText / UnmarshalText let repositories store a verifier as a single
// opaque column without knowing the union's shape.
func (v Verifier) MarshalText() ([]byte, error) {
	return json.Marshal(struct {
		Algorithm Algorithm `json:"algorithm"`
		Payload   []byte    `json:"payload"`
	}{v.Algorithm, v.Payload})
}

func (v *Verifier) UnmarshalText(data []byte) error {
	var raw struct {
		Algorithm Algorithm `json:"algorithm"`
		Payload   []byte    `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Algorithm = raw.Algorithm
	v.Payload = raw.Payload
	return nil
}
