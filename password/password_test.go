package password_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/gasfornuis/kitchenchat-auth/password"
	"github.com/stretchr/testify/require"
)

// legacyVerifier builds a verifier in the historical "<hexsalt>:<hexsha256>"
// format, the way migrated databases still hold them.
func legacyVerifier(plaintext, hexSalt string) password.Verifier {
	digest := sha256.Sum256([]byte(plaintext + hexSalt))
	return password.Verifier{
		Algorithm: password.AlgorithmLegacyV1,
		Payload:   []byte(hexSalt + ":" + hex.EncodeToString(digest[:])),
	}
}

func TestHashThenVerifyMatches(t *testing.T) {
	h := password.NewHasher(password.DefaultCost)

	v, err := h.Hash("Secret123!")
	require.NoError(t, err)
	require.Equal(t, password.AlgorithmAdaptiveV2, v.Algorithm)

	res := h.Verify("Secret123!", v)
	require.True(t, res.Match)
	require.False(t, res.NeedsMigration)
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	h := password.NewHasher(password.DefaultCost)

	v, err := h.Hash("Secret123!")
	require.NoError(t, err)

	res := h.Verify("NotTheSecret1", v)
	require.False(t, res.Match)
	require.False(t, res.NeedsMigration)
}

func TestVerifyLegacyFlagsMigration(t *testing.T) {
	h := password.NewHasher(password.DefaultCost)
	v := legacyVerifier("Secret123!", "aabbccddeeff00112233445566778899")

	res := h.Verify("Secret123!", v)
	require.True(t, res.Match)
	require.True(t, res.NeedsMigration)

	res = h.Verify("wrong-password1", v)
	require.False(t, res.Match)
	require.False(t, res.NeedsMigration, "a mismatch must not request migration")
}

func TestVerifyAfterMigrationStopsReportingIt(t *testing.T) {
	h := password.NewHasher(password.DefaultCost)
	legacy := legacyVerifier("Secret123!", "00112233")

	res := h.Verify("Secret123!", legacy)
	require.True(t, res.NeedsMigration)

	migrated, err := h.Hash("Secret123!")
	require.NoError(t, err)

	res = h.Verify("Secret123!", migrated)
	require.True(t, res.Match)
	require.False(t, res.NeedsMigration)
}

func TestVerifyMalformedVerifierFailsClosed(t *testing.T) {
	h := password.NewHasher(password.DefaultCost)

	for name, v := range map[string]password.Verifier{
		"unknown algorithm": {Algorithm: "argon2-v9", Payload: []byte("whatever")},
		"empty payload":     {Algorithm: password.AlgorithmAdaptiveV2},
		"legacy no colon":   {Algorithm: password.AlgorithmLegacyV1, Payload: []byte("deadbeef")},
		"legacy bad hex":    {Algorithm: password.AlgorithmLegacyV1, Payload: []byte("salt:nothex")},
		"legacy short hash": {Algorithm: password.AlgorithmLegacyV1, Payload: []byte("salt:aabb")},
	} {
		res := h.Verify("Secret123!", v)
		require.False(t, res.Match, name)
		require.False(t, res.NeedsMigration, name)
	}
}

func TestVerifierTextRoundTrip(t *testing.T) {
	h := password.NewHasher(password.DefaultCost)
	v, err := h.Hash("Secret123!")
	require.NoError(t, err)

	text, err := v.MarshalText()
	require.NoError(t, err)

	var back password.Verifier
	require.NoError(t, back.UnmarshalText(text))
	require.True(t, h.Verify("Secret123!", back).Match)
}

func TestNewHasherClampsCost(t *testing.T) {
	// A zero cost must not produce trivially fast hashes.
	h := password.NewHasher(0)
	v, err := h.Hash("Secret123!")
	require.NoError(t, err)
	require.True(t, h.Verify("Secret123!", v).Match)
}
