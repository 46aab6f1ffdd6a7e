package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/online-cinema/internal/auth"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("Str0ngPass!", 4)
	require.NoError(t, err)
	require.NotEqual(t, "Str0ngPass!", hash)

	assert.True(t, auth.VerifyPassword(hash, "Str0ngPass!"))
	assert.False(t, auth.VerifyPassword(hash, "Str0ngPass?"))
	assert.False(t, auth.VerifyPassword(hash, ""))
}

func TestVerifyPasswordMalformedDigest(t *testing.T) {
	t.Parallel()

	// A broken digest must read as a mismatch, not panic or error out.
	assert.False(t, auth.VerifyPassword("not-a-bcrypt-digest", "whatever"))
	assert.False(t, auth.VerifyPassword("", "whatever"))
}

func TestHashPasswordOutOfRangeCost(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("Str0ngPass!", 99)
	require.NoError(t, err)
	assert.True(t, auth.VerifyPassword(hash, "Str0ngPass!"))
}

func TestValidateStrength(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Abcdef1!", true},
		{"valid long", "Averyl0ngPassword#WithEverything", true},
		{"too short", "Ab1!", false},
		{"too long", "A1!" + string(make([]byte, 75)), false},
		{"no uppercase", "abcdef1!", false},
		{"no lowercase", "ABCDEF1!", false},
		{"no digit", "Abcdefg!", false},
		{"no special", "Abcdefg1", false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := auth.ValidateStrength(tc.password)
			if tc.ok {
				require.NoError(t, err)
				// Pass-through validator: the input comes back unchanged.
				assert.Equal(t, tc.password, got)
			} else {
				require.ErrorIs(t, err, auth.ErrWeakPassword)
			}
		})
	}
}
