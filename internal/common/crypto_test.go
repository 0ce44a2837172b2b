package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealerRoundTrip(t *testing.T) {
	sealer := NewSealer("master-key")
	sealed, err := sealer.Seal("oauth-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "oauth-token")

	again, err := sealer.Seal("oauth-token")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")

	plain, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "oauth-token", plain)
}

func TestSealerRejectsForeignOrTamperedInput(t *testing.T) {
	sealed, err := NewSealer("master-key").Seal("oauth-token")
	require.NoError(t, err)

	_, err = NewSealer("other-key").Open(sealed)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = NewSealer("master-key").Open("not base64!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = NewSealer("master-key").Open("c2hvcnQ")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestCalculateHash(t *testing.T) {
	a := CalculateHash("k", "1.2.3.4")
	assert.Len(t, a, 64)
	assert.Equal(t, a, CalculateHash("k", "1.2.3.4"))
	assert.NotEqual(t, a, CalculateHash("other", "1.2.3.4"))
	assert.Empty(t, CalculateHash("k"))
}
