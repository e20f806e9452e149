package csrf

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashedTokenGenerator(t *testing.T) {
	t.Parallel()

	t.Run("requires a secret", func(t *testing.T) {
		t.Parallel()

		g, err := NewHashedTokenGenerator(nil)
		require.ErrorIs(t, err, ErrMissingSecret)
		assert.Nil(t, g)

		_, err = NewHashedTokenGenerator([]byte{})
		require.ErrorIs(t, err, ErrMissingSecret)
	})

	t.Run("produces distinct hex tokens", func(t *testing.T) {
		t.Parallel()

		g, err := NewHashedTokenGenerator([]byte("s3cr3t"))
		require.NoError(t, err)

		seen := make(map[string]bool)
		for range 100 {
			tok, err := g.Generate()
			require.NoError(t, err)
			assert.Len(t, tok, 64)
			_, err = hex.DecodeString(tok)
			require.NoError(t, err)
			assert.False(t, seen[tok], "duplicate token %q", tok)
			seen[tok] = true
		}
	})

	t.Run("copies the secret", func(t *testing.T) {
		t.Parallel()

		secret := []byte("s3cr3t")
		g, err := NewHashedTokenGenerator(secret)
		require.NoError(t, err)
		secret[0] = 'X'
		assert.Equal(t, []byte("s3cr3t"), g.secret)
	})

	t.Run("does not print the secret", func(t *testing.T) {
		t.Parallel()

		g, err := NewHashedTokenGenerator([]byte("s3cr3t"))
		require.NoError(t, err)
		assert.NotContains(t, fmt.Sprint(g), "s3cr3t")
		assert.NotContains(t, fmt.Sprintf("%v", g), "s3cr3t")
	})
}

func TestSimpleTokenGenerator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		n     int
		bytes int
	}{
		{name: "default size", n: 0, bytes: 32},
		{name: "too small falls back", n: 4, bytes: 32},
		{name: "custom size", n: 48, bytes: 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tok, err := NewSimpleTokenGenerator(tt.n).Generate()
			require.NoError(t, err)
			raw, err := base64.RawURLEncoding.DecodeString(tok)
			require.NoError(t, err)
			assert.Len(t, raw, tt.bytes)
		})
	}

	t.Run("zero value is usable", func(t *testing.T) {
		t.Parallel()

		a, err := SimpleTokenGenerator{}.Generate()
		require.NoError(t, err)
		b, err := SimpleTokenGenerator{}.Generate()
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}
