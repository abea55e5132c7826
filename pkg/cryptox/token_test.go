package cryptox_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/cryptox"
)

func TestGenerateToken(t *testing.T) {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)

	tok, err = cryptox.GenerateToken(cryptox.TokenSize128)
	require.NoError(t, err)
	require.Len(t, tok, 22)
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := cryptox.GenerateToken(cryptox.TokenSize128)
		require.NoError(t, err)
		require.False(t, seen[tok])
		seen[tok] = true
	}
}

func TestGenerateTokenInvalidSize(t *testing.T) {
	_, err := cryptox.GenerateToken(0)
	require.Error(t, err)
	_, err = cryptox.GenerateToken(-1)
	require.Error(t, err)
}
