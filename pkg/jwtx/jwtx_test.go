package jwtx_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/pkg/jwtx"
)

func TestSignAndVerify(t *testing.T) {
	s, err := jwtx.NewSigner([]byte("secret"), "openshelf")
	require.NoError(t, err)

	token, err := s.Sign(map[string]any{"id": "user-1", "role": "member"}, time.Minute, time.Now())
	require.NoError(t, err)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims["id"])
	require.Equal(t, "member", claims["role"])
	require.Equal(t, "openshelf", claims["iss"])
}

func TestSignOverwritesRegisteredClaims(t *testing.T) {
	s, err := jwtx.NewSigner([]byte("secret"), "openshelf")
	require.NoError(t, err)

	now := time.Now()
	token, err := s.Sign(map[string]any{"iss": "spoofed", "exp": 0}, time.Minute, now)
	require.NoError(t, err)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "openshelf", claims["iss"])
	require.EqualValues(t, now.Add(time.Minute).Unix(), claims["exp"])
}

func TestVerifyExpired(t *testing.T) {
	s, err := jwtx.NewSigner([]byte("secret"), "openshelf")
	require.NoError(t, err)

	token, err := s.Sign(map[string]any{"id": "user-1"}, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = s.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestVerifyWrongIssuer(t *testing.T) {
	a, err := jwtx.NewSigner([]byte("secret"), "issuer-a")
	require.NoError(t, err)
	b, err := jwtx.NewSigner([]byte("secret"), "issuer-b")
	require.NoError(t, err)

	token, err := a.Sign(map[string]any{"id": "user-1"}, time.Minute, time.Now())
	require.NoError(t, err)

	_, err = b.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	a, err := jwtx.NewSigner([]byte("secret-a"), "openshelf")
	require.NoError(t, err)
	b, err := jwtx.NewSigner([]byte("secret-b"), "openshelf")
	require.NoError(t, err)

	token, err := a.Sign(map[string]any{"id": "user-1"}, time.Minute, time.Now())
	require.NoError(t, err)

	_, err = b.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	s, err := jwtx.NewSigner([]byte("secret"), "openshelf")
	require.NoError(t, err)

	_, err = s.Verify("not.a.token")
	require.ErrorIs(t, err, jwtx.ErrInvalidToken)
}

func TestNewSignerEmptySecret(t *testing.T) {
	_, err := jwtx.NewSigner(nil, "openshelf")
	require.Error(t, err)
}
