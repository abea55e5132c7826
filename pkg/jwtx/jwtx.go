// Package jwtx signs and verifies the access tokens issued by the auth
// service. Tokens are HS256 with a single shared server secret; claims are a
// flat map so extension hooks can contribute custom claims without this
// package knowing about them.
package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access tokens, week-long refresh sessions.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("jwtx: invalid token")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
)

// Signer issues HS256 access tokens with the configured issuer and secret.
type Signer struct {
	Secret []byte
	Issuer string
}

func NewSigner(secret []byte, issuer string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	return &Signer{Secret: secret, Issuer: issuer}, nil
}

// Sign builds a token from the given claims plus the standard iss/iat/exp
// set. Caller-provided claims win only for non-registered keys; the
// registered claims are always overwritten.
func (s *Signer) Sign(claims map[string]any, ttl time.Duration, now time.Time) (string, error) {
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["iss"] = s.Issuer
	mc["iat"] = now.Unix()
	mc["exp"] = now.Add(ttl).Unix()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	signed, err := tok.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token produced by Sign, enforcing the HMAC
// algorithm, expiry, and issuer.
func (s *Signer) Verify(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("jwtx: unexpected signing method %q", t.Method.Alg())
		}
		return s.Secret, nil
	}, jwt.WithIssuer(s.Issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
