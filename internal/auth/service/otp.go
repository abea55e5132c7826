package service

import (
	"context"
	"strings"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/pquerna/otp/totp"
)

// SecondFactor validates a one-time code for a user. A mismatch is a false
// result, not an error; whether the user has a secret enrolled at all is
// the orchestrator's check, not the verifier's.
type SecondFactor interface {
	Verify(ctx context.Context, user domain.User, code string) (bool, error)
}

// TOTP validates codes against the user's enrolled TOTP secret.
type TOTP struct{}

func (TOTP) Verify(ctx context.Context, user domain.User, code string) (bool, error) {
	if user.TFASecret == nil || *user.TFASecret == "" {
		return false, nil
	}
	return totp.Validate(strings.TrimSpace(code), *user.TFASecret), nil
}
