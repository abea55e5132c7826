package provider

import (
	"context"
	"strings"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/pkg/cryptox"
)

// LocalName is the built-in email+password provider name.
const LocalName = "local"

// Local authenticates against the stored argon2id password hash.
type Local struct{}

func (Local) UserID(ctx context.Context, payload Payload) (string, error) {
	email, _ := payload["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", domain.ErrInvalidCredentials
	}
	return email, nil
}

func (Local) Login(ctx context.Context, user domain.User, payload Payload) error {
	password, _ := payload["password"].(string)
	return Local{}.Verify(ctx, user, password)
}

// Refresh has no provider-side state to revalidate for local accounts.
func (Local) Refresh(ctx context.Context, user domain.User) error { return nil }

// Logout has nothing upstream to revoke for local accounts.
func (Local) Logout(ctx context.Context, user domain.User) error { return nil }

func (Local) Verify(ctx context.Context, user domain.User, secret string) error {
	if secret == "" || user.PasswordHash == "" {
		return domain.ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(secret, user.PasswordHash); err != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}
