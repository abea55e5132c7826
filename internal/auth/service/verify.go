package service

import (
	"context"
	"errors"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/internal/auth/store"
)

// VerifyPassword re-checks a user's credential out of band of the login
// flow (e.g. before a sensitive settings change). This is an internal
// re-auth check, not a public endpoint, so no timing normalization applies.
func (s *AuthService) VerifyPassword(ctx context.Context, userID, password string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	p, err := s.Providers.Resolve(user.Provider)
	if err != nil {
		return err
	}
	return p.Verify(ctx, user, password)
}
