package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/pkg/idx"
)

func (e *testEnv) seedShare(t *testing.T, mutate ...func(*domain.Share)) domain.Share {
	t.Helper()

	sh := domain.Share{
		ID:         idx.New().String(),
		Collection: "articles",
		Item:       "42",
		RoleID:     &e.roleID,
	}
	for _, fn := range mutate {
		fn(&sh)
	}
	require.NoError(t, e.store.Shares().CreateShare(context.Background(), sh))
	return sh
}

func TestLoginShareIssuesScopedToken(t *testing.T) {
	env := newTestEnv(t)
	share := env.seedShare(t)

	pair, err := env.svc.LoginShare(context.Background(), share.ID, nil)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Nil(t, pair.UserID)

	claims, err := env.svc.Signer.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, share.ID, claims["share"])
	require.Equal(t, env.roleID, claims["role"])
	require.NotContains(t, claims, "id")

	// Access flags are pinned off regardless of the override role's own
	// flags.
	require.Equal(t, false, claims["app_access"])
	require.Equal(t, false, claims["admin_access"])

	scope, ok := claims["share_scope"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "articles", scope["collection"])
	require.Equal(t, "42", scope["item"])
}

func TestLoginShareCountsUses(t *testing.T) {
	env := newTestEnv(t)
	share := env.seedShare(t)

	_, err := env.svc.LoginShare(context.Background(), share.ID, nil)
	require.NoError(t, err)
	_, err = env.svc.LoginShare(context.Background(), share.ID, nil)
	require.NoError(t, err)

	got, err := env.store.Shares().GetShareByID(context.Background(), share.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.TimesUsed)
}

func TestLoginShareExhausted(t *testing.T) {
	env := newTestEnv(t)
	share := env.seedShare(t, func(sh *domain.Share) {
		one := 1
		sh.MaxUses = &one
	})

	_, err := env.svc.LoginShare(context.Background(), share.ID, nil)
	require.NoError(t, err)

	_, err = env.svc.LoginShare(context.Background(), share.ID, nil)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginShareExpired(t *testing.T) {
	env := newTestEnv(t)
	share := env.seedShare(t, func(sh *domain.Share) {
		past := time.Now().Add(-time.Hour)
		sh.DateEnd = &past
	})

	_, err := env.svc.LoginShare(context.Background(), share.ID, nil)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginShareUnknown(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.LoginShare(context.Background(), idx.New().String(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRefreshShareSession(t *testing.T) {
	env := newTestEnv(t)
	share := env.seedShare(t)

	pair, err := env.svc.LoginShare(context.Background(), share.ID, nil)
	require.NoError(t, err)

	rotated, err := env.svc.Refresh(context.Background(), pair.RefreshToken, nil)
	require.NoError(t, err)
	require.Nil(t, rotated.UserID)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	claims, err := env.svc.Signer.Verify(rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, share.ID, claims["share"])
	require.NotContains(t, claims, "id")

	// Refreshing a share session does not consume a use.
	got, err := env.store.Shares().GetShareByID(context.Background(), share.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.TimesUsed)
}

func TestRefreshShareAfterEndDate(t *testing.T) {
	env := newTestEnv(t)
	end := time.Now().Add(150 * time.Millisecond)
	share := env.seedShare(t, func(sh *domain.Share) {
		sh.DateEnd = &end
	})

	pair, err := env.svc.LoginShare(context.Background(), share.ID, nil)
	require.NoError(t, err)

	time.Sleep(time.Until(end) + 50*time.Millisecond)

	_, err = env.svc.Refresh(context.Background(), pair.RefreshToken, nil)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
