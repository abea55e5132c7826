package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/internal/auth/metrics"
	"github.com/openshelf/openshelf/internal/auth/store"
	"github.com/openshelf/openshelf/pkg/cryptox"
	"github.com/openshelf/openshelf/pkg/slogx"
)

// Refresh exchanges a live refresh token for a fresh token pair, rotating
// the session row in place. Two concurrent refreshes of the same stale token
// produce exactly one winner: the loser's conditional update matches zero
// rows and fails with ErrInvalidCredentials.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client *ClientInfo) (*domain.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken, client)
	metrics.TokenRefreshes.WithLabelValues(outcomeLabel(err)).Inc()
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, refreshToken string, client *ClientInfo) (*domain.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now()
	auth, err := s.Store.Sessions().GetSessionAuth(ctx, refreshToken, now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	var payload domain.TokenPayload
	switch {
	case auth.User != nil:
		u := *auth.User
		if u.Status != domain.StatusActive {
			return nil, domain.ErrInvalidCredentials
		}
		p, err := s.Providers.Resolve(u.Provider)
		if err != nil {
			return nil, err
		}
		// Provider-side revalidation (e.g. upstream SSO session).
		if err := p.Refresh(ctx, u); err != nil {
			return nil, err
		}
		uid := u.ID
		payload = domain.TokenPayload{
			ID:          &uid,
			Role:        auth.Role.ID,
			AppAccess:   auth.Role.AppAccess,
			AdminAccess: auth.Role.AdminAccess,
		}

	case auth.Share != nil:
		if auth.Share.Expired(now) {
			return nil, domain.ErrInvalidCredentials
		}
		payload = sharePayload(*auth.Share)

	default:
		return nil, domain.ErrInvalidCredentials
	}

	claims, err := s.buildClaims(ctx, payload)
	if err != nil {
		return nil, err
	}
	access, err := s.Signer.Sign(claims, s.AccessTTL, now)
	if err != nil {
		return nil, err
	}

	newToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Sessions().RotateSession(ctx, refreshToken, newToken, now.Add(s.RefreshTTL), now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Lost the rotation race, or the session vanished between
			// lookup and update. Either way the presented token no
			// longer matches a live row.
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if auth.User != nil {
		if err := s.Store.Users().UpdateLastAccess(ctx, auth.User.ID, now); err != nil {
			return nil, err
		}
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: newToken,
		Expires:      s.AccessTTL,
		UserID:       payload.ID,
	}, nil
}

// Logout deletes the session owning the refresh token. Unknown tokens are a
// no-op so a repeated logout never errors. Provider-side cleanup is
// best-effort: its failure is logged, never blocks the session deletion.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	log := slogx.FromContext(ctx)

	auth, err := s.Store.Sessions().GetSessionAuth(ctx, refreshToken, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	if auth.User != nil {
		p, err := s.Providers.Resolve(auth.User.Provider)
		if err != nil {
			log.Warn("logout: unknown provider for session user",
				"provider", auth.User.Provider, "user_id", auth.User.ID)
		} else if err := p.Logout(ctx, *auth.User); err != nil {
			log.Warn("logout: provider cleanup failed",
				"provider", auth.User.Provider, "user_id", auth.User.ID, "error", err)
		}
	}

	return s.Store.Sessions().DeleteSessionByToken(ctx, refreshToken)
}

// sharePayload builds the claim payload of a share session: the share's
// override role, no user id, and access flags pinned off.
func sharePayload(sh domain.Share) domain.TokenPayload {
	role := ""
	if sh.RoleID != nil {
		role = *sh.RoleID
	}
	id := sh.ID
	return domain.TokenPayload{
		Role:        role,
		AppAccess:   false,
		AdminAccess: false,
		Share:       &id,
		ShareScope: &domain.ShareScope{
			Collection: sh.Collection,
			Item:       sh.Item,
		},
	}
}
