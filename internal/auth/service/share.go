package service

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/internal/auth/metrics"
	"github.com/openshelf/openshelf/internal/auth/store"
	"github.com/openshelf/openshelf/pkg/cryptox"
)

// LoginShare mints an anonymous session scoped to a single shared item.
// The share must be unexpired and under its usage budget; every minted
// session bumps the usage counter. Like Login, the timing floor is the last
// action on every exit path.
func (s *AuthService) LoginShare(ctx context.Context, shareID string, client *ClientInfo) (*domain.TokenPair, error) {
	start := time.Now()
	pair, err := s.loginShare(ctx, shareID, client)
	metrics.LoginAttempts.WithLabelValues(outcomeLabel(err)).Inc()
	s.Stall.Normalize(ctx, start)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) loginShare(ctx context.Context, shareID string, client *ClientInfo) (*domain.TokenPair, error) {
	share, err := s.Store.Shares().GetShareByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	now := time.Now()
	if share.Expired(now) || share.Exhausted() {
		return nil, domain.ErrInvalidCredentials
	}

	claims, err := s.buildClaims(ctx, sharePayload(share))
	if err != nil {
		return nil, err
	}
	access, err := s.Signer.Sign(claims, s.AccessTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	shID := share.ID
	session := domain.Session{
		Token:     refresh,
		ShareID:   &shID,
		ExpiresAt: now.Add(s.RefreshTTL),
	}
	if client != nil {
		session.IP = client.IP
		session.UserAgent = client.UserAgent
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return err
		}
		return tx.Shares().IncrementShareUses(ctx, shID)
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Expires:      s.AccessTTL,
	}, nil
}
