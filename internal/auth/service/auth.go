package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/internal/auth/hook"
	"github.com/openshelf/openshelf/internal/auth/metrics"
	"github.com/openshelf/openshelf/internal/auth/provider"
	"github.com/openshelf/openshelf/internal/auth/store"
	"github.com/openshelf/openshelf/pkg/cryptox"
	"github.com/openshelf/openshelf/pkg/jwtx"
	"github.com/openshelf/openshelf/pkg/slogx"
)

// ClientInfo identifies the caller of an authentication request. A nil
// ClientInfo means there is no caller identity context (system or
// share-initiated calls), in which case no activity event is recorded.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LoginRequest carries the inputs of a login attempt. Payload is opaque and
// provider-defined; Provider defaults to the registry's default when empty.
type LoginRequest struct {
	Provider string
	Payload  provider.Payload
	OTP      string
	Client   *ClientInfo
}

// AuthService composes the credential store, provider registry, rate
// limiter, second factor, token issuer and timing normalizer into the
// login/refresh/logout/verify operations.
type AuthService struct {
	Store        store.Store
	Providers    *provider.Registry
	Hooks        hook.Emitter
	SecondFactor SecondFactor
	Limiter      *LoginLimiter
	Stall        Stall
	Signer       *jwtx.Signer
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// Login authenticates a credential payload and issues a token pair.
//
// The timing normalizer runs exactly once as the last action of every exit
// path, success or failure, so latency does not reveal whether the identity
// existed, the password matched, or the OTP was wrong.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*domain.TokenPair, error) {
	start := time.Now()
	pair, err := s.login(ctx, req)
	metrics.LoginAttempts.WithLabelValues(outcomeLabel(err)).Inc()
	s.Stall.Normalize(ctx, start)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) (*domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	name := req.Provider
	if name == "" {
		name = s.Providers.DefaultName()
	}
	p, err := s.Providers.Resolve(name)
	if err != nil {
		return nil, err
	}

	ident, err := p.UserID(ctx, req.Payload)
	if err != nil {
		s.emitLoginFail(name, ident)
		return nil, err
	}

	user, err := s.Store.Users().GetUserByExternal(ctx, ident, name)
	found := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// Pre-check filter hook: may transform the payload, never bypasses
	// the checks below.
	payload, err := s.filterLoginPayload(ctx, req.Payload, name, user, found)
	if err != nil {
		return nil, err
	}

	if !found || user.Status != domain.StatusActive {
		s.emitLoginFail(name, ident)
		if found && user.Status == domain.StatusSuspended {
			return nil, domain.ErrUserSuspended
		}
		return nil, domain.ErrInvalidCredentials
	}

	role, err := s.Store.Roles().GetRoleByID(ctx, user.RoleID)
	if err != nil {
		return nil, err
	}

	budget, err := s.Store.Settings().AuthLoginAttempts(ctx)
	if err != nil {
		return nil, err
	}
	limited := budget != nil
	if limited {
		if err := s.Limiter.Consume(user.ID, *budget); err != nil {
			if !errors.Is(err, domain.ErrRateLimited) {
				return nil, err
			}
			// Lockout: one irreversible status flip, then a clean
			// counter so a reactivated account is not pre-penalized.
			// Short-circuit so the just-suspended user cannot still
			// complete this same login call.
			if err := s.Store.Users().UpdateStatus(ctx, user.ID, domain.StatusSuspended); err != nil {
				return nil, err
			}
			s.Limiter.Reset(user.ID)
			log.Warn("login attempts exhausted, user suspended", "user_id", user.ID)
			s.emitLoginFail(name, ident)
			return nil, domain.ErrUserSuspended
		}
	}

	if err := p.Login(ctx, user, payload); err != nil {
		s.emitLoginFail(name, ident)
		return nil, err
	}

	if user.TFASecret != nil && *user.TFASecret != "" {
		if strings.TrimSpace(req.OTP) == "" {
			s.emitLoginFail(name, ident)
			return nil, &domain.OTPError{Reason: "required"}
		}
		ok, err := s.SecondFactor.Verify(ctx, user, req.OTP)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.emitLoginFail(name, ident)
			return nil, &domain.OTPError{Reason: "invalid"}
		}
	}

	uid := user.ID
	claims, err := s.buildClaims(ctx, domain.TokenPayload{
		ID:          &uid,
		Role:        role.ID,
		AppAccess:   role.AppAccess,
		AdminAccess: role.AdminAccess,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	access, err := s.Signer.Sign(claims, s.AccessTTL, now)
	if err != nil {
		return nil, err
	}
	refresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	session := domain.Session{
		Token:     refresh,
		UserID:    &uid,
		ExpiresAt: now.Add(s.RefreshTTL),
	}
	if req.Client != nil {
		session.IP = req.Client.IP
		session.UserAgent = req.Client.UserAgent
	}

	// Session, activity and last-access commit together: an abandoned
	// request leaves either a fully usable session or nothing.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return err
		}
		if req.Client != nil {
			if err := tx.Activity().RecordLogin(ctx, uid, session.IP, session.UserAgent); err != nil {
				return err
			}
		}
		return tx.Users().UpdateLastAccess(ctx, uid, now)
	})
	if err != nil {
		return nil, err
	}

	// Opportunistic housekeeping; never fails the login.
	if err := s.Store.Sessions().DeleteExpiredSessions(ctx, now); err != nil {
		log.Warn("failed to sweep expired sessions", "error", err)
	} else {
		metrics.SessionSweeps.Inc()
	}

	s.Hooks.EmitAction(hook.EventLogin, map[string]any{
		"status":   "success",
		"user":     uid,
		"provider": name,
	})
	if limited {
		s.Limiter.Reset(uid)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Expires:      s.AccessTTL,
		UserID:       &uid,
	}, nil
}

// filterLoginPayload runs the auth.login filter hook. Status/user metadata
// is advisory; the hook's return replaces the payload when it is a map.
func (s *AuthService) filterLoginPayload(
	ctx context.Context,
	payload provider.Payload,
	providerName string,
	user domain.User,
	found bool,
) (provider.Payload, error) {
	meta := map[string]any{"provider": providerName}
	if found {
		meta["user"] = user.ID
		meta["status"] = string(user.Status)
	}

	out, err := s.Hooks.EmitFilter(ctx, hook.EventLogin, payload, meta)
	if err != nil {
		return nil, err
	}
	switch v := out.(type) {
	case provider.Payload:
		return v, nil
	case map[string]any:
		return provider.Payload(v), nil
	default:
		return payload, nil
	}
}

func (s *AuthService) emitLoginFail(providerName, identifier string) {
	s.Hooks.EmitAction(hook.EventLogin, map[string]any{
		"status":     "fail",
		"provider":   providerName,
		"identifier": identifier,
	})
}

// buildClaims flattens the token payload, lets the auth.jwt filter hook add
// custom claims, and re-asserts the mandatory claims so hooks cannot remove
// them.
func (s *AuthService) buildClaims(ctx context.Context, payload domain.TokenPayload) (map[string]any, error) {
	claims := payload.Claims()

	out, err := s.Hooks.EmitFilter(ctx, hook.EventJWT, claims, nil)
	if err != nil {
		return nil, err
	}
	if m, ok := out.(map[string]any); ok {
		claims = m
	}
	for k, v := range payload.Claims() {
		claims[k] = v
	}
	return claims, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, domain.ErrUserSuspended):
		return metrics.OutcomeSuspended
	case errors.Is(err, domain.ErrInvalidOTP):
		return metrics.OutcomeOTP
	case errors.Is(err, domain.ErrInvalidCredentials):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
