package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/internal/auth/hook"
	"github.com/openshelf/openshelf/internal/auth/provider"
	"github.com/openshelf/openshelf/internal/auth/service"
	"github.com/openshelf/openshelf/internal/auth/store/drivers/sqlite"
	"github.com/openshelf/openshelf/pkg/cryptox"
	"github.com/openshelf/openshelf/pkg/idx"
	"github.com/openshelf/openshelf/pkg/jwtx"
)

const (
	testPassword  = "correct horse battery staple"
	testTFASecret = "JBSWY3DPEHPK3PXP"
)

type testEnv struct {
	svc    *service.AuthService
	store  *sqlite.Store
	roleID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	registry := provider.NewRegistry(provider.LocalName)
	require.NoError(t, registry.Register(provider.LocalName, provider.Local{}))

	signer, err := jwtx.NewSigner([]byte("test-secret"), "openshelf-test")
	require.NoError(t, err)

	roleID := idx.New().String()
	require.NoError(t, st.Roles().CreateRole(context.Background(), domain.Role{
		ID:        roleID,
		Name:      "member",
		AppAccess: true,
	}))

	return &testEnv{
		svc: &service.AuthService{
			Store:        st,
			Providers:    registry,
			Hooks:        hook.Noop{},
			SecondFactor: service.TOTP{},
			Limiter:      service.NewLoginLimiter(time.Minute),
			Signer:       signer,
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   7 * 24 * time.Hour,
		},
		store:  st,
		roleID: roleID,
	}
}

func (e *testEnv) seedUser(t *testing.T, email string, mutate ...func(*domain.User)) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(testPassword)
	require.NoError(t, err)

	u := domain.User{
		ID:           idx.New().String(),
		FirstName:    "Alex",
		Email:        email,
		PasswordHash: hash,
		Status:       domain.StatusActive,
		RoleID:       e.roleID,
		Provider:     provider.LocalName,
	}
	for _, fn := range mutate {
		fn(&u)
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) setLoginAttempts(t *testing.T, n int) {
	t.Helper()
	require.NoError(t, e.store.Settings().SetAuthLoginAttempts(context.Background(), &n))
}

func loginReq(email, password string) service.LoginRequest {
	return service.LoginRequest{
		Payload: provider.Payload{"email": email, "password": password},
		Client:  &service.ClientInfo{IP: "198.51.100.7", UserAgent: "test-agent"},
	}
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alex@example.com")

	pair, err := env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, env.svc.AccessTTL, pair.Expires)
	require.NotNil(t, pair.UserID)
	require.Equal(t, user.ID, *pair.UserID)

	claims, err := env.svc.Signer.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims["id"])
	require.Equal(t, env.roleID, claims["role"])
	require.Equal(t, true, claims["app_access"])
	require.Equal(t, false, claims["admin_access"])
	require.NotContains(t, claims, "share")
}

func TestLoginPersistsSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alex@example.com")

	pair, err := env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.NoError(t, err)

	auth, err := env.store.Sessions().GetSessionAuth(context.Background(), pair.RefreshToken, time.Now())
	require.NoError(t, err)
	require.NotNil(t, auth.User)
	require.Equal(t, user.ID, auth.User.ID)
	require.Equal(t, "198.51.100.7", auth.Session.IP)
	require.Equal(t, "test-agent", auth.Session.UserAgent)
	require.WithinDuration(t, time.Now().Add(env.svc.RefreshTTL), auth.Session.ExpiresAt, 5*time.Second)

	require.NotNil(t, auth.User.LastAccess)
}

func TestLoginEmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com")

	_, err := env.svc.Login(context.Background(), loginReq("  Alex@Example.COM ", testPassword))
	require.NoError(t, err)
}

func TestLoginUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Login(context.Background(), loginReq("nobody@example.com", testPassword))
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com")

	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", "wrong"))
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginMissingEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Login(context.Background(), service.LoginRequest{
		Payload: provider.Payload{"password": testPassword},
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginSuspendedUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com", func(u *domain.User) {
		u.Status = domain.StatusSuspended
	})

	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.ErrorIs(t, err, domain.ErrUserSuspended)
}

func TestLoginInvitedUser(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com", func(u *domain.User) {
		u.Status = domain.StatusInvited
	})

	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	req := loginReq("alex@example.com", testPassword)
	req.Provider = "saml"
	_, err := env.svc.Login(context.Background(), req)
	require.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestLoginLockoutSuspendsUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alex@example.com")
	env.setLoginAttempts(t, 3)

	for i := 0; i < 3; i++ {
		_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", "wrong"))
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// Budget exhausted: even the correct password must not get through.
	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.ErrorIs(t, err, domain.ErrUserSuspended)

	got, err := env.store.Users().GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuspended, got.Status)
}

func TestLoginSuccessResetsAttemptCounter(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com")
	env.setLoginAttempts(t, 2)

	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", "wrong"))
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.NoError(t, err)

	// A fresh budget after the success: two more failures are plain
	// credential errors, not a lockout.
	for i := 0; i < 2; i++ {
		_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", "wrong"))
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
}

func TestLoginNoLimitWhenUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alex@example.com")

	for i := 0; i < 10; i++ {
		_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", "wrong"))
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	got, err := env.store.Users().GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, got.Status)
}

func TestLoginOTPRequired(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com", func(u *domain.User) {
		secret := testTFASecret
		u.TFASecret = &secret
	})

	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.ErrorIs(t, err, domain.ErrInvalidOTP)

	var otpErr *domain.OTPError
	require.ErrorAs(t, err, &otpErr)
	require.Equal(t, "required", otpErr.Reason)
}

func TestLoginOTPInvalid(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com", func(u *domain.User) {
		secret := testTFASecret
		u.TFASecret = &secret
	})

	// A code from far outside the accepted window is always rejected.
	stale, err := totp.GenerateCode(testTFASecret, time.Now().Add(-30*time.Minute))
	require.NoError(t, err)

	req := loginReq("alex@example.com", testPassword)
	req.OTP = stale
	_, err = env.svc.Login(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrInvalidOTP)

	var otpErr *domain.OTPError
	require.ErrorAs(t, err, &otpErr)
	require.Equal(t, "invalid", otpErr.Reason)
}

func TestLoginOTPSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com", func(u *domain.User) {
		secret := testTFASecret
		u.TFASecret = &secret
	})

	code, err := totp.GenerateCode(testTFASecret, time.Now())
	require.NoError(t, err)

	req := loginReq("alex@example.com", testPassword)
	req.OTP = code
	pair, err := env.svc.Login(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)
}

func TestLoginOTPNotCheckedBeforePassword(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com", func(u *domain.User) {
		secret := testTFASecret
		u.TFASecret = &secret
	})

	// A wrong password fails as a credential error even when the OTP is
	// missing, so the error never reveals that a second factor exists.
	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", "wrong"))
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginStallFloor(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Stall = service.Stall{Floor: 60 * time.Millisecond}

	cases := map[string]service.LoginRequest{
		"unknown user":  loginReq("nobody@example.com", testPassword),
		"missing email": {Payload: provider.Payload{}},
	}
	for name, req := range cases {
		start := time.Now()
		_, err := env.svc.Login(context.Background(), req)
		require.Error(t, err)
		require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond, name)
	}
}

func TestVerifyPassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alex@example.com")

	require.NoError(t, env.svc.VerifyPassword(context.Background(), user.ID, testPassword))

	err := env.svc.VerifyPassword(context.Background(), user.ID, "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	err = env.svc.VerifyPassword(context.Background(), idx.New().String(), testPassword)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyPasswordDoesNotStall(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alex@example.com")
	env.svc.Stall = service.Stall{Floor: 500 * time.Millisecond}

	start := time.Now()
	err := env.svc.VerifyPassword(context.Background(), user.ID, "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	require.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestLoginHookTransformsPayload(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com")

	// The filter hook swaps a wrong password for the right one, proving the
	// transformed payload is the one checked.
	env.svc.Hooks = filterFunc(func(ctx context.Context, event string, payload any, meta map[string]any) (any, error) {
		if event != hook.EventLogin {
			return payload, nil
		}
		p, ok := payload.(provider.Payload)
		if !ok {
			return payload, nil
		}
		out := provider.Payload{"email": p["email"], "password": testPassword}
		return out, nil
	})

	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", "wrong"))
	require.NoError(t, err)
}

func TestLoginHookErrorAborts(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alex@example.com")

	wantErr := errors.New("blocked by policy")
	env.svc.Hooks = filterFunc(func(ctx context.Context, event string, payload any, meta map[string]any) (any, error) {
		if event == hook.EventLogin {
			return nil, wantErr
		}
		return payload, nil
	})

	_, err := env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.ErrorIs(t, err, wantErr)
}

func TestJWTHookCannotDropMandatoryClaims(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "alex@example.com")

	env.svc.Hooks = filterFunc(func(ctx context.Context, event string, payload any, meta map[string]any) (any, error) {
		if event != hook.EventJWT {
			return payload, nil
		}
		return map[string]any{"custom": "value", "admin_access": true}, nil
	})

	pair, err := env.svc.Login(context.Background(), loginReq("alex@example.com", testPassword))
	require.NoError(t, err)

	claims, err := env.svc.Signer.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "value", claims["custom"])
	require.Equal(t, user.ID, claims["id"])
	require.Equal(t, false, claims["admin_access"])
}

// filterFunc adapts a function to hook.Emitter for tests.
type filterFunc func(ctx context.Context, event string, payload any, meta map[string]any) (any, error)

func (f filterFunc) EmitFilter(ctx context.Context, event string, payload any, meta map[string]any) (any, error) {
	return f(ctx, event, payload, meta)
}

func (f filterFunc) EmitAction(event string, meta map[string]any) {}
