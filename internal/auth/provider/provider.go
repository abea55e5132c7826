// Package provider defines the pluggable credential provider contract and
// the registry that resolves provider names. Concrete SSO providers live
// outside this core; the local email+password provider ships here.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openshelf/openshelf/internal/auth/domain"
)

// ErrUnknownProvider reports a provider name with no registered
// implementation. This is a deployment bug, not a credential failure.
var ErrUnknownProvider = errors.New("provider: unknown provider")

// Payload is the opaque, provider-defined credential shape submitted on
// login (e.g. {"email": ..., "password": ...} for the local provider).
type Payload map[string]any

// Provider is the fixed capability set every auth provider implements.
// Users are passed by value: implementations must not expect mutations to
// be observed by the caller.
type Provider interface {
	// UserID derives the user identifier from provider-specific
	// credentials without touching the database. It must not leak whether
	// the identifier exists.
	UserID(ctx context.Context, payload Payload) (string, error)

	// Login performs the actual credential check. Returns
	// domain.ErrInvalidCredentials on mismatch.
	Login(ctx context.Context, user domain.User, payload Payload) error

	// Refresh revalidates provider-side state during token refresh (e.g.
	// an upstream SSO session). Returns domain.ErrInvalidCredentials to
	// reject the refresh.
	Refresh(ctx context.Context, user domain.User) error

	// Logout performs provider-side cleanup (e.g. revoking an upstream
	// token). Best-effort from the orchestrator's point of view.
	Logout(ctx context.Context, user domain.User) error

	// Verify checks a secret out of band of the login flow (e.g.
	// confirming the current password). Returns
	// domain.ErrInvalidCredentials on mismatch.
	Verify(ctx context.Context, user domain.User, secret string) error
}

// Registry maps provider names to implementations. Registration is the
// point where an incomplete provider fails (it won't satisfy the interface),
// never at call time.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

func NewRegistry(defaultName string) *Registry {
	return &Registry{
		providers:   make(map[string]Provider),
		defaultName: defaultName,
	}
}

// Register adds a named provider. Re-registering a name is a programming
// error.
func (r *Registry) Register(name string, p Provider) error {
	if name == "" {
		return errors.New("provider: empty provider name")
	}
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("provider: %q already registered", name)
	}
	r.providers[name] = p
	return nil
}

// Resolve returns the provider for name, or ErrUnknownProvider.
func (r *Registry) Resolve(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// DefaultName is the provider used when a login request names none.
func (r *Registry) DefaultName() string { return r.defaultName }
