// Package hook is the extension point contract consumed by the auth core.
// The real dispatcher lives outside this module; the core only needs to emit
// filter events (awaited, may transform their payload) and action events
// (fire-and-forget notifications whose outcome never affects the caller).
package hook

import "context"

// Events emitted by the auth service.
const (
	// EventLogin is emitted as a filter before credential checks (the
	// filter may transform the login payload) and as an action on both
	// failed and successful attempts.
	EventLogin = "auth.login"

	// EventJWT is emitted as a filter over the access-token claim map
	// before signing. Filters may add custom claims; mandatory claims are
	// re-asserted by the service afterwards.
	EventJWT = "auth.jwt"
)

// Emitter dispatches extension hooks.
type Emitter interface {
	// EmitFilter runs filter hooks for event and returns the (possibly
	// transformed) payload. Must be awaited before proceeding; an error
	// aborts the surrounding operation.
	EmitFilter(ctx context.Context, event string, payload any, meta map[string]any) (any, error)

	// EmitAction notifies action hooks for event. Implementations run
	// asynchronously; failures are never surfaced to the caller.
	EmitAction(event string, meta map[string]any)
}

// Noop satisfies Emitter for deployments without an extension dispatcher.
type Noop struct{}

func (Noop) EmitFilter(ctx context.Context, event string, payload any, meta map[string]any) (any, error) {
	return payload, nil
}

func (Noop) EmitAction(event string, meta map[string]any) {}
