// Package metrics exposes prometheus counters for authentication outcomes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_refreshes_total",
			Help: "Refresh token rotations by outcome.",
		},
		[]string{"outcome"},
	)

	SessionSweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_session_sweeps_total",
			Help: "Expired-session sweep runs.",
		},
	)
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid_credentials"
	OutcomeSuspended = "user_suspended"
	OutcomeOTP       = "invalid_otp"
	OutcomeError     = "error"
)

// Register installs the collectors into the default registry. Call once at
// startup.
func Register() {
	prometheus.MustRegister(LoginAttempts, TokenRefreshes, SessionSweeps)
}
