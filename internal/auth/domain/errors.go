package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers wrong or unknown identity/secret.
	// Deliberately indistinguishable from "not found" to callers.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrUserSuspended is returned for explicitly suspended accounts,
	// including suspension triggered by rate-limit lockout.
	ErrUserSuspended = errors.New("user_suspended")

	// ErrRateLimited is internal to the service: it is always converted
	// into a suspension before any caller sees a result.
	ErrRateLimited = errors.New("rate_limit_exceeded")

	// ErrInvalidOTP is the kind matched by OTPError via errors.Is.
	ErrInvalidOTP = errors.New("invalid_otp")
)

// OTPError reports a second-factor failure with a reason ("required" when no
// code was supplied for an enrolled user, "invalid" on mismatch).
type OTPError struct {
	Reason string
}

func (e *OTPError) Error() string {
	return fmt.Sprintf("invalid_otp: %s", e.Reason)
}

func (e *OTPError) Is(target error) bool {
	return target == ErrInvalidOTP
}
