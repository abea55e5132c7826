package service

import (
	"context"
	"time"
)

// Stall enforces a minimum wall-clock duration on authentication attempts
// so response latency cannot distinguish "user not found" from "wrong
// password" from "wrong OTP" from success.
type Stall struct {
	// Floor is the minimum total duration of an attempt. Zero disables
	// normalization (tests).
	Floor time.Duration
}

// Normalize blocks until at least Floor has passed since start. The wait is
// cancellable: an abandoned request releases its timer instead of holding
// resources for the full floor.
func (s Stall) Normalize(ctx context.Context, start time.Time) {
	if s.Floor <= 0 {
		return
	}
	remaining := s.Floor - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
