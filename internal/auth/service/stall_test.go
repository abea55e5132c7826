package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf/internal/auth/service"
)

func TestStallWaitsOutTheFloor(t *testing.T) {
	s := service.Stall{Floor: 50 * time.Millisecond}

	start := time.Now()
	s.Normalize(context.Background(), start)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestStallNoWaitPastFloor(t *testing.T) {
	s := service.Stall{Floor: 20 * time.Millisecond}

	// Work that already took longer than the floor returns immediately.
	start := time.Now().Add(-time.Second)
	before := time.Now()
	s.Normalize(context.Background(), start)
	require.Less(t, time.Since(before), 10*time.Millisecond)
}

func TestStallZeroFloorDisabled(t *testing.T) {
	s := service.Stall{}

	before := time.Now()
	s.Normalize(context.Background(), time.Now())
	require.Less(t, time.Since(before), 10*time.Millisecond)
}

func TestStallCancelled(t *testing.T) {
	s := service.Stall{Floor: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	before := time.Now()
	s.Normalize(ctx, time.Now())
	require.Less(t, time.Since(before), time.Second)
}
