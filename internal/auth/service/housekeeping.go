package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/openshelf/openshelf/internal/auth/metrics"
	"github.com/openshelf/openshelf/internal/auth/store"
)

// HousekeepingService periodically deletes expired session rows so the
// sessions table does not grow without bound. Sweeps are best-effort and
// independent of in-flight logins and refreshes.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background sweeper. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the sweeper down, blocking until any in-progress sweep ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	if err := s.Store.Sessions().DeleteExpiredSessions(ctx, time.Now()); err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
		return
	}
	metrics.SessionSweeps.Inc()
	s.Logger.Debug("deleted expired sessions")
}
