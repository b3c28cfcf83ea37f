// Package jobs holds the dashboard's background maintenance loops.
//
// session_reaper.go implements SessionReaper, which periodically deletes expired
// login sessions and one-time passcodes. Expired rows are already rejected by
// the auth middleware, so the reaper only keeps the tables small; a missed run
// has no correctness impact.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/keydash/dashboard/internal/telemetry"
)

// DefaultReaperInterval is used when no positive interval is configured.
const DefaultReaperInterval = 15 * time.Minute

// ExpiredRowDeleter deletes rows that expired before now.
// *repositories.SessionRepository satisfies it.
type ExpiredRowDeleter interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

// SessionReaper periodically removes expired sessions and OTPs.
type SessionReaper struct {
	repo     ExpiredRowDeleter
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewSessionReaper creates a reaper running every interval.
func NewSessionReaper(repo ExpiredRowDeleter, interval time.Duration) *SessionReaper {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	return &SessionReaper{
		repo:     repo,
		interval: interval,
		stopChan: make(chan struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start runs one pass immediately, then one per interval, until ctx is
// cancelled or Stop is called. It blocks; launch it with safego.Go.
func (r *SessionReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("session reaper started", "interval", r.interval)
	r.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-r.stopChan:
			slog.Info("session reaper stopped")
			return
		case <-ctx.Done():
			slog.Info("session reaper context cancelled")
			return
		}
	}
}

// Stop signals the loop to exit. It is safe to call more than once.
func (r *SessionReaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// RunOnce performs a single pass and returns how many sessions and OTPs were
// deleted. Failures are logged; one table failing does not skip the other.
func (r *SessionReaper) RunOnce(ctx context.Context) (sessions, otps int64) {
	now := r.now()

	sessions, err := r.repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		slog.Error("session reaper: failed to delete expired sessions", "error", err)
	} else if sessions > 0 {
		telemetry.ReaperDeletedTotal.WithLabelValues("sessions").Add(float64(sessions))
	}

	otps, err = r.repo.DeleteExpiredOTPs(ctx, now)
	if err != nil {
		slog.Error("session reaper: failed to delete expired otps", "error", err)
	} else if otps > 0 {
		telemetry.ReaperDeletedTotal.WithLabelValues("otps").Add(float64(otps))
	}

	if sessions > 0 || otps > 0 {
		slog.Info("session reaper: removed expired rows", "sessions", sessions, "otps", otps)
	}
	return sessions, otps
}
