package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes long-expired refresh records. It keeps the
// store from growing without bound while preserving recent dead records for
// replay analysis.
type Sweeper struct {
	svc      *Service
	log      *slog.Logger
	interval time.Duration
}

// NewSweeper builds a sweeper around the engine's Sweep operation.
func NewSweeper(svc *Service, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	interval := svc.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{svc: svc, log: log, interval: interval}
}

// Run sweeps on a fixed cadence until ctx is canceled. One sweep runs
// immediately at startup. Errors are logged and the loop keeps going; a
// failed sweep only means the next one has more to do.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if _, err := s.svc.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.log.ErrorContext(ctx, "session.sweep_failed", "error", err)
	}
}
