// Package sweeper applies the payment timeout policy in the background.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Expirer is the part of the orchestrator the sweeper drives
type Expirer interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically expires transactions whose payment window closed
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(expirer Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start sweeps on every tick until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting transaction sweeper", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Transaction sweeper stopping due to context cancellation.")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	handled, err := s.expirer.SweepExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("Error while sweeping expired transactions", "handled", handled, "error", err)
		return
	}
	if handled > 0 {
		s.logger.Info("Swept expired transactions", "handled", handled)
	}
}
