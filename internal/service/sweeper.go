package service

import (
	"context"
	"log/slog"
	"time"
)

const defaultSweepInterval = time.Minute

// Sweeper periodically deactivates expired URLs.
type Sweeper struct {
	svc      *URLService
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(svc *URLService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Sweeper{
		svc:      svc,
		interval: interval,
		logger:   logger,
	}
}

// Run deactivates expired URLs on every tick until ctx is cancelled.
// A failed sweep is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			count, err := s.svc.DeactivateExpiredURLs(ctx, now)
			if err != nil {
				s.logger.Error("failed to deactivate expired urls", slog.Any("err", err))
				continue
			}

			if count > 0 {
				s.logger.Info("deactivated expired urls", slog.Int64("count", count))
			}
		}
	}
}
