package alert

import (
	"context"
	"log/slog"
	"time"
)

type scanRunner interface {
	Scan(ctx context.Context) (int, error)
}

// Scanner periodically re-runs the high-value scan so that entries missed by
// the dispatcher still raise alerts.
type Scanner struct {
	feed     scanRunner
	logger   *slog.Logger
	interval time.Duration
}

func NewScanner(feed scanRunner, logger *slog.Logger, interval time.Duration) *Scanner {
	return &Scanner{feed: feed, logger: logger, interval: interval}
}

func (s *Scanner) Start(ctx context.Context) {
	s.logger.Info("alert scanner started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert scanner stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scanner) poll(ctx context.Context) {
	raised, err := s.feed.Scan(ctx)
	if err != nil {
		s.logger.Error("alert scan failed", "raised", raised, "error", err)
		return
	}
	if raised > 0 {
		s.logger.Info("alert scan raised alerts", "raised", raised)
	}
}
