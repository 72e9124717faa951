package alert

import (
	"context"
	"log/slog"

	"github.com/corebank/ledger/internal/domain"
)

type evaluator interface {
	Evaluate(ctx context.Context, entry domain.Transaction) ([]domain.Alert, error)
}

// Dispatcher evaluates committed entries off the caller's path. Entries that
// do not fit in the queue are dropped; the periodic scan picks up the
// high-value ones.
type Dispatcher struct {
	feed   evaluator
	queue  chan domain.Transaction
	logger *slog.Logger
}

func NewDispatcher(feed evaluator, size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		feed:   feed,
		queue:  make(chan domain.Transaction, size),
		logger: logger,
	}
}

func (d *Dispatcher) Observe(_ context.Context, entries ...domain.Transaction) {
	for _, e := range entries {
		select {
		case d.queue <- e:
		default:
			d.logger.Warn("alert queue full, entry left for scanner", "transaction_id", e.ID)
		}
	}
}

// Run evaluates queued entries until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("alert dispatcher started", "queue_size", cap(d.queue))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("alert dispatcher stopped", "pending", len(d.queue))
			return
		case entry := <-d.queue:
			created, err := d.feed.Evaluate(ctx, entry)
			if err != nil {
				d.logger.Error("failed to evaluate entry",
					"transaction_id", entry.ID,
					"error", err,
				)
				continue
			}
			for _, a := range created {
				d.logger.Info("alert raised",
					"alert_id", a.ID,
					"alert_type", a.Type,
					"account_id", a.AccountID,
					"transaction_id", entry.ID,
				)
			}
		}
	}
}
