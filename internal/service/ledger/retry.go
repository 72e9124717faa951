package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/logging"
	"github.com/corebank/ledger/internal/repository"
)

func (s *Service) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.opts.RetryInitial > 0 {
		b.InitialInterval = s.opts.RetryInitial
	}
	if s.opts.RetryMax > 0 {
		b.MaxInterval = s.opts.RetryMax
	}
	b.MaxElapsedTime = 0
	b.Reset()

	retries := s.opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// runUnit executes fn as one atomic unit. Storage conflicts discard the whole
// attempt and start over from fresh reads; once the retry budget is spent the
// failure is reported as contention.
func (s *Service) runUnit(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	log := logging.FromContext(ctx)
	opts := &sql.TxOptions{Isolation: s.opts.Isolation}

	attempt := 0
	operation := func() error {
		attempt++
		err := s.db.WithTx(ctx, opts, func(tx *sql.Tx) error {
			if s.opts.LockTimeout > 0 {
				if err := repository.SetLockTimeout(ctx, tx, s.opts.LockTimeout); err != nil {
					return err
				}
			}
			return fn(tx)
		})
		if err != nil && !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("ledger unit conflicted, retrying",
			"op", op,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation, s.newBackOff(ctx), notify)
	if err != nil && domain.IsRetryable(err) {
		return fmt.Errorf("%w after %d attempts: %w", domain.ErrContention, attempt, err)
	}
	return err
}
