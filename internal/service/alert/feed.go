package alert

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/logging"
)

const defaultUnresolvedLimit = 50

type alertStore interface {
	Create(ctx context.Context, alert *domain.Alert) (bool, error)
	ListUnresolved(ctx context.Context, limit int) ([]domain.Alert, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Alert, error)
	ListByType(ctx context.Context, alertType domain.AlertType) ([]domain.Alert, error)
	CountUnresolvedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	Resolve(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) error
}

type entrySource interface {
	HighValue(ctx context.Context, threshold decimal.Decimal, since *time.Time) iter.Seq2[domain.Transaction, error]
	CountInWindow(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int64, error)
}

type userChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Publisher hands newly raised alerts to downstream reviewers.
type Publisher interface {
	Publish(ctx context.Context, alert domain.Alert) error
}

type Rules struct {
	HighValueThreshold decimal.Decimal
	VelocityWindow     time.Duration
	VelocityMaxCount   int
	ScanLookback       time.Duration
}

func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		HighValueThreshold: cfg.AlertHighValueThreshold,
		VelocityWindow:     cfg.AlertVelocityWindow,
		VelocityMaxCount:   cfg.AlertVelocityMaxCount,
		ScanLookback:       cfg.AlertScanLookback,
	}
}

// Feed derives alerts from completed entries. It never touches balances.
type Feed struct {
	alerts    alertStore
	entries   entrySource
	users     userChecker
	publisher Publisher
	rules     Rules
	now       func() time.Time
}

func NewFeed(alerts alertStore, entries entrySource, users userChecker, rules Rules) *Feed {
	return &Feed{
		alerts:  alerts,
		entries: entries,
		users:   users,
		rules:   rules,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (f *Feed) WithPublisher(p Publisher) *Feed {
	f.publisher = p
	return f
}

// Evaluate runs every rule against entry and stores the alerts it raises.
// Re-evaluating the same entry is a no-op. Only alerts created by this call
// are returned.
func (f *Feed) Evaluate(ctx context.Context, entry domain.Transaction) ([]domain.Alert, error) {
	if entry.Status != domain.TransactionStatusCompleted {
		return nil, nil
	}

	candidates, err := f.match(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("Evaluate: %w", err)
	}

	var created []domain.Alert
	for i := range candidates {
		a := &candidates[i]
		ok, err := f.alerts.Create(ctx, a)
		if err != nil {
			return created, fmt.Errorf("Evaluate: %w", err)
		}
		if !ok {
			continue
		}
		created = append(created, *a)
		f.publish(ctx, *a)
	}
	return created, nil
}

// Observe evaluates entries inline, logging rather than returning failures.
// Long-running processes should put a Dispatcher in front instead.
func (f *Feed) Observe(ctx context.Context, entries ...domain.Transaction) {
	for _, e := range entries {
		if _, err := f.Evaluate(ctx, e); err != nil {
			logging.FromContext(ctx).Error("failed to evaluate entry", "transaction_id", e.ID, "error", err)
		}
	}
}

func (f *Feed) match(ctx context.Context, entry domain.Transaction) ([]domain.Alert, error) {
	var out []domain.Alert

	if f.rules.HighValueThreshold.IsPositive() && entry.Amount.Abs().GreaterThan(f.rules.HighValueThreshold) {
		direction := "credit"
		if entry.IsDebit() {
			direction = "debit"
		}
		out = append(out, f.newAlert(entry, domain.AlertTypeHighValue,
			fmt.Sprintf("%s %s of %s exceeds the high value threshold of %s",
				entry.Type, direction,
				entry.Amount.Abs().StringFixed(domain.AmountScale),
				f.rules.HighValueThreshold.StringFixed(domain.AmountScale))))
	}

	if f.rules.VelocityMaxCount > 0 && f.rules.VelocityWindow > 0 {
		// Bounded at the entry itself so a later scan sees the same count the
		// entry had when it committed.
		n, err := f.entries.CountInWindow(ctx, entry.AccountID, entry.CreatedAt.Add(-f.rules.VelocityWindow), entry.CreatedAt)
		if err != nil {
			return nil, err
		}
		if n > int64(f.rules.VelocityMaxCount) {
			out = append(out, f.newAlert(entry, domain.AlertTypeRapidActivity,
				fmt.Sprintf("%d transactions within %s, limit is %d",
					n, f.rules.VelocityWindow, f.rules.VelocityMaxCount)))
		}
	}

	return out, nil
}

func (f *Feed) newAlert(entry domain.Transaction, t domain.AlertType, msg string) domain.Alert {
	txnID := entry.ID
	return domain.Alert{
		ID:            uuid.New(),
		AccountID:     entry.AccountID,
		TransactionID: &txnID,
		Message:       msg,
		Type:          t,
		CreatedAt:     f.now(),
	}
}

func (f *Feed) publish(ctx context.Context, a domain.Alert) {
	if f.publisher == nil {
		return
	}
	if err := f.publisher.Publish(ctx, a); err != nil {
		logging.FromContext(ctx).Error("failed to publish alert",
			"alert_id", a.ID,
			"alert_type", a.Type,
			"error", err,
		)
	}
}

// Scan evaluates every high-value entry inside the lookback window and
// reports how many new alerts were raised.
func (f *Feed) Scan(ctx context.Context) (int, error) {
	var since *time.Time
	if f.rules.ScanLookback > 0 {
		t := f.now().Add(-f.rules.ScanLookback)
		since = &t
	}

	raised := 0
	for entry, err := range f.entries.HighValue(ctx, f.rules.HighValueThreshold, since) {
		if err != nil {
			return raised, fmt.Errorf("Scan: %w", err)
		}
		created, err := f.Evaluate(ctx, entry)
		raised += len(created)
		if err != nil {
			return raised, fmt.Errorf("Scan: %w", err)
		}
	}
	return raised, nil
}

// Resolve closes an alert on behalf of an administrator.
func (f *Feed) Resolve(ctx context.Context, alertID, resolverID uuid.UUID) error {
	resolver, err := f.users.GetByID(ctx, resolverID)
	if err != nil {
		return fmt.Errorf("Resolve: resolver: %w", err)
	}
	if !resolver.IsAdmin() {
		return fmt.Errorf("Resolve: user %s: %w", resolverID, domain.ErrNotAuthorized)
	}

	if err := f.alerts.Resolve(ctx, alertID, resolverID, f.now()); err != nil {
		return fmt.Errorf("Resolve: %w", err)
	}

	logging.FromContext(ctx).Info("alert resolved", "alert_id", alertID, "resolved_by", resolverID)
	return nil
}

func (f *Feed) Unresolved(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = defaultUnresolvedLimit
	}
	alerts, err := f.alerts.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("Unresolved: %w", err)
	}
	return alerts, nil
}

func (f *Feed) ByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Alert, error) {
	alerts, err := f.alerts.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ByAccount: %w", err)
	}
	return alerts, nil
}

func (f *Feed) ByType(ctx context.Context, alertType domain.AlertType) ([]domain.Alert, error) {
	alerts, err := f.alerts.ListByType(ctx, alertType)
	if err != nil {
		return nil, fmt.Errorf("ByType: %w", err)
	}
	return alerts, nil
}

func (f *Feed) UnresolvedCount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	n, err := f.alerts.CountUnresolvedByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("UnresolvedCount: %w", err)
	}
	return n, nil
}
