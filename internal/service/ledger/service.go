package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/domain"
)

const (
	DefaultDepositDescription  = "Cash Deposit"
	DefaultWithdrawDescription = "Cash Withdrawal"
	DefaultTransferDescription = "Money Transfer"
)

type accountStore interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal, expectedVersion int64) error
}

type entryLog interface {
	Append(ctx context.Context, tx *sql.Tx, entry *domain.Transaction) error
}

type txRunner interface {
	WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error
}

// EntryObserver receives entries after their unit has committed. Whatever it
// does cannot change the outcome of the operation.
type EntryObserver interface {
	Observe(ctx context.Context, entries ...domain.Transaction)
}

type Options struct {
	MaxRetries   int
	RetryInitial time.Duration
	RetryMax     time.Duration
	Isolation    sql.IsolationLevel
	LockTimeout  time.Duration
}

func OptionsFromConfig(cfg *config.Config) (Options, error) {
	iso, err := ParseIsolation(cfg.LedgerIsolation)
	if err != nil {
		return Options{}, fmt.Errorf("OptionsFromConfig: %w", err)
	}
	return Options{
		MaxRetries:   cfg.LedgerMaxRetries,
		RetryInitial: time.Duration(cfg.LedgerRetryInitialMS) * time.Millisecond,
		RetryMax:     time.Duration(cfg.LedgerRetryMaxMS) * time.Millisecond,
		Isolation:    iso,
		LockTimeout:  time.Duration(cfg.LedgerLockTimeoutMS) * time.Millisecond,
	}, nil
}

func ParseIsolation(s string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	default:
		return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", s)
	}
}

// Service is the only component that changes account balances.
type Service struct {
	accounts accountStore
	log      entryLog
	db       txRunner
	observer EntryObserver
	validate *validator.Validate
	opts     Options
	now      func() time.Time
}

func NewService(accounts accountStore, log entryLog, db txRunner, opts Options) *Service {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("storable", storableText)

	return &Service{
		accounts: accounts,
		log:      log,
		db:       db,
		validate: validate,
		opts:     opts,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// WithObserver registers the post-commit consumer of new entries.
func (s *Service) WithObserver(o EntryObserver) *Service {
	s.observer = o
	return s
}

func (s *Service) observe(ctx context.Context, entries ...domain.Transaction) {
	if s.observer == nil {
		return
	}
	s.observer.Observe(context.WithoutCancel(ctx), entries...)
}

func (s *Service) validateRequest(req any, amount decimal.Decimal) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, verrs.Error())
		}
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return domain.ValidateAmount(amount)
}

// storableText rejects strings Postgres cannot keep in a text column.
func storableText(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

func descriptionOr(desc, fallback string) string {
	if d := strings.TrimSpace(desc); d != "" {
		return d
	}
	return fallback
}

func verifyAccountActive(acct *domain.Account, role string) error {
	if !acct.IsActive {
		return fmt.Errorf("%s %s: %w", role, acct.AccountNumber, domain.ErrAccountInactive)
	}
	return nil
}

// lockAccountsInOrder takes row locks in ascending id byte order so that two
// units touching the same pair always queue in the same direction. On failure
// it reports which id could not be locked.
func lockAccountsInOrder(ctx context.Context, tx *sql.Tx, accounts accountStore, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, uuid.UUID, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, id, fmt.Errorf("lockAccountsInOrder: %w", err)
		}
		result[id] = acct
	}
	return result, uuid.Nil, nil
}
