package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/repository"
)

const (
	DefaultMiniStatementSize = 10
	MaxMiniStatementSize     = 100
)

// StatementService answers read-only questions about the transaction log.
type StatementService struct {
	accounts accountRepo
	log      transactionLog
	now      func() time.Time
}

func NewStatementService(accounts accountRepo, log transactionLog) *StatementService {
	return &StatementService{
		accounts: accounts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// History returns the account's completed entries newest first. The sequence
// is lazy and may be ranged over more than once.
func (s *StatementService) History(ctx context.Context, accountID uuid.UUID, f repository.HistoryFilter) (iter.Seq2[domain.Transaction, error], error) {
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, fmt.Errorf("History: window end must be after start: %w", domain.ErrInvalidRequest)
	}
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return s.log.ListByAccount(ctx, accountID, f), nil
}

func (s *StatementService) MiniStatement(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.MiniStatementLine, error) {
	if limit <= 0 {
		limit = DefaultMiniStatementSize
	}
	limit = min(limit, MaxMiniStatementSize)

	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("MiniStatement: %w", err)
	}
	lines, err := s.log.MiniStatement(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("MiniStatement: %w", err)
	}
	return lines, nil
}

// HighValue yields completed entries whose absolute amount exceeds threshold.
func (s *StatementService) HighValue(ctx context.Context, threshold decimal.Decimal) (iter.Seq2[domain.Transaction, error], error) {
	if !threshold.IsPositive() {
		return nil, fmt.Errorf("HighValue: threshold must be positive: %w", domain.ErrInvalidRequest)
	}
	return s.log.HighValue(ctx, threshold, nil), nil
}

// RecentCount counts the account's completed entries in the last hours.
func (s *StatementService) RecentCount(ctx context.Context, accountID uuid.UUID, hours int) (int64, error) {
	if hours <= 0 {
		return 0, fmt.Errorf("RecentCount: hours must be positive: %w", domain.ErrInvalidRequest)
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	n, err := s.log.CountSince(ctx, accountID, since)
	if err != nil {
		return 0, fmt.Errorf("RecentCount: %w", err)
	}
	return n, nil
}
