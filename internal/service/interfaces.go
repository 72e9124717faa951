package service

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/repository"
)

type accountRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type userChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type transactionLog interface {
	ListByAccount(ctx context.Context, accountID uuid.UUID, f repository.HistoryFilter) iter.Seq2[domain.Transaction, error]
	HighValue(ctx context.Context, threshold decimal.Decimal, since *time.Time) iter.Seq2[domain.Transaction, error]
	MiniStatement(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.MiniStatementLine, error)
	CountSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error)
}
