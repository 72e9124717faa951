package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/logging"
)

const (
	accountNumberDigits = 16
	openAccountAttempts = 3
)

type OpenAccountRequest struct {
	UserID      uuid.UUID `validate:"required"`
	BranchCode  string    `validate:"required,max=20"`
	AccountType string    `validate:"omitempty,oneof=SAVINGS CURRENT"`
}

// AccountService manages account lifecycle. Balances are read here but only
// ever written by the ledger.
type AccountService struct {
	accounts accountRepo
	users    userChecker
	validate *validator.Validate
}

func NewAccountService(accounts accountRepo, users userChecker) *AccountService {
	return &AccountService{
		accounts: accounts,
		users:    users,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *AccountService) OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w: %s", domain.ErrInvalidRequest, err.Error())
	}

	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}

	accountType := req.AccountType
	if accountType == "" {
		accountType = domain.AccountTypeSavings
	}

	for attempt := 1; ; attempt++ {
		number, err := generateAccountNumber()
		if err != nil {
			return nil, fmt.Errorf("OpenAccount: %w", err)
		}

		now := time.Now().UTC()
		account := &domain.Account{
			ID:            uuid.New(),
			AccountNumber: number,
			UserID:        req.UserID,
			BranchCode:    req.BranchCode,
			Balance:       decimal.Zero,
			AccountType:   accountType,
			IsActive:      true,
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = s.accounts.Create(ctx, account)
		if err == nil {
			log.Info("account opened",
				"account_id", account.ID,
				"account_number", account.AccountNumber,
				"user_id", req.UserID,
			)
			return account, nil
		}
		if !errors.Is(err, domain.ErrAccountExists) || attempt == openAccountAttempts {
			return nil, fmt.Errorf("OpenAccount: %w", err)
		}
		log.Warn("account number collision, regenerating", "attempt", attempt)
	}
}

func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return account, nil
}

// GetByNumber resolves an account number. Deactivated accounts are reported
// as not found.
func (s *AccountService) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	account, err := s.accounts.GetByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("GetByNumber: %w", err)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("GetByNumber: %w", domain.ErrAccountNotFound)
	}
	return account, nil
}

func (s *AccountService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.accounts.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	return accounts, nil
}

func (s *AccountService) Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Balance: %w", err)
	}
	return account.Balance, nil
}

func (s *AccountService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.accounts.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}
	logging.FromContext(ctx).Info("account deactivated", "account_id", id)
	return nil
}

func generateAccountNumber() (string, error) {
	digits := make([]byte, accountNumberDigits)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generateAccountNumber: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}
