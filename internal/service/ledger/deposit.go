package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/logging"
)

type DepositRequest struct {
	AccountID   uuid.UUID `validate:"required"`
	Amount      decimal.Decimal
	Description string `validate:"max=255,storable"`
}

// Deposit credits the account and returns the id of the new entry.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (uuid.UUID, error) {
	if err := s.validateRequest(req, req.Amount); err != nil {
		return uuid.Nil, fmt.Errorf("Deposit: %w", err)
	}

	var entry domain.Transaction
	err := s.runUnit(ctx, "Deposit", func(tx *sql.Tx) error {
		acct, err := s.accounts.GetForUpdate(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if err := verifyAccountActive(acct, "account"); err != nil {
			return err
		}

		newBalance := acct.Balance.Add(req.Amount)
		now := s.now()
		entry = domain.Transaction{
			ID:           uuid.New(),
			AccountID:    acct.ID,
			Type:         domain.TransactionTypeDeposit,
			Amount:       req.Amount,
			BalanceAfter: newBalance,
			Description:  descriptionOr(req.Description, DefaultDepositDescription),
			Status:       domain.TransactionStatusCompleted,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.accounts.UpdateBalance(ctx, tx, acct.ID, newBalance, acct.Version); err != nil {
			return err
		}
		return s.log.Append(ctx, tx, &entry)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("Deposit: %w", err)
	}

	logging.FromContext(ctx).Info("deposit completed",
		"transaction_id", entry.ID,
		"account_id", entry.AccountID,
		"amount", entry.Amount,
		"balance_after", entry.BalanceAfter,
	)

	s.observe(ctx, entry)
	return entry.ID, nil
}
