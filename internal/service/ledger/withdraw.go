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

type WithdrawRequest struct {
	AccountID   uuid.UUID `validate:"required"`
	Amount      decimal.Decimal
	Description string `validate:"max=255,storable"`
}

// Withdraw debits the account and returns the id of the new entry. The funds
// check runs against the locked row.
func (s *Service) Withdraw(ctx context.Context, req WithdrawRequest) (uuid.UUID, error) {
	if err := s.validateRequest(req, req.Amount); err != nil {
		return uuid.Nil, fmt.Errorf("Withdraw: %w", err)
	}

	var entry domain.Transaction
	err := s.runUnit(ctx, "Withdraw", func(tx *sql.Tx) error {
		acct, err := s.accounts.GetForUpdate(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if err := verifyAccountActive(acct, "account"); err != nil {
			return err
		}
		if !acct.CanDebit(req.Amount) {
			return fmt.Errorf("balance %s, requested %s: %w",
				acct.Balance.StringFixed(domain.AmountScale),
				req.Amount.StringFixed(domain.AmountScale),
				domain.ErrInsufficientFunds)
		}

		newBalance := acct.Balance.Sub(req.Amount)
		now := s.now()
		entry = domain.Transaction{
			ID:           uuid.New(),
			AccountID:    acct.ID,
			Type:         domain.TransactionTypeWithdraw,
			Amount:       req.Amount.Neg(),
			BalanceAfter: newBalance,
			Description:  descriptionOr(req.Description, DefaultWithdrawDescription),
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
		return uuid.Nil, fmt.Errorf("Withdraw: %w", err)
	}

	logging.FromContext(ctx).Info("withdrawal completed",
		"transaction_id", entry.ID,
		"account_id", entry.AccountID,
		"amount", entry.Amount,
		"balance_after", entry.BalanceAfter,
	)

	s.observe(ctx, entry)
	return entry.ID, nil
}
