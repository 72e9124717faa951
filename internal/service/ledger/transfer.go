package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/logging"
)

type TransferRequest struct {
	FromAccountID uuid.UUID `validate:"required"`
	ToAccountID   uuid.UUID `validate:"required"`
	Amount        decimal.Decimal
	Description   string `validate:"max=200,storable"`
}

// Transfer moves funds between two accounts and returns the id of the debit
// entry. Both balances and both entries commit together or not at all.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (uuid.UUID, error) {
	if err := s.validateRequest(req, req.Amount); err != nil {
		return uuid.Nil, fmt.Errorf("Transfer: %w", err)
	}
	if req.FromAccountID == req.ToAccountID {
		return uuid.Nil, fmt.Errorf("Transfer: %w", domain.ErrSameAccount)
	}

	desc := descriptionOr(req.Description, DefaultTransferDescription)

	var debit, credit domain.Transaction
	err := s.runUnit(ctx, "Transfer", func(tx *sql.Tx) error {
		locked, failed, err := lockAccountsInOrder(ctx, tx, s.accounts, req.FromAccountID, req.ToAccountID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return transferNotFound(req, failed)
			}
			return err
		}

		src, dst := locked[req.FromAccountID], locked[req.ToAccountID]
		if err := verifyAccountActive(src, "source"); err != nil {
			return err
		}
		if err := verifyAccountActive(dst, "destination"); err != nil {
			return err
		}
		if !src.CanDebit(req.Amount) {
			return fmt.Errorf("source balance %s, requested %s: %w",
				src.Balance.StringFixed(domain.AmountScale),
				req.Amount.StringFixed(domain.AmountScale),
				domain.ErrInsufficientFunds)
		}

		srcBalance := src.Balance.Sub(req.Amount)
		dstBalance := dst.Balance.Add(req.Amount)
		now := s.now()

		debit = domain.Transaction{
			ID:                   uuid.New(),
			AccountID:            src.ID,
			CounterpartAccountID: &dst.ID,
			Type:                 domain.TransactionTypeTransfer,
			Amount:               req.Amount.Neg(),
			BalanceAfter:         srcBalance,
			Description:          fmt.Sprintf("%s - To %s", desc, dst.AccountNumber),
			Status:               domain.TransactionStatusCompleted,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		credit = domain.Transaction{
			ID:                   uuid.New(),
			AccountID:            dst.ID,
			CounterpartAccountID: &src.ID,
			Type:                 domain.TransactionTypeTransfer,
			Amount:               req.Amount,
			BalanceAfter:         dstBalance,
			Description:          fmt.Sprintf("%s - From %s", desc, src.AccountNumber),
			Status:               domain.TransactionStatusCompleted,
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		if err := s.accounts.UpdateBalance(ctx, tx, src.ID, srcBalance, src.Version); err != nil {
			return fmt.Errorf("update source: %w", err)
		}
		if err := s.accounts.UpdateBalance(ctx, tx, dst.ID, dstBalance, dst.Version); err != nil {
			return fmt.Errorf("update destination: %w", err)
		}
		if err := s.log.Append(ctx, tx, &debit); err != nil {
			return fmt.Errorf("append debit: %w", err)
		}
		if err := s.log.Append(ctx, tx, &credit); err != nil {
			return fmt.Errorf("append credit: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("Transfer: %w", err)
	}

	logging.FromContext(ctx).Info("transfer completed",
		"debit_id", debit.ID,
		"credit_id", credit.ID,
		"from_account", req.FromAccountID,
		"to_account", req.ToAccountID,
		"amount", req.Amount,
	)

	s.observe(ctx, debit, credit)
	return debit.ID, nil
}

func transferNotFound(req TransferRequest, failed uuid.UUID) error {
	if failed == req.FromAccountID {
		return fmt.Errorf("%s: %w", failed, domain.ErrSourceAccountNotFound)
	}
	return fmt.Errorf("%s: %w", failed, domain.ErrDestinationAccountNotFound)
}
