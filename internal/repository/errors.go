package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/corebank/ledger/internal/domain"
)

const (
	pqSerializationFailure pq.ErrorCode = "40001"
	pqDeadlockDetected     pq.ErrorCode = "40P01"
	pqLockNotAvailable     pq.ErrorCode = "55P03"
	pqUniqueViolation      pq.ErrorCode = "23505"
	pqCheckViolation       pq.ErrorCode = "23514"
	pqNumericOutOfRange    pq.ErrorCode = "22003"
	pqUntranslatableChar   pq.ErrorCode = "22021"

	accountsBalanceCheck = "accounts_balance_check"
)

// translateError maps Postgres failures the ledger cares about onto domain
// errors while keeping the driver error in the chain.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
		return fmt.Errorf("%w: %w", domain.ErrSerialization, err)
	case pqNumericOutOfRange:
		return fmt.Errorf("%w: %w", domain.ErrInvalidAmount, err)
	case pqUntranslatableChar:
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	case pqCheckViolation:
		if pqErr.Constraint == accountsBalanceCheck {
			return fmt.Errorf("%w: %w", domain.ErrInsufficientFunds, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
