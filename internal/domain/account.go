package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AccountTypeSavings = "SAVINGS"
	AccountTypeCurrent = "CURRENT"

	MaxAccountNumberLen = 20
)

type Account struct {
	ID            uuid.UUID
	AccountNumber string
	UserID        uuid.UUID
	BranchCode    string
	Balance       decimal.Decimal
	AccountType   string
	IsActive      bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanDebit reports whether amount can leave the account without taking the
// balance below zero.
func (a *Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
