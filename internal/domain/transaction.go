package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is one entry of the append-only log. Amount is signed:
// positive for credits, negative for debits.
type Transaction struct {
	ID                   uuid.UUID
	AccountID            uuid.UUID
	CounterpartAccountID *uuid.UUID
	Type                 TransactionType
	Amount               decimal.Decimal
	BalanceAfter         decimal.Decimal
	Description          string
	Status               TransactionStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// MiniStatementLine is the condensed view returned by mini-statement queries.
type MiniStatementLine struct {
	TransactionID uuid.UUID
	Type          TransactionType
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	CreatedAt     time.Time
}
