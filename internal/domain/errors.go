package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAccountNotFound   = fmt.Errorf("account %w", ErrNotFound)
	ErrAlertNotFound     = fmt.Errorf("alert %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrInvalidAmount     = errors.New("amount must be greater than zero with at most two decimal places")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrSameAccount       = errors.New("source and destination accounts must be different")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountExists     = errors.New("account number already exists")
	ErrAlertResolved     = errors.New("alert already resolved")
	ErrNotAuthorized     = errors.New("actor is not authorized")
	ErrVersionConflict   = errors.New("optimistic lock conflict")
	ErrSerialization     = errors.New("serialization conflict")
	ErrContention        = errors.New("contention: retries exhausted")
	ErrEntryNotCompleted = errors.New("only completed entries may be appended")

	ErrSourceAccountNotFound      = fmt.Errorf("source %w", ErrAccountNotFound)
	ErrDestinationAccountNotFound = fmt.Errorf("destination %w", ErrAccountNotFound)
)
