package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertTypeHighValue     AlertType = "HIGH_VALUE_TRANSACTION"
	AlertTypeRapidActivity AlertType = "RAPID_ACTIVITY"
	AlertTypeSuspicious    AlertType = "SUSPICIOUS_TRANSACTION"
)

// ParseAlertType accepts one of the known alert types, case-insensitively.
func ParseAlertType(s string) (AlertType, error) {
	t := AlertType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case AlertTypeHighValue, AlertTypeRapidActivity, AlertTypeSuspicious:
		return t, nil
	}
	return "", fmt.Errorf("alert type %q: %w", s, ErrInvalidRequest)
}

type Alert struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	TransactionID *uuid.UUID
	Message       string
	Type          AlertType
	IsResolved    bool
	ResolvedBy    *uuid.UUID
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}
