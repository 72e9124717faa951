package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/corebank/ledger/internal/domain"
)

const alertColumns = `id, account_id, transaction_id, message, alert_type,
	is_resolved, resolved_by, created_at, resolved_at`

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts the alert unless one already exists for the same
// transaction and type. It reports whether a row was written.
func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) (bool, error) {
	var txnID uuid.NullUUID
	if alert.TransactionID != nil {
		txnID = uuid.NullUUID{UUID: *alert.TransactionID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO alerts (id, account_id, transaction_id, message, alert_type, is_resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		ON CONFLICT (transaction_id, alert_type) WHERE transaction_id IS NOT NULL DO NOTHING`,
		alert.ID, alert.AccountID, txnID, alert.Message, alert.Type, alert.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("Create: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Create: rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id,
	)
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrAlertNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

func (r *AlertRepository) ListUnresolved(ctx context.Context, limit int) ([]domain.Alert, error) {
	return r.list(ctx, "ListUnresolved",
		`SELECT `+alertColumns+` FROM alerts WHERE is_resolved = FALSE
		ORDER BY created_at DESC LIMIT $1`, limit,
	)
}

func (r *AlertRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Alert, error) {
	return r.list(ctx, "ListByAccount",
		`SELECT `+alertColumns+` FROM alerts WHERE account_id = $1
		ORDER BY created_at DESC`, accountID,
	)
}

func (r *AlertRepository) ListByType(ctx context.Context, alertType domain.AlertType) ([]domain.Alert, error) {
	return r.list(ctx, "ListByType",
		`SELECT `+alertColumns+` FROM alerts WHERE alert_type = $1
		ORDER BY created_at DESC`, alertType,
	)
}

func (r *AlertRepository) CountUnresolvedByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE account_id = $1 AND is_resolved = FALSE`, accountID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountUnresolvedByAccount: %w", err)
	}
	return n, nil
}

// Resolve closes an open alert. A resolved alert is never reopened or
// re-resolved.
func (r *AlertRepository) Resolve(ctx context.Context, id, resolvedBy uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET is_resolved = TRUE, resolved_by = $2, resolved_at = $3
		WHERE id = $1 AND is_resolved = FALSE`,
		id, resolvedBy, at,
	)
	if err != nil {
		return fmt.Errorf("Resolve: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Resolve: rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return fmt.Errorf("Resolve: %w", err)
	}
	return fmt.Errorf("Resolve: %w", domain.ErrAlertResolved)
}

func (r *AlertRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return alerts, nil
}

func scanAlert(s scanner) (*domain.Alert, error) {
	var a domain.Alert
	var txnID, resolvedBy uuid.NullUUID
	err := s.Scan(
		&a.ID, &a.AccountID, &txnID, &a.Message, &a.Type,
		&a.IsResolved, &resolvedBy, &a.CreatedAt, &a.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if txnID.Valid {
		a.TransactionID = &txnID.UUID
	}
	if resolvedBy.Valid {
		a.ResolvedBy = &resolvedBy.UUID
	}
	return &a, nil
}
