package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/domain"
)

const transactionColumns = `id, account_id, counterpart_account_id, type, amount,
	balance_after, description, status, created_at, updated_at`

const defaultPageSize = 100

// HistoryFilter narrows an account history to the half-open window [From, To).
type HistoryFilter struct {
	From *time.Time
	To   *time.Time
}

type TransactionRepository struct {
	db       *sql.DB
	pageSize int
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db, pageSize: defaultPageSize}
}

// WithPageSize sets how many rows each lazy sequence fetches per round trip.
func (r *TransactionRepository) WithPageSize(n int) *TransactionRepository {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

// Append writes a decided entry inside tx. There is no update path: entries
// are write-once.
func (r *TransactionRepository) Append(ctx context.Context, tx *sql.Tx, entry *domain.Transaction) error {
	if entry.Status != domain.TransactionStatusCompleted {
		return fmt.Errorf("Append: status %s: %w", entry.Status, domain.ErrEntryNotCompleted)
	}

	var counterpart uuid.NullUUID
	if entry.CounterpartAccountID != nil {
		counterpart = uuid.NullUUID{UUID: *entry.CounterpartAccountID, Valid: true}
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, account_id, counterpart_account_id, type, amount,
			balance_after, description, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.AccountID, counterpart, entry.Type, entry.Amount,
		entry.BalanceAfter, entry.Description, entry.Status,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", translateError(err))
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: transaction %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

// ListByAccount yields the completed entries of an account newest first.
// Rows are fetched page by page as the caller ranges; every range starts a
// fresh query, so the sequence can be consumed more than once.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, f HistoryFilter) iter.Seq2[domain.Transaction, error] {
	return r.paginate(ctx, "ListByAccount", func(c *cursor) (*sql.Rows, error) {
		return r.db.QueryContext(ctx,
			`SELECT `+transactionColumns+` FROM transactions
			WHERE account_id = $1 AND status = 'COMPLETED'
			  AND ($2::timestamptz IS NULL OR created_at >= $2)
			  AND ($3::timestamptz IS NULL OR created_at < $3)
			  AND ($4::timestamptz IS NULL OR (created_at, id) < ($4::timestamptz, $5::uuid))
			ORDER BY created_at DESC, id DESC
			LIMIT $6`,
			accountID, f.From, f.To, c.createdAt(), c.id(), r.pageSize,
		)
	})
}

// HighValue yields completed entries whose absolute amount exceeds threshold,
// newest first. A non-nil since restricts the scan to entries created at or
// after it.
func (r *TransactionRepository) HighValue(ctx context.Context, threshold decimal.Decimal, since *time.Time) iter.Seq2[domain.Transaction, error] {
	return r.paginate(ctx, "HighValue", func(c *cursor) (*sql.Rows, error) {
		return r.db.QueryContext(ctx,
			`SELECT `+transactionColumns+` FROM transactions
			WHERE status = 'COMPLETED' AND abs(amount) > $1
			  AND ($2::timestamptz IS NULL OR created_at >= $2)
			  AND ($3::timestamptz IS NULL OR (created_at, id) < ($3::timestamptz, $4::uuid))
			ORDER BY created_at DESC, id DESC
			LIMIT $5`,
			threshold, since, c.createdAt(), c.id(), r.pageSize,
		)
	})
}

func (r *TransactionRepository) MiniStatement(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.MiniStatementLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, amount, balance_after, description, created_at
		FROM transactions
		WHERE account_id = $1 AND status = 'COMPLETED'
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("MiniStatement: %w", err)
	}
	defer rows.Close()

	var lines []domain.MiniStatementLine
	for rows.Next() {
		var l domain.MiniStatementLine
		if err := rows.Scan(&l.TransactionID, &l.Type, &l.Amount, &l.BalanceAfter, &l.Description, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("MiniStatement: scan: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("MiniStatement: rows: %w", err)
	}
	return lines, nil
}

func (r *TransactionRepository) CountSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		WHERE account_id = $1 AND status = 'COMPLETED' AND created_at > $2`,
		accountID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountSince: %w", err)
	}
	return n, nil
}

// CountInWindow counts the account's completed entries created in the
// half-open window (from, to].
func (r *TransactionRepository) CountInWindow(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		WHERE account_id = $1 AND status = 'COMPLETED'
		  AND created_at > $2 AND created_at <= $3`,
		accountID, from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountInWindow: %w", err)
	}
	return n, nil
}

// cursor is the keyset position of the last row handed out.
type cursor struct {
	last *domain.Transaction
}

func (c *cursor) createdAt() *time.Time {
	if c.last == nil {
		return nil
	}
	return &c.last.CreatedAt
}

func (c *cursor) id() uuid.NullUUID {
	if c.last == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: c.last.ID, Valid: true}
}

func (r *TransactionRepository) paginate(ctx context.Context, op string, query func(c *cursor) (*sql.Rows, error)) iter.Seq2[domain.Transaction, error] {
	return func(yield func(domain.Transaction, error) bool) {
		c := &cursor{}
		for {
			page, err := r.fetchPage(op, c, query)
			if err != nil {
				yield(domain.Transaction{}, err)
				return
			}
			for i := range page {
				if !yield(page[i], nil) {
					return
				}
			}
			if len(page) < r.pageSize {
				return
			}
			c.last = &page[len(page)-1]
			if ctx.Err() != nil {
				yield(domain.Transaction{}, fmt.Errorf("%s: %w", op, ctx.Err()))
				return
			}
		}
	}
}

func (r *TransactionRepository) fetchPage(op string, c *cursor, query func(c *cursor) (*sql.Rows, error)) ([]domain.Transaction, error) {
	rows, err := query(c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	page := make([]domain.Transaction, 0, r.pageSize)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		page = append(page, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return page, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var counterpart uuid.NullUUID
	err := s.Scan(
		&t.ID, &t.AccountID, &counterpart, &t.Type, &t.Amount,
		&t.BalanceAfter, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if counterpart.Valid {
		t.CounterpartAccountID = &counterpart.UUID
	}
	return &t, nil
}
