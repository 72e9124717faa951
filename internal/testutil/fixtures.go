package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/corebank/ledger/internal/domain"
)

var accountSeq atomic.Int64

func SeedUser(t *testing.T, db *sql.DB, email, name string, role domain.UserRole) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return u
}

// SeedAccount inserts an active account holding balance. The balance is
// written directly, bypassing the ledger, so no opening entry exists.
func SeedAccount(t *testing.T, db *sql.DB, userID uuid.UUID, balance string) *domain.Account {
	t.Helper()

	now := time.Now().UTC()
	a := &domain.Account{
		ID:            uuid.New(),
		AccountNumber: fmt.Sprintf("TEST%06d", accountSeq.Add(1)),
		UserID:        userID,
		BranchCode:    "BR001",
		Balance:       decimal.RequireFromString(balance),
		AccountType:   domain.AccountTypeSavings,
		IsActive:      true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := db.Exec(
		`INSERT INTO accounts (id, account_number, user_id, branch_code, balance, account_type, is_active, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.AccountNumber, a.UserID, a.BranchCode, a.Balance, a.AccountType,
		a.IsActive, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed account for %s: %v", userID, err)
	}
	return a
}

func DeactivateAccount(t *testing.T, db *sql.DB, accountID uuid.UUID) {
	t.Helper()

	if _, err := db.Exec(`UPDATE accounts SET is_active = FALSE WHERE id = $1`, accountID); err != nil {
		t.Fatalf("deactivate account %s: %v", accountID, err)
	}
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", accountID, err)
	}
	return balance
}

func CountEntries(t *testing.T, db *sql.DB, accountID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&count)
	if err != nil {
		t.Fatalf("count entries for account %s: %v", accountID, err)
	}
	return count
}

// SumBalances totals the balances of the given accounts.
func SumBalances(t *testing.T, db *sql.DB, ids ...uuid.UUID) decimal.Decimal {
	t.Helper()

	total := decimal.Zero
	for _, id := range ids {
		total = total.Add(GetAccountBalance(t, db, id))
	}
	return total
}

func GetAccountVersion(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var version int64
	err := db.QueryRow(`SELECT version FROM accounts WHERE id = $1`, accountID).Scan(&version)
	if err != nil {
		t.Fatalf("get account version %s: %v", accountID, err)
	}
	return version
}
