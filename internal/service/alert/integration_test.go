package alert_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/repository"
	"github.com/corebank/ledger/internal/service/alert"
	"github.com/corebank/ledger/internal/service/ledger"
	"github.com/corebank/ledger/internal/testutil"
)

func setupFeed(t *testing.T, db *sql.DB) (*alert.Feed, *ledger.Service) {
	t.Helper()
	accounts := repository.NewAccountRepository(db)
	txns := repository.NewTransactionRepository(db)

	feed := alert.NewFeed(
		repository.NewAlertRepository(db),
		txns,
		repository.NewUserRepository(db),
		alert.Rules{
			HighValueThreshold: decimal.RequireFromString("10000.00"),
			VelocityWindow:     time.Hour,
			VelocityMaxCount:   3,
			ScanLookback:       time.Hour,
		},
	)
	engine := ledger.NewService(accounts, txns, repository.NewDB(db), ledger.Options{
		MaxRetries:   5,
		RetryInitial: 5 * time.Millisecond,
		RetryMax:     50 * time.Millisecond,
		Isolation:    sql.LevelReadCommitted,
	})
	return feed, engine
}

func TestFeed_HighValueAlertIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	feed, engine := setupFeed(t, db)
	ctx := context.Background()
	txns := repository.NewTransactionRepository(db)

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	acct := testutil.SeedAccount(t, db, owner.ID, "0.00")

	id, err := engine.Deposit(ctx, ledger.DepositRequest{AccountID: acct.ID, Amount: decimal.RequireFromString("25000.00")})
	require.NoError(t, err)
	entry, err := txns.GetByID(ctx, id)
	require.NoError(t, err)

	created, err := feed.Evaluate(ctx, *entry)
	require.NoError(t, err)
	require.Len(t, created, 1)

	again, err := feed.Evaluate(ctx, *entry)
	require.NoError(t, err)
	assert.Empty(t, again)

	raised, err := feed.Scan(ctx)
	require.NoError(t, err)
	assert.Zero(t, raised)

	alerts, err := feed.ByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertTypeHighValue, alerts[0].Type)
	assert.Equal(t, id, *alerts[0].TransactionID)

	n, err := feed.UnresolvedCount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFeed_ScanFindsMissedEntries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	feed, engine := setupFeed(t, db)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	a := testutil.SeedAccount(t, db, owner.ID, "50000.00")
	b := testutil.SeedAccount(t, db, owner.ID, "0.00")

	_, err := engine.Transfer(ctx, ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: decimal.RequireFromString("20000.00")})
	require.NoError(t, err)
	_, err = engine.Deposit(ctx, ledger.DepositRequest{AccountID: b.ID, Amount: decimal.RequireFromString("100.00")})
	require.NoError(t, err)

	raised, err := feed.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, raised, "both legs of the transfer are high value")

	highValue, err := feed.ByType(ctx, domain.AlertTypeHighValue)
	require.NoError(t, err)
	assert.Len(t, highValue, 2)
}

func TestFeed_RapidActivity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	feed, engine := setupFeed(t, db)
	ctx := context.Background()
	txns := repository.NewTransactionRepository(db)

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	acct := testutil.SeedAccount(t, db, owner.ID, "0.00")

	var ids []uuid.UUID
	for range 4 {
		id, err := engine.Deposit(ctx, ledger.DepositRequest{AccountID: acct.ID, Amount: decimal.RequireFromString("1.00")})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// Entries made later do not count against an earlier one.
	for _, id := range ids[:3] {
		entry, err := txns.GetByID(ctx, id)
		require.NoError(t, err)
		created, err := feed.Evaluate(ctx, *entry)
		require.NoError(t, err)
		assert.Empty(t, created, "entry %s", id)
	}

	last, err := txns.GetByID(ctx, ids[3])
	require.NoError(t, err)

	created, err := feed.Evaluate(ctx, *last)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, domain.AlertTypeRapidActivity, created[0].Type)
}

func TestFeed_Resolve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	feed, engine := setupFeed(t, db)
	ctx := context.Background()
	txns := repository.NewTransactionRepository(db)

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	admin := testutil.SeedUser(t, db, "admin@test.com", "Admin", domain.UserRoleAdmin)
	acct := testutil.SeedAccount(t, db, owner.ID, "0.00")

	id, err := engine.Deposit(ctx, ledger.DepositRequest{AccountID: acct.ID, Amount: decimal.RequireFromString("10000.01")})
	require.NoError(t, err)
	entry, err := txns.GetByID(ctx, id)
	require.NoError(t, err)
	created, err := feed.Evaluate(ctx, *entry)
	require.NoError(t, err)
	require.Len(t, created, 1)
	alertID := created[0].ID

	err = feed.Resolve(ctx, alertID, owner.ID)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	require.NoError(t, feed.Resolve(ctx, alertID, admin.ID))

	err = feed.Resolve(ctx, alertID, admin.ID)
	require.ErrorIs(t, err, domain.ErrAlertResolved)

	alerts, err := feed.ByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].IsResolved)
	require.NotNil(t, alerts[0].ResolvedBy)
	assert.Equal(t, admin.ID, *alerts[0].ResolvedBy)
	assert.NotNil(t, alerts[0].ResolvedAt)

	unresolved, err := feed.Unresolved(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, unresolved)

	// A re-evaluation after resolution must not raise a fresh alert.
	again, err := feed.Evaluate(ctx, *entry)
	require.NoError(t, err)
	assert.Empty(t, again)
}
