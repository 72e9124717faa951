package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/repository"
	"github.com/corebank/ledger/internal/service/ledger"
	"github.com/corebank/ledger/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		LedgerMaxRetries:     10,
		LedgerRetryInitialMS: 5,
		LedgerRetryMaxMS:     50,
		LedgerIsolation:      "read_committed",
		LedgerLockTimeoutMS:  5000,
	}
}

func setupLedger(t *testing.T, db *sql.DB) *ledger.Service {
	t.Helper()
	opts, err := ledger.OptionsFromConfig(testConfig())
	require.NoError(t, err)
	return ledger.NewService(
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewDB(db),
		opts,
	)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertBalance(t *testing.T, db *sql.DB, id uuid.UUID, want string) {
	t.Helper()
	got := testutil.GetAccountBalance(t, db, id)
	assert.True(t, got.Equal(dec(want)), "balance of %s: got %s want %s", id, got, want)
}

func TestDepositWithdraw_BalanceAfterArithmetic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()
	txns := repository.NewTransactionRepository(db)

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	acct := testutil.SeedAccount(t, db, owner.ID, "0.00")

	depID, err := svc.Deposit(ctx, ledger.DepositRequest{AccountID: acct.ID, Amount: dec("150.75")})
	require.NoError(t, err)
	wdID, err := svc.Withdraw(ctx, ledger.WithdrawRequest{AccountID: acct.ID, Amount: dec("50.25")})
	require.NoError(t, err)

	dep, err := txns.GetByID(ctx, depID)
	require.NoError(t, err)
	assert.True(t, dep.Amount.Equal(dec("150.75")))
	assert.True(t, dep.BalanceAfter.Equal(dec("150.75")))
	assert.Equal(t, ledger.DefaultDepositDescription, dep.Description)

	wd, err := txns.GetByID(ctx, wdID)
	require.NoError(t, err)
	assert.True(t, wd.Amount.Equal(dec("-50.25")))
	assert.True(t, wd.BalanceAfter.Equal(dec("100.50")))
	assert.True(t, wd.BalanceAfter.Equal(dep.BalanceAfter.Add(wd.Amount)))
	assert.Equal(t, ledger.DefaultWithdrawDescription, wd.Description)

	assertBalance(t, db, acct.ID, "100.50")
	assert.Equal(t, 2, testutil.CountEntries(t, db, acct.ID))
}

func TestWithdraw_InsufficientFundsLeavesBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	acct := testutil.SeedAccount(t, db, owner.ID, "40.00")

	_, err := svc.Withdraw(context.Background(), ledger.WithdrawRequest{AccountID: acct.ID, Amount: dec("40.01")})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, domain.KindPreconditionFailed, domain.KindOf(err))

	assertBalance(t, db, acct.ID, "40.00")
	assert.Equal(t, 0, testutil.CountEntries(t, db, acct.ID))
}

func TestTransfer_Scenario(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()
	txns := repository.NewTransactionRepository(db)

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	a := testutil.SeedAccount(t, db, owner.ID, "1000.00")
	b := testutil.SeedAccount(t, db, owner.ID, "500.00")

	debitID, err := svc.Transfer(ctx, ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: dec("200.00")})
	require.NoError(t, err)

	assertBalance(t, db, a.ID, "800.00")
	assertBalance(t, db, b.ID, "700.00")

	debit, err := txns.GetByID(ctx, debitID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, debit.AccountID)
	require.NotNil(t, debit.CounterpartAccountID)
	assert.Equal(t, b.ID, *debit.CounterpartAccountID)
	assert.True(t, debit.Amount.Equal(dec("-200.00")))
	assert.True(t, debit.BalanceAfter.Equal(dec("800.00")))
	assert.Equal(t, "Money Transfer - To "+b.AccountNumber, debit.Description)

	var credits []domain.Transaction
	for entry, err := range txns.ListByAccount(ctx, b.ID, repository.HistoryFilter{}) {
		require.NoError(t, err)
		credits = append(credits, entry)
	}
	require.Len(t, credits, 1)
	credit := credits[0]
	assert.True(t, credit.Amount.Equal(debit.Amount.Neg()))
	assert.True(t, credit.BalanceAfter.Equal(dec("700.00")))
	assert.Equal(t, a.ID, *credit.CounterpartAccountID)
	assert.Equal(t, "Money Transfer - From "+a.AccountNumber, credit.Description)
}

func TestTransfer_FailuresLeaveNoTrace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	a := testutil.SeedAccount(t, db, owner.ID, "100.00")
	b := testutil.SeedAccount(t, db, owner.ID, "100.00")
	closed := testutil.SeedAccount(t, db, owner.ID, "100.00")
	testutil.DeactivateAccount(t, db, closed.ID)

	tests := []struct {
		name     string
		req      ledger.TransferRequest
		wantErr  error
		wantKind domain.Kind
	}{
		{"insufficient funds", ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: dec("100.01")}, domain.ErrInsufficientFunds, domain.KindPreconditionFailed},
		{"inactive destination", ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: closed.ID, Amount: dec("1.00")}, domain.ErrAccountInactive, domain.KindPreconditionFailed},
		{"inactive source", ledger.TransferRequest{FromAccountID: closed.ID, ToAccountID: a.ID, Amount: dec("1.00")}, domain.ErrAccountInactive, domain.KindPreconditionFailed},
		{"unknown destination", ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: uuid.New(), Amount: dec("1.00")}, domain.ErrDestinationAccountNotFound, domain.KindNotFound},
		{"same account", ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: a.ID, Amount: dec("1.00")}, domain.ErrSameAccount, domain.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Transfer(ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}

	assertBalance(t, db, a.ID, "100.00")
	assertBalance(t, db, b.ID, "100.00")
	assertBalance(t, db, closed.ID, "100.00")
	assert.Equal(t, 0, testutil.CountEntries(t, db, a.ID))
	assert.Equal(t, 0, testutil.CountEntries(t, db, b.ID))
}

// failingCreditLog lets the debit leg through and fails the credit leg, after
// both balances have already been written inside the unit.
type failingCreditLog struct {
	*repository.TransactionRepository
	appended int
}

var errLogWrite = errors.New("log write failed")

func (l *failingCreditLog) Append(ctx context.Context, tx *sql.Tx, entry *domain.Transaction) error {
	if entry.Amount.IsPositive() {
		return errLogWrite
	}
	l.appended++
	return l.TransactionRepository.Append(ctx, tx, entry)
}

func TestTransfer_LogFailureAfterBalanceWriteRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	opts, err := ledger.OptionsFromConfig(testConfig())
	require.NoError(t, err)
	entries := &failingCreditLog{TransactionRepository: repository.NewTransactionRepository(db)}
	svc := ledger.NewService(repository.NewAccountRepository(db), entries, repository.NewDB(db), opts)

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	a := testutil.SeedAccount(t, db, owner.ID, "1000.00")
	b := testutil.SeedAccount(t, db, owner.ID, "500.00")
	versionA := testutil.GetAccountVersion(t, db, a.ID)
	versionB := testutil.GetAccountVersion(t, db, b.ID)

	_, err = svc.Transfer(ctx, ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: dec("200.00")})
	require.ErrorIs(t, err, errLogWrite)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Equal(t, 1, entries.appended, "debit leg must have been written before the failure")

	assertBalance(t, db, a.ID, "1000.00")
	assertBalance(t, db, b.ID, "500.00")
	assert.Equal(t, versionA, testutil.GetAccountVersion(t, db, a.ID))
	assert.Equal(t, versionB, testutil.GetAccountVersion(t, db, b.ID))
	assert.Equal(t, 0, testutil.CountEntries(t, db, a.ID))
	assert.Equal(t, 0, testutil.CountEntries(t, db, b.ID))
}

func TestDeposit_BalanceBeyondStoragePrecisionIsInvalidInput(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	acct := testutil.SeedAccount(t, db, owner.ID, "1.00")

	_, err := svc.Deposit(context.Background(), ledger.DepositRequest{AccountID: acct.ID, Amount: domain.MaxAmount})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))

	assertBalance(t, db, acct.ID, "1.00")
	assert.Equal(t, 0, testutil.CountEntries(t, db, acct.ID))
}

func TestTransfer_ConcurrentConservesMoney(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	a := testutil.SeedAccount(t, db, owner.ID, "1000.00")
	b := testutil.SeedAccount(t, db, owner.ID, "1000.00")

	const n = 20
	var g errgroup.Group
	for range n {
		g.Go(func() error {
			_, err := svc.Transfer(ctx, ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: dec("10.00")})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assertBalance(t, db, a.ID, "800.00")
	assertBalance(t, db, b.ID, "1200.00")
	assert.True(t, testutil.SumBalances(t, db, a.ID, b.ID).Equal(dec("2000.00")))
	assert.Equal(t, n, testutil.CountEntries(t, db, a.ID))
	assert.Equal(t, n, testutil.CountEntries(t, db, b.ID))
}

func TestTransfer_OppositeDirectionsDoNotDeadlock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	a := testutil.SeedAccount(t, db, owner.ID, "500.00")
	b := testutil.SeedAccount(t, db, owner.ID, "500.00")

	const perDirection = 15
	var g errgroup.Group
	for range perDirection {
		g.Go(func() error {
			_, err := svc.Transfer(ctx, ledger.TransferRequest{FromAccountID: a.ID, ToAccountID: b.ID, Amount: dec("5.00")})
			return err
		})
		g.Go(func() error {
			_, err := svc.Transfer(ctx, ledger.TransferRequest{FromAccountID: b.ID, ToAccountID: a.ID, Amount: dec("3.00")})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assertBalance(t, db, a.ID, "470.00")
	assertBalance(t, db, b.ID, "530.00")
	assert.Equal(t, 2*perDirection, testutil.CountEntries(t, db, a.ID))
}

func TestWithdraw_ConcurrentNeverOverdraws(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := setupLedger(t, db)
	ctx := context.Background()

	owner := testutil.SeedUser(t, db, "owner@test.com", "Owner", domain.UserRoleCustomer)
	acct := testutil.SeedAccount(t, db, owner.ID, "100.00")

	const n = 10
	results := make([]error, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			_, results[i] = svc.Withdraw(ctx, ledger.WithdrawRequest{AccountID: acct.ID, Amount: dec("30.00")})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	}
	assert.Equal(t, 3, succeeded)
	assertBalance(t, db, acct.ID, "10.00")
	assert.Equal(t, 3, testutil.CountEntries(t, db, acct.ID))
}
