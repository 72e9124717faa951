package testutil

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/corebank/ledger/internal/repository"
)

// ExternalDatabaseEnv points the integration tests at an existing server
// instead of a container. Each test gets its own scratch database there.
const ExternalDatabaseEnv = "LEDGER_TEST_DATABASE_URL"

const testPoolSize = 50

// SetupTestDB returns a migrated, empty ledger database private to t. It is
// dropped together with the test.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	var connStr string
	if admin := os.Getenv(ExternalDatabaseEnv); admin != "" {
		connStr = createScratchDatabase(t, ctx, admin)
	} else {
		connStr = startContainer(t, ctx)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(testPoolSize)
	t.Cleanup(func() { db.Close() })

	if err := repository.Migrate(ctx, db, repository.FindMigrationsDir()); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func startContainer(t *testing.T, ctx context.Context) string {
	t.Helper()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ledger_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("container connection string: %v", err)
	}
	return connStr
}

// createScratchDatabase creates a uniquely named database on the server
// behind adminURL and returns a URL pointing at it.
func createScratchDatabase(t *testing.T, ctx context.Context, adminURL string) string {
	t.Helper()

	u, err := url.Parse(adminURL)
	if err != nil {
		t.Fatalf("parse %s: %v", ExternalDatabaseEnv, err)
	}

	admin, err := sql.Open("postgres", adminURL)
	if err != nil {
		t.Fatalf("open admin db: %v", err)
	}

	name := "ledger_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	if _, err := admin.ExecContext(ctx, `CREATE DATABASE `+pq.QuoteIdentifier(name)); err != nil {
		admin.Close()
		t.Fatalf("create scratch database: %v", err)
	}

	// Registered first so it runs after the test pool is closed.
	t.Cleanup(func() {
		defer admin.Close()
		if _, err := admin.ExecContext(ctx, `DROP DATABASE IF EXISTS `+pq.QuoteIdentifier(name)+` WITH (FORCE)`); err != nil {
			t.Logf("drop scratch database %s: %v", name, err)
		}
	})

	u.Path = "/" + name
	return u.String()
}
