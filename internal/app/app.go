package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/health"
	"github.com/corebank/ledger/internal/repository"
	"github.com/corebank/ledger/internal/service"
	"github.com/corebank/ledger/internal/service/alert"
	"github.com/corebank/ledger/internal/service/ledger"
)

const dbConnectAttempts = 30

// App holds the wired components of one process.
type App struct {
	Config     *config.Config
	DB         *sql.DB
	Redis      *redis.Client
	Ledger     *ledger.Service
	Accounts   *service.AccountService
	Statements *service.StatementService
	Alerts     *alert.Feed
}

// New connects to Postgres (and Redis when configured) and wires the
// services. Entries committed through Ledger are handed to observer, or
// evaluated inline by the alert feed when observer is nil.
func New(ctx context.Context, cfg *config.Config, observer func(*alert.Feed) ledger.EntryObserver) (*App, error) {
	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}, dbConnectAttempts)
	if err != nil {
		return nil, fmt.Errorf("app.New: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := repository.Migrate(ctx, db, cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("app.New: %w", err)
		}
		slog.Info("migrations applied", "dir", cfg.MigrationsDir)
	}

	opts, err := ledger.OptionsFromConfig(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("app.New: %w", err)
	}

	accountRepo := repository.NewAccountRepository(db)
	txnRepo := repository.NewTransactionRepository(db).WithPageSize(cfg.LedgerPageSize)
	userRepo := repository.NewUserRepository(db)

	a := &App{Config: cfg, DB: db}

	a.Alerts = alert.NewFeed(repository.NewAlertRepository(db), txnRepo, userRepo, alert.RulesFromConfig(cfg))
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.Alerts.WithPublisher(alert.NewRedisPublisher(a.Redis, cfg.RedisQueue))
	}

	var obs ledger.EntryObserver = a.Alerts
	if observer != nil {
		obs = observer(a.Alerts)
	}

	a.Ledger = ledger.NewService(accountRepo, txnRepo, repository.NewDB(db), opts).WithObserver(obs)
	a.Accounts = service.NewAccountService(accountRepo, userRepo)
	a.Statements = service.NewStatementService(accountRepo, txnRepo)

	return a, nil
}

// HealthChecks lists the dependencies a readiness probe should ping.
func (a *App) HealthChecks() map[string]health.Pinger {
	checks := map[string]health.Pinger{"database": a.DB}
	if a.Redis != nil {
		checks["redis"] = health.PingFunc(func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		})
	}
	return checks
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}
