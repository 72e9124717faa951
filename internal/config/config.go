package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false"`
	MigrationsDir  string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`

	LedgerMaxRetries     int    `env:"LEDGER_MAX_RETRIES" envDefault:"5"`
	LedgerRetryInitialMS int    `env:"LEDGER_RETRY_INITIAL_MS" envDefault:"10"`
	LedgerRetryMaxMS     int    `env:"LEDGER_RETRY_MAX_MS" envDefault:"250"`
	LedgerIsolation      string `env:"LEDGER_ISOLATION" envDefault:"read_committed"`
	LedgerLockTimeoutMS  int    `env:"LEDGER_LOCK_TIMEOUT_MS" envDefault:"5000"`
	LedgerPageSize       int    `env:"LEDGER_PAGE_SIZE" envDefault:"100"`

	AlertHighValueThreshold decimal.Decimal `env:"ALERT_HIGH_VALUE_THRESHOLD" envDefault:"10000.00"`
	AlertVelocityWindow     time.Duration   `env:"ALERT_VELOCITY_WINDOW" envDefault:"1h"`
	AlertVelocityMaxCount   int             `env:"ALERT_VELOCITY_MAX_COUNT" envDefault:"20"`
	AlertScanInterval       time.Duration   `env:"ALERT_SCAN_INTERVAL" envDefault:"30s"`
	AlertScanLookback       time.Duration   `env:"ALERT_SCAN_LOOKBACK" envDefault:"24h"`
	AlertQueueSize          int             `env:"ALERT_QUEUE_SIZE" envDefault:"1024"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisQueue    string `env:"REDIS_ALERT_QUEUE" envDefault:"ledger:alerts"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.LedgerMaxRetries < 0 {
		return nil, fmt.Errorf("config.Load: LEDGER_MAX_RETRIES must not be negative")
	}
	if !cfg.AlertHighValueThreshold.IsPositive() {
		return nil, fmt.Errorf("config.Load: ALERT_HIGH_VALUE_THRESHOLD must be positive")
	}
	if cfg.AlertScanInterval <= 0 {
		return nil, fmt.Errorf("config.Load: ALERT_SCAN_INTERVAL must be positive")
	}
	return &cfg, nil
}
