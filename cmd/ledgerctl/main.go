package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/corebank/ledger/internal/app"
	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/logging"
)

const usage = `usage: ledgerctl <command> [flags]

commands:
  deposit    -account <id> -amount <decimal> [-desc <text>]
  withdraw   -account <id> -amount <decimal> [-desc <text>]
  transfer   -from <id> -to <id> -amount <decimal> [-desc <text>]
  balance    -account <id>
  history    -account <id> [-from <RFC3339>] [-to <RFC3339>]
  statement  -account <id> [-n <lines>]
  high-value -threshold <decimal>
  alerts     [-account <id>] [-type <alert type>] [-n <limit>]
  resolve    -alert <id> -by <user id>
  scan
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "read .env: %v\n", err)
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logging.Init("ledgerctl", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, os.Args[1], os.Args[2:], os.Stdout))
}

func run(ctx context.Context, cfg *config.Config, name string, args []string, out io.Writer) int {
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	ctx = logging.With(ctx, "command", name)

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer a.Close()

	if err := cmd(ctx, a, args, out); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "%s: %s: %v\n", name, domain.KindOf(err), err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return 2
	case domain.KindNotFound:
		return 3
	case domain.KindPreconditionFailed:
		return 4
	case domain.KindContention:
		return 5
	default:
		return 1
	}
}
