package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger/internal/app"
	"github.com/corebank/ledger/internal/domain"
	"github.com/corebank/ledger/internal/repository"
	"github.com/corebank/ledger/internal/service/ledger"
)

type command func(ctx context.Context, a *app.App, args []string, out io.Writer) error

var commands = map[string]command{
	"deposit":    deposit,
	"withdraw":   withdraw,
	"transfer":   transfer,
	"balance":    balance,
	"history":    history,
	"statement":  statement,
	"high-value": highValue,
	"alerts":     alerts,
	"resolve":    resolve,
	"scan":       scan,
}

func deposit(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("deposit", flag.ContinueOnError)
	account := fs.String("account", "", "account id")
	amount := fs.String("amount", "", "amount")
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, amt, err := parseAccountAmount(*account, *amount)
	if err != nil {
		return err
	}
	txnID, err := a.Ledger.Deposit(ctx, ledger.DepositRequest{AccountID: id, Amount: amt, Description: *desc})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, txnID)
	return nil
}

func withdraw(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("withdraw", flag.ContinueOnError)
	account := fs.String("account", "", "account id")
	amount := fs.String("amount", "", "amount")
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, amt, err := parseAccountAmount(*account, *amount)
	if err != nil {
		return err
	}
	txnID, err := a.Ledger.Withdraw(ctx, ledger.WithdrawRequest{AccountID: id, Amount: amt, Description: *desc})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, txnID)
	return nil
}

func transfer(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	from := fs.String("from", "", "source account id")
	to := fs.String("to", "", "destination account id")
	amount := fs.String("amount", "", "amount")
	desc := fs.String("desc", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fromID, amt, err := parseAccountAmount(*from, *amount)
	if err != nil {
		return err
	}
	toID, err := parseID(*to)
	if err != nil {
		return err
	}
	txnID, err := a.Ledger.Transfer(ctx, ledger.TransferRequest{FromAccountID: fromID, ToAccountID: toID, Amount: amt, Description: *desc})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, txnID)
	return nil
}

func balance(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	account := fs.String("account", "", "account id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := parseID(*account)
	if err != nil {
		return err
	}
	bal, err := a.Accounts.Balance(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, bal.StringFixed(domain.AmountScale))
	return nil
}

func history(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	account := fs.String("account", "", "account id")
	from := fs.String("from", "", "window start (RFC3339)")
	to := fs.String("to", "", "window end (RFC3339)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := parseID(*account)
	if err != nil {
		return err
	}
	var f repository.HistoryFilter
	if f.From, err = parseTime(*from); err != nil {
		return err
	}
	if f.To, err = parseTime(*to); err != nil {
		return err
	}

	seq, err := a.Statements.History(ctx, id, f)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTYPE\tAMOUNT\tBALANCE\tDESCRIPTION")
	for entry, err := range seq {
		if err != nil {
			return err
		}
		writeEntry(w, entry)
	}
	return w.Flush()
}

func statement(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("statement", flag.ContinueOnError)
	account := fs.String("account", "", "account id")
	n := fs.Int("n", 0, "number of lines")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := parseID(*account)
	if err != nil {
		return err
	}
	lines, err := a.Statements.MiniStatement(ctx, id, *n)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tAMOUNT\tBALANCE\tDESCRIPTION")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			l.CreatedAt.Format(time.RFC3339), l.Type,
			l.Amount.StringFixed(domain.AmountScale),
			l.BalanceAfter.StringFixed(domain.AmountScale),
			l.Description)
	}
	return w.Flush()
}

func highValue(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("high-value", flag.ContinueOnError)
	threshold := fs.String("threshold", "", "absolute amount threshold")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, err := decimal.NewFromString(*threshold)
	if err != nil {
		return fmt.Errorf("threshold %q: %w", *threshold, domain.ErrInvalidRequest)
	}
	seq, err := a.Statements.HighValue(ctx, t)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTYPE\tAMOUNT\tBALANCE\tDESCRIPTION")
	for entry, err := range seq {
		if err != nil {
			return err
		}
		writeEntry(w, entry)
	}
	return w.Flush()
}

func alerts(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("alerts", flag.ContinueOnError)
	account := fs.String("account", "", "account id")
	alertType := fs.String("type", "", "alert type")
	n := fs.Int("n", 0, "limit for unresolved alerts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		list []domain.Alert
		err  error
	)
	switch {
	case *account != "":
		id, perr := parseID(*account)
		if perr != nil {
			return perr
		}
		list, err = a.Alerts.ByAccount(ctx, id)
	case *alertType != "":
		t, perr := domain.ParseAlertType(*alertType)
		if perr != nil {
			return perr
		}
		list, err = a.Alerts.ByType(ctx, t)
	default:
		list, err = a.Alerts.Unresolved(ctx, *n)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tTYPE\tACCOUNT\tRESOLVED\tMESSAGE")
	for _, al := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
			al.ID, al.CreatedAt.Format(time.RFC3339), al.Type, al.AccountID, al.IsResolved, al.Message)
	}
	return w.Flush()
}

func resolve(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	alertID := fs.String("alert", "", "alert id")
	by := fs.String("by", "", "resolving user id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := parseID(*alertID)
	if err != nil {
		return err
	}
	resolver, err := parseID(*by)
	if err != nil {
		return err
	}
	if err := a.Alerts.Resolve(ctx, id, resolver); err != nil {
		return err
	}
	fmt.Fprintln(out, "resolved", id)
	return nil
}

func scan(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	raised, err := a.Alerts.Scan(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d new alerts\n", raised)
	return nil
}

func writeEntry(w io.Writer, e domain.Transaction) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		e.ID, e.CreatedAt.Format(time.RFC3339), e.Type,
		e.Amount.StringFixed(domain.AmountScale),
		e.BalanceAfter.StringFixed(domain.AmountScale),
		e.Description)
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("id %q: %w", s, domain.ErrInvalidRequest)
	}
	return id, nil
}

func parseAccountAmount(account, amount string) (uuid.UUID, decimal.Decimal, error) {
	id, err := parseID(account)
	if err != nil {
		return uuid.Nil, decimal.Zero, err
	}
	amt, err := domain.ParseAmount(amount)
	if err != nil {
		return uuid.Nil, decimal.Zero, err
	}
	return id, amt, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("time %q: %w", s, domain.ErrInvalidRequest)
	}
	return &t, nil
}
