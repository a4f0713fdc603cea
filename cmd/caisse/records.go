package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"caisse/internal/core"
	"caisse/internal/ledger"
)

// parseAmountFlag parses an amount flag, or returns 0 and no error when
// the flag is empty and optional.
func parseAmountFlag(name, v string, required bool) (int64, error) {
	if strings.TrimSpace(v) == "" && !required {
		return 0, nil
	}
	n, err := core.ParseAmount(v)
	if err != nil {
		return 0, fmt.Errorf("-%s: %w", name, err)
	}
	return n, nil
}

func usageError(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitUsageError
}

type addClientCmd struct {
	name, kind, email, phone, fee, notes string
}

func (*addClientCmd) Name() string     { return "add-client" }
func (*addClientCmd) Synopsis() string { return "register a client" }
func (*addClientCmd) Usage() string {
	return `add-client -name <name> [-type patisserie|institut|restaurant|other] [-email <email>] [-phone <phone>] [-fee <amount>] [-notes <text>]
`
}

func (c *addClientCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "client name (required)")
	f.StringVar(&c.kind, "type", "other", "client type")
	f.StringVar(&c.email, "email", "", "contact email")
	f.StringVar(&c.phone, "phone", "", "contact phone")
	f.StringVar(&c.fee, "fee", "", "default fee")
	f.StringVar(&c.notes, "notes", "", "free-form notes")
}

func (c *addClientCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fee, err := parseAmountFlag("fee", c.fee, false)
	if err != nil {
		return usageError(err)
	}
	client := core.Client{
		Name:       c.name,
		Type:       core.ClientType(strings.ToLower(c.kind)),
		Email:      c.email,
		Phone:      c.phone,
		DefaultFee: fee,
		Notes:      c.notes,
	}
	if err := client.Validate(); err != nil {
		return usageError(err)
	}
	return withLedger(ctx, func(ctx context.Context, a *app) error {
		return c.run(ctx, a.ledger, os.Stdout, client)
	})
}

func (c *addClientCmd) run(ctx context.Context, l *ledger.Store, w io.Writer, client core.Client) error {
	saved, err := l.UpsertClient(ctx, client)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "client %s %q\n", saved.ID, saved.Name)
	return err
}

type addTargetCmd struct {
	client, title, amount, due string
}

func (*addTargetCmd) Name() string     { return "add-target" }
func (*addTargetCmd) Synopsis() string { return "open a billable engagement for a client" }
func (*addTargetCmd) Usage() string {
	return `add-target -client <id> -title <title> -amount <total> [-due <YYYY-MM-DD>]
`
}

func (c *addTargetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.client, "client", "", "client id (required)")
	f.StringVar(&c.title, "title", "", "engagement title (required)")
	f.StringVar(&c.amount, "amount", "", "total amount (required)")
	f.StringVar(&c.due, "due", "", "due date")
}

func (c *addTargetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	total, err := parseAmountFlag("amount", c.amount, true)
	if err != nil {
		return usageError(err)
	}
	target := core.PaymentTarget{ClientID: c.client, Title: c.title, TotalAmount: total, DueDate: c.due}
	return withLedger(ctx, func(ctx context.Context, a *app) error {
		return c.run(ctx, a.ledger, os.Stdout, target)
	})
}

func (c *addTargetCmd) run(ctx context.Context, l *ledger.Store, w io.Writer, t core.PaymentTarget) error {
	saved, err := l.CreatePaymentTarget(ctx, t)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "target %s %q %s\n", saved.ID, saved.Title, saved.Status)
	return err
}

type addPaymentCmd struct {
	target, amount, date, note string
}

func (*addPaymentCmd) Name() string     { return "add-payment" }
func (*addPaymentCmd) Synopsis() string { return "record an installment against an engagement" }
func (*addPaymentCmd) Usage() string {
	return `add-payment -target <id> -amount <amount> [-date <YYYY-MM-DD>] [-note <text>]

  The amount is split into the live, business and save buckets with the
  current ratios, and the engagement's status is updated.
`
}

func (c *addPaymentCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.target, "target", "", "payment target id (required)")
	f.StringVar(&c.amount, "amount", "", "amount paid (required)")
	f.StringVar(&c.date, "date", "", "payment date (default today)")
	f.StringVar(&c.note, "note", "", "note")
}

func (c *addPaymentCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := parseAmountFlag("amount", c.amount, true)
	if err != nil {
		return usageError(err)
	}
	return withLedger(ctx, func(ctx context.Context, a *app) error {
		return c.run(ctx, a.ledger, os.Stdout, amount)
	})
}

func (c *addPaymentCmd) run(ctx context.Context, l *ledger.Store, w io.Writer, amount int64) error {
	part, err := l.AddPaymentPart(ctx, c.target, amount, c.date, c.note)
	if err != nil {
		return err
	}
	currency := l.Settings().Currency
	status := core.Pending
	if t, ok := l.Snapshot().TargetByID(c.target); ok {
		status = t.Status
	}
	_, err = fmt.Fprintf(w, "payment %s %s (live %s, business %s, save %s), target %s\n",
		part.ID,
		core.FormatAmount(part.Amount, currency),
		core.FormatAmount(part.SplitLive, currency),
		core.FormatAmount(part.SplitBusiness, currency),
		core.FormatAmount(part.SplitSave, currency),
		status)
	return err
}

type addExpenseCmd struct {
	amount, category, kind, date, note string
}

func (*addExpenseCmd) Name() string     { return "add-expense" }
func (*addExpenseCmd) Synopsis() string { return "record an expense" }
func (*addExpenseCmd) Usage() string {
	return `add-expense -amount <amount> [-category <name>] [-type business|personal] [-date <YYYY-MM-DD>] [-note <text>]
`
}

func (c *addExpenseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "amount spent (required)")
	f.StringVar(&c.category, "category", "", "expense category (default Autre)")
	f.StringVar(&c.kind, "type", "business", "business or personal")
	f.StringVar(&c.date, "date", "", "expense date (default today)")
	f.StringVar(&c.note, "note", "", "note")
}

func (c *addExpenseCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := parseAmountFlag("amount", c.amount, true)
	if err != nil {
		return usageError(err)
	}
	e := core.Expense{Amount: amount, Category: c.category, Type: core.ExpenseType(c.kind), Date: c.date, Note: c.note}
	if !e.Type.Valid() {
		return usageError(fmt.Errorf("-type: %w", core.ErrInvalidType))
	}
	return withLedger(ctx, func(ctx context.Context, a *app) error {
		return c.run(ctx, a.ledger, os.Stdout, e)
	})
}

func (c *addExpenseCmd) run(ctx context.Context, l *ledger.Store, w io.Writer, e core.Expense) error {
	saved, err := l.UpsertExpense(ctx, e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "expense %s %s %s\n", saved.ID, saved.Category, core.FormatAmount(saved.Amount, l.Settings().Currency))
	return err
}

type addIncomeCmd struct {
	amount, source, date, note string
}

func (*addIncomeCmd) Name() string     { return "add-income" }
func (*addIncomeCmd) Synopsis() string { return "record income not tied to a client" }
func (*addIncomeCmd) Usage() string {
	return `add-income -amount <amount> -source <name> [-date <YYYY-MM-DD>] [-note <text>]
`
}

func (c *addIncomeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "amount received (required)")
	f.StringVar(&c.source, "source", "", "where it came from (required)")
	f.StringVar(&c.date, "date", "", "date received (default today)")
	f.StringVar(&c.note, "note", "", "note")
}

func (c *addIncomeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := parseAmountFlag("amount", c.amount, true)
	if err != nil {
		return usageError(err)
	}
	return withLedger(ctx, func(ctx context.Context, a *app) error {
		return c.run(ctx, a.ledger, os.Stdout, amount)
	})
}

func (c *addIncomeCmd) run(ctx context.Context, l *ledger.Store, w io.Writer, amount int64) error {
	saved, err := l.AddOtherIncome(ctx, amount, c.date, c.source, c.note)
	if err != nil {
		return err
	}
	currency := l.Settings().Currency
	_, err = fmt.Fprintf(w, "income %s %s (live %s, business %s, save %s)\n",
		saved.ID,
		core.FormatAmount(saved.Amount, currency),
		core.FormatAmount(saved.SplitLive, currency),
		core.FormatAmount(saved.SplitBusiness, currency),
		core.FormatAmount(saved.SplitSave, currency))
	return err
}
