package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"caisse/internal/core"
	"caisse/internal/report"
)

type dashboardCmd struct {
	at   string
	text bool
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "print the dashboard figures" }
func (*dashboardCmd) Usage() string {
	return `dashboard [-at <YYYY-MM-DD>] [-text]

  Prints the monthly income, expenses, bucket shares, recent activity and
  suggestions as JSON, or as a short summary with -text.
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.at, "at", "", "compute the dashboard as of this date (default today)")
	f.BoolVar(&c.text, "text", false, "print a text summary instead of JSON")
}

func (c *dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	now := time.Now()
	if c.at != "" {
		t, err := time.ParseInLocation(time.DateOnly, c.at, time.Local)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -at date %q\n", c.at)
			return subcommands.ExitUsageError
		}
		now = t
	}
	return withLedger(ctx, func(_ context.Context, a *app) error {
		d := report.Build(a.ledger.Snapshot(), now)
		if c.text {
			return writeSummary(os.Stdout, d)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	})
}

func writeSummary(w io.Writer, d report.Dashboard) error {
	amount := func(v int64) string { return core.FormatAmount(v, d.Currency) }
	lines := []string{
		fmt.Sprintf("Month      %s", d.Month),
		fmt.Sprintf("Income     %s", amount(d.MonthlyIncome)),
		fmt.Sprintf("Expenses   %s", amount(d.MonthlyExpenses)),
		fmt.Sprintf("Balance    %s", amount(d.Balance)),
		fmt.Sprintf("Projected  %s", amount(d.ProjectedIncome)),
		fmt.Sprintf("Buckets    live %.0f%%, business %.0f%%, save %.0f%%",
			d.Buckets.Live*100, d.Buckets.Business*100, d.Buckets.Save*100),
	}
	for _, a := range d.RecentActivity {
		lines = append(lines, fmt.Sprintf("  %s  %-24s %-20s %s", a.Date, a.Name, a.Title, amount(a.Amount)))
	}
	for _, s := range d.Suggestions {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", s.Severity, s.Title, s.Message))
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
