package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"caisse/internal/core"
	"caisse/internal/ledger"
)

type feedbackCmd struct {
	client  string
	token   string
	rating  int
	comment string
}

func (*feedbackCmd) Name() string     { return "feedback" }
func (*feedbackCmd) Synopsis() string { return "issue a feedback token or submit a rating" }
func (*feedbackCmd) Usage() string {
	return `feedback -client <id>
feedback -token <token> -rating <1-5> [-comment <text>]

  With -client, issues a new feedback token for the client.
  With -token, submits the rating for that token. A token can be used once.
`
}

func (c *feedbackCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.client, "client", "", "client id to issue a token for")
	f.StringVar(&c.token, "token", "", "feedback token to submit")
	f.IntVar(&c.rating, "rating", 0, "rating from 1 to 5")
	f.StringVar(&c.comment, "comment", "", "comment")
}

func (c *feedbackCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if (c.client == "") == (c.token == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -client or -token is required.")
		return subcommands.ExitUsageError
	}
	if c.token != "" && !core.ValidRating(c.rating) {
		return usageError(core.ErrInvalidRating)
	}
	return withLedger(ctx, func(ctx context.Context, a *app) error {
		return c.run(ctx, a.ledger, os.Stdout)
	})
}

func (c *feedbackCmd) run(ctx context.Context, l *ledger.Store, w io.Writer) error {
	if c.client != "" {
		f, err := l.CreateFeedbackToken(ctx, c.client)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "token %s\n", f.Token)
		return err
	}
	f, err := l.SubmitFeedback(ctx, c.token, c.rating, c.comment)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "feedback %s rated %d\n", f.ID, f.Rating)
	return err
}

type ratiosCmd struct {
	live, business, save float64
}

func (*ratiosCmd) Name() string     { return "ratios" }
func (*ratiosCmd) Synopsis() string { return "set the live/business/save allocation ratios" }
func (*ratiosCmd) Usage() string {
	return `ratios -live <0..1> -business <0..1> -save <0..1>

  The three ratios must sum to 1. They apply to payments and income
  recorded from now on.
`
}

func (c *ratiosCmd) SetFlags(f *flag.FlagSet) {
	def := core.DefaultSettings().Ratios
	f.Float64Var(&c.live, "live", def.Live, "share kept for living costs")
	f.Float64Var(&c.business, "business", def.Business, "share reinvested in the business")
	f.Float64Var(&c.save, "save", def.Save, "share saved")
}

func (c *ratiosCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r := core.Ratios{Live: c.live, Business: c.business, Save: c.save}
	if err := r.Validate(); err != nil {
		return usageError(err)
	}
	return withLedger(ctx, func(ctx context.Context, a *app) error {
		return c.run(ctx, a.ledger, os.Stdout, r)
	})
}

func (c *ratiosCmd) run(ctx context.Context, l *ledger.Store, w io.Writer, r core.Ratios) error {
	s, err := l.UpdateRatios(ctx, r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "ratios live %.2f business %.2f save %.2f\n", s.Ratios.Live, s.Ratios.Business, s.Ratios.Save)
	return err
}
