package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"caisse/internal/cli"
	"caisse/internal/core"
	"caisse/internal/export"
	"caisse/internal/export/sheets"
	"caisse/internal/ledger"
	"caisse/internal/log"
	"caisse/internal/report"
	"caisse/internal/worker"
)

type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "keep the ledger in sync and export it" }
func (*serveCmd) Usage() string {
	return `serve

  Bootstraps the ledger, follows remote changes, logs the dashboard after
  every update and, when GOOGLE_SPREADSHEET_ID is set, exports the ledger
  to Google Sheets. Stops on SIGINT or SIGTERM.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (*serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	logger := a.logger

	rt := ledger.NewRealtime(a.ledger)
	if err := rt.Start(ctx); err != nil {
		logger.Error("Failed to start realtime", log.FieldError, err)
		a.close()
		return subcommands.ExitFailure
	}

	var exporter *worker.Exporter
	if a.cfg.ExportEnabled() {
		client, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID:   a.cfg.GoogleSpreadsheetID,
			CredentialsJSON: a.cfg.GoogleServiceAccountJSON,
			CredentialsFile: a.cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		} else {
			exporter = worker.NewExporter(a.ledger,
				export.New(client, export.DefaultSheetNames(), logger),
				worker.ExporterConfig{Interval: a.cfg.ExportInterval},
				logger)
			if err := exporter.Start(ctx); err != nil {
				logger.Error("Failed to start exporter", log.FieldError, err)
				exporter = nil
			}
		}
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	logDashboard(logger, a.ledger.Snapshot())
	unwatch := a.ledger.Watch(func(s core.Snapshot) { logDashboard(logger, s) })

	runCtx, done := cli.GracefulShutdown(ctx, logger, a.cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		unwatch()
		if err := rt.Stop(); err != nil {
			logger.Warn("Failed to stop realtime", log.FieldError, err)
		}
		if exporter != nil {
			if err := exporter.Stop(shutdownCtx); err != nil {
				logger.Warn("Failed to stop exporter", log.FieldError, err)
			}
		}
		if err := a.close(); err != nil {
			logger.Warn("Failed to close ledger", log.FieldError, err)
		}
	})

	logger.Info("Ledger running", log.FieldOperation, log.OpStartup, "source", a.source.String(), log.FieldBackend, a.cfg.DataBackend)
	cli.WaitForShutdown(runCtx, done)
	return subcommands.ExitSuccess
}

func logDashboard(logger *log.Logger, s core.Snapshot) {
	d := report.Build(s, time.Now())
	logger.Info("Dashboard",
		log.FieldMonth, d.Month,
		"income", core.FormatAmount(d.MonthlyIncome, d.Currency),
		"expenses", core.FormatAmount(d.MonthlyExpenses, d.Currency),
		"balance", core.FormatAmount(d.Balance, d.Currency),
		"projected", core.FormatAmount(d.ProjectedIncome, d.Currency),
		"suggestions", len(d.Suggestions))
}
