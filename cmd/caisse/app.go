package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"caisse/internal/backend"
	"caisse/internal/cli"
	"caisse/internal/config"
	"caisse/internal/ledger"
	"caisse/internal/log"
)

// app is a bootstrapped ledger over the configured remote store.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	backend *backend.BackendResult
	ledger  *ledger.Store
	source  ledger.Source
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := cli.LoadAndValidateConfig(cli.SetupLogger("info"))
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	store := ledger.New(res.Store, ledger.WithLogger(logger))
	bctx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout)
	defer cancel()
	source := store.Bootstrap(bctx)
	if source != ledger.SourceRemote {
		logger.Warn("Ledger is not backed by remote data", "source", source.String(), log.FieldBackend, cfg.DataBackend)
	}

	return &app{cfg: cfg, logger: logger, backend: res, ledger: store, source: source}, nil
}

func (a *app) close() error {
	return errors.Join(a.ledger.Close(), a.backend.Cleanup())
}

// withLedger opens the app, runs fn and closes the app. Errors from fn are
// printed to stderr.
func withLedger(ctx context.Context, fn func(context.Context, *app) error) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Warn("Failed to close ledger", log.FieldError, err)
		}
	}()
	if err := fn(ctx, a); err != nil {
		a.logger.Debug("Command failed", log.FieldError, err, log.FieldErrorType, ledger.ErrorType(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
