package backend

import (
	"context"
	"errors"
	"fmt"

	"caisse/internal/changefeed"
	"caisse/internal/log"
	"caisse/internal/remote/memory"
	"caisse/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	feed := f.createFeed(ctx, config)

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config, feed)
	case MemoryBackend:
		return f.createMemoryBackend(feed), nil
	default:
		feed.Close()
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// createFeed dials AMQP when configured and falls back to an in-process
// feed when the broker is unreachable.
func (f *DefaultFactory) createFeed(ctx context.Context, config Config) changefeed.Feed {
	if config.AMQPURL == "" {
		return changefeed.NewLocal()
	}
	feed, err := changefeed.NewAMQP(ctx, changefeed.AMQPConfig{
		URL:          config.AMQPURL,
		Exchange:     config.AMQPExchange,
		DialAttempts: config.AMQPDialAttempts,
		Logger:       f.logger,
	})
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP feed, continuing with in-process notifications",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeNetwork)
		return changefeed.NewLocal()
	}
	f.logger.Info("Initialized AMQP feed", "exchange", config.AMQPExchange)
	return feed
}

func (f *DefaultFactory) createSQLiteBackend(config Config, feed changefeed.Feed) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath,
		storage.WithFeed(feed),
		storage.WithLogger(f.logger))
	if err != nil {
		feed.Close()
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store: store,
		Feed:  feed,
		Cleanup: func() error {
			return errors.Join(store.Close(), feed.Close())
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(feed changefeed.Feed) *BackendResult {
	store := memory.New(memory.WithFeed(feed), memory.WithLogger(f.logger))

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Store:   store,
		Feed:    feed,
		Cleanup: store.Close,
	}
}
