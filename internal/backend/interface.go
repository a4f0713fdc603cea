// Package backend builds the remote store and its change feed from
// configuration.
package backend

import (
	"context"

	"caisse/internal/changefeed"
	"caisse/internal/remote"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the remote store, the feed it publishes changes to,
// and a cleanup that releases both.
type BackendResult struct {
	Store   remote.Store
	Feed    changefeed.Feed
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Change notifications; empty URL uses an in-process feed
	AMQPURL          string
	AMQPExchange     string
	AMQPDialAttempts int
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
