package ledger

import (
	"context"
	"errors"
	"fmt"

	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/remote"
)

var (
	// ErrReferenceNotFound means a mutation named a parent record that is
	// not in the ledger.
	ErrReferenceNotFound = errors.New("referenced record not found")
	// ErrFeedbackSubmitted means the feedback token was already used.
	ErrFeedbackSubmitted = errors.New("feedback already submitted")
	// ErrClosed is returned by mutations after Close.
	ErrClosed = errors.New("ledger closed")
)

// WriteError reports a write the remote store refused or could not take.
// The ledger is unchanged when one is returned.
type WriteError struct {
	Op         string
	Collection remote.Collection
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ErrorType maps a ledger failure to a log.ErrorType category.
func ErrorType(err error) string {
	switch {
	case core.IsValidation(err):
		return log.ErrorTypeValidation
	case errors.Is(err, ErrReferenceNotFound), errors.Is(err, remote.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, remote.ErrRejected):
		return log.ErrorTypeConflict
	case errors.Is(err, remote.ErrUnavailable), errors.Is(err, remote.ErrTableMissing):
		return log.ErrorTypeDatabase
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return log.ErrorTypeNetwork
	default:
		return log.ErrorTypeInternal
	}
}

func writeError(op string, c remote.Collection, err error) error {
	return &WriteError{Op: op, Collection: c, Err: err}
}
