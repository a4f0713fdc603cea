package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/remote"
)

func TestErrorType(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{core.ErrInvalidAmount, log.ErrorTypeValidation},
		{fmt.Errorf("expense: %w", core.ErrEmptyCategory), log.ErrorTypeValidation},
		{ErrReferenceNotFound, log.ErrorTypeNotFound},
		{writeError(log.OpUpdate, remote.Feedbacks, remote.ErrNotFound), log.ErrorTypeNotFound},
		{writeError(log.OpCreate, remote.Clients, remote.ErrRejected), log.ErrorTypeConflict},
		{fmt.Errorf("list: %w", remote.ErrUnavailable), log.ErrorTypeDatabase},
		{remote.ErrTableMissing, log.ErrorTypeDatabase},
		{context.DeadlineExceeded, log.ErrorTypeNetwork},
		{errors.New("boom"), log.ErrorTypeInternal},
	}
	for _, tc := range cases {
		if got := ErrorType(tc.err); got != tc.want {
			t.Fatalf("ErrorType(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
