// Package remote defines the contract of the authoritative store the ledger
// reconciles against. Records cross the boundary as snake_case maps.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Collection names a table in the remote store.
type Collection string

const (
	Clients        Collection = "clients"
	PaymentTargets Collection = "payment_targets"
	PaymentParts   Collection = "payment_parts"
	Expenses       Collection = "expenses"
	Feedbacks      Collection = "feedbacks"
	Settings       Collection = "settings"
	OtherIncome    Collection = "other_income"
)

// Collections lists every collection in load order.
var Collections = []Collection{Clients, PaymentTargets, PaymentParts, Expenses, Feedbacks, Settings, OtherIncome}

func (c Collection) String() string {
	return string(c)
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	for _, k := range Collections {
		if k == c {
			return true
		}
	}
	return false
}

// Record is a raw row keyed by column name.
type Record map[string]any

// ID returns the record's "id" column when it is a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

var (
	// ErrUnavailable means the store could not be reached.
	ErrUnavailable = errors.New("remote store unavailable")
	// ErrTableMissing means the collection does not exist in the store.
	ErrTableMissing = errors.New("remote table missing")
	// ErrRejected means the store refused a write.
	ErrRejected = errors.New("remote write rejected")
	// ErrNotFound means no record matched the id of an update.
	ErrNotFound = errors.New("remote record not found")
)

// Store is the per-collection CRUD and change-notification surface.
type Store interface {
	List(ctx context.Context, c Collection) ([]Record, error)
	Insert(ctx context.Context, c Collection, r Record) (Record, error)
	Update(ctx context.Context, c Collection, id string, patch Record) (Record, error)
	Upsert(ctx context.Context, c Collection, r Record, conflictKey string) (Record, error)
	Delete(ctx context.Context, c Collection, id string) error
	// Subscribe registers onChange for any insert, update or delete on c.
	// No payload is delivered; callers re-list.
	Subscribe(c Collection, onChange func()) (Subscription, error)
}

// Subscription is a handle returned by Subscribe.
type Subscription interface {
	Unsubscribe() error
}

// SubscriptionFunc adapts a function to the Subscription interface.
type SubscriptionFunc func() error

func (f SubscriptionFunc) Unsubscribe() error {
	return f()
}

// ApplyDefaults fills the columns the store generates itself: id,
// created_at where the collection carries one, and the initial status of a
// payment target. rec is modified in place.
func ApplyDefaults(c Collection, rec Record, now time.Time) {
	if rec.ID() == "" {
		if c == Settings {
			rec["id"] = "default"
		} else {
			rec["id"] = uuid.NewString()
		}
	}
	switch c {
	case Clients, PaymentTargets, Feedbacks, OtherIncome:
		if s, _ := rec["created_at"].(string); s == "" {
			rec["created_at"] = now.UTC().Format(time.RFC3339Nano)
		}
	}
	if c == PaymentTargets {
		if s, _ := rec["status"].(string); s == "" {
			rec["status"] = "pending"
		}
	}
}
