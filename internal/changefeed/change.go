package changefeed

import (
	"encoding/json"
	"time"
)

// Op is the kind of write that produced a change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Change is a lightweight notification that a collection was written.
// Subscribers treat it as a signal and re-read the collection.
type Change struct {
	Collection string    `json:"collection"`
	Op         Op        `json:"op"`
	ID         string    `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChange creates a change stamped with the current time.
func NewChange(collection string, op Op, id string) Change {
	return Change{
		Collection: collection,
		Op:         op,
		ID:         id,
		Timestamp:  time.Now().UTC(),
	}
}

// ToJSON converts the change to JSON bytes
func (c Change) ToJSON() ([]byte, error) {
	return json.Marshal(c)
}

// ChangeFromJSON decodes a change published by another process.
func ChangeFromJSON(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, err
	}
	return c, nil
}
