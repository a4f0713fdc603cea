// Package memory is an in-process remote.Store. It keeps each collection in
// insertion order, emulates the foreign keys and cascades of the SQL schema,
// and recomputes a payment target's status when a part is inserted.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"caisse/internal/changefeed"
	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/remote"
)

type Store struct {
	mu     sync.Mutex
	tables map[remote.Collection][]remote.Record
	faults map[string]error
	calls  map[string]int

	feed   changefeed.Feed
	now    func() time.Time
	logger *log.Logger
}

type Option func(*Store)

// WithTables creates only the listed collections; the others report
// remote.ErrTableMissing.
func WithTables(cs ...remote.Collection) Option {
	return func(s *Store) {
		s.tables = make(map[remote.Collection][]remote.Record, len(cs))
		for _, c := range cs {
			s.tables[c] = nil
		}
	}
}

// WithFeed publishes changes to feed instead of a private local feed.
func WithFeed(feed changefeed.Feed) Option {
	return func(s *Store) { s.feed = feed }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[remote.Collection][]remote.Record, len(remote.Collections)),
		faults: make(map[string]error),
		calls:  make(map[string]int),
		now:    time.Now,
	}
	for _, c := range remote.Collections {
		s.tables[c] = nil
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.feed == nil {
		s.feed = changefeed.NewLocal()
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentRemote)
	return s
}

// SetFault makes op ("list", "insert", "update", "upsert", "delete" or "*")
// on c fail with err until cleared with a nil err.
func (s *Store) SetFault(c remote.Collection, op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := faultKey(c, op)
	if err == nil {
		delete(s.faults, key)
		return
	}
	s.faults[key] = err
}

// Calls returns how many times op was invoked on c.
func (s *Store) Calls(c remote.Collection, op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[faultKey(c, op)]
}

// Seed appends records without checks or notifications.
func (s *Store) Seed(c remote.Collection, recs ...remote.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		rec := r.Clone()
		remote.ApplyDefaults(c, rec, s.now())
		s.tables[c] = append(s.tables[c], rec)
	}
}

// DropTable removes c so that later calls report remote.ErrTableMissing.
func (s *Store) DropTable(c remote.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, c)
}

func (s *Store) List(_ context.Context, c remote.Collection) ([]remote.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(c, "list"); err != nil {
		return nil, err
	}
	rows := s.tables[c]
	out := make([]remote.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, c remote.Collection, r remote.Record) (remote.Record, error) {
	s.mu.Lock()
	if err := s.enter(c, "insert"); err != nil {
		s.mu.Unlock()
		return nil, writeErr(err)
	}
	rec := r.Clone()
	remote.ApplyDefaults(c, rec, s.now())
	if err := s.check(c, rec, ""); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.tables[c] = append(s.tables[c], rec)
	touched := []remote.Collection{c}
	if c == remote.PaymentParts {
		s.recomputeStatus(remote.AsString(rec["payment_target_id"]))
		touched = append(touched, remote.PaymentTargets)
	}
	out := rec.Clone()
	s.mu.Unlock()

	s.publish(ctx, changefeed.OpInsert, out.ID(), touched...)
	return out, nil
}

func (s *Store) Update(ctx context.Context, c remote.Collection, id string, patch remote.Record) (remote.Record, error) {
	s.mu.Lock()
	if err := s.enter(c, "update"); err != nil {
		s.mu.Unlock()
		return nil, writeErr(err)
	}
	i := s.indexOf(c, "id", id)
	if i < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("update %s %q: %w", c, id, remote.ErrNotFound)
	}
	rec := s.tables[c][i].Clone()
	for k, v := range patch {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	if err := s.check(c, rec, id); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.replace(c, i, rec)
	out := rec.Clone()
	s.mu.Unlock()

	s.publish(ctx, changefeed.OpUpdate, id, c)
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, c remote.Collection, r remote.Record, conflictKey string) (remote.Record, error) {
	if conflictKey == "" {
		conflictKey = "id"
	}
	s.mu.Lock()
	if err := s.enter(c, "upsert"); err != nil {
		s.mu.Unlock()
		return nil, writeErr(err)
	}
	i := -1
	if v, ok := r[conflictKey]; ok {
		i = s.indexOf(c, conflictKey, remote.AsString(v))
	}
	var rec remote.Record
	if i >= 0 {
		rec = s.tables[c][i].Clone()
		for k, v := range r {
			rec[k] = v
		}
	} else {
		rec = r.Clone()
		remote.ApplyDefaults(c, rec, s.now())
	}
	self := ""
	if i >= 0 {
		self = s.tables[c][i].ID()
	}
	if err := s.check(c, rec, self); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if i >= 0 {
		s.replace(c, i, rec)
	} else {
		s.tables[c] = append(s.tables[c], rec)
	}
	out := rec.Clone()
	s.mu.Unlock()

	s.publish(ctx, changefeed.OpUpsert, out.ID(), c)
	return out, nil
}

// Delete removes the record with id. Deleting a client cascades to its
// payment targets, their parts and its feedback. Unknown ids are a no-op.
func (s *Store) Delete(ctx context.Context, c remote.Collection, id string) error {
	s.mu.Lock()
	if err := s.enter(c, "delete"); err != nil {
		s.mu.Unlock()
		return writeErr(err)
	}
	if s.indexOf(c, "id", id) < 0 {
		s.mu.Unlock()
		return nil
	}
	touched := []remote.Collection{c}
	s.retain(c, func(r remote.Record) bool { return r.ID() != id })
	if c == remote.Clients {
		targets := map[string]bool{}
		for _, t := range s.tables[remote.PaymentTargets] {
			if remote.AsString(t["client_id"]) == id {
				targets[t.ID()] = true
			}
		}
		s.retain(remote.PaymentTargets, func(r remote.Record) bool { return !targets[r.ID()] })
		s.retain(remote.PaymentParts, func(r remote.Record) bool {
			return !targets[remote.AsString(r["payment_target_id"])]
		})
		s.retain(remote.Feedbacks, func(r remote.Record) bool { return remote.AsString(r["client_id"]) != id })
		touched = append(touched, remote.PaymentTargets, remote.PaymentParts, remote.Feedbacks)
	}
	s.mu.Unlock()

	s.publish(ctx, changefeed.OpDelete, id, touched...)
	return nil
}

func (s *Store) Subscribe(c remote.Collection, onChange func()) (remote.Subscription, error) {
	cancel, err := s.feed.Subscribe(string(c), func(changefeed.Change) { onChange() })
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c, err)
	}
	return remote.SubscriptionFunc(cancel), nil
}

// Close closes the store's feed.
func (s *Store) Close() error {
	return s.feed.Close()
}

// enter counts the call and returns an injected fault or a missing-table
// error. Callers hold s.mu.
func (s *Store) enter(c remote.Collection, op string) error {
	s.calls[faultKey(c, op)]++
	if err, ok := s.faults[faultKey(c, op)]; ok {
		return err
	}
	if err, ok := s.faults[faultKey(c, "*")]; ok {
		return err
	}
	if _, ok := s.tables[c]; !ok {
		return fmt.Errorf("relation %q does not exist: %w", c, remote.ErrTableMissing)
	}
	return nil
}

// check enforces the constraints of the SQL schema. self is the id of the
// row being replaced, if any.
func (s *Store) check(c remote.Collection, rec remote.Record, self string) error {
	reject := func(format string, args ...any) error {
		return fmt.Errorf("%s: %s: %w", c, fmt.Sprintf(format, args...), remote.ErrRejected)
	}
	if self == "" && s.indexOf(c, "id", rec.ID()) >= 0 {
		return reject("duplicate id %q", rec.ID())
	}
	switch c {
	case remote.PaymentTargets:
		if remote.AsInt64(rec["total_amount"]) <= 0 {
			return reject("total_amount must be positive")
		}
		if !s.exists(remote.Clients, remote.AsString(rec["client_id"])) {
			return reject("unknown client %q", rec["client_id"])
		}
	case remote.PaymentParts:
		if remote.AsInt64(rec["amount"]) <= 0 {
			return reject("amount must be positive")
		}
		if !s.exists(remote.PaymentTargets, remote.AsString(rec["payment_target_id"])) {
			return reject("unknown payment target %q", rec["payment_target_id"])
		}
	case remote.Expenses, remote.OtherIncome:
		if remote.AsInt64(rec["amount"]) <= 0 {
			return reject("amount must be positive")
		}
	case remote.Feedbacks:
		if !s.exists(remote.Clients, remote.AsString(rec["client_id"])) {
			return reject("unknown client %q", rec["client_id"])
		}
		token := remote.AsString(rec["token"])
		for _, r := range s.tables[c] {
			if r.ID() != self && token != "" && remote.AsString(r["token"]) == token {
				return reject("duplicate token")
			}
		}
	}
	return nil
}

func (s *Store) exists(c remote.Collection, id string) bool {
	return id != "" && s.indexOf(c, "id", id) >= 0
}

func (s *Store) recomputeStatus(targetID string) {
	i := s.indexOf(remote.PaymentTargets, "id", targetID)
	if i < 0 {
		return
	}
	var parts []core.PaymentPart
	for _, p := range s.tables[remote.PaymentParts] {
		if remote.AsString(p["payment_target_id"]) == targetID {
			parts = append(parts, core.PaymentPart{Amount: remote.AsInt64(p["amount"])})
		}
	}
	t := s.tables[remote.PaymentTargets][i].Clone()
	t["status"] = string(core.DeriveStatus(remote.AsInt64(t["total_amount"]), parts))
	s.replace(remote.PaymentTargets, i, t)
}

func (s *Store) indexOf(c remote.Collection, key, value string) int {
	for i, r := range s.tables[c] {
		if remote.AsString(r[key]) == value {
			return i
		}
	}
	return -1
}

// replace swaps row i for rec without touching the backing array that
// earlier List results may share.
func (s *Store) replace(c remote.Collection, i int, rec remote.Record) {
	rows := append([]remote.Record(nil), s.tables[c]...)
	rows[i] = rec
	s.tables[c] = rows
}

// retain keeps the rows of c for which keep is true. Missing tables stay
// missing.
func (s *Store) retain(c remote.Collection, keep func(remote.Record) bool) {
	rows, ok := s.tables[c]
	if !ok {
		return
	}
	out := make([]remote.Record, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	s.tables[c] = out
}

func (s *Store) publish(ctx context.Context, op changefeed.Op, id string, cs ...remote.Collection) {
	for _, c := range cs {
		if err := s.feed.Publish(ctx, changefeed.NewChange(string(c), op, id)); err != nil {
			s.logger.Warn("Failed to publish change",
				log.FieldCollection, string(c),
				log.FieldOperation, string(op),
				log.FieldError, err)
		}
	}
}

// writeErr classifies a missing table on the write path as a rejection.
func writeErr(err error) error {
	if errors.Is(err, remote.ErrTableMissing) {
		return fmt.Errorf("%w: %w", remote.ErrRejected, err)
	}
	return err
}

func faultKey(c remote.Collection, op string) string {
	return string(c) + ":" + op
}
