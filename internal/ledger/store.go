// Package ledger holds the authoritative in-memory state of the books and
// keeps it convergent with a remote store.
//
// Readers get immutable snapshots and never block. Every mutation calls the
// remote first and only then applies the canonical response, so a failed
// write leaves the ledger exactly as it was.
package ledger

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/remote"
)

type Store struct {
	remote remote.Store
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	mu      sync.Mutex // serialises apply
	state   atomic.Pointer[core.Snapshot]
	version atomic.Uint64

	watchMu   sync.Mutex
	watchers  map[int]func(core.Snapshot)
	nextWatch int

	ready     chan struct{}
	readyOnce sync.Once
	closed    atomic.Bool
}

type Option func(*Store)

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the time source used for dates and creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the generator of record ids and feedback tokens.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates a ledger over r holding no records and the default settings.
// Call Bootstrap to load it.
func New(r remote.Store, opts ...Option) *Store {
	s := &Store{
		remote:   r,
		now:      time.Now,
		newID:    uuid.NewString,
		watchers: make(map[int]func(core.Snapshot)),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	empty := core.EmptySnapshot()
	s.state.Store(&empty)
	return s
}

// Snapshot returns the current state. Its slices are shared and must not
// be modified.
func (s *Store) Snapshot() core.Snapshot {
	return *s.state.Load()
}

func (s *Store) Clients() []core.Client {
	return slices.Clone(s.state.Load().Clients)
}

func (s *Store) PaymentTargets() []core.PaymentTarget {
	return slices.Clone(s.state.Load().PaymentTargets)
}

func (s *Store) PaymentParts() []core.PaymentPart {
	return slices.Clone(s.state.Load().PaymentParts)
}

func (s *Store) Expenses() []core.Expense {
	return slices.Clone(s.state.Load().Expenses)
}

func (s *Store) Feedbacks() []core.Feedback {
	return slices.Clone(s.state.Load().Feedbacks)
}

func (s *Store) OtherIncome() []core.OtherIncome {
	return slices.Clone(s.state.Load().OtherIncome)
}

func (s *Store) Settings() core.Settings {
	st := s.state.Load().Settings
	st.ExpenseCategories = slices.Clone(st.ExpenseCategories)
	return st
}

// Version increases by one with every applied update.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Watch calls fn with the new snapshot after every applied update, on the
// goroutine that applied it. The returned func removes the watcher.
func (s *Store) Watch(fn func(core.Snapshot)) (cancel func()) {
	s.watchMu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

// Ready is closed once Bootstrap has finished, whatever its outcome.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Close drops all watchers and rejects further mutations. The remote store
// is owned by the caller and stays open.
func (s *Store) Close() error {
	s.closed.Store(true)
	s.watchMu.Lock()
	s.watchers = make(map[int]func(core.Snapshot))
	s.watchMu.Unlock()
	s.markReady()
	return nil
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// apply derives the next snapshot from the current one and publishes it.
// fn must replace slices rather than modify them.
func (s *Store) apply(fn func(next *core.Snapshot)) core.Snapshot {
	s.mu.Lock()
	next := *s.state.Load()
	fn(&next)
	s.state.Store(&next)
	s.version.Add(1)
	s.mu.Unlock()

	s.watchMu.Lock()
	watchers := make([]func(core.Snapshot), 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.watchMu.Unlock()
	for _, w := range watchers {
		w(next)
	}
	return next
}

func (s *Store) today() string {
	return core.DateOf(s.now())
}

func (s *Store) timestamp() string {
	return core.Timestamp(s.now())
}

func replaceOrAppend[T any](items []T, item T, id func(T) string) []T {
	out := make([]T, 0, len(items)+1)
	found := false
	for _, it := range items {
		if id(it) == id(item) {
			out = append(out, item)
			found = true
			continue
		}
		out = append(out, it)
	}
	if !found {
		out = append(out, item)
	}
	return out
}

// replaceIfPresent returns items with the element sharing item's id
// swapped out, or items itself when there is none.
func replaceIfPresent[T any](items []T, item T, id func(T) string) []T {
	i := slices.IndexFunc(items, func(it T) bool { return id(it) == id(item) })
	if i < 0 {
		return items
	}
	out := slices.Clone(items)
	out[i] = item
	return out
}

func appended[T any](items []T, item T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, item)
}

func without[T any](items []T, drop func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !drop(it) {
			out = append(out, it)
		}
	}
	return out
}

func clientKey(c core.Client) string { return c.ID }
func targetKey(t core.PaymentTarget) string { return t.ID }
func partKey(p core.PaymentPart) string { return p.ID }
func expenseKey(e core.Expense) string { return e.ID }
func feedbackKey(f core.Feedback) string { return f.ID }
func otherIncomeKey(i core.OtherIncome) string { return i.ID }
