package ledger

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/remote"
)

// Source tells where the bootstrapped state came from.
type Source int

const (
	// SourceRemote means the remote held data and the ledger mirrors it.
	SourceRemote Source = iota
	// SourceDemo means the remote held no primary data and demo records
	// were seeded next to the remote settings.
	SourceDemo
	// SourceFallback means loading failed and the ledger holds demo data
	// with default settings.
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceDemo:
		return "demo"
	case SourceFallback:
		return "fallback"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// Bootstrap loads every collection concurrently and installs the result.
// A collection that fails to load counts as empty. When the four primary
// collections are all empty, demo data is seeded; when loading fails as a
// whole, demo data with default settings is installed instead. Failures are
// logged, never returned, and Ready is closed on return.
//
// The ledger stays usable while loading: a collection changed by a mutation
// or reload during the load keeps its local state and is not overwritten.
func (s *Store) Bootstrap(ctx context.Context) Source {
	defer s.markReady()
	logger := s.logger.WithComponent(log.ComponentBootstrap)
	start := time.Now()
	base := s.Snapshot()

	snap, err := s.load(ctx, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Bootstrap failed, falling back to demo data",
			log.FieldOperation, log.OpBootstrap,
			log.FieldError, err)
		s.install(base, demoSnapshot(s.now(), core.DefaultSettings()))
		return SourceFallback
	}

	source := SourceRemote
	if !snap.HasPrimaryData() {
		logger.InfoContext(ctx, "Remote store holds no data, seeding demo data")
		snap = demoSnapshot(s.now(), snap.Settings)
		source = SourceDemo
	}
	snap = s.install(base, snap)

	logger.InfoContext(ctx, "Bootstrap complete",
		log.FieldOperation, log.OpBootstrap,
		"source", source.String(),
		"clients", len(snap.Clients),
		"payment_targets", len(snap.PaymentTargets),
		"payment_parts", len(snap.PaymentParts),
		"expenses", len(snap.Expenses),
		log.FieldDuration, time.Since(start).Milliseconds())
	return source
}

// load lists all collections and maps them. It fails when the context
// ends, when every list fails, or when mapping panics.
func (s *Store) load(ctx context.Context, logger *log.Logger) (snap core.Snapshot, err error) {
	raw := make([][]remote.Record, len(remote.Collections))
	errs := make([]error, len(remote.Collections))

	var g errgroup.Group
	for i, c := range remote.Collections {
		g.Go(func() error {
			raw[i], errs[i] = s.remote.List(ctx, c)
			return nil
		})
	}
	g.Wait()

	if ctx.Err() != nil {
		return core.Snapshot{}, ctx.Err()
	}
	failed := 0
	for i, e := range errs {
		if e == nil {
			continue
		}
		failed++
		c := remote.Collections[i]
		if errors.Is(e, remote.ErrTableMissing) {
			logger.DebugContext(ctx, "Collection missing, treating as empty", log.FieldCollection, string(c))
		} else {
			logger.WarnContext(ctx, "Failed to load collection, treating as empty",
				log.FieldOperation, log.OpList,
				log.FieldCollection, string(c),
				log.FieldError, e)
		}
		raw[i] = nil
	}
	if failed == len(remote.Collections) {
		return core.Snapshot{}, fmt.Errorf("load all collections: %w", errors.Join(errs...))
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("map records: %v", r)
		}
	}()
	snap = core.EmptySnapshot()
	for i, c := range remote.Collections {
		replaceCollection(&snap, c, raw[i])
	}
	return snap, nil
}

// install merges loaded into the current state and returns the result.
// Records changed locally since base was taken win over loaded ones.
func (s *Store) install(base, loaded core.Snapshot) core.Snapshot {
	return s.apply(func(next *core.Snapshot) {
		next.Clients = mergeLoaded(base.Clients, next.Clients, loaded.Clients, clientKey)
		next.PaymentTargets = mergeLoaded(base.PaymentTargets, next.PaymentTargets, loaded.PaymentTargets, targetKey)
		next.PaymentParts = mergeLoaded(base.PaymentParts, next.PaymentParts, loaded.PaymentParts, partKey)
		next.Expenses = mergeLoaded(base.Expenses, next.Expenses, loaded.Expenses, expenseKey)
		next.Feedbacks = mergeLoaded(base.Feedbacks, next.Feedbacks, loaded.Feedbacks, feedbackKey)
		next.OtherIncome = mergeLoaded(base.OtherIncome, next.OtherIncome, loaded.OtherIncome, otherIncomeKey)
		if reflect.DeepEqual(next.Settings, base.Settings) {
			next.Settings = loaded.Settings
		}
	})
}

// mergeLoaded returns loaded when current still equals base. Otherwise
// records added, changed or deleted in current since base keep their local
// state and every other record comes from loaded, in loaded order followed
// by local additions.
func mergeLoaded[T any](base, current, loaded []T, id func(T) string) []T {
	if reflect.DeepEqual(current, base) {
		return loaded
	}
	before := make(map[string]T, len(base))
	for _, r := range base {
		before[id(r)] = r
	}
	now := make(map[string]T, len(current))
	for _, r := range current {
		now[id(r)] = r
	}
	changed := func(k string) bool {
		b, inBase := before[k]
		c, inCurrent := now[k]
		return inBase != inCurrent || !reflect.DeepEqual(b, c)
	}

	out := make([]T, 0, len(loaded)+len(current))
	seen := make(map[string]bool, len(loaded))
	for _, r := range loaded {
		k := id(r)
		seen[k] = true
		if !changed(k) {
			out = append(out, r)
		} else if c, ok := now[k]; ok {
			out = append(out, c)
		}
	}
	for _, r := range current {
		if k := id(r); !seen[k] && changed(k) {
			out = append(out, r)
		}
	}
	return out
}
