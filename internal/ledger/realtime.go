package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"caisse/internal/log"
	"caisse/internal/remote"
)

// RealtimeCollections are the collections kept fresh by Realtime.
var RealtimeCollections = []remote.Collection{
	remote.Clients,
	remote.PaymentTargets,
	remote.PaymentParts,
	remote.Expenses,
	remote.OtherIncome,
}

// Realtime re-lists a collection whenever the remote reports a change to
// it. Notifications arriving while a reload of the same collection is in
// flight collapse into one follow-up reload.
type Realtime struct {
	store  *Store
	logger *log.Logger

	mu      sync.Mutex
	subs    []remote.Subscription
	reloads map[remote.Collection]*reloadState
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

type reloadState struct {
	active bool
	dirty  bool
}

func NewRealtime(s *Store) *Realtime {
	return &Realtime{
		store:   s,
		logger:  s.logger.WithComponent(log.ComponentRealtime),
		reloads: make(map[remote.Collection]*reloadState),
	}
}

// Start subscribes to every realtime collection. Reloads run until Stop or
// until ctx ends.
func (r *Realtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("realtime already started")
	}
	r.ctx, r.cancel = context.WithCancel(ctx)

	for _, c := range RealtimeCollections {
		sub, err := r.store.remote.Subscribe(c, func() { r.notify(c) })
		if err != nil {
			for _, s := range r.subs {
				s.Unsubscribe()
			}
			r.subs = nil
			r.cancel()
			return fmt.Errorf("subscribe %s: %w", c, err)
		}
		r.subs = append(r.subs, sub)
	}
	r.running = true
	r.logger.Info("Realtime started", log.FieldOperation, log.OpSubscribe, log.FieldCount, len(r.subs))
	return nil
}

// Stop unsubscribes and waits for in-flight reloads to finish.
func (r *Realtime) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	r.cancel()
	r.wg.Wait()
	r.logger.Info("Realtime stopped")
	return errors.Join(errs...)
}

// IsRunning reports whether the invalidator is subscribed.
func (r *Realtime) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Realtime) notify(c remote.Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	st := r.reloads[c]
	if st == nil {
		st = &reloadState{}
		r.reloads[c] = st
	}
	if st.active {
		st.dirty = true
		return
	}
	st.active = true
	r.wg.Add(1)
	go r.reload(r.ctx, c, st)
}

func (r *Realtime) reload(ctx context.Context, c remote.Collection, st *reloadState) {
	defer r.wg.Done()
	for {
		if err := r.store.Reload(ctx, c); err != nil {
			r.logger.Debug("Reload abandoned", log.FieldCollection, string(c), log.FieldError, err)
		}
		r.mu.Lock()
		if st.dirty && ctx.Err() == nil {
			st.dirty = false
			r.mu.Unlock()
			continue
		}
		st.active = false
		st.dirty = false
		r.mu.Unlock()
		return
	}
}
