// Package changefeed carries collection change notifications from the
// remote store to its subscribers. The transport is either in-process
// (Local) or a RabbitMQ topic exchange (AMQP).
package changefeed

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed feed.
var ErrClosed = errors.New("changefeed closed")

// Cancel stops a subscription.
type Cancel func() error

// Feed publishes changes and fans them out to subscribers of a collection.
type Feed interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(collection string, fn func(Change)) (Cancel, error)
	Close() error
}

// Local delivers changes synchronously to in-process subscribers.
type Local struct {
	mu     sync.Mutex
	subs   map[string]map[int]func(Change)
	nextID int
	closed bool
}

// NewLocal creates an empty in-process feed.
func NewLocal() *Local {
	return &Local{subs: make(map[string]map[int]func(Change))}
}

// Publish calls every subscriber of c.Collection. Handlers run on the
// caller's goroutine without the feed's lock held.
func (l *Local) Publish(ctx context.Context, c Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	handlers := make([]func(Change), 0, len(l.subs[c.Collection]))
	for _, fn := range l.subs[c.Collection] {
		handlers = append(handlers, fn)
	}
	l.mu.Unlock()

	for _, fn := range handlers {
		fn(c)
	}
	return nil
}

func (l *Local) Subscribe(collection string, fn func(Change)) (Cancel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if l.subs[collection] == nil {
		l.subs[collection] = make(map[int]func(Change))
	}
	id := l.nextID
	l.nextID++
	l.subs[collection][id] = fn

	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[collection], id)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// Subscribers returns the number of live subscriptions on collection.
func (l *Local) Subscribers(collection string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[collection])
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.subs = make(map[string]map[int]func(Change))
	return nil
}
