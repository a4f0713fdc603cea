package changefeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"caisse/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection error", errors.New("connection refused"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe error", errors.New("broken pipe"), true},
		{"closed network connection error", errors.New("use of closed network connection"), true},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestAMQP_CircuitBreaker(t *testing.T) {
	feed := &AMQP{exchangeName: "caisse.changes"}

	t.Run("initial state is closed", func(t *testing.T) {
		if feed.isCircuitOpen() {
			t.Error("Circuit breaker should be closed initially")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		atomic.StoreInt64(&feed.failureCount, 3)
		atomic.StoreInt32(&feed.state, StateOpen)

		feed.recordSuccess()

		if feed.isCircuitOpen() {
			t.Error("Circuit breaker should be closed after success")
		}
		if atomic.LoadInt64(&feed.failureCount) != 0 {
			t.Error("Failure count should be reset to 0 after success")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			feed.recordFailure()
		}
		if !feed.isCircuitOpen() {
			t.Error("Circuit breaker should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&feed.state, StateOpen)
		feed.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if feed.isCircuitOpen() {
			t.Error("Circuit should transition to half-open after timeout")
		}
		if atomic.LoadInt32(&feed.state) != StateHalfOpen {
			t.Error("State should be StateHalfOpen after timeout")
		}
	})
}

func TestAMQP_PublishGuards(t *testing.T) {
	feed := &AMQP{exchangeName: "caisse.changes"}

	t.Run("publish fails when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&feed.state, StateOpen)
		feed.lastFailure = time.Now()

		err := feed.Publish(context.Background(), NewChange("clients", OpInsert, "c1"))
		if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Errorf("Publish() = %v, want circuit breaker error", err)
		}
	})

	t.Run("publish respects context cancellation", func(t *testing.T) {
		feed.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := feed.Publish(ctx, NewChange("clients", OpInsert, "c1")); err != context.Canceled {
			t.Errorf("Publish() = %v, want context.Canceled", err)
		}
	})

	t.Run("publish on closed feed", func(t *testing.T) {
		feed.recordSuccess()
		if err := feed.Publish(context.Background(), NewChange("clients", OpInsert, "c1")); !errors.Is(err, ErrClosed) {
			t.Errorf("Publish() = %v, want ErrClosed", err)
		}
	})
}

func TestSubscription_ResubscribesAfterDrop(t *testing.T) {
	first := make(chan amqp091.Delivery)
	second := make(chan amqp091.Delivery, 1)
	var opens atomic.Int32
	got := make(chan Change, 1)

	sub := newSubscription("clients", func(c Change) { got <- c },
		func() (<-chan amqp091.Delivery, func() error, error) {
			if opens.Add(1) == 1 {
				return nil, nil, errors.New("connection closed")
			}
			return second, func() error { close(second); return nil }, nil
		},
		func(int) time.Duration { return time.Millisecond },
		log.Discard())
	sub.closeCh = func() error { return nil }
	go sub.run(first)

	close(first)
	body, err := NewChange("clients", OpUpdate, "c1").ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	second <- amqp091.Delivery{Body: body}

	select {
	case c := <-got:
		if c.Collection != "clients" || c.ID != "c1" {
			t.Errorf("unexpected change %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered after resubscribing")
	}
	if n := opens.Load(); n != 2 {
		t.Errorf("open called %d times, want 2", n)
	}
	if err := sub.cancel(); err != nil {
		t.Errorf("cancel() = %v", err)
	}
}

func TestSubscription_CancelWhileResubscribing(t *testing.T) {
	deliveries := make(chan amqp091.Delivery)
	sub := newSubscription("expenses", func(Change) {},
		func() (<-chan amqp091.Delivery, func() error, error) {
			return nil, nil, errors.New("connection refused")
		},
		func(int) time.Duration { return time.Millisecond },
		log.Discard())
	go sub.run(deliveries)
	close(deliveries)

	time.Sleep(10 * time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- sub.cancel() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancel() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancel blocked while resubscribing")
	}
}

func TestSubscription_EndsWhenFeedClosed(t *testing.T) {
	deliveries := make(chan amqp091.Delivery)
	sub := newSubscription("payment_parts", func(Change) {},
		func() (<-chan amqp091.Delivery, func() error, error) { return nil, nil, ErrClosed },
		func(int) time.Duration { return 0 },
		log.Discard())
	go sub.run(deliveries)
	close(deliveries)

	select {
	case <-sub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription kept retrying on a closed feed")
	}
	if err := sub.cancel(); err != nil {
		t.Errorf("cancel() = %v", err)
	}
}

func TestAMQP_ConsumeOnClosedFeed(t *testing.T) {
	feed := &AMQP{exchangeName: "caisse.changes"}
	if err := feed.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if _, err := feed.Subscribe("clients", func(Change) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() = %v, want ErrClosed", err)
	}
}
