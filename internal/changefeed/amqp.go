package changefeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"caisse/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// AMQP publishes changes to a topic exchange, routed by collection name.
// Every subscription gets its own exclusive auto-delete queue, so each
// process sees every change.
type AMQP struct {
	url          string
	exchangeName string
	logger       *log.Logger

	// pubMu guards conn, channel and closed.
	conn    *amqp091.Connection
	pubMu   sync.Mutex
	channel *amqp091.Channel
	closed  bool
	closing chan struct{}
	once    sync.Once

	// backoff overrides exponentialBackoff for reconnects and resubscribes.
	backoff func(attempt int) time.Duration

	// circuit breaker
	state        int32
	failureCount int64
	lastFailure  time.Time
	failMu       sync.Mutex
}

// AMQPConfig holds the connection settings of an AMQP feed.
type AMQPConfig struct {
	URL          string
	Exchange     string
	DialAttempts int
	Logger       *log.Logger
}

// NewAMQP dials the broker, retrying connection errors with exponential
// backoff, and declares the topic exchange.
func NewAMQP(ctx context.Context, cfg AMQPConfig) (*AMQP, error) {
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("exchange name is required")
	}
	attempts := cfg.DialAttempts
	if attempts <= 0 {
		attempts = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	f := &AMQP{
		url:          cfg.URL,
		exchangeName: cfg.Exchange,
		logger:       logger.WithComponent(log.ComponentChangefeed),
		closing:      make(chan struct{}),
	}

	var conn *amqp091.Connection
	var channel *amqp091.Channel
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		conn, channel, err = f.connect()
		if err == nil {
			break
		}
		if !isConnectionError(err) || attempt == attempts-1 {
			return nil, err
		}
		wait := f.wait(attempt)
		f.logger.Warn("AMQP dial failed, retrying", "attempt", attempt+1, "wait", wait, log.FieldError, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	f.conn, f.channel = conn, channel
	go f.watch(conn)
	return f, nil
}

// connect dials the broker, opens the publishing channel and declares the
// exchange.
func (f *AMQP) connect() (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(f.url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := f.declare(channel); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("setup exchange: %w", err)
	}
	return conn, channel, nil
}

// watch redials when conn drops, until the feed is closed. Subscriptions
// resubscribe on their own once the new connection is in place.
func (f *AMQP) watch(conn *amqp091.Connection) {
	amqpErr, ok := <-conn.NotifyClose(make(chan *amqp091.Error, 1))
	if !ok || amqpErr == nil {
		return
	}
	f.logger.Warn("AMQP connection lost, reconnecting", log.FieldError, amqpErr)

	for attempt := 0; ; attempt++ {
		select {
		case <-f.closing:
			return
		case <-time.After(f.wait(attempt)):
		}
		next, channel, err := f.connect()
		if err != nil {
			f.logger.Warn("AMQP reconnect failed", "attempt", attempt+1, log.FieldError, err)
			continue
		}
		f.pubMu.Lock()
		if f.closed {
			f.pubMu.Unlock()
			next.Close()
			return
		}
		f.conn, f.channel = next, channel
		f.pubMu.Unlock()
		f.recordSuccess()
		f.logger.Info("AMQP connection restored", "attempt", attempt+1)
		go f.watch(next)
		return
	}
}

func (f *AMQP) wait(attempt int) time.Duration {
	if f.backoff != nil {
		return f.backoff(attempt)
	}
	return exponentialBackoff(attempt)
}

func (f *AMQP) declare(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		f.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
}

// Publish sends c to the exchange with the collection as routing key.
func (f *AMQP) Publish(ctx context.Context, c Change) error {
	if f.isCircuitOpen() {
		return fmt.Errorf("publish change: circuit breaker is open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	f.pubMu.Lock()
	if f.channel == nil {
		f.pubMu.Unlock()
		return ErrClosed
	}
	err = f.channel.PublishWithContext(
		ctx,
		f.exchangeName, // exchange
		c.Collection,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Timestamp:   c.Timestamp,
			Body:        body,
		},
	)
	f.pubMu.Unlock()
	if err != nil {
		f.recordFailure()
		return fmt.Errorf("publish change: %w", err)
	}
	f.recordSuccess()

	f.logger.DebugContext(ctx, "Published change",
		log.FieldCollection, c.Collection,
		log.FieldOperation, string(c.Op),
		log.FieldID, c.ID)
	return nil
}

// Subscribe binds a fresh exclusive queue to the collection's routing key
// and calls fn for every change consumed from it. When the channel drops
// the queue is declared again on the current connection.
func (f *AMQP) Subscribe(collection string, fn func(Change)) (Cancel, error) {
	open := func() (<-chan amqp091.Delivery, func() error, error) { return f.consume(collection) }
	deliveries, closeCh, err := open()
	if err != nil {
		return nil, err
	}
	f.logger.Info("Subscribed to changes", log.FieldCollection, collection)

	sub := newSubscription(collection, fn, open, f.wait, f.logger)
	sub.closeCh = closeCh
	go sub.run(deliveries)
	return sub.cancel, nil
}

func (f *AMQP) consume(collection string) (<-chan amqp091.Delivery, func() error, error) {
	f.pubMu.Lock()
	conn, closed := f.conn, f.closed
	f.pubMu.Unlock()
	if conn == nil || closed {
		return nil, nil, ErrClosed
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, collection, f.exchangeName, false, nil); err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("bind queue: %w", err)
	}
	deliveries, err := ch.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		ch.Close()
		return nil, nil, fmt.Errorf("start consuming: %w", err)
	}
	return deliveries, ch.Close, nil
}

// subscription consumes one collection and reopens its queue after the
// delivery channel closes, until cancelled.
type subscription struct {
	collection string
	fn         func(Change)
	open       func() (<-chan amqp091.Delivery, func() error, error)
	backoff    func(attempt int) time.Duration
	logger     *log.Logger

	mu      sync.Mutex
	closeCh func() error
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSubscription(collection string, fn func(Change),
	open func() (<-chan amqp091.Delivery, func() error, error),
	backoff func(int) time.Duration, logger *log.Logger) *subscription {
	return &subscription{
		collection: collection,
		fn:         fn,
		open:       open,
		backoff:    backoff,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *subscription) run(deliveries <-chan amqp091.Delivery) {
	defer close(s.done)
	for {
		for d := range deliveries {
			c, err := ChangeFromJSON(d.Body)
			if err != nil {
				s.logger.Error("Failed to unmarshal change", log.FieldError, err)
				continue
			}
			s.fn(c)
		}

		s.mu.Lock()
		s.closeCh = nil
		s.mu.Unlock()
		if s.stopped() {
			return
		}
		s.logger.Warn("Change subscription interrupted, resubscribing", log.FieldCollection, s.collection)

		var ok bool
		if deliveries, ok = s.reopen(); !ok {
			return
		}
	}
}

func (s *subscription) reopen() (<-chan amqp091.Delivery, bool) {
	for attempt := 0; ; attempt++ {
		select {
		case <-s.stop:
			return nil, false
		case <-time.After(s.backoff(attempt)):
		}
		deliveries, closeCh, err := s.open()
		if errors.Is(err, ErrClosed) {
			s.logger.Warn("Feed closed, change subscription ended", log.FieldCollection, s.collection)
			return nil, false
		}
		if err != nil {
			s.logger.Warn("Resubscribe failed",
				log.FieldCollection, s.collection,
				"attempt", attempt+1,
				log.FieldError, err)
			continue
		}

		s.mu.Lock()
		if s.stopped() {
			s.mu.Unlock()
			closeCh()
			return nil, false
		}
		s.closeCh = closeCh
		s.mu.Unlock()
		s.logger.Info("Resubscribed to changes", log.FieldCollection, s.collection, "attempt", attempt+1)
		return deliveries, true
	}
}

func (s *subscription) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *subscription) cancel() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		close(s.stop)
		closeCh := s.closeCh
		s.mu.Unlock()
		if closeCh != nil {
			if cerr := closeCh(); cerr != nil && !errors.Is(cerr, amqp091.ErrClosed) {
				err = cerr
			}
		}
		<-s.done
	})
	return err
}

func (f *AMQP) Close() error {
	f.once.Do(func() {
		if f.closing != nil {
			close(f.closing)
		}
	})
	f.pubMu.Lock()
	defer f.pubMu.Unlock()
	f.closed = true
	if f.channel != nil {
		f.channel.Close()
		f.channel = nil
	}
	if f.conn != nil {
		err := f.conn.Close()
		f.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

func (f *AMQP) isCircuitOpen() bool {
	if atomic.LoadInt32(&f.state) != StateOpen {
		return false
	}
	f.failMu.Lock()
	last := f.lastFailure
	f.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&f.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (f *AMQP) recordSuccess() {
	atomic.StoreInt64(&f.failureCount, 0)
	atomic.StoreInt32(&f.state, StateClosed)
}

func (f *AMQP) recordFailure() {
	f.failMu.Lock()
	f.lastFailure = time.Now()
	f.failMu.Unlock()
	if atomic.AddInt64(&f.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&f.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
