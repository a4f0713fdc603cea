// Package storage is the SQLite implementation of remote.Store. Every
// collection is a table; foreign keys cascade client deletes and a trigger
// keeps payment target status in step with the recorded parts.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"

	"caisse/internal/changefeed"
	"caisse/internal/log"
	"caisse/internal/remote"
)

// sqliteConstraint is the primary result code of every constraint violation.
const sqliteConstraint = 19

type SQLiteStore struct {
	db     *sql.DB
	feed   changefeed.Feed
	now    func() time.Time
	logger *log.Logger
}

type Option func(*SQLiteStore)

// WithFeed publishes changes to feed. Without it a private local feed is
// used and only subscribers in this process are notified.
func WithFeed(feed changefeed.Feed) Option {
	return func(s *SQLiteStore) { s.feed = feed }
}

func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// DSN returns the connection string for dbPath with foreign keys enforced.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.feed == nil {
		s.feed = changefeed.NewLocal()
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentStorage)
	return s, nil
}

// Close closes the database. The feed belongs to whoever supplied it.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, c remote.Collection) ([]remote.Record, error) {
	cols, err := columns(c)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", columnList(cols), c)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify("list", c, err)
	}
	defer rows.Close()

	var out []remote.Record
	for rows.Next() {
		rec, err := scanRecord(rows, cols)
		if err != nil {
			return nil, classify("list", c, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", c, err)
	}
	return out, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, c remote.Collection, r remote.Record) (remote.Record, error) {
	cols, err := columns(c)
	if err != nil {
		return nil, writeErr(err)
	}
	rec := r.Clone()
	remote.ApplyDefaults(c, rec, s.now())
	names, args, err := bindings(c, rec)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		c, strings.Join(names, ", "), placeholders(len(names)), columnList(cols))

	out, err := scanRecord(s.db.QueryRowContext(ctx, query, args...), cols)
	if err != nil {
		return nil, classify("insert", c, err)
	}

	touched := []remote.Collection{c}
	if c == remote.PaymentParts {
		touched = append(touched, remote.PaymentTargets)
	}
	s.publish(ctx, changefeed.OpInsert, out.ID(), touched...)
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, c remote.Collection, id string, patch remote.Record) (remote.Record, error) {
	cols, err := columns(c)
	if err != nil {
		return nil, writeErr(err)
	}
	p := patch.Clone()
	delete(p, "id")
	names, args, err := bindings(c, p)
	if err != nil {
		return nil, err
	}

	var query string
	if len(names) == 0 {
		query = fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", columnList(cols), c)
	} else {
		sets := make([]string, len(names))
		for i, n := range names {
			sets[i] = n + " = ?"
		}
		query = fmt.Sprintf("UPDATE %s SET %s WHERE id = ? RETURNING %s",
			c, strings.Join(sets, ", "), columnList(cols))
	}
	args = append(args, id)

	out, err := scanRecord(s.db.QueryRowContext(ctx, query, args...), cols)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update %s %q: %w", c, id, remote.ErrNotFound)
	}
	if err != nil {
		return nil, classify("update", c, err)
	}
	s.publish(ctx, changefeed.OpUpdate, id, c)
	return out, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, c remote.Collection, r remote.Record, conflictKey string) (remote.Record, error) {
	cols, err := columns(c)
	if err != nil {
		return nil, writeErr(err)
	}
	if conflictKey == "" {
		conflictKey = "id"
	}
	if !conflictAllowed(c, conflictKey) {
		return nil, fmt.Errorf("upsert %s: %q is not unique: %w", c, conflictKey, remote.ErrRejected)
	}

	rec := r.Clone()
	remote.ApplyDefaults(c, rec, s.now())
	names, args, err := bindings(c, rec)
	if err != nil {
		return nil, err
	}

	// Only columns the caller supplied overwrite an existing row.
	var updates []string
	for _, n := range names {
		if _, ok := r[n]; !ok || n == conflictKey || n == "id" || n == "created_at" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", n, n))
	}
	action := "NOTHING"
	if len(updates) > 0 {
		action = "UPDATE SET " + strings.Join(updates, ", ")
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO %s RETURNING %s",
		c, strings.Join(names, ", "), placeholders(len(names)), conflictKey, action, columnList(cols))

	out, err := scanRecord(s.db.QueryRowContext(ctx, query, args...), cols)
	if errors.Is(err, sql.ErrNoRows) {
		// DO NOTHING returns no row; read back the existing one.
		out, err = s.get(ctx, c, cols, conflictKey, rec[conflictKey])
	}
	if err != nil {
		return nil, classify("upsert", c, err)
	}
	s.publish(ctx, changefeed.OpUpsert, out.ID(), c)
	return out, nil
}

// Delete removes the record with id; the schema cascades client deletes.
// Unknown ids are a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, c remote.Collection, id string) error {
	if _, err := columns(c); err != nil {
		return writeErr(err)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", c), id)
	if err != nil {
		return classify("delete", c, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	touched := []remote.Collection{c}
	if c == remote.Clients {
		touched = append(touched, remote.PaymentTargets, remote.PaymentParts, remote.Feedbacks)
	}
	s.publish(ctx, changefeed.OpDelete, id, touched...)
	return nil
}

func (s *SQLiteStore) Subscribe(c remote.Collection, onChange func()) (remote.Subscription, error) {
	cancel, err := s.feed.Subscribe(string(c), func(changefeed.Change) { onChange() })
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c, err)
	}
	return remote.SubscriptionFunc(cancel), nil
}

func (s *SQLiteStore) get(ctx context.Context, c remote.Collection, cols []column, key string, value any) (remote.Record, error) {
	col, _ := lookupColumn(c, key)
	v, err := col.toSQL(value)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", columnList(cols), c, key)
	return scanRecord(s.db.QueryRowContext(ctx, query, v), cols)
}

func (s *SQLiteStore) publish(ctx context.Context, op changefeed.Op, id string, cs ...remote.Collection) {
	for _, c := range cs {
		if err := s.feed.Publish(ctx, changefeed.NewChange(string(c), op, id)); err != nil {
			s.logger.Warn("Failed to publish change",
				log.FieldCollection, string(c),
				log.FieldOperation, string(op),
				log.FieldError, err)
		}
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, cols []column) (remote.Record, error) {
	dest := make([]any, len(cols))
	reads := make([]func() (any, bool), len(cols))
	for i, col := range cols {
		dest[i], reads[i] = col.scanTarget()
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec := make(remote.Record, len(cols))
	for i, col := range cols {
		if v, ok := reads[i](); ok {
			rec[col.name] = v
		}
	}
	return rec, nil
}

// bindings returns the known columns present in rec, in schema order, and
// their converted values.
func bindings(c remote.Collection, rec remote.Record) ([]string, []any, error) {
	var names []string
	var args []any
	for _, col := range schema[c] {
		v, ok := rec[col.name]
		if !ok {
			continue
		}
		sv, err := col.toSQL(v)
		if err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %v: %w", c, col.name, err, remote.ErrRejected)
		}
		names = append(names, col.name)
		args = append(args, sv)
	}
	return names, args, nil
}

func columns(c remote.Collection) ([]column, error) {
	cols, ok := schema[c]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q: %w", c, remote.ErrTableMissing)
	}
	return cols, nil
}

func columnList(cols []column) string {
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.name
	}
	return strings.Join(names, ", ")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// classify maps a driver error onto the remote error taxonomy.
func classify(op string, c remote.Collection, err error) error {
	msg := err.Error()
	var se *sqlite.Error
	switch {
	case strings.Contains(msg, "no such table"):
		if op == "list" {
			return fmt.Errorf("%s %s: %w: %v", op, c, remote.ErrTableMissing, err)
		}
		return fmt.Errorf("%s %s: %w: %w: %v", op, c, remote.ErrRejected, remote.ErrTableMissing, err)
	case errors.As(err, &se) && se.Code()&0xff == sqliteConstraint,
		strings.Contains(msg, "constraint failed"):
		return fmt.Errorf("%s %s: %w: %v", op, c, remote.ErrRejected, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, c, err)
	default:
		return fmt.Errorf("%s %s: %w: %v", op, c, remote.ErrUnavailable, err)
	}
}

func writeErr(err error) error {
	return fmt.Errorf("%w: %w", remote.ErrRejected, err)
}
