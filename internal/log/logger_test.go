package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}).WithComponent(ComponentLedger)

	if l.Component() != ComponentLedger {
		t.Fatalf("unexpected component %q", l.Component())
	}
	l.Info("hello", FieldCount, 3)
	out := buf.String()
	if !strings.Contains(out, "component="+ComponentLedger) || !strings.Contains(out, "count=3") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithOperation(OpCreate).
		WithCollection("clients", "c1").
		WithError(errors.New("boom")).
		WithErrorType(ErrorTypeConflict)

	want := map[string]any{
		FieldOperation:  OpCreate,
		FieldCollection: "clients",
		FieldID:         "c1",
		FieldError:      "boom",
		FieldErrorType:  ErrorTypeConflict,
	}
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("%s = %v, want %v", k, fields[k], v)
		}
	}
	if got := len(fields.ToSlice()); got != 2*len(want) {
		t.Fatalf("expected %d slice entries, got %d", 2*len(want), got)
	}

	empty := NewFields().WithCollection("expenses", "").WithError(nil)
	if _, ok := empty[FieldID]; ok {
		t.Fatal("empty id should be omitted")
	}
	if _, ok := empty[FieldError]; ok {
		t.Fatal("nil error should be omitted")
	}
}
