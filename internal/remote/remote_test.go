package remote

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	rec := Record{"client_id": "c1", "title": "Shooting"}
	ApplyDefaults(PaymentTargets, rec, now)
	if rec.ID() == "" {
		t.Error("expected a generated id")
	}
	if rec["created_at"] != "2026-10-17T09:00:00Z" {
		t.Errorf("created_at = %v", rec["created_at"])
	}
	if rec["status"] != "pending" {
		t.Errorf("status = %v, want pending", rec["status"])
	}

	kept := Record{"id": "e1", "amount": int64(5)}
	ApplyDefaults(Expenses, kept, now)
	if kept.ID() != "e1" {
		t.Errorf("id overwritten: %v", kept.ID())
	}
	if _, ok := kept["created_at"]; ok {
		t.Error("expenses carry no created_at")
	}

	settings := Record{}
	ApplyDefaults(Settings, settings, now)
	if settings.ID() != "default" {
		t.Errorf("settings id = %q", settings.ID())
	}
}

func TestCollectionValid(t *testing.T) {
	for _, c := range Collections {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if Collection("invoices").Valid() {
		t.Error("unknown collection reported valid")
	}
}

func TestCoercion(t *testing.T) {
	int64Cases := []struct {
		in   any
		want int64
	}{
		{int64(5), 5},
		{7, 7},
		{2.5, 3},
		{json.Number("42"), 42},
		{"60000", 60000},
		{[]byte("12"), 12},
		{"abc", 0},
		{nil, 0},
		{[]any{1}, 0},
	}
	for _, tc := range int64Cases {
		if got := AsInt64(tc.in); got != tc.want {
			t.Errorf("AsInt64(%#v) = %d, want %d", tc.in, got, tc.want)
		}
	}

	if AsString(nil) != "" || AsString([]byte("x")) != "x" || AsString(int64(3)) != "3" {
		t.Error("AsString mismatch")
	}
	if AsFloat64("0.4") != 0.4 || AsFloat64(true) != 0 {
		t.Error("AsFloat64 mismatch")
	}

	if got := AsStrings([]any{"a", 1, "b"}); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("AsStrings([]any) = %v", got)
	}
	if got := AsStrings(`["Loyer","Autre"]`); !reflect.DeepEqual(got, []string{"Loyer", "Autre"}) {
		t.Errorf("AsStrings(json) = %v", got)
	}
	if got := AsStrings(map[string]any{}); got != nil {
		t.Errorf("AsStrings(map) = %v, want nil", got)
	}

	m := AsMap(`{"live":0.5}`)
	if AsFloat64(m["live"]) != 0.5 {
		t.Errorf("AsMap(json) = %v", m)
	}
	if AsMap(3) != nil {
		t.Error("AsMap(int) should be nil")
	}
}
