package memory

import (
	"context"
	"errors"
	"testing"

	"caisse/internal/remote"
)

func seedClient(t *testing.T, s *Store) (clientID, targetID string) {
	t.Helper()
	ctx := context.Background()
	c, err := s.Insert(ctx, remote.Clients, remote.Record{"name": "Pâtisserie Douceur", "type": "patisserie"})
	if err != nil {
		t.Fatalf("Insert(client) error = %v", err)
	}
	pt, err := s.Insert(ctx, remote.PaymentTargets, remote.Record{
		"client_id": c.ID(), "title": "Shooting", "total_amount": int64(150000),
	})
	if err != nil {
		t.Fatalf("Insert(target) error = %v", err)
	}
	return c.ID(), pt.ID()
}

func TestInsertAppliesDefaults(t *testing.T) {
	s := New()
	_, targetID := seedClient(t, s)

	rows, err := s.List(context.Background(), remote.PaymentTargets)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ID() != targetID {
		t.Fatalf("unexpected rows: %v", rows)
	}
	if rows[0]["status"] != "pending" || rows[0]["created_at"] == "" {
		t.Errorf("defaults not applied: %v", rows[0])
	}
}

func TestPartInsertRecomputesStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, targetID := seedClient(t, s)

	status := func() string {
		rows, _ := s.List(ctx, remote.PaymentTargets)
		return remote.AsString(rows[0]["status"])
	}

	if _, err := s.Insert(ctx, remote.PaymentParts, remote.Record{"payment_target_id": targetID, "amount": int64(60000)}); err != nil {
		t.Fatalf("Insert(part) error = %v", err)
	}
	if got := status(); got != "partial" {
		t.Errorf("status = %s, want partial", got)
	}
	if _, err := s.Insert(ctx, remote.PaymentParts, remote.Record{"payment_target_id": targetID, "amount": int64(90000)}); err != nil {
		t.Fatalf("Insert(part) error = %v", err)
	}
	if got := status(); got != "paid" {
		t.Errorf("status = %s, want paid", got)
	}
}

func TestForeignKeysAndConstraints(t *testing.T) {
	s := New()
	ctx := context.Background()
	clientID, _ := seedClient(t, s)

	cases := []struct {
		name string
		c    remote.Collection
		rec  remote.Record
	}{
		{"part for unknown target", remote.PaymentParts, remote.Record{"payment_target_id": "nope", "amount": int64(1)}},
		{"target for unknown client", remote.PaymentTargets, remote.Record{"client_id": "nope", "title": "x", "total_amount": int64(1)}},
		{"zero expense", remote.Expenses, remote.Record{"amount": int64(0), "category": "Loyer"}},
		{"duplicate client id", remote.Clients, remote.Record{"id": clientID, "name": "dup"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Insert(ctx, tc.c, tc.rec); !errors.Is(err, remote.ErrRejected) {
				t.Errorf("Insert() error = %v, want ErrRejected", err)
			}
		})
	}

	if _, err := s.Insert(ctx, remote.Feedbacks, remote.Record{"client_id": clientID, "token": "tok"}); err != nil {
		t.Fatalf("Insert(feedback) error = %v", err)
	}
	if _, err := s.Insert(ctx, remote.Feedbacks, remote.Record{"client_id": clientID, "token": "tok"}); !errors.Is(err, remote.ErrRejected) {
		t.Errorf("duplicate token error = %v, want ErrRejected", err)
	}
}

func TestDeleteClientCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	clientID, targetID := seedClient(t, s)
	otherID, otherTarget := seedClient(t, s)

	s.Insert(ctx, remote.PaymentParts, remote.Record{"payment_target_id": targetID, "amount": int64(10)})
	s.Insert(ctx, remote.PaymentParts, remote.Record{"payment_target_id": otherTarget, "amount": int64(10)})
	s.Insert(ctx, remote.Feedbacks, remote.Record{"client_id": clientID, "token": "a"})
	s.Insert(ctx, remote.Feedbacks, remote.Record{"client_id": otherID, "token": "b"})

	if err := s.Delete(ctx, remote.Clients, clientID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for c, want := range map[remote.Collection]int{
		remote.Clients:        1,
		remote.PaymentTargets: 1,
		remote.PaymentParts:   1,
		remote.Feedbacks:      1,
	} {
		rows, _ := s.List(ctx, c)
		if len(rows) != want {
			t.Errorf("%s has %d rows, want %d", c, len(rows), want)
		}
	}
	if err := s.Delete(ctx, remote.Clients, "unknown"); err != nil {
		t.Errorf("Delete(unknown) error = %v", err)
	}
}

func TestUpsertAndUpdate(t *testing.T) {
	s := New()
	ctx := context.Background()

	rec, err := s.Upsert(ctx, remote.Settings, remote.Record{"id": "default", "currency": "FCFA"}, "id")
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if rec["currency"] != "FCFA" {
		t.Errorf("currency = %v", rec["currency"])
	}
	if _, err := s.Upsert(ctx, remote.Settings, remote.Record{"id": "default", "currency": "EUR"}, "id"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	rows, _ := s.List(ctx, remote.Settings)
	if len(rows) != 1 || rows[0]["currency"] != "EUR" {
		t.Errorf("unexpected settings rows: %v", rows)
	}

	if _, err := s.Update(ctx, remote.Expenses, "missing", remote.Record{"amount": int64(3)}); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	exp, _ := s.Insert(ctx, remote.Expenses, remote.Record{"amount": int64(5), "category": "Loyer"})
	upd, err := s.Update(ctx, remote.Expenses, exp.ID(), remote.Record{"amount": int64(8), "id": "hijack"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if upd.ID() != exp.ID() || remote.AsInt64(upd["amount"]) != 8 {
		t.Errorf("unexpected update result: %v", upd)
	}
}

func TestMissingTable(t *testing.T) {
	s := New(WithTables(remote.Clients, remote.Expenses))
	ctx := context.Background()

	if _, err := s.List(ctx, remote.OtherIncome); !errors.Is(err, remote.ErrTableMissing) {
		t.Errorf("List() error = %v, want ErrTableMissing", err)
	}
	_, err := s.Insert(ctx, remote.OtherIncome, remote.Record{"amount": int64(1)})
	if !errors.Is(err, remote.ErrRejected) || !errors.Is(err, remote.ErrTableMissing) {
		t.Errorf("Insert() error = %v, want ErrRejected wrapping ErrTableMissing", err)
	}
}

func TestFaultsAndListIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	s.SetFault(remote.Clients, "*", boom)
	if _, err := s.List(ctx, remote.Clients); !errors.Is(err, boom) {
		t.Errorf("List() error = %v, want injected fault", err)
	}
	s.SetFault(remote.Clients, "*", nil)

	s.Seed(remote.Clients, remote.Record{"id": "c1", "name": "A"})
	rows, _ := s.List(ctx, remote.Clients)
	rows[0]["name"] = "mutated"
	again, _ := s.List(ctx, remote.Clients)
	if again[0]["name"] != "A" {
		t.Errorf("List() leaked internal state: %v", again[0])
	}
	if s.Calls(remote.Clients, "list") != 3 {
		t.Errorf("Calls(list) = %d, want 3", s.Calls(remote.Clients, "list"))
	}
}

func TestSubscribeNotifiesOnWrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	var clients, targets int
	sub, err := s.Subscribe(remote.Clients, func() { clients++ })
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	s.Subscribe(remote.PaymentTargets, func() { targets++ })

	clientID, targetID := seedClient(t, s)
	s.Insert(ctx, remote.PaymentParts, remote.Record{"payment_target_id": targetID, "amount": int64(5)})
	if clients != 1 {
		t.Errorf("clients notified %d times, want 1", clients)
	}
	if targets != 2 {
		t.Errorf("targets notified %d times, want 2 (insert + status recompute)", targets)
	}

	sub.Unsubscribe()
	s.Delete(ctx, remote.Clients, clientID)
	if clients != 1 {
		t.Errorf("unsubscribed handler called")
	}
}
