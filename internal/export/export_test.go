package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"caisse/internal/core"
)

type fakeWriter struct {
	sheets map[string][][]any
	order  []string
	failOn string
}

func (f *fakeWriter) WriteSheet(_ context.Context, sheet string, rows [][]any) (string, error) {
	if sheet == f.failOn {
		return "", errors.New("quota exceeded")
	}
	if f.sheets == nil {
		f.sheets = map[string][][]any{}
	}
	f.sheets[sheet] = rows
	f.order = append(f.order, sheet)
	return sheet + "!A1", nil
}

func snapshot() core.Snapshot {
	s := core.EmptySnapshot()
	s.Clients = []core.Client{{ID: "c1", Name: "Institut Belle"}}
	s.PaymentTargets = []core.PaymentTarget{{ID: "pt1", ClientID: "c1", Title: "Brochure", TotalAmount: 100000, Status: core.Partial}}
	s.PaymentParts = []core.PaymentPart{
		{ID: "pp1", PaymentTargetID: "pt1", Amount: 60000, Date: "2026-10-05", Split: core.Split{SplitLive: 24000, SplitBusiness: 24000, SplitSave: 12000}},
		{ID: "pp2", PaymentTargetID: "gone", Amount: 1000, Date: "2026-10-06"},
	}
	s.Expenses = []core.Expense{{ID: "e1", Amount: 5000, Category: "Transport", Date: "2026-10-02", Type: core.Business}}
	s.OtherIncome = []core.OtherIncome{{ID: "oi1", Amount: 25000, Source: "Vente photo", Date: "2026-10-08"}}
	return s
}

func TestExportWritesEveryTab(t *testing.T) {
	w := &fakeWriter{}
	e := New(w, DefaultSheetNames(), nil)
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	if err := e.Export(context.Background(), snapshot(), now); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	want := []string{"Payments", "Expenses", "Other income", "Summary"}
	if len(w.order) != len(want) {
		t.Fatalf("expected tabs %v, got %v", want, w.order)
	}
	for i := range want {
		if w.order[i] != want[i] {
			t.Fatalf("expected tabs %v, got %v", want, w.order)
		}
	}

	payments := w.sheets["Payments"]
	if len(payments) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(payments))
	}
	if payments[1][1] != "Institut Belle" || payments[1][2] != "Brochure" || payments[1][3] != int64(60000) {
		t.Fatalf("unexpected payment row %v", payments[1])
	}
	if payments[2][1] != "" || payments[2][2] != "" {
		t.Fatalf("expected blank client for orphan part, got %v", payments[2])
	}
	if w.sheets["Expenses"][1][2] != "business" {
		t.Fatalf("unexpected expense row %v", w.sheets["Expenses"][1])
	}
}

func TestExportStopsOnFailure(t *testing.T) {
	w := &fakeWriter{failOn: "Expenses"}
	err := New(w, DefaultSheetNames(), nil).Export(context.Background(), snapshot(), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(w.order) != 1 {
		t.Fatalf("expected export to stop after first tab, wrote %v", w.order)
	}
}

func TestExportWithoutWriter(t *testing.T) {
	err := New(nil, DefaultSheetNames(), nil).Export(context.Background(), snapshot(), time.Now())
	if !errors.Is(err, ErrNoWriter) {
		t.Fatalf("expected ErrNoWriter, got %v", err)
	}
}

func TestSummaryRows(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	w := &fakeWriter{}
	if err := New(w, DefaultSheetNames(), nil).Export(context.Background(), snapshot(), now); err != nil {
		t.Fatal(err)
	}
	values := map[string]any{}
	for _, row := range w.sheets["Summary"][1:] {
		values[row[0].(string)] = row[1]
	}
	cases := map[string]any{
		"Month":              "2026-10",
		"Income":             int64(86000),
		"Expenses":           int64(5000),
		"Balance":            int64(81000),
		"Targets partial":    1,
		"Category Transport": int64(5000),
	}
	for k, want := range cases {
		if values[k] != want {
			t.Fatalf("%s: expected %v, got %v", k, want, values[k])
		}
	}
}
