package ledger

import (
	"reflect"
	"testing"

	"caisse/internal/core"
	"caisse/internal/remote"
)

func TestMappingRoundTrip(t *testing.T) {
	part := core.PaymentPart{
		ID: "pp1", PaymentTargetID: "pt1", Amount: 60000, Date: "2026-10-02", Note: "Acompte",
		Split: core.Split{SplitLive: 24000, SplitBusiness: 24000, SplitSave: 12000},
	}
	rec := partRecord(part)
	if rec["payment_target_id"] != "pt1" || rec["split_save"] != int64(12000) {
		t.Errorf("snake_case record = %v", rec)
	}
	if got := partFromRecord(rec); got != part {
		t.Errorf("partFromRecord() = %+v, want %+v", got, part)
	}

	c := core.Client{ID: "c1", Name: "A", Type: core.Institut, CreatedAt: "2026-10-01T00:00:00Z"}
	crec := clientRecord(c)
	if crec["email"] != nil || crec["default_fee"] != nil {
		t.Errorf("optional fields should be null: %v", crec)
	}
	if got := clientFromRecord(crec); got != c {
		t.Errorf("clientFromRecord() = %+v, want %+v", got, c)
	}
}

func TestMappingIsTotal(t *testing.T) {
	malformed := remote.Record{
		"id":           42,
		"type":         "autre",
		"total_amount": "abc",
		"status":       "overdue",
		"amount":       []any{1, 2},
		"rating":       "4",
		"ratios":       "not json",
	}

	if c := clientFromRecord(malformed); c.ID != "42" || c.Type != core.OtherType {
		t.Errorf("clientFromRecord() = %+v", c)
	}
	if pt := targetFromRecord(malformed); pt.TotalAmount != 0 || pt.Status != core.Pending {
		t.Errorf("targetFromRecord() = %+v", pt)
	}
	if e := expenseFromRecord(malformed); e.Amount != 0 || e.Type != core.Business {
		t.Errorf("expenseFromRecord() = %+v", e)
	}
	if f := feedbackFromRecord(malformed); f.Rating != 4 {
		t.Errorf("feedbackFromRecord() = %+v", f)
	}
	if st := settingsFromRecord(malformed); !reflect.DeepEqual(st.Ratios, core.DefaultSettings().Ratios) {
		t.Errorf("malformed ratios should keep defaults, got %+v", st.Ratios)
	}

	if got := mapAll([]remote.Record{nil, {"id": "x"}}, clientFromRecord); len(got) != 1 {
		t.Errorf("mapAll() should skip nil records, got %d", len(got))
	}
	if got := mapAll(nil, clientFromRecord); got == nil || len(got) != 0 {
		t.Errorf("mapAll(nil) = %#v, want empty slice", got)
	}
}

func TestSettingsMapping(t *testing.T) {
	st := core.Settings{
		ID: "default", Currency: "FCFA",
		Ratios:            core.Ratios{Live: 0.5, Business: 0.3, Save: 0.2},
		ExpenseCategories: []string{},
	}
	rec := settingsRecord(st)
	if cats, ok := rec["expense_categories"].([]string); !ok || cats == nil {
		t.Errorf("empty categories must stay a list, got %#v", rec["expense_categories"])
	}
	got := settingsFromRecord(rec)
	if got.Ratios != st.Ratios || got.Currency != "FCFA" || len(got.ExpenseCategories) != 0 {
		t.Errorf("settingsFromRecord() = %+v", got)
	}
}
