// Package export writes the ledger out as spreadsheet tabs: one row per
// payment part, expense and other income, plus a summary of the dashboard.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/report"
)

// Writer replaces the content of a named sheet with rows.
type Writer interface {
	WriteSheet(ctx context.Context, sheet string, rows [][]any) (ref string, err error)
}

// SheetNames are the base tab names. Writers may prefix them with a year.
type SheetNames struct {
	Payments string
	Expenses string
	Income   string
	Summary  string
}

func DefaultSheetNames() SheetNames {
	return SheetNames{
		Payments: "Payments",
		Expenses: "Expenses",
		Income:   "Other income",
		Summary:  "Summary",
	}
}

var ErrNoWriter = errors.New("export writer not configured")

type Exporter struct {
	w      Writer
	names  SheetNames
	logger *log.Logger
}

func New(w Writer, names SheetNames, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Discard()
	}
	return &Exporter{w: w, names: names, logger: logger.WithComponent(log.ComponentExport)}
}

// Export writes every tab for snapshot s. It stops at the first failing tab.
func (e *Exporter) Export(ctx context.Context, s core.Snapshot, now time.Time) error {
	if e.w == nil {
		return ErrNoWriter
	}
	start := time.Now()
	tabs := []struct {
		name string
		rows [][]any
	}{
		{e.names.Payments, PaymentRows(s)},
		{e.names.Expenses, ExpenseRows(s)},
		{e.names.Income, IncomeRows(s)},
		{e.names.Summary, SummaryRows(report.Build(s, now))},
	}
	for _, tab := range tabs {
		ref, err := e.w.WriteSheet(ctx, tab.name, tab.rows)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to write sheet",
				log.FieldOperation, log.OpExport,
				"sheet", tab.name,
				log.FieldError, err)
			return fmt.Errorf("write %s: %w", tab.name, err)
		}
		e.logger.DebugContext(ctx, "Sheet written",
			"sheet", tab.name,
			log.FieldSheetsRef, ref,
			log.FieldCount, len(tab.rows)-1)
	}
	e.logger.InfoContext(ctx, "Ledger exported",
		log.FieldOperation, log.OpExport,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// PaymentRows lists payment parts with their client and engagement.
func PaymentRows(s core.Snapshot) [][]any {
	rows := [][]any{{"Date", "Client", "Engagement", "Amount", "Live", "Business", "Save", "Note"}}
	for _, p := range s.PaymentParts {
		client, title := "", ""
		if t, ok := s.TargetByID(p.PaymentTargetID); ok {
			title = t.Title
			if c, ok := s.ClientByID(t.ClientID); ok {
				client = c.Name
			}
		}
		rows = append(rows, []any{p.Date, client, title, p.Amount, p.SplitLive, p.SplitBusiness, p.SplitSave, p.Note})
	}
	return rows
}

func ExpenseRows(s core.Snapshot) [][]any {
	rows := [][]any{{"Date", "Category", "Type", "Amount", "Note"}}
	for _, e := range s.Expenses {
		rows = append(rows, []any{e.Date, e.Category, string(e.Type), e.Amount, e.Note})
	}
	return rows
}

func IncomeRows(s core.Snapshot) [][]any {
	rows := [][]any{{"Date", "Source", "Amount", "Live", "Business", "Save", "Note"}}
	for _, i := range s.OtherIncome {
		rows = append(rows, []any{i.Date, i.Source, i.Amount, i.SplitLive, i.SplitBusiness, i.SplitSave, i.Note})
	}
	return rows
}

// SummaryRows is a two-column metric/value table followed by the
// per-category expense totals.
func SummaryRows(d report.Dashboard) [][]any {
	rows := [][]any{
		{"Metric", "Value"},
		{"Month", d.Month},
		{"Currency", d.Currency},
		{"Income", d.MonthlyIncome},
		{"Expenses", d.MonthlyExpenses},
		{"Balance", d.Balance},
		{"Projected income", d.ProjectedIncome},
		{"Live share", d.Buckets.Live},
		{"Business share", d.Buckets.Business},
		{"Save share", d.Buckets.Save},
	}
	for _, st := range d.Statuses {
		rows = append(rows, []any{"Targets " + string(st.Status), st.Count})
	}
	for _, c := range d.Categories {
		rows = append(rows, []any{"Category " + c.Category, c.Amount})
	}
	return rows
}
