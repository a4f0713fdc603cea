package report

import (
	"cmp"
	"slices"

	"caisse/internal/core"
)

type ActivityKind string

const (
	ClientPayment ActivityKind = "client"
	Other         ActivityKind = "other"
)

const (
	unknownClient    = "Unknown client"
	untitledPayment  = "Payment"
	otherIncomeTitle = "Other income"
	recentLimit      = 5
)

// Activity is one line of the recent income feed.
type Activity struct {
	ID     string       `json:"id"`
	Kind   ActivityKind `json:"kind"`
	Name   string       `json:"name"`
	Title  string       `json:"title"`
	Date   string       `json:"date"`
	Amount int64        `json:"amount"`
}

// RecentActivity merges payment parts and other income, newest first, and
// keeps the first five. Entries on the same date keep their input order,
// payment parts before other income.
func RecentActivity(s core.Snapshot) []Activity {
	out := make([]Activity, 0, len(s.PaymentParts)+len(s.OtherIncome))
	for _, p := range s.PaymentParts {
		a := Activity{ID: p.ID, Kind: ClientPayment, Name: unknownClient, Title: untitledPayment, Date: p.Date, Amount: p.Amount}
		if t, ok := s.TargetByID(p.PaymentTargetID); ok {
			a.Title = t.Title
			if c, ok := s.ClientByID(t.ClientID); ok {
				a.Name = c.Name
			}
		}
		out = append(out, a)
	}
	for _, i := range s.OtherIncome {
		out = append(out, Activity{ID: i.ID, Kind: Other, Name: i.Source, Title: otherIncomeTitle, Date: i.Date, Amount: i.Amount})
	}
	slices.SortStableFunc(out, func(a, b Activity) int { return cmp.Compare(b.Date, a.Date) })
	return out[:min(len(out), recentLimit)]
}

// RecentOtherIncome returns the five most recent other income entries.
func RecentOtherIncome(s core.Snapshot) []core.OtherIncome {
	out := slices.Clone(s.OtherIncome)
	if out == nil {
		out = []core.OtherIncome{}
	}
	slices.SortStableFunc(out, func(a, b core.OtherIncome) int { return cmp.Compare(b.Date, a.Date) })
	return out[:min(len(out), recentLimit)]
}
