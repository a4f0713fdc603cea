package report

import (
	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

// Buckets is the share of all allocated income that went to each bucket.
// The shares sum to 1 unless no income was ever recorded.
type Buckets struct {
	Live     float64 `json:"live"`
	Business float64 `json:"business"`
	Save     float64 `json:"save"`
}

// BucketShares totals the splits of every payment part and other income.
func BucketShares(s core.Snapshot) Buckets {
	var live, business, save int64
	for _, p := range s.PaymentParts {
		live += p.SplitLive
		business += p.SplitBusiness
		save += p.SplitSave
	}
	for _, i := range s.OtherIncome {
		live += i.SplitLive
		business += i.SplitBusiness
		save += i.SplitSave
	}
	total := live + business + save
	if total == 0 {
		total = 1
	}
	return Buckets{
		Live:     ratio(live, total),
		Business: ratio(business, total),
		Save:     ratio(save, total),
	}
}

func ratio(part, total int64) float64 {
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(total)).InexactFloat64()
}

// CategoryTotal is the amount spent in one expense category.
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
}

// ExpensesByCategory sums expenses per category in first-seen order.
func ExpensesByCategory(s core.Snapshot) []CategoryTotal {
	index := make(map[string]int)
	out := []CategoryTotal{}
	for _, e := range s.Expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category})
		}
		out[i].Amount += e.Amount
	}
	return out
}

// StatusCount is the number of payment targets in one status.
type StatusCount struct {
	Status core.PaymentStatus `json:"status"`
	Count  int                `json:"count"`
}

// StatusCounts always lists pending, partial and paid, in that order.
func StatusCounts(s core.Snapshot) []StatusCount {
	counts := []StatusCount{{Status: core.Pending}, {Status: core.Partial}, {Status: core.Paid}}
	for _, t := range s.PaymentTargets {
		for i := range counts {
			if counts[i].Status == t.Status {
				counts[i].Count++
			}
		}
	}
	return counts
}

// Comparison sizes monthly income and expenses against the larger of the
// two, as percentages.
type Comparison struct {
	IncomePercent   float64 `json:"income_percent"`
	ExpensesPercent float64 `json:"expenses_percent"`
}

func Compare(income, expenses int64) Comparison {
	top := max(income, expenses)
	if top == 0 {
		top = 1
	}
	hundred := decimal.NewFromInt(100)
	pct := func(v int64) float64 {
		return decimal.NewFromInt(v).Mul(hundred).Div(decimal.NewFromInt(top)).InexactFloat64()
	}
	return Comparison{IncomePercent: pct(income), ExpensesPercent: pct(expenses)}
}
