package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"caisse/internal/core"
)

type Severity string

const (
	Success Severity = "success"
	Warning Severity = "warning"
	Info    Severity = "info"
)

const maxSuggestions = 4

// Suggestion is a short piece of advice shown on the dashboard.
type Suggestion struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// Suggestions evaluates the advice rules in a fixed order and keeps at most
// four.
func Suggestions(s core.Snapshot, now time.Time) []Suggestion {
	income := MonthlyIncome(s, now)
	expenses := MonthlyExpenses(s, now)
	balance := income - expenses
	currency := s.Settings.Currency
	out := []Suggestion{}

	switch {
	case balance < 0:
		out = append(out, Suggestion{Warning, "negative_balance", "Negative balance",
			fmt.Sprintf("Expenses exceed income by %s this month.", core.FormatAmount(-balance, currency))})
	case income > 0 && balance*10 > income*3:
		out = append(out, Suggestion{Success, "healthy_balance", "Healthy balance",
			fmt.Sprintf("%s left over this month. Consider putting part of it aside.", core.FormatAmount(balance, currency))})
	}

	save := BucketShares(s).Save
	switch {
	case save < 0.15:
		out = append(out, Suggestion{Warning, "low_savings", "Low savings",
			fmt.Sprintf("Only %s%% of income goes to savings. Aim for at least 20%%.", percent(save))})
	case save >= 0.2:
		out = append(out, Suggestion{Success, "good_savings", "Good savings",
			fmt.Sprintf("%s%% of income goes to savings.", percent(save))})
	}

	if n := pendingCount(s); n > 0 {
		noun := "payment"
		if n > 1 {
			noun = "payments"
		}
		out = append(out, Suggestion{Info, "pending_payments", "Pending payments",
			fmt.Sprintf("%d %s still waiting for a first installment.", n, noun)})
	}

	if top, share, ok := dominantCategory(s); ok && share.GreaterThan(decimal.NewFromFloat(0.5)) {
		out = append(out, Suggestion{Info, "dominant_category", "Dominant category",
			fmt.Sprintf("%s accounts for %s%% of expenses.", top, share.Mul(decimal.NewFromInt(100)).Round(0).String())})
	}

	if income == 0 && len(s.PaymentTargets) > 0 {
		out = append(out, Suggestion{Info, "no_income", "No income yet",
			"No income recorded this month. Follow up on open engagements."})
	}

	if income > 0 && expenses*10 > income*8 {
		out = append(out, Suggestion{Warning, "high_spending", "High spending",
			fmt.Sprintf("Expenses take %s%% of income.", percent(float64(expenses)/float64(income)))})
	}

	return out[:min(len(out), maxSuggestions)]
}

func pendingCount(s core.Snapshot) int {
	n := 0
	for _, t := range s.PaymentTargets {
		if t.Status == core.Pending {
			n++
		}
	}
	return n
}

// dominantCategory returns the category with the largest total and its
// share of all expenses. On a tie the first category seen wins.
func dominantCategory(s core.Snapshot) (string, decimal.Decimal, bool) {
	totals := ExpensesByCategory(s)
	if len(totals) == 0 {
		return "", decimal.Zero, false
	}
	var sum int64
	top := totals[0]
	for _, c := range totals {
		sum += c.Amount
		if c.Amount > top.Amount {
			top = c
		}
	}
	if sum <= 0 {
		return "", decimal.Zero, false
	}
	return top.Category, decimal.NewFromInt(top.Amount).Div(decimal.NewFromInt(sum)), true
}

func percent(r float64) string {
	return decimal.NewFromFloat(r).Mul(decimal.NewFromInt(100)).Round(0).String()
}
