package ledger

import (
	"caisse/internal/core"
	"caisse/internal/remote"
)

// The functions below translate between remote records (snake_case keys)
// and domain values. They are total: missing or mistyped fields read as
// zero values.

func clientFromRecord(r remote.Record) core.Client {
	return core.Client{
		ID:         remote.AsString(r["id"]),
		Name:       remote.AsString(r["name"]),
		Type:       core.ParseClientType(remote.AsString(r["type"])),
		Email:      remote.AsString(r["email"]),
		Phone:      remote.AsString(r["phone"]),
		DefaultFee: remote.AsInt64(r["default_fee"]),
		Notes:      remote.AsString(r["notes"]),
		CreatedAt:  remote.AsString(r["created_at"]),
	}
}

func clientRecord(c core.Client) remote.Record {
	r := remote.Record{
		"id":         c.ID,
		"name":       c.Name,
		"type":       string(c.Type),
		"created_at": c.CreatedAt,
	}
	setOptional(r, "email", c.Email)
	setOptional(r, "phone", c.Phone)
	setOptional(r, "notes", c.Notes)
	if c.DefaultFee > 0 {
		r["default_fee"] = c.DefaultFee
	} else {
		r["default_fee"] = nil
	}
	return r
}

func targetFromRecord(r remote.Record) core.PaymentTarget {
	status := core.PaymentStatus(remote.AsString(r["status"]))
	if !status.Valid() {
		status = core.Pending
	}
	return core.PaymentTarget{
		ID:          remote.AsString(r["id"]),
		ClientID:    remote.AsString(r["client_id"]),
		Title:       remote.AsString(r["title"]),
		TotalAmount: remote.AsInt64(r["total_amount"]),
		CreatedAt:   remote.AsString(r["created_at"]),
		DueDate:     remote.AsString(r["due_date"]),
		Status:      status,
	}
}

func targetRecord(t core.PaymentTarget) remote.Record {
	r := remote.Record{
		"id":           t.ID,
		"client_id":    t.ClientID,
		"title":        t.Title,
		"total_amount": t.TotalAmount,
		"created_at":   t.CreatedAt,
		"status":       string(t.Status),
	}
	setOptional(r, "due_date", t.DueDate)
	return r
}

func splitFromRecord(r remote.Record) core.Split {
	return core.Split{
		SplitLive:     remote.AsInt64(r["split_live"]),
		SplitBusiness: remote.AsInt64(r["split_business"]),
		SplitSave:     remote.AsInt64(r["split_save"]),
	}
}

func setSplit(r remote.Record, s core.Split) {
	r["split_live"] = s.SplitLive
	r["split_business"] = s.SplitBusiness
	r["split_save"] = s.SplitSave
}

func partFromRecord(r remote.Record) core.PaymentPart {
	return core.PaymentPart{
		ID:              remote.AsString(r["id"]),
		PaymentTargetID: remote.AsString(r["payment_target_id"]),
		Amount:          remote.AsInt64(r["amount"]),
		Date:            remote.AsString(r["date"]),
		Note:            remote.AsString(r["note"]),
		Split:           splitFromRecord(r),
	}
}

func partRecord(p core.PaymentPart) remote.Record {
	r := remote.Record{
		"id":                p.ID,
		"payment_target_id": p.PaymentTargetID,
		"amount":            p.Amount,
		"date":              p.Date,
	}
	setOptional(r, "note", p.Note)
	setSplit(r, p.Split)
	return r
}

func expenseFromRecord(r remote.Record) core.Expense {
	typ := core.ExpenseType(remote.AsString(r["type"]))
	if !typ.Valid() {
		typ = core.Business
	}
	return core.Expense{
		ID:       remote.AsString(r["id"]),
		UserID:   remote.AsString(r["user_id"]),
		Amount:   remote.AsInt64(r["amount"]),
		Category: remote.AsString(r["category"]),
		Date:     remote.AsString(r["date"]),
		Note:     remote.AsString(r["note"]),
		Type:     typ,
	}
}

func expenseRecord(e core.Expense) remote.Record {
	r := remote.Record{
		"id":       e.ID,
		"user_id":  e.UserID,
		"amount":   e.Amount,
		"category": e.Category,
		"date":     e.Date,
		"type":     string(e.Type),
	}
	setOptional(r, "note", e.Note)
	return r
}

func otherIncomeFromRecord(r remote.Record) core.OtherIncome {
	return core.OtherIncome{
		ID:        remote.AsString(r["id"]),
		Amount:    remote.AsInt64(r["amount"]),
		Date:      remote.AsString(r["date"]),
		Source:    remote.AsString(r["source"]),
		Note:      remote.AsString(r["note"]),
		CreatedAt: remote.AsString(r["created_at"]),
		Split:     splitFromRecord(r),
	}
}

func otherIncomeRecord(i core.OtherIncome) remote.Record {
	r := remote.Record{
		"id":         i.ID,
		"amount":     i.Amount,
		"date":       i.Date,
		"source":     i.Source,
		"created_at": i.CreatedAt,
	}
	setOptional(r, "note", i.Note)
	setSplit(r, i.Split)
	return r
}

func feedbackFromRecord(r remote.Record) core.Feedback {
	return core.Feedback{
		ID:        remote.AsString(r["id"]),
		ClientID:  remote.AsString(r["client_id"]),
		Rating:    int(remote.AsInt64(r["rating"])),
		Comment:   remote.AsString(r["comment"]),
		CreatedAt: remote.AsString(r["created_at"]),
		Token:     remote.AsString(r["token"]),
	}
}

func feedbackRecord(f core.Feedback) remote.Record {
	return remote.Record{
		"id":         f.ID,
		"client_id":  f.ClientID,
		"rating":     f.Rating,
		"comment":    f.Comment,
		"created_at": f.CreatedAt,
		"token":      f.Token,
	}
}

// settingsFromRecord overlays the record on the defaults, so a partial or
// malformed row still yields usable settings.
func settingsFromRecord(r remote.Record) core.Settings {
	s := core.DefaultSettings()
	if id := remote.AsString(r["id"]); id != "" {
		s.ID = id
	}
	if cur := remote.AsString(r["currency"]); cur != "" {
		s.Currency = cur
	}
	if m := remote.AsMap(r["ratios"]); m != nil {
		s.Ratios = core.Ratios{
			Live:     remote.AsFloat64(m["live"]),
			Business: remote.AsFloat64(m["business"]),
			Save:     remote.AsFloat64(m["save"]),
		}
	}
	if cats := remote.AsStrings(r["expense_categories"]); cats != nil {
		s.ExpenseCategories = cats
	}
	return s
}

func settingsRecord(s core.Settings) remote.Record {
	cats := make([]string, len(s.ExpenseCategories))
	copy(cats, s.ExpenseCategories)
	return remote.Record{
		"id":       s.ID,
		"currency": s.Currency,
		"ratios": map[string]any{
			"live":     s.Ratios.Live,
			"business": s.Ratios.Business,
			"save":     s.Ratios.Save,
		},
		"expense_categories": cats,
	}
}

func setOptional(r remote.Record, key, value string) {
	if value == "" {
		r[key] = nil
		return
	}
	r[key] = value
}

func mapAll[T any](recs []remote.Record, fn func(remote.Record) T) []T {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		if r == nil {
			continue
		}
		out = append(out, fn(r))
	}
	return out
}
