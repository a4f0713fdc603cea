package ledger

import (
	"context"
	"errors"
	"strings"

	"caisse/internal/core"
	"caisse/internal/log"
	"caisse/internal/remote"
)

// UpsertClient saves c, assigning an id and creation time when absent.
func (s *Store) UpsertClient(ctx context.Context, c core.Client) (core.Client, error) {
	if err := s.checkOpen(); err != nil {
		return core.Client{}, err
	}
	if c.ID == "" {
		c.ID = s.newID()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = s.timestamp()
	}
	if c.Type == "" {
		c.Type = core.OtherType
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}

	rec, err := s.remote.Upsert(ctx, remote.Clients, clientRecord(c), "id")
	if err != nil {
		return core.Client{}, s.failed(ctx, log.OpUpsert, remote.Clients, err)
	}
	saved := clientFromRecord(rec)
	s.apply(func(next *core.Snapshot) {
		next.Clients = replaceOrAppend(next.Clients, saved, clientKey)
	})
	s.saved(ctx, log.OpUpsert, remote.Clients, saved.ID)
	return saved, nil
}

// DeleteClient removes the client together with its payment targets, their
// parts and its feedback, in a single update.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.remote.Delete(ctx, remote.Clients, id); err != nil {
		return s.failed(ctx, log.OpDelete, remote.Clients, err)
	}
	s.apply(func(next *core.Snapshot) {
		owned := make(map[string]bool)
		for _, t := range next.PaymentTargets {
			if t.ClientID == id {
				owned[t.ID] = true
			}
		}
		next.Clients = without(next.Clients, func(c core.Client) bool { return c.ID == id })
		next.PaymentTargets = without(next.PaymentTargets, func(t core.PaymentTarget) bool { return owned[t.ID] })
		next.PaymentParts = without(next.PaymentParts, func(p core.PaymentPart) bool { return owned[p.PaymentTargetID] })
		next.Feedbacks = without(next.Feedbacks, func(f core.Feedback) bool { return f.ClientID == id })
	})
	s.saved(ctx, log.OpDelete, remote.Clients, id)
	return nil
}

// CreatePaymentTarget opens a new engagement for an existing client. Its
// status starts as pending whatever t carries.
func (s *Store) CreatePaymentTarget(ctx context.Context, t core.PaymentTarget) (core.PaymentTarget, error) {
	if err := s.checkOpen(); err != nil {
		return core.PaymentTarget{}, err
	}
	if _, ok := s.Snapshot().ClientByID(t.ClientID); !ok {
		return core.PaymentTarget{}, ErrReferenceNotFound
	}
	t.ID = s.newID()
	t.CreatedAt = s.timestamp()
	t.Status = core.Pending
	t.Title = strings.TrimSpace(t.Title)
	if err := t.Validate(); err != nil {
		return core.PaymentTarget{}, err
	}

	rec, err := s.remote.Insert(ctx, remote.PaymentTargets, targetRecord(t))
	if err != nil {
		return core.PaymentTarget{}, s.failed(ctx, log.OpCreate, remote.PaymentTargets, err)
	}
	saved := targetFromRecord(rec)
	s.apply(func(next *core.Snapshot) {
		next.PaymentTargets = appended(next.PaymentTargets, saved)
	})
	s.saved(ctx, log.OpCreate, remote.PaymentTargets, saved.ID)
	return saved, nil
}

// AddPaymentPart records a payment against a target, splitting it with the
// current ratios. The target collection is then re-listed so the status the
// remote derived replaces the local one. If that re-list fails the error is
// returned and the ledger is left as it was; the part stays in the remote
// and arrives with the next reload.
func (s *Store) AddPaymentPart(ctx context.Context, targetID string, amount int64, date, note string) (core.PaymentPart, error) {
	if err := s.checkOpen(); err != nil {
		return core.PaymentPart{}, err
	}
	snap := s.Snapshot()
	if _, ok := snap.TargetByID(targetID); !ok {
		return core.PaymentPart{}, ErrReferenceNotFound
	}
	if amount <= 0 {
		return core.PaymentPart{}, core.ErrInvalidAmount
	}
	if date == "" {
		date = s.today()
	} else if !core.ValidDate(date) {
		return core.PaymentPart{}, core.ErrInvalidDate
	}

	part := core.PaymentPart{
		ID:              s.newID(),
		PaymentTargetID: targetID,
		Amount:          amount,
		Date:            date,
		Note:            strings.TrimSpace(note),
		Split:           core.Allocate(amount, snap.Settings.Ratios),
	}
	rec, err := s.remote.Insert(ctx, remote.PaymentParts, partRecord(part))
	if err != nil {
		return core.PaymentPart{}, s.failed(ctx, log.OpCreate, remote.PaymentParts, err)
	}
	saved := partFromRecord(rec)

	targets, err := s.remote.List(ctx, remote.PaymentTargets)
	if err != nil {
		return core.PaymentPart{}, s.failed(ctx, log.OpList, remote.PaymentTargets, err)
	}
	s.apply(func(next *core.Snapshot) {
		next.PaymentParts = appended(next.PaymentParts, saved)
		next.PaymentTargets = mapAll(targets, targetFromRecord)
	})
	s.saved(ctx, log.OpCreate, remote.PaymentParts, saved.ID, log.FieldAmount, saved.Amount)
	return saved, nil
}

// UpsertExpense saves e. Missing fields default to user "admin", category
// "Autre", today's date and the business type.
func (s *Store) UpsertExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := s.checkOpen(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	if e.UserID == "" {
		e.UserID = "admin"
	}
	if strings.TrimSpace(e.Category) == "" {
		e.Category = "Autre"
	}
	if e.Date == "" {
		e.Date = s.today()
	}
	if e.Type == "" {
		e.Type = core.Business
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	rec, err := s.remote.Upsert(ctx, remote.Expenses, expenseRecord(e), "id")
	if err != nil {
		return core.Expense{}, s.failed(ctx, log.OpUpsert, remote.Expenses, err)
	}
	saved := expenseFromRecord(rec)
	s.apply(func(next *core.Snapshot) {
		next.Expenses = replaceOrAppend(next.Expenses, saved, expenseKey)
	})
	s.saved(ctx, log.OpUpsert, remote.Expenses, saved.ID, log.FieldAmount, saved.Amount)
	return saved, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.remote.Delete(ctx, remote.Expenses, id); err != nil {
		return s.failed(ctx, log.OpDelete, remote.Expenses, err)
	}
	s.apply(func(next *core.Snapshot) {
		next.Expenses = without(next.Expenses, func(e core.Expense) bool { return e.ID == id })
	})
	s.saved(ctx, log.OpDelete, remote.Expenses, id)
	return nil
}

// CreateFeedbackToken issues a fresh feedback request for a client. The
// returned record's Token is what the client submits with.
func (s *Store) CreateFeedbackToken(ctx context.Context, clientID string) (core.Feedback, error) {
	if err := s.checkOpen(); err != nil {
		return core.Feedback{}, err
	}
	if _, ok := s.Snapshot().ClientByID(clientID); !ok {
		return core.Feedback{}, ErrReferenceNotFound
	}
	f := core.Feedback{
		ID:        s.newID(),
		ClientID:  clientID,
		CreatedAt: s.timestamp(),
		Token:     s.newID(),
	}
	rec, err := s.remote.Insert(ctx, remote.Feedbacks, feedbackRecord(f))
	if err != nil {
		return core.Feedback{}, s.failed(ctx, log.OpCreate, remote.Feedbacks, err)
	}
	saved := feedbackFromRecord(rec)
	s.apply(func(next *core.Snapshot) {
		next.Feedbacks = appended(next.Feedbacks, saved)
	})
	s.saved(ctx, log.OpCreate, remote.Feedbacks, saved.ID, log.FieldClientID, clientID)
	return saved, nil
}

// SubmitFeedback records the client's rating (1 to 5) and comment for
// token. A token can be used once.
func (s *Store) SubmitFeedback(ctx context.Context, token string, rating int, comment string) (core.Feedback, error) {
	if err := s.checkOpen(); err != nil {
		return core.Feedback{}, err
	}
	if !core.ValidRating(rating) {
		return core.Feedback{}, core.ErrInvalidRating
	}
	f, ok := s.Snapshot().FeedbackByToken(token)
	if !ok || token == "" {
		return core.Feedback{}, ErrReferenceNotFound
	}
	if f.Rating != 0 {
		return core.Feedback{}, ErrFeedbackSubmitted
	}

	patch := remote.Record{"rating": rating, "comment": strings.TrimSpace(comment)}
	rec, err := s.remote.Update(ctx, remote.Feedbacks, f.ID, patch)
	if err != nil {
		return core.Feedback{}, s.failed(ctx, log.OpUpdate, remote.Feedbacks, err)
	}
	saved := feedbackFromRecord(rec)
	s.apply(func(next *core.Snapshot) {
		next.Feedbacks = replaceOrAppend(next.Feedbacks, saved, feedbackKey)
	})
	s.saved(ctx, log.OpUpdate, remote.Feedbacks, saved.ID)
	return saved, nil
}

// AddOtherIncome records income outside any client engagement, split with
// the current ratios.
func (s *Store) AddOtherIncome(ctx context.Context, amount int64, date, source, note string) (core.OtherIncome, error) {
	if err := s.checkOpen(); err != nil {
		return core.OtherIncome{}, err
	}
	if date == "" {
		date = s.today()
	}
	i := core.OtherIncome{
		ID:        s.newID(),
		Amount:    amount,
		Date:      date,
		Source:    strings.TrimSpace(source),
		Note:      strings.TrimSpace(note),
		CreatedAt: s.timestamp(),
	}
	if err := i.Validate(); err != nil {
		return core.OtherIncome{}, err
	}
	i.Split = core.Allocate(amount, s.Snapshot().Settings.Ratios)

	rec, err := s.remote.Insert(ctx, remote.OtherIncome, otherIncomeRecord(i))
	if err != nil {
		return core.OtherIncome{}, s.failed(ctx, log.OpCreate, remote.OtherIncome, err)
	}
	saved := otherIncomeFromRecord(rec)
	s.apply(func(next *core.Snapshot) {
		next.OtherIncome = appended(next.OtherIncome, saved)
	})
	s.saved(ctx, log.OpCreate, remote.OtherIncome, saved.ID, log.FieldAmount, saved.Amount)
	return saved, nil
}

// UpdateOtherIncome rewrites an income entry and recomputes its split with
// the current ratios. The ledger only changes if it already holds the entry.
func (s *Store) UpdateOtherIncome(ctx context.Context, id string, amount int64, date, source, note string) (core.OtherIncome, error) {
	if err := s.checkOpen(); err != nil {
		return core.OtherIncome{}, err
	}
	i := core.OtherIncome{
		ID:     id,
		Amount: amount,
		Date:   date,
		Source: strings.TrimSpace(source),
		Note:   strings.TrimSpace(note),
	}
	if err := i.Validate(); err != nil {
		return core.OtherIncome{}, err
	}
	i.Split = core.Allocate(amount, s.Snapshot().Settings.Ratios)

	patch := otherIncomeRecord(i)
	delete(patch, "id")
	delete(patch, "created_at")
	rec, err := s.remote.Update(ctx, remote.OtherIncome, id, patch)
	if err != nil {
		return core.OtherIncome{}, s.failed(ctx, log.OpUpdate, remote.OtherIncome, err)
	}
	saved := otherIncomeFromRecord(rec)
	s.apply(func(next *core.Snapshot) {
		next.OtherIncome = replaceIfPresent(next.OtherIncome, saved, otherIncomeKey)
	})
	s.saved(ctx, log.OpUpdate, remote.OtherIncome, saved.ID, log.FieldAmount, saved.Amount)
	return saved, nil
}

func (s *Store) DeleteOtherIncome(ctx context.Context, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.remote.Delete(ctx, remote.OtherIncome, id); err != nil {
		return s.failed(ctx, log.OpDelete, remote.OtherIncome, err)
	}
	s.apply(func(next *core.Snapshot) {
		next.OtherIncome = without(next.OtherIncome, func(i core.OtherIncome) bool { return i.ID == id })
	})
	s.saved(ctx, log.OpDelete, remote.OtherIncome, id)
	return nil
}

// UpdateRatios replaces the split ratios. Their sum is not checked; see
// core.Ratios.Validate.
func (s *Store) UpdateRatios(ctx context.Context, r core.Ratios) (core.Settings, error) {
	return s.updateSettings(ctx, func(st *core.Settings) error {
		st.Ratios = r
		return nil
	})
}

func (s *Store) UpdateCurrency(ctx context.Context, currency string) (core.Settings, error) {
	return s.updateSettings(ctx, func(st *core.Settings) error {
		currency = strings.TrimSpace(currency)
		if currency == "" {
			return core.ErrInvalidCurrency
		}
		st.Currency = currency
		return nil
	})
}

// UpdateExpenseCategories replaces the category list. Order is kept and
// duplicates are allowed.
func (s *Store) UpdateExpenseCategories(ctx context.Context, categories []string) (core.Settings, error) {
	return s.updateSettings(ctx, func(st *core.Settings) error {
		st.ExpenseCategories = append([]string{}, categories...)
		return nil
	})
}

func (s *Store) updateSettings(ctx context.Context, merge func(*core.Settings) error) (core.Settings, error) {
	if err := s.checkOpen(); err != nil {
		return core.Settings{}, err
	}
	st := s.Settings()
	if err := merge(&st); err != nil {
		return core.Settings{}, err
	}
	if st.ID == "" {
		st.ID = core.SettingsID
	}

	rec, err := s.remote.Upsert(ctx, remote.Settings, settingsRecord(st), "id")
	if err != nil {
		return core.Settings{}, s.failed(ctx, log.OpUpsert, remote.Settings, err)
	}
	saved := settingsFromRecord(rec)
	s.apply(func(next *core.Snapshot) {
		next.Settings = saved
	})
	s.saved(ctx, log.OpUpsert, remote.Settings, saved.ID)
	return saved, nil
}

// Reload re-lists collection c and replaces it wholesale. A list failure
// other than cancellation replaces the collection with an empty one; for
// settings it restores the defaults.
func (s *Store) Reload(ctx context.Context, c remote.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recs, err := s.remote.List(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, remote.ErrTableMissing) {
			s.logger.DebugContext(ctx, "Collection missing, treating as empty", log.FieldCollection, string(c))
		} else {
			s.logger.WarnContext(ctx, "Failed to reload collection, treating as empty",
				log.FieldOperation, log.OpReload,
				log.FieldCollection, string(c),
				log.FieldError, err)
		}
		recs = nil
	}

	s.apply(func(next *core.Snapshot) {
		replaceCollection(next, c, recs)
	})
	s.logger.DebugContext(ctx, "Collection reloaded",
		log.FieldOperation, log.OpReload,
		log.FieldCollection, string(c),
		log.FieldCount, len(recs),
		log.FieldVersion, s.Version())
	return nil
}

func replaceCollection(next *core.Snapshot, c remote.Collection, recs []remote.Record) {
	switch c {
	case remote.Clients:
		next.Clients = mapAll(recs, clientFromRecord)
	case remote.PaymentTargets:
		next.PaymentTargets = mapAll(recs, targetFromRecord)
	case remote.PaymentParts:
		next.PaymentParts = mapAll(recs, partFromRecord)
	case remote.Expenses:
		next.Expenses = mapAll(recs, expenseFromRecord)
	case remote.Feedbacks:
		next.Feedbacks = mapAll(recs, feedbackFromRecord)
	case remote.OtherIncome:
		next.OtherIncome = mapAll(recs, otherIncomeFromRecord)
	case remote.Settings:
		next.Settings = core.DefaultSettings()
		if len(recs) > 0 && recs[0] != nil {
			next.Settings = settingsFromRecord(recs[0])
		}
	}
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *Store) failed(ctx context.Context, op string, c remote.Collection, err error) error {
	fields := log.NewFields().
		WithOperation(op).
		WithCollection(string(c), "").
		WithError(err).
		WithErrorType(ErrorType(err))
	s.logger.ErrorContext(ctx, "Remote write failed", fields.ToSlice()...)
	return writeError(op, c, err)
}

func (s *Store) saved(ctx context.Context, op string, c remote.Collection, id string, args ...any) {
	s.logger.InfoContext(ctx, "Ledger updated", append([]any{
		log.FieldOperation, op,
		log.FieldCollection, string(c),
		log.FieldID, id,
		log.FieldVersion, s.Version(),
	}, args...)...)
}
