package core

// Snapshot is an immutable view of every collection and the settings.
// Slices are shared between snapshots and must never be modified in place.
type Snapshot struct {
	Clients        []Client
	PaymentTargets []PaymentTarget
	PaymentParts   []PaymentPart
	Expenses       []Expense
	Feedbacks      []Feedback
	OtherIncome    []OtherIncome
	Settings       Settings
}

// EmptySnapshot holds no records and the default settings.
func EmptySnapshot() Snapshot {
	return Snapshot{Settings: DefaultSettings()}
}

// ClientByID returns the client with the given id.
func (s Snapshot) ClientByID(id string) (Client, bool) {
	for _, c := range s.Clients {
		if c.ID == id {
			return c, true
		}
	}
	return Client{}, false
}

// TargetByID returns the payment target with the given id.
func (s Snapshot) TargetByID(id string) (PaymentTarget, bool) {
	for _, t := range s.PaymentTargets {
		if t.ID == id {
			return t, true
		}
	}
	return PaymentTarget{}, false
}

// FeedbackByToken returns the feedback issued under token.
func (s Snapshot) FeedbackByToken(token string) (Feedback, bool) {
	for _, f := range s.Feedbacks {
		if f.Token == token {
			return f, true
		}
	}
	return Feedback{}, false
}

// HasPrimaryData reports whether any of clients, payment targets, payment
// parts or expenses is non-empty.
func (s Snapshot) HasPrimaryData() bool {
	return len(s.Clients) > 0 || len(s.PaymentTargets) > 0 ||
		len(s.PaymentParts) > 0 || len(s.Expenses) > 0
}
