package core

import (
	"errors"
	"strings"
)

const (
	Patisserie ClientType = "patisserie"
	Institut   ClientType = "institut"
	Restaurant ClientType = "restaurant"
	OtherType  ClientType = "other"
)

const (
	Pending PaymentStatus = "pending"
	Partial PaymentStatus = "partial"
	Paid    PaymentStatus = "paid"
)

const (
	Personal ExpenseType = "personal"
	Business ExpenseType = "business"
)

// SettingsID is the fixed identifier of the settings singleton.
const SettingsID = "default"

type (
	ClientType    string
	PaymentStatus string
	ExpenseType   string

	Client struct {
		ID         string
		Name       string
		Type       ClientType
		Email      string
		Phone      string
		DefaultFee int64 // 0 when unset
		Notes      string
		CreatedAt  string
	}

	// PaymentTarget is a billable engagement paid off by PaymentParts.
	PaymentTarget struct {
		ID          string
		ClientID    string
		Title       string
		TotalAmount int64
		CreatedAt   string
		DueDate     string
		Status      PaymentStatus
	}

	PaymentPart struct {
		ID              string
		PaymentTargetID string
		Amount          int64
		Date            string
		Note            string
		Split
	}

	Expense struct {
		ID       string
		UserID   string
		Amount   int64
		Category string
		Date     string
		Note     string
		Type     ExpenseType
	}

	// OtherIncome is income that is not attached to a client engagement.
	OtherIncome struct {
		ID        string
		Amount    int64
		Date      string
		Source    string
		Note      string
		CreatedAt string
		Split
	}

	Feedback struct {
		ID        string
		ClientID  string
		Rating    int // 0 means not submitted yet
		Comment   string
		CreatedAt string
		Token     string
	}

	Ratios struct {
		Live     float64
		Business float64
		Save     float64
	}

	Settings struct {
		ID                string
		Currency          string
		Ratios            Ratios
		ExpenseCategories []string
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidRatio    = errors.New("invalid ratio")
	ErrRatioSum        = errors.New("ratios must sum to 1")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptySource     = errors.New("empty source")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidType     = errors.New("invalid type")
	ErrInvalidCurrency = errors.New("empty currency")
)

// IsValidation reports whether err is one of the input validation errors.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrInvalidRatio, ErrRatioSum, ErrInvalidRating,
		ErrEmptyName, ErrEmptyTitle, ErrEmptySource, ErrEmptyCategory,
		ErrInvalidDate, ErrInvalidType, ErrInvalidCurrency,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// DefaultSettings returns the settings used until the remote provides some.
func DefaultSettings() Settings {
	return Settings{
		ID:                SettingsID,
		Currency:          "FCFA",
		Ratios:            Ratios{Live: 0.4, Business: 0.4, Save: 0.2},
		ExpenseCategories: []string{"Nourriture", "Transport", "Matériel", "Loyer", "Autre"},
	}
}

// ParseClientType maps a stored value to a ClientType. Unknown values and the
// legacy "autre" read as OtherType.
func ParseClientType(s string) ClientType {
	switch ClientType(strings.ToLower(strings.TrimSpace(s))) {
	case Patisserie:
		return Patisserie
	case Institut:
		return Institut
	case Restaurant:
		return Restaurant
	default:
		return OtherType
	}
}

func (t ClientType) Valid() bool {
	switch t {
	case Patisserie, Institut, Restaurant, OtherType:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case Pending, Partial, Paid:
		return true
	}
	return false
}

func (t ExpenseType) Valid() bool {
	return t == Personal || t == Business
}

// Validate checks each ratio is in [0,1] and that they sum to 1 within a
// small tolerance. The ledger never calls it; it is offered to callers.
func (r Ratios) Validate() error {
	for _, v := range []float64{r.Live, r.Business, r.Save} {
		if v < 0 || v > 1 {
			return ErrInvalidRatio
		}
	}
	sum := r.Live + r.Business + r.Save
	if sum < 0.999 || sum > 1.001 {
		return ErrRatioSum
	}
	return nil
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Type != "" && !c.Type.Valid() {
		return ErrInvalidType
	}
	if c.DefaultFee < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t PaymentTarget) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.TotalAmount <= 0 {
		return ErrInvalidAmount
	}
	if t.DueDate != "" && !ValidDate(t.DueDate) {
		return ErrInvalidDate
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Date != "" && !ValidDate(e.Date) {
		return ErrInvalidDate
	}
	if e.Type != "" && !e.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (i OtherIncome) Validate() error {
	if i.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if !ValidDate(i.Date) {
		return ErrInvalidDate
	}
	return nil
}

// ValidRating reports whether r is a submittable rating.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
