// Package core provides amount parsing and formatting utilities.
//
// Amounts are whole currency units (FCFA has no minor unit), so user input
// only needs thousands separators stripped.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseAmount converts a user-entered amount to an integer.
//
// Spaces (including non-breaking ones), dots, commas and apostrophes are
// accepted as thousands separators. Signs and zero are rejected.
//
// Examples:
//
//	ParseAmount("60000")   -> 60000, nil
//	ParseAmount("60 000")  -> 60000, nil
//	ParseAmount("1.500.000") -> 1500000, nil
//	ParseAmount("-5")        -> 0, ErrInvalidAmount
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',' || r == '\'' || unicode.IsSpace(r):
			// thousands separator
		default:
			return 0, ErrInvalidAmount
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, ErrInvalidAmount
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders an amount with grouped thousands and the currency
// label, e.g. "60,000 FCFA".
func FormatAmount(amount int64, currency string) string {
	s := humanize.Comma(amount)
	if currency == "" {
		return s
	}
	return s + " " + currency
}
