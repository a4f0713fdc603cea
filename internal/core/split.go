package core

import "github.com/shopspring/decimal"

// Split is the three-way allocation of an income amount.
type Split struct {
	SplitLive     int64
	SplitBusiness int64
	SplitSave     int64
}

// Total returns the sum of the three buckets.
func (s Split) Total() int64 {
	return s.SplitLive + s.SplitBusiness + s.SplitSave
}

// Allocate splits amount across the live, business and save buckets.
//
// Live and business are rounded half away from zero using exact decimal
// arithmetic; save takes the remainder so the three always sum to amount,
// whatever the ratios add up to. Live is capped at amount and business at
// what live leaves, so no bucket goes negative when both round up.
//
// Examples:
//
//	Allocate(100000, Ratios{0.4, 0.4, 0.2}) -> {40000 40000 20000}
//	Allocate(1, Ratios{0.5, 0.5, 0})        -> {1 0 0}
func Allocate(amount int64, r Ratios) Split {
	if amount <= 0 {
		return Split{}
	}
	live := share(amount, r.Live)
	if live > amount {
		live = amount
	}
	business := share(amount, r.Business)
	if business > amount-live {
		business = amount - live
	}
	return Split{
		SplitLive:     live,
		SplitBusiness: business,
		SplitSave:     amount - live - business,
	}
}

func share(amount int64, ratio float64) int64 {
	if ratio <= 0 {
		return 0
	}
	v := decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(ratio)).Round(0)
	return v.IntPart()
}
