package core

import "testing"

func TestDeriveStatus(t *testing.T) {
	part := func(amount int64) PaymentPart { return PaymentPart{Amount: amount} }
	cases := []struct {
		name  string
		total int64
		parts []PaymentPart
		want  PaymentStatus
	}{
		{"no parts", 150000, nil, Pending},
		{"one partial", 150000, []PaymentPart{part(60000)}, Partial},
		{"exactly paid", 150000, []PaymentPart{part(60000), part(90000)}, Paid},
		{"overpaid", 150000, []PaymentPart{part(200000)}, Paid},
		{"one short", 150000, []PaymentPart{part(149999)}, Partial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.total, tc.parts); got != tc.want {
				t.Fatalf("DeriveStatus(%d) = %s, want %s", tc.total, got, tc.want)
			}
		})
	}
}

func TestPartsFor(t *testing.T) {
	parts := []PaymentPart{
		{ID: "a", PaymentTargetID: "t1", Amount: 1},
		{ID: "b", PaymentTargetID: "t2", Amount: 2},
		{ID: "c", PaymentTargetID: "t1", Amount: 3},
	}
	got := PartsFor("t1", parts)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected parts: %+v", got)
	}
	if PaidAmount(got) != 4 {
		t.Fatalf("expected paid 4, got %d", PaidAmount(got))
	}
}
