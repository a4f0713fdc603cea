package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 1, true},
		{"60000", 60000, true},
		{"60 000", 60000, true},
		{"60\u00a0000", 60000, true},
		{"1.500.000", 1500000, true},
		{"1,500,000", 1500000, true},
		{"1'000", 1000, true},
		{" 25000 ", 25000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"12k", 0, false},
		{"", 0, false},
		{" . ", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(1500000, "FCFA"); got != "1,500,000 FCFA" {
		t.Fatalf("unexpected format: %q", got)
	}
	if got := FormatAmount(-2500, ""); got != "-2,500" {
		t.Fatalf("unexpected format: %q", got)
	}
}
