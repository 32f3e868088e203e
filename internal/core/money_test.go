package core

import "testing"

func TestParseAmountToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.346", 1235, true},
		{" 2.50 ", 250, true},
		{"-1", -100, true},
		{"-120.50", -12050, true},
		{"-120,50", -12050, true},
		{"+45", 4500, true},
		{"0", 0, true},
		{".5", 50, true},
		{"-.5", -50, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1.2a", 0, false},
		{"-", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
		{"92233720368547758.07", 1<<63 - 1, true}, // math.MaxInt64 cents
		{"92233720368547758.08", 0, false},
		{"92233720368547759", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmountToCents(tc.in)
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

func TestMoneyDecimalString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{100, "1.00"},
		{-12050, "-120.50"},
		{123456, "1234.56"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Fatalf("cents=%d expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := Money{Cents: -12050}
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != "-120.50" {
		t.Fatalf("expected -120.50, got %s", b)
	}
	var back Money
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Cents != m.Cents {
		t.Fatalf("round trip: expected %d, got %d", m.Cents, back.Cents)
	}
}

func TestMoneyAbsAddNegative(t *testing.T) {
	if got := (Money{Cents: -500}).Abs(); got.Cents != 500 {
		t.Fatalf("abs: expected 500, got %d", got.Cents)
	}
	if got := (Money{Cents: 100}).Add(Money{Cents: -250}); got.Cents != -150 {
		t.Fatalf("add: expected -150, got %d", got.Cents)
	}
	if !(Money{Cents: -1}).Negative() || (Money{Cents: 0}).Negative() {
		t.Fatalf("negative flag wrong")
	}
}
