package view

import (
	"testing"

	"github.com/morkdaniel/budget-tracker/internal/core"
)

func TestFormatterFormat(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "₱0.00"},
		{1, "₱0.01"},
		{12050, "₱120.50"},
		{-123450, "₱1,234.50"}, // magnitude only
		{100000000, "₱1,000,000.00"},
	}
	for _, tc := range cases {
		if got := DefaultFormatter.Format(core.Money{Cents: tc.cents}); got != tc.want {
			t.Fatalf("cents=%d expected %q, got %q", tc.cents, tc.want, got)
		}
	}
}

func TestFormatterSigned(t *testing.T) {
	if got := DefaultFormatter.Signed(core.Money{Cents: -12050}); got != "-₱120.50" {
		t.Fatalf("expected -₱120.50, got %q", got)
	}
	if got := DefaultFormatter.Signed(core.Money{Cents: 12050}); got != "+₱120.50" {
		t.Fatalf("expected +₱120.50, got %q", got)
	}
}

func TestFormatDates(t *testing.T) {
	d := core.NewDate(2026, 8, 5)
	if got := FormatDate(d); got != "Aug 5, 2026" {
		t.Fatalf("expected Aug 5, 2026, got %q", got)
	}
	if got := FormatDateShort(d); got != "8/5" {
		t.Fatalf("expected 8/5, got %q", got)
	}
}
