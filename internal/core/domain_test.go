package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2026-08-30", true},
		{" 2026-01-02 ", true},
		{"2026-13-01", false},
		{"30/08/2026", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q unexpected error %v", tc.in, err)
			}
			if d.IsZero() {
				t.Fatalf("%q produced zero date", tc.in)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2026, 8, 30)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2026-08-30"` {
		t.Fatalf("expected quoted date, got %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("round trip mismatch: %v vs %v", back, d)
	}
}

func TestDateInMonth(t *testing.T) {
	d := NewDate(2026, 8, 30)
	if !d.InMonth(2026, time.August) {
		t.Fatalf("expected in month")
	}
	if d.InMonth(2026, time.July) || d.InMonth(2025, time.August) {
		t.Fatalf("expected out of month")
	}
}

func TestEntryValidate(t *testing.T) {
	valid := Entry{Name: "Groceries", Amount: Money{Cents: -12050}, Date: NewDate(2026, 8, 30)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noName := valid
	noName.Name = "   "
	if err := noName.Validate(); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}

	noDate := valid
	noDate.Date = Date{}
	if err := noDate.Validate(); err != ErrMissingDate {
		t.Fatalf("expected ErrMissingDate, got %v", err)
	}
}

func TestReflectionValidate(t *testing.T) {
	if err := (Reflection{Content: "went fine"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Reflection{Content: " \t "}).Validate(); err != ErrEmptyContent {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestWeekOf(t *testing.T) {
	// 2026-01-01 is a Thursday, ISO week 1.
	if got := WeekOf(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)); got != 1 {
		t.Fatalf("expected week 1, got %d", got)
	}
	// Two instants in the same week agree.
	mon := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	if WeekOf(mon) != WeekOf(sun) {
		t.Fatalf("expected same week, got %d vs %d", WeekOf(mon), WeekOf(sun))
	}
}

func TestEntryJSONShape(t *testing.T) {
	e := Entry{
		Name:      "Salary",
		Amount:    Money{Cents: 5000000},
		Category:  "Income",
		Date:      NewDate(2026, 8, 1),
		Timestamp: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, present := m["id"]; present {
		t.Fatalf("draft entry must not carry an id field: %s", b)
	}
	if m["amount"] != float64(50000) {
		t.Fatalf("expected amount 50000, got %v", m["amount"])
	}
	if m["date"] != "2026-08-01" {
		t.Fatalf("expected date string, got %v", m["date"])
	}
}
