package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultCategory is applied when an entry is submitted with a blank category.
	DefaultCategory = "Uncategorized"

	// CollectionExpenses and CollectionReflections are the named sub-collections
	// inside a user's namespace on the document store.
	CollectionExpenses    = "expenses"
	CollectionReflections = "reflections"
)

type (
	// Date is a calendar date without a time-of-day component.
	Date struct {
		time.Time
	}

	// Money is a signed amount in cents. Positive values are income,
	// negative values are spending.
	Money struct {
		Cents int64
	}

	// Entry is a single dated, categorized monetary transaction.
	// ID is empty until the document store assigns one; an Entry without
	// an ID is a pending-write draft and never part of local state.
	Entry struct {
		ID        string    `json:"id,omitempty"`
		Name      string    `json:"name"`
		Amount    Money     `json:"amount"`
		Category  string    `json:"category"`
		Date      Date      `json:"date"`
		Timestamp time.Time `json:"timestamp"`
	}

	// Reflection is a free-text note tied to one calendar week.
	Reflection struct {
		ID        string    `json:"id,omitempty"`
		Week      int       `json:"week"`
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"`
	}
)

var (
	ErrEmptyName     = errors.New("entry name cannot be empty")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingDate   = errors.New("entry date is required")
	ErrEmptyContent  = errors.New("reflection content cannot be empty")
)

const dateLayout = "2006-01-02"

// ParseDate parses a user-entered calendar date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrMissingDate
	}
	return Date{Time: t}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Equal reports whether two dates name the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Year() == other.Year() && d.YearDay() == other.YearDay()
}

// InMonth reports whether the date falls in the given year and month.
func (d Date) InMonth(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

// MarshalJSON encodes the date as a plain "YYYY-MM-DD" string, matching the
// form the document store holds.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (r Reflection) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// WeekOf returns the ISO week-of-year for the given instant. Reflections are
// keyed by this value at save time.
func WeekOf(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}
