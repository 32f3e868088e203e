package view

import (
	"strconv"
	"strings"

	"github.com/morkdaniel/budget-tracker/internal/core"
)

// Formatter renders money amounts with a constant currency symbol prefix.
// The formatted string is always the absolute value with grouped digits and
// exactly two decimals; the sign is conveyed out-of-band (row class, color).
type Formatter struct {
	Symbol string
}

// DefaultFormatter uses the peso symbol the tracker ships with.
var DefaultFormatter = Formatter{Symbol: "₱"}

// Format renders the magnitude of m, e.g. Money{-123450} -> "₱1,234.50".
func (f Formatter) Format(m core.Money) string {
	cents := m.Cents
	if cents < 0 {
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	return f.Symbol + groupThousands(whole) + "." + pad2(frac)
}

// Signed renders the amount with an explicit leading sign for list rows.
func (f Formatter) Signed(m core.Money) string {
	if m.Negative() {
		return "-" + f.Format(m)
	}
	return "+" + f.Format(m)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// FormatDate renders a calendar date for list rows, e.g. "Jan 2, 2025".
func FormatDate(d core.Date) string {
	return d.Format("Jan 2, 2006")
}

// FormatDateShort renders a compact month/day label for chart axes, e.g. "1/2".
func FormatDateShort(d core.Date) string {
	return strconv.Itoa(int(d.Month())) + "/" + strconv.Itoa(d.Day())
}
