package ledger

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// An audit log is the note attached to a month's date cell once more than one
// contribution has been merged. One line per contribution:
//
//	01.05.2025 [Miete]: 500,00 EUR
//
// with the bracketed keyword omitted when empty. The log doubles as the
// dedup record: a (date, amount) pair that already occurs in it is skipped.

var (
	logLine = regexp.MustCompile(`(\d{1,2}\.\d{1,2}(?:\.\d{2,4})?)\s*(?:\[(.*?)\])?\s*:\s*([+-]?\d+(?:[.,]\d+)?)`)
	dayDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})(?:\.(\d{2,4}))?$`)
)

// Entry is one parsed audit log line.
type Entry struct {
	Display string // date text exactly as written in the note
	Keyword string
	Amount  decimal.Decimal
}

// Key returns the dedup key of the entry.
func (e Entry) Key() string {
	return dedupKey(e.Display, e.Amount)
}

// dedupKey builds the comparison key from a display date and an amount. The
// date is zero-padded so "1.5.2025" and "01.05.2025" collide, the amount is
// rounded to two decimals.
func dedupKey(display string, amount decimal.Decimal) string {
	return normalizeDayMonth(display) + "|" + amount.Round(2).StringFixed(2)
}

// normalizeDayMonth zero-pads a D.M[.YYYY] date string. Anything that does
// not look like one passes through unchanged.
func normalizeDayMonth(s string) string {
	s = strings.TrimSpace(s)
	m := dayDate.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	var b strings.Builder
	pad2(&b, m[1])
	b.WriteByte('.')
	pad2(&b, m[2])
	if m[3] != "" {
		b.WriteByte('.')
		for i := len(m[3]); i < 4; i++ {
			b.WriteByte('0')
		}
		b.WriteString(m[3])
	}
	return b.String()
}

func pad2(b *strings.Builder, s string) {
	if len(s) < 2 {
		b.WriteByte('0')
	}
	b.WriteString(s)
}

// ParseLog extracts the entries of an existing note text. Lines that do not
// match the format are ignored, duplicate keys within one note collapse to
// their first occurrence.
func ParseLog(text string) []Entry {
	if text == "" {
		return nil
	}
	var entries []Entry
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		m := logLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		raw := strings.ReplaceAll(m[3], ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		e := Entry{
			Display: m[1],
			Keyword: strings.TrimSpace(m[2]),
			Amount:  amount.Round(2),
		}
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		entries = append(entries, e)
	}
	return entries
}

// FormatLine renders one audit log line. Amounts use the German decimal
// comma.
func FormatLine(display, keyword string, amount decimal.Decimal) string {
	tag := display
	if keyword != "" {
		tag += " [" + keyword + "]"
	}
	return tag + ": " + strings.ReplaceAll(amount.StringFixed(2), ".", ",") + " EUR"
}
