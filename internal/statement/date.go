package statement

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rentwerk/mietflow/internal/model"
)

// serialEpoch is the day-zero of legacy spreadsheet serial dates.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var (
	isoDate    = regexp.MustCompile(`(\d{4})[-/.](\d{2})[-/.](\d{2})`)
	innerSpace = regexp.MustCompile(`\s+`)
)

// ResolveDate converts a heterogeneous date representation to a canonical
// calendar date. It accepts a numeric day count relative to 1899-12-30 (the
// serial form spreadsheet cells come back as), an ISO-like YYYY-MM-DD string
// (highest precedence among the textual forms, it is unambiguous), or
// DD.MM.YYYY with slashes tolerated as separators.
//
// When nothing parses the returned time is nil and the cleaned raw text is
// retained so downstream month inference can still pick at it.
func ResolveDate(raw string) (*time.Time, string) {
	s := strings.TrimSpace(raw)
	s = innerSpace.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "/", ".")
	if s == "" {
		return nil, ""
	}

	if t, ok := fromSerial(s); ok {
		return &t, t.Format(model.DateLayout)
	}

	if m := isoDate.FindStringSubmatch(s); m != nil {
		if t, ok := fromParts(m[3], m[2], m[1]); ok {
			return &t, s
		}
	}

	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return &t, s
	}

	return nil, s
}

// MonthFromText extracts a calendar month from raw date text that failed full
// parsing, trying the ISO-like pattern before DD.MM.YYYY.
func MonthFromText(raw string) (time.Month, bool) {
	s := strings.TrimSpace(raw)
	if m := isoDate.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[2]); err == nil && n >= 1 && n <= 12 {
			return time.Month(n), true
		}
		return 0, false
	}
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t.Month(), true
	}
	return 0, false
}

// fromSerial treats purely numeric input as a spreadsheet serial day count.
// The accepted range keeps eight-digit values like 20250602 from being read
// as absurd far-future serials.
func fromSerial(s string) (time.Time, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 1 || v >= 300000 {
		return time.Time{}, false
	}
	d := serialEpoch.Add(time.Duration(v * float64(24*time.Hour)))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
}

func fromParts(day, month, year string) (time.Time, bool) {
	d, err1 := strconv.Atoi(day)
	m, err2 := strconv.Atoi(month)
	y, err3 := strconv.Atoi(year)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}
