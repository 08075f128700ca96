// Package statement reads bank statements (XLSX, CSV, OFX) into transactions
// and provides the locale-tolerant amount and date parsing they need.
package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var amountTail = regexp.MustCompile(`(\d+)[,.](\d{1,2})$`)

var amountCleaner = strings.NewReplacer("€", "", " ", "", " ", "")

// ParseAmount converts a monetary string to an exact decimal. It understands
// the European format (comma decimal separator, dot thousands separator) as
// well as plain dot-decimal values.
//
// The attempt order is a deliberate tie-break: a string is treated as
// thousands-separated only when it also carries a comma, so "1.234" parses as
// 1.234 while "1.234,56" parses as 1234.56. The second return value is false
// when no pattern matches; callers propagate that as a missing amount rather
// than an error, because occasional malformed statement lines are expected.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := amountCleaner.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, false
	}

	if strings.Contains(s, ",") {
		s2 := strings.ReplaceAll(s, ".", "")
		s2 = strings.ReplaceAll(s2, ",", ".")
		if d, err := decimal.NewFromString(s2); err == nil {
			return d, true
		}
	}

	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}

	// Last resort: <digits><separator><1-2 decimals> at the end of the string.
	if m := amountTail.FindStringSubmatch(s); m != nil {
		if d, err := decimal.NewFromString(m[1] + "." + m[2]); err == nil {
			return d, true
		}
	}

	return decimal.Zero, false
}
