package classify

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rentwerk/mietflow/internal/model"
	"github.com/rentwerk/mietflow/internal/statement"
)

// monthNames maps German month names and their common abbreviations to the
// ledger's month codes.
var monthNames = map[string]string{
	"Januar": "Jan", "Jan": "Jan",
	"Februar": "Feb", "Feb": "Feb",
	"März": "Mrz", "Marz": "Mrz", "Mrz": "Mrz",
	"April": "Apr", "Apr": "Apr",
	"Mai": "Mai",
	"Juni": "Jun", "Jun": "Jun",
	"Juli": "Jul", "Jul": "Jul",
	"August": "Aug", "Aug": "Aug",
	"September": "Sep", "Sept": "Sep", "Sep": "Sep",
	"Oktober": "Okt", "Okt": "Okt",
	"November": "Nov", "Nov": "Nov",
	"Dezember": "Dez", "Dez": "Dez",
}

// monthNamePattern builds one case-insensitive alternation over all known
// month names, longest first so "Januar" is not swallowed by "Jan".
func monthNamePattern() (*regexp.Regexp, map[string]string) {
	names := make([]string, 0, len(monthNames))
	codes := make(map[string]string, len(monthNames))
	for name, code := range monthNames {
		names = append(names, name)
		codes[strings.ToLower(name)] = code
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	for i, n := range names {
		names[i] = regexp.QuoteMeta(n)
	}
	re := regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)\b`)
	return re, codes
}

// monthOverride finds an explicit month name anywhere in the purpose or
// category text and maps it to a ledger month code. "" means no override.
func (c *Classifier) monthOverride(text string) string {
	if text == "" {
		return ""
	}
	m := c.monthPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return c.monthCodes[strings.ToLower(m[1])]
}

// ResolveMonth decides which ledger month a transaction belongs to, highest
// priority first: an explicit month name in the text, the canonical value
// date, then a month salvaged from the raw date text. The boolean is false
// when the transaction is unassignable; such lines are skipped silently, they
// stay visible in the audit sheet.
func ResolveMonth(t *model.Transaction) (int, bool) {
	if t.MonthOverride != "" {
		if i := model.MonthIndex(t.MonthOverride); i >= 0 {
			return i, true
		}
	}
	if t.ValueDate != nil {
		return int(t.ValueDate.Month()) - 1, true
	}
	if m, ok := statement.MonthFromText(t.RawDate); ok {
		i := int(m) - 1
		if i >= 0 && i <= 11 {
			return i, true
		}
	}
	return 0, false
}
