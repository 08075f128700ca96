// Package ledger owns all mutation of the tenant workbook: month slot
// coordinates, the per-cell audit log, and the idempotent accumulation of
// amounts into (amount, date) cell pairs.
package ledger

import (
	"fmt"
	"strings"

	"github.com/rentwerk/mietflow/internal/model"
)

// MonthSlot is the (amount-column, date-column) pair assigned to one calendar
// month in the ledger.
type MonthSlot struct {
	Code      string
	AmountCol string
	DateCol   string
}

// Slots holds the twelve month slots in calendar order. The mapping is fixed
// at configuration time and never mutated.
type Slots struct {
	slots [12]MonthSlot
}

// DefaultSlots returns the standard ledger layout. The "Objekt" column
// between B and C shifted all target columns one to the right, which is why
// January starts at E.
func DefaultSlots() Slots {
	cols := [12][2]string{
		{"E", "F"}, {"G", "H"}, {"I", "J"}, {"K", "L"},
		{"M", "N"}, {"O", "P"}, {"Q", "R"}, {"S", "T"},
		{"U", "V"}, {"W", "X"}, {"Y", "Z"}, {"AA", "AB"},
	}
	var s Slots
	for i, code := range model.MonthCodes {
		s.slots[i] = MonthSlot{Code: code, AmountCol: cols[i][0], DateCol: cols[i][1]}
	}
	return s
}

// SlotsFromConfig builds the mapping from configuration, keyed by month code
// with a two-element [amount-column, date-column] list each. All twelve
// months must be present.
func SlotsFromConfig(m map[string][]string) (Slots, error) {
	var s Slots
	for i, code := range model.MonthCodes {
		cols, ok := m[code]
		if !ok {
			// Viper lower-cases map keys.
			cols, ok = m[strings.ToLower(code)]
		}
		if !ok || len(cols) != 2 || cols[0] == "" || cols[1] == "" {
			return Slots{}, fmt.Errorf("month slot %q needs [amount-column, date-column]", code)
		}
		s.slots[i] = MonthSlot{Code: code, AmountCol: cols[0], DateCol: cols[1]}
	}
	return s, nil
}

// ByIndex returns the slot for a zero-based month index.
func (s Slots) ByIndex(i int) (MonthSlot, bool) {
	if i < 0 || i >= len(s.slots) {
		return MonthSlot{}, false
	}
	return s.slots[i], true
}
