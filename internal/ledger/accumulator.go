package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwerk/mietflow/internal/classify"
	"github.com/rentwerk/mietflow/internal/model"
)

// CellStore is the minimal cell surface the accumulator needs from the
// workbook. Implementations resolve merged ranges to their anchor cell.
// Keeping the accumulation logic behind this interface keeps the dedup and
// seeding rules testable without a spreadsheet.
type CellStore interface {
	// AmountValue returns the numeric content of a cell, zero when the cell
	// is empty or holds something non-numeric.
	AmountValue(cell string) (decimal.Decimal, error)
	// DateDisplay returns the cell's date as displayed (DD.MM.YYYY), or ""
	// when empty.
	DateDisplay(cell string) (string, error)
	// SetAmount writes a numeric value with two-decimal display format.
	SetAmount(cell string, v decimal.Decimal) error
	// SetDate writes a true calendar date with DD.MM.YYYY display format;
	// nil clears the value but keeps the format.
	SetDate(cell string, t *time.Time) error
	// Note returns the note attached to a cell, "" when there is none.
	Note(cell string) (string, error)
	// SetNote attaches or replaces a cell's note.
	SetNote(cell, text string) error
	// ClearNote removes a cell's note.
	ClearNote(cell string) error
}

// Status reports what Post did with a transaction.
type Status int

// Post outcomes.
const (
	StatusPosted Status = iota
	StatusDuplicate
	StatusNoAmount
	StatusNoMonth
)

// String implements fmt.Stringer for log output.
func (s Status) String() string {
	switch s {
	case StatusPosted:
		return "posted"
	case StatusDuplicate:
		return "duplicate"
	case StatusNoAmount:
		return "no-amount"
	case StatusNoMonth:
		return "no-month"
	}
	return "unknown"
}

// Accumulator merges matched transactions into ledger cells. It is the only
// writer of ledger state during a run.
type Accumulator struct {
	cells CellStore
	slots Slots
}

// NewAccumulator creates an accumulator over the given cell store.
func NewAccumulator(cells CellStore, slots Slots) *Accumulator {
	return &Accumulator{cells: cells, slots: slots}
}

// Post merges one transaction into the (amount, date) cell pair of the given
// tenant row. The operation is idempotent: a (date, amount) key already
// recorded in the cell — either in its audit log or as the bare first
// contribution — is recognized as a duplicate and skipped.
func (a *Accumulator) Post(row int, t *model.Transaction) (Status, error) {
	if !t.HasAmount() {
		return StatusNoAmount, nil
	}
	monthIdx, ok := classify.ResolveMonth(t)
	if !ok {
		return StatusNoMonth, nil
	}
	slot, ok := a.slots.ByIndex(monthIdx)
	if !ok {
		return StatusNoMonth, nil
	}

	amountCell := fmt.Sprintf("%s%d", slot.AmountCol, row)
	dateCell := fmt.Sprintf("%s%d", slot.DateCol, row)

	existing, err := a.cells.AmountValue(amountCell)
	if err != nil {
		return 0, fmt.Errorf("failed to read cell %s: %w", amountCell, err)
	}
	noteText, err := a.cells.Note(dateCell)
	if err != nil {
		return 0, fmt.Errorf("failed to read note of %s: %w", dateCell, err)
	}
	prevDisplay, err := a.cells.DateDisplay(dateCell)
	if err != nil {
		return 0, fmt.Errorf("failed to read cell %s: %w", dateCell, err)
	}
	entries := ParseLog(noteText)

	newDate := t.DisplayDate()
	if newDate == "" {
		newDate = strings.TrimSpace(t.RawDate)
	}
	key := dedupKey(newDate, *t.Amount)

	for _, e := range entries {
		if e.Key() == key {
			return StatusDuplicate, nil
		}
	}
	// The first contribution leaves no log behind; its bare (date, amount)
	// pair is the record to check against.
	if existing.IsPositive() && len(entries) == 0 {
		if dedupKey(prevDisplay, existing) == key {
			return StatusDuplicate, nil
		}
	}

	if err := a.cells.SetAmount(amountCell, existing.Add(*t.Amount)); err != nil {
		return 0, fmt.Errorf("failed to write cell %s: %w", amountCell, err)
	}
	written := ""
	if t.ValueDate != nil {
		written = t.DisplayDate()
	}
	if err := a.cells.SetDate(dateCell, t.ValueDate); err != nil {
		return 0, fmt.Errorf("failed to write cell %s: %w", dateCell, err)
	}

	hasPrevious := existing.IsPositive() || len(entries) > 0
	if !hasPrevious {
		// First contribution in this month: amount and date alone, no note.
		if err := a.cells.ClearNote(dateCell); err != nil {
			return 0, fmt.Errorf("failed to clear note of %s: %w", dateCell, err)
		}
		return StatusPosted, nil
	}

	var lines []string
	if len(entries) > 0 {
		for _, e := range entries {
			lines = append(lines, FormatLine(e.Display, e.Keyword, e.Amount))
		}
	} else if prevDisplay != "" {
		// An amount exists but no log yet: seed with the prior contribution.
		lines = append(lines, FormatLine(prevDisplay, "", existing))
	}
	lines = append(lines, FormatLine(written, t.SearchHit, *t.Amount))

	if err := a.cells.SetNote(dateCell, strings.Join(lines, "\n")); err != nil {
		return 0, fmt.Errorf("failed to write note of %s: %w", dateCell, err)
	}
	return StatusPosted, nil
}
