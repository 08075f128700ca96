package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentwerk/mietflow/internal/classify"
	"github.com/rentwerk/mietflow/internal/model"
)

// memCells is an in-memory CellStore so accumulation logic can be exercised
// without a workbook.
type memCells struct {
	amounts map[string]decimal.Decimal
	dates   map[string]string
	notes   map[string]string
}

func newMemCells() *memCells {
	return &memCells{
		amounts: make(map[string]decimal.Decimal),
		dates:   make(map[string]string),
		notes:   make(map[string]string),
	}
}

func (m *memCells) AmountValue(cell string) (decimal.Decimal, error) {
	if v, ok := m.amounts[cell]; ok {
		return v, nil
	}
	return decimal.Zero, nil
}

func (m *memCells) DateDisplay(cell string) (string, error) {
	return m.dates[cell], nil
}

func (m *memCells) SetAmount(cell string, v decimal.Decimal) error {
	m.amounts[cell] = v
	return nil
}

func (m *memCells) SetDate(cell string, t *time.Time) error {
	if t == nil {
		m.dates[cell] = ""
		return nil
	}
	m.dates[cell] = t.Format(model.DateLayout)
	return nil
}

func (m *memCells) Note(cell string) (string, error) {
	return m.notes[cell], nil
}

func (m *memCells) SetNote(cell, text string) error {
	m.notes[cell] = text
	return nil
}

func (m *memCells) ClearNote(cell string) error {
	delete(m.notes, cell)
	return nil
}

func txn(t *testing.T, payee, purpose, dateStr, amountStr string) *model.Transaction {
	t.Helper()
	tx := &model.Transaction{Payee: payee, Purpose: purpose}
	if dateStr != "" {
		d, err := time.Parse(model.DateLayout, dateStr)
		require.NoError(t, err)
		tx.ValueDate = &d
		tx.RawDate = dateStr
	}
	if amountStr != "" {
		a := dec(amountStr)
		tx.Amount = &a
	}
	classify.New(classify.DefaultConfig()).Derive(tx)
	return tx
}

func newAccumulator(cells CellStore) *Accumulator {
	return NewAccumulator(cells, DefaultSlots())
}

func TestPostFirstContributionLeavesNoNote(t *testing.T) {
	cells := newMemCells()
	acc := newAccumulator(cells)

	status, err := acc.Post(5, txn(t, "Max Mustermann", "Miete", "01.05.2025", "500"))
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, status)

	// May is the fifth month pair: M (amount), N (date).
	assert.True(t, cells.amounts["M5"].Equal(dec("500")))
	assert.Equal(t, "01.05.2025", cells.dates["N5"])
	assert.Empty(t, cells.notes["N5"])
}

func TestPostSecondContributionSeedsLog(t *testing.T) {
	// A cell holding a bare 500.00 dated 01.05.2025 receives 450.00 dated
	// 15.05.2025: amount 950.00 and a log of exactly two lines, the original
	// first.
	cells := newMemCells()
	cells.amounts["M5"] = dec("500")
	cells.dates["N5"] = "01.05.2025"
	acc := newAccumulator(cells)

	status, err := acc.Post(5, txn(t, "Max Mustermann", "Miete", "15.05.2025", "450"))
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, status)

	assert.True(t, cells.amounts["M5"].Equal(dec("950")))
	assert.Equal(t, "15.05.2025", cells.dates["N5"])
	assert.Equal(t,
		"01.05.2025: 500,00 EUR\n15.05.2025 [Miete]: 450,00 EUR",
		cells.notes["N5"])
}

func TestPostDuplicateAgainstBareContribution(t *testing.T) {
	cells := newMemCells()
	cells.amounts["M5"] = dec("500")
	cells.dates["N5"] = "01.05.2025"
	acc := newAccumulator(cells)

	status, err := acc.Post(5, txn(t, "Max Mustermann", "Miete", "01.05.2025", "500"))
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, status)

	assert.True(t, cells.amounts["M5"].Equal(dec("500")))
	assert.Empty(t, cells.notes["N5"])
}

func TestPostDuplicateAgainstAuditLog(t *testing.T) {
	cells := newMemCells()
	cells.amounts["M5"] = dec("950")
	cells.dates["N5"] = "15.05.2025"
	cells.notes["N5"] = "01.05.2025: 500,00 EUR\n15.05.2025 [Miete]: 450,00 EUR"
	acc := newAccumulator(cells)

	for _, d := range []struct{ date, amount string }{
		{"01.05.2025", "500"},
		{"15.05.2025", "450"},
	} {
		status, err := acc.Post(5, txn(t, "Max Mustermann", "Miete", d.date, d.amount))
		require.NoError(t, err)
		assert.Equal(t, StatusDuplicate, status, "date %s", d.date)
	}
	assert.True(t, cells.amounts["M5"].Equal(dec("950")))
}

func TestPostThirdContributionAppends(t *testing.T) {
	cells := newMemCells()
	cells.amounts["M5"] = dec("950")
	cells.dates["N5"] = "15.05.2025"
	cells.notes["N5"] = "01.05.2025: 500,00 EUR\n15.05.2025 [Miete]: 450,00 EUR"
	acc := newAccumulator(cells)

	status, err := acc.Post(5, txn(t, "Max Mustermann", "Miete", "20.05.2025", "100"))
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, status)

	assert.True(t, cells.amounts["M5"].Equal(dec("1050")))
	assert.Equal(t,
		"01.05.2025: 500,00 EUR\n15.05.2025 [Miete]: 450,00 EUR\n20.05.2025 [Miete]: 100,00 EUR",
		cells.notes["N5"])
}

func TestPostMonthOverrideRouting(t *testing.T) {
	cells := newMemCells()
	acc := newAccumulator(cells)

	// Dated June, text names Januar: posts to the January pair (E, F).
	status, err := acc.Post(3, txn(t, "Max Mustermann", "Miete Januar", "02.06.2025", "640.80"))
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, status)

	assert.True(t, cells.amounts["E3"].Equal(dec("640.80")))
	assert.Equal(t, "02.06.2025", cells.dates["F3"])
	_, juneWritten := cells.amounts["O3"]
	assert.False(t, juneWritten)
}

func TestPostSkipsWithoutAmountOrMonth(t *testing.T) {
	cells := newMemCells()
	acc := newAccumulator(cells)

	status, err := acc.Post(2, txn(t, "Max Mustermann", "Miete", "01.05.2025", ""))
	require.NoError(t, err)
	assert.Equal(t, StatusNoAmount, status)

	noMonth := txn(t, "Max Mustermann", "Dauerauftrag", "", "500")
	noMonth.RawDate = "demnächst"
	status, err = acc.Post(2, noMonth)
	require.NoError(t, err)
	assert.Equal(t, StatusNoMonth, status)

	assert.Empty(t, cells.amounts)
}

func TestPostIdempotentAcrossRuns(t *testing.T) {
	cells := newMemCells()
	acc := newAccumulator(cells)

	batch := []*model.Transaction{
		txn(t, "Max Mustermann", "Miete", "01.05.2025", "500"),
		txn(t, "Max Mustermann", "Miete", "15.05.2025", "450"),
		txn(t, "Max Mustermann", "NK", "01.06.2025", "120"),
	}

	for _, tx := range batch {
		_, err := acc.Post(7, tx)
		require.NoError(t, err)
	}
	wantMay := cells.amounts["M7"]
	wantJune := cells.amounts["O7"]
	wantNote := cells.notes["N7"]

	// Second run against the already-updated ledger: everything a duplicate.
	for _, tx := range batch {
		status, err := acc.Post(7, tx)
		require.NoError(t, err)
		assert.Equal(t, StatusDuplicate, status)
	}
	assert.True(t, cells.amounts["M7"].Equal(wantMay))
	assert.True(t, cells.amounts["O7"].Equal(wantJune))
	assert.Equal(t, wantNote, cells.notes["N7"])
}

func TestPostAuthorityKeywordInLog(t *testing.T) {
	cells := newMemCells()
	cells.amounts["G4"] = dec("300")
	cells.dates["H4"] = "03.02.2025"
	acc := newAccumulator(cells)

	status, err := acc.Post(4, txn(t, "Jobcenter Wuppertal", "Miete Max Mustermann Feb", "10.02.2025", "340"))
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, status)

	assert.Equal(t,
		"03.02.2025: 300,00 EUR\n10.02.2025 [Miete Max Mustermann Feb]: 340,00 EUR",
		cells.notes["H4"])
	assert.True(t, cells.amounts["G4"].Equal(dec("640")))
}
