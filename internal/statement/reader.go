package statement

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rentwerk/mietflow/internal/common"
	"github.com/rentwerk/mietflow/internal/model"
)

// Columns names the statement columns by their header text.
type Columns struct {
	Date     string
	Payee    string
	Purpose  string
	Category string
	Object   string
	Amount   string
}

// DefaultColumns returns the header names German banking exports use.
func DefaultColumns() Columns {
	return Columns{
		Date:     "Wertstellung",
		Payee:    "Empfänger/Auftraggeber",
		Purpose:  "Verwendungszweck",
		Category: "Kategorie",
		Object:   "Kontoname (Objekt)",
		Amount:   "Betrag",
	}
}

// Read loads a bank statement file, picking the reader by file extension:
// .xlsx/.xlsm are read as workbooks, .ofx/.qfx as OFX downloads, anything
// else as delimited text.
func Read(path string, cols Columns) ([]*model.Transaction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, cols)
	case ".ofx", ".qfx":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open statement: %w", err)
		}
		defer f.Close()
		return ReadOFX(f)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open statement: %w", err)
		}
		defer f.Close()
		return ReadCSV(f, cols)
	}
}

// ReadXLSX reads the first sheet of a statement workbook. Cell values are
// read raw so dates arrive as serial day counts and amounts as dot-decimal
// strings, independent of the workbook's display formats.
func ReadXLSX(path string, cols Columns) ([]*model.Transaction, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, common.ErrNoWorksheets
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read statement rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("statement sheet %q: %w", sheets[0], common.ErrEmptyStatement)
	}

	index, err := mapColumns(rows[0], cols)
	if err != nil {
		return nil, err
	}

	txns := make([]*model.Transaction, 0, len(rows)-1)
	for _, row := range rows[1:] {
		txns = append(txns, fromRecord(row, index))
	}
	return txns, nil
}

// columnIndex locates each expected column in the header row. When the
// expected headers are absent but at least six columns exist, the first six
// are taken positionally in the conventional order.
type columnIndex struct {
	date, payee, purpose, category, object, amount int
}

func mapColumns(header []string, cols Columns) (columnIndex, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.TrimSpace(h)] = i
	}

	wanted := []string{cols.Date, cols.Payee, cols.Purpose, cols.Category, cols.Object, cols.Amount}
	found := 0
	for _, w := range wanted {
		if _, ok := byName[w]; ok {
			found++
		}
	}
	if found < len(wanted) {
		if len(header) >= 6 {
			return columnIndex{date: 0, payee: 1, purpose: 2, category: 3, object: 4, amount: 5}, nil
		}
		return columnIndex{}, fmt.Errorf("statement header %v: %w", header, common.ErrMissingColumns)
	}

	return columnIndex{
		date:     byName[cols.Date],
		payee:    byName[cols.Payee],
		purpose:  byName[cols.Purpose],
		category: byName[cols.Category],
		object:   byName[cols.Object],
		amount:   byName[cols.Amount],
	}, nil
}

func fromRecord(row []string, ix columnIndex) *model.Transaction {
	t := &model.Transaction{
		Payee:    field(row, ix.payee),
		Purpose:  field(row, ix.purpose),
		Category: field(row, ix.category),
		Object:   field(row, ix.object),
	}
	t.ValueDate, t.RawDate = ResolveDate(field(row, ix.date))
	if amt, ok := ParseAmount(field(row, ix.amount)); ok {
		t.Amount = &amt
	}
	return t
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
