package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rentwerk/mietflow/internal/common"
	"github.com/rentwerk/mietflow/internal/model"
)

const noteAuthor = "mietflow"

// WorkbookConfig names the sheets and columns of the tenant workbook.
type WorkbookConfig struct {
	PreferredSheet string // ledger sheet name, first sheet when absent
	AuditSheet     string // audit sheet, rebuilt from scratch each run
	OwnerColumn    string // column holding the owner names
}

// DefaultWorkbookConfig matches the workbook layout the ledger has always
// used.
func DefaultWorkbookConfig() WorkbookConfig {
	return WorkbookConfig{
		PreferredSheet: "mieter",
		AuditSheet:     "suchtreffer",
		OwnerColumn:    "A",
	}
}

// mergedRange is one merged cell range of the ledger sheet, pre-resolved so
// cell writes can be redirected to the range's anchor.
type mergedRange struct {
	anchor                         string
	minCol, minRow, maxCol, maxRow int
}

// Workbook adapts an XLSX file to the cell, tenant and audit-sheet surfaces
// the engine works against. All mutation stays in memory until Save.
type Workbook struct {
	f           *excelize.File
	cfg         WorkbookConfig
	sheet       string
	merged      []mergedRange
	amountStyle int
	dateStyle   int
	auditRow    int
}

// OpenWorkbook loads the tenant ledger. The preferred sheet is used when it
// exists, otherwise the first sheet of the workbook.
func OpenWorkbook(path string, cfg WorkbookConfig) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger workbook: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, common.ErrNoWorksheets
	}
	sheet := sheets[0]
	if idx, err := f.GetSheetIndex(cfg.PreferredSheet); err == nil && idx >= 0 {
		sheet = cfg.PreferredSheet
	}

	w := &Workbook{f: f, cfg: cfg, sheet: sheet}

	if w.amountStyle, err = newNumFmtStyle(f, "#,##0.00"); err != nil {
		_ = f.Close()
		return nil, err
	}
	if w.dateStyle, err = newNumFmtStyle(f, "dd.mm.yyyy"); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.loadMergedRanges(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func newNumFmtStyle(f *excelize.File, format string) (int, error) {
	id, err := f.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return 0, fmt.Errorf("failed to create cell style: %w", err)
	}
	return id, nil
}

func (w *Workbook) loadMergedRanges() error {
	mcs, err := w.f.GetMergeCells(w.sheet)
	if err != nil {
		return fmt.Errorf("failed to read merged ranges: %w", err)
	}
	for _, mc := range mcs {
		minCol, minRow, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		maxCol, maxRow, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		w.merged = append(w.merged, mergedRange{
			anchor: mc.GetStartAxis(),
			minCol: minCol, minRow: minRow,
			maxCol: maxCol, maxRow: maxRow,
		})
	}
	return nil
}

// anchor redirects a coordinate inside a merged range to the range's anchor
// cell; writes anywhere else in the range would be lost.
func (w *Workbook) anchor(cell string) string {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return cell
	}
	for _, m := range w.merged {
		if col >= m.minCol && col <= m.maxCol && row >= m.minRow && row <= m.maxRow {
			return m.anchor
		}
	}
	return cell
}

// Sheet returns the resolved ledger sheet name.
func (w *Workbook) Sheet() string {
	return w.sheet
}

// TenantRows reads the ledger rows below the header: owner, occupant and
// property from the first three columns.
func (w *Workbook) TenantRows() ([]model.TenantRow, error) {
	rows, err := w.f.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}
	tenants := make([]model.TenantRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		tenants = append(tenants, model.TenantRow{
			Owner:    cellAt(row, 0),
			Occupant: cellAt(row, 1),
			Property: cellAt(row, 2),
		})
	}
	return tenants, nil
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// OwnerColumn scans the owner-name column by absolute coordinates, one entry
// per sheet row starting at row 1. This is what the row index is built from;
// it stays correct even when header-based row numbering diverges from the
// sheet's.
func (w *Workbook) OwnerColumn() ([]string, error) {
	rows, err := w.f.GetRows(w.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger rows: %w", err)
	}
	column := make([]string, 0, len(rows))
	for r := 1; r <= len(rows); r++ {
		v, err := w.f.GetCellValue(w.sheet, fmt.Sprintf("%s%d", w.cfg.OwnerColumn, r))
		if err != nil {
			return nil, fmt.Errorf("failed to scan column %s row %d: %w", w.cfg.OwnerColumn, r, err)
		}
		column = append(column, v)
	}
	return column, nil
}

// AmountValue implements CellStore.
func (w *Workbook) AmountValue(cell string) (decimal.Decimal, error) {
	v, err := w.f.GetCellValue(w.sheet, w.anchor(cell), excelize.Options{RawCellValue: true})
	if err != nil {
		return decimal.Zero, err
	}
	return parseCellAmount(v), nil
}

// parseCellAmount reads a cell's numeric content. Raw values arrive as
// dot-decimal strings; hand-typed text may still use the German comma form.
// Anything unparsable counts as zero, matching how an empty month reads.
func parseCellAmount(v string) decimal.Decimal {
	s := strings.TrimSpace(v)
	if s == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	return decimal.Zero
}

// DateDisplay implements CellStore, returning the formatted cell content.
func (w *Workbook) DateDisplay(cell string) (string, error) {
	v, err := w.f.GetCellValue(w.sheet, w.anchor(cell))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// SetAmount implements CellStore.
func (w *Workbook) SetAmount(cell string, v decimal.Decimal) error {
	target := w.anchor(cell)
	f, _ := v.Round(2).Float64()
	if err := w.f.SetCellValue(w.sheet, target, f); err != nil {
		return err
	}
	return w.f.SetCellStyle(w.sheet, target, target, w.amountStyle)
}

// SetDate implements CellStore. A nil time clears the value but keeps the
// date format on the cell.
func (w *Workbook) SetDate(cell string, t *time.Time) error {
	target := w.anchor(cell)
	if t == nil {
		if err := w.f.SetCellValue(w.sheet, target, nil); err != nil {
			return err
		}
	} else if err := w.f.SetCellValue(w.sheet, target, *t); err != nil {
		return err
	}
	return w.f.SetCellStyle(w.sheet, target, target, w.dateStyle)
}

// Note implements CellStore.
func (w *Workbook) Note(cell string) (string, error) {
	comments, err := w.f.GetComments(w.sheet)
	if err != nil {
		return "", err
	}
	target := w.anchor(cell)
	for _, c := range comments {
		if c.Cell != target {
			continue
		}
		if len(c.Paragraph) > 0 {
			var b strings.Builder
			for _, run := range c.Paragraph {
				b.WriteString(run.Text)
			}
			return b.String(), nil
		}
		return c.Text, nil
	}
	return "", nil
}

// SetNote implements CellStore, replacing any existing note.
func (w *Workbook) SetNote(cell, text string) error {
	target := w.anchor(cell)
	_ = w.f.DeleteComment(w.sheet, target)
	return w.f.AddComment(w.sheet, excelize.Comment{
		Cell:   target,
		Author: noteAuthor,
		Paragraph: []excelize.RichTextRun{
			{Text: text},
		},
	})
}

// ClearNote implements CellStore.
func (w *Workbook) ClearNote(cell string) error {
	return w.f.DeleteComment(w.sheet, w.anchor(cell))
}

// ResetAuditSheet drops any previous audit sheet and starts a fresh one with
// the given header row.
func (w *Workbook) ResetAuditSheet(header []string) error {
	if idx, err := w.f.GetSheetIndex(w.cfg.AuditSheet); err == nil && idx >= 0 {
		if err := w.f.DeleteSheet(w.cfg.AuditSheet); err != nil {
			return fmt.Errorf("failed to drop audit sheet: %w", err)
		}
	}
	if _, err := w.f.NewSheet(w.cfg.AuditSheet); err != nil {
		return fmt.Errorf("failed to create audit sheet: %w", err)
	}
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := w.f.SetSheetRow(w.cfg.AuditSheet, "A1", &cells); err != nil {
		return fmt.Errorf("failed to write audit header: %w", err)
	}
	w.auditRow = 1
	return nil
}

// AppendAuditRow writes one audit line: date, payee, keyword, amount. The
// date cell becomes a true calendar date where one exists and stays blank
// otherwise.
func (w *Workbook) AppendAuditRow(date *time.Time, payee, keyword string, amount *decimal.Decimal) error {
	w.auditRow++
	r := w.auditRow
	sheet := w.cfg.AuditSheet

	dateCell := fmt.Sprintf("A%d", r)
	if date != nil {
		if err := w.f.SetCellValue(sheet, dateCell, *date); err != nil {
			return err
		}
	}
	if err := w.f.SetCellStyle(sheet, dateCell, dateCell, w.dateStyle); err != nil {
		return err
	}

	if err := w.f.SetCellValue(sheet, fmt.Sprintf("B%d", r), payee); err != nil {
		return err
	}
	if err := w.f.SetCellValue(sheet, fmt.Sprintf("C%d", r), keyword); err != nil {
		return err
	}

	amountCell := fmt.Sprintf("D%d", r)
	if amount != nil {
		f, _ := amount.Round(2).Float64()
		if err := w.f.SetCellValue(sheet, amountCell, f); err != nil {
			return err
		}
	}
	return w.f.SetCellStyle(sheet, amountCell, amountCell, w.amountStyle)
}

// Save persists the mutated workbook to path. Nothing touches the input file
// itself; a failed run leaves no partial artifact behind.
func (w *Workbook) Save(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save ledger artifact: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.f.Close()
}
