// Package report builds the audit sheet: one deterministically ordered line
// per classified transaction, for manual review. The sheet is informational
// only and never read back by the engine.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentwerk/mietflow/internal/model"
)

// Sink receives the generated audit rows. The workbook implements it; tests
// substitute a recorder.
type Sink interface {
	ResetAuditSheet(header []string) error
	AppendAuditRow(date *time.Time, payee, keyword string, amount *decimal.Decimal) error
}

// Header is the audit sheet's header row.
var Header = []string{"Datum", "Name", "Suchwort", "Betrag"}

// BuildAuditSheet rebuilds the audit sheet from scratch: postable classes
// only, stable-sorted by (payee, date, amount) with missing values ordered
// last and ties keeping input order. It returns the sorted subset, which is
// also the pool the tenant matcher draws from.
func BuildAuditSheet(sink Sink, txns []*model.Transaction) ([]*model.Transaction, error) {
	pool := make([]*model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Class.Postable() {
			pool = append(pool, t)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return less(pool[i], pool[j])
	})

	if err := sink.ResetAuditSheet(Header); err != nil {
		return nil, fmt.Errorf("failed to reset audit sheet: %w", err)
	}
	for _, t := range pool {
		if err := sink.AppendAuditRow(t.ValueDate, t.Payee, t.SearchHit, t.Amount); err != nil {
			return nil, fmt.Errorf("failed to append audit row: %w", err)
		}
	}
	return pool, nil
}

func less(a, b *model.Transaction) bool {
	if a.Payee != b.Payee {
		return a.Payee < b.Payee
	}
	if c := compareDates(a.ValueDate, b.ValueDate); c != 0 {
		return c < 0
	}
	return compareAmounts(a.Amount, b.Amount) < 0
}

// compareDates orders missing dates last.
func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case b.Before(*a):
		return 1
	}
	return 0
}

// compareAmounts orders missing amounts last.
func compareAmounts(a, b *decimal.Decimal) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Cmp(*b)
}
