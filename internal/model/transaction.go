// Package model defines the core data types shared across the engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical rendering of all dates written to the ledger.
const DateLayout = "02.01.2006"

// Transaction represents a single bank-statement line.
//
// The raw fields come straight from the statement reader. The derived fields
// are computed exactly once per transaction (see classify.Derive) because the
// set is iterated more than once: once for the audit sheet and once per tenant
// during matching.
type Transaction struct {
	ValueDate *time.Time       // canonical value date, nil when unparsable
	RawDate   string           // original date text, kept for fallback month inference
	Payee     string           // Empfänger/Auftraggeber
	Purpose   string           // Verwendungszweck
	Category  string           // Kategorie
	Object    string           // Kontoname (Objekt)
	Amount    *decimal.Decimal // nil when unparsable

	// Derived fields.
	NormPayee     string       // normalized payee name for exact tenant matching
	NormCombined  string       // normalized payee+purpose+object text
	Class         PaymentClass // classified payment purpose
	SearchHit     string       // display keyword: matched substring, the full purpose for authority payers, or the class label
	NormHit       string       // normalized SearchHit, used for the authority substring match
	MonthOverride string       // ledger month code named explicitly in the text, "" when absent
}

// DisplayDate renders the canonical value date as DD.MM.YYYY, or "" when the
// date could not be parsed.
func (t *Transaction) DisplayDate() string {
	if t.ValueDate == nil {
		return ""
	}
	return t.ValueDate.Format(DateLayout)
}

// HasAmount reports whether the statement line carried a parsable amount.
func (t *Transaction) HasAmount() bool {
	return t.Amount != nil
}
