// Package match associates statement transactions with tenant ledger rows.
package match

import (
	"strings"

	"github.com/rentwerk/mietflow/internal/model"
	"github.com/rentwerk/mietflow/internal/normalize"
)

// Config controls the authority special case.
type Config struct {
	// OwnerKeywords mark a ledger row as an authority payer when one of them
	// occurs in the normalized owner name. For such rows the payment arrives
	// under the authority's name, and the occupant's name has to be found
	// inside the payment description instead.
	OwnerKeywords []string
}

// DefaultConfig returns the standard authority markers.
func DefaultConfig() Config {
	return Config{
		OwnerKeywords: []string{"jobcenter", "agentur", "stadt wuppertal"},
	}
}

// Index resolves tenant owner names to their absolute ledger row. It is built
// once by scanning the owner-name column top to bottom, so later writes stay
// aligned even when header-based and coordinate-based row numbering diverge.
type Index struct {
	rows map[string]int
}

// BuildIndex maps normalized owner names to 1-based sheet rows. The first
// occurrence wins on duplicate normalized names.
func BuildIndex(column []string) *Index {
	rows := make(map[string]int, len(column))
	for i, raw := range column {
		key := normalize.Text(raw)
		if key == "" {
			continue
		}
		if _, seen := rows[key]; !seen {
			rows[key] = i + 1
		}
	}
	return &Index{rows: rows}
}

// Row returns the resolved sheet row for an owner name.
func (ix *Index) Row(owner string) (int, bool) {
	r, ok := ix.rows[normalize.Text(owner)]
	return r, ok
}

// Matcher selects the transactions belonging to a tenant row.
type Matcher struct {
	cfg Config
}

// New creates a matcher.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// isAuthorityOwner reports whether a normalized owner name carries one of the
// authority markers.
func (m *Matcher) isAuthorityOwner(normOwner string) bool {
	for _, kw := range m.cfg.OwnerKeywords {
		if strings.Contains(normOwner, kw) {
			return true
		}
	}
	return false
}

// Transactions returns the subset of pool matching the tenant, preserving
// pool order. Authority rows with an occupant name match by substring against
// the normalized display-keyword text; everyone else matches by exact
// normalized payee name.
func (m *Matcher) Transactions(tenant model.TenantRow, pool []*model.Transaction) []*model.Transaction {
	ownerNorm := normalize.Text(tenant.Owner)
	if ownerNorm == "" {
		return nil
	}
	occupantNorm := normalize.Text(tenant.Occupant)

	var out []*model.Transaction
	if m.isAuthorityOwner(ownerNorm) && occupantNorm != "" {
		for _, t := range pool {
			if strings.Contains(t.NormHit, occupantNorm) {
				out = append(out, t)
			}
		}
		return out
	}

	for _, t := range pool {
		if t.NormPayee == ownerNorm {
			out = append(out, t)
		}
	}
	return out
}
