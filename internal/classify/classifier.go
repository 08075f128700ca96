// Package classify labels statement transactions: payment purpose, display
// keyword, authority-payer handling, and ledger month resolution.
package classify

import (
	"regexp"
	"strings"

	"github.com/rentwerk/mietflow/internal/model"
	"github.com/rentwerk/mietflow/internal/normalize"
)

// rule pairs a payment class with the patterns that identify it. Rules are
// evaluated in order; the first match wins.
type rule struct {
	class    model.PaymentClass
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		res = append(res, regexp.MustCompile(`(?i)`+e))
	}
	return res
}

// Config controls authority-payer detection.
type Config struct {
	// AuthorityPayers are regexes matched against the normalized payee name.
	// A match means the payer is a government office whose purpose text is
	// informative and must be kept verbatim as the display keyword.
	AuthorityPayers []string
}

// DefaultConfig returns the authority payers the ledger is maintained for.
func DefaultConfig() Config {
	return Config{
		AuthorityPayers: []string{
			`\bjobcenter\b`,
			`\bbundesagentur\b`,
			`\bstadt\s*wuppertal\b`,
		},
	}
}

// Classifier labels transactions by priority-ordered regex rules.
type Classifier struct {
	rules           []rule
	authorityPayers []*regexp.Regexp
	monthPattern    *regexp.Regexp
	monthCodes      map[string]string
}

// New creates a classifier with the standard rent rule set.
func New(cfg Config) *Classifier {
	payers := make([]*regexp.Regexp, 0, len(cfg.AuthorityPayers))
	for _, p := range cfg.AuthorityPayers {
		payers = append(payers, regexp.MustCompile(p))
	}

	pattern, codes := monthNamePattern()

	return &Classifier{
		rules: []rule{
			// Synonyms and abbreviations included; order is priority.
			{model.ClassRent, compileAll(`\bmiet\w*\b`, `\bkm\b`, `\bkaltmiete\b`, `\bstellplatz\b`, `\bgarage\b`)},
			{model.ClassUtilities, compileAll(`\bnebenkosten\b`, `\bnk\b`, `\bbetriebskosten\b`, `\bbk\b`)},
			{model.ClassBackPayment, compileAll(`\bnach-?zahlung\b`, `\bnachz\b`)},
			{model.ClassInstallment, compileAll(`\brate(nzahlung)?\b`)},
			{model.ClassFee, compileAll(`\bhonorar\b`)},
		},
		authorityPayers: payers,
		monthPattern:    pattern,
		monthCodes:      codes,
	}
}

// Classify labels the combined free text of a transaction. Unrecognized text
// is ClassOther.
func (c *Classifier) Classify(text string) model.PaymentClass {
	for _, r := range c.rules {
		for _, p := range r.patterns {
			if p.MatchString(text) {
				return r.class
			}
		}
	}
	return model.ClassOther
}

// KeywordHit returns the first literal substring that triggered a class
// match, or "" when nothing matched.
func (c *Classifier) KeywordHit(text string) string {
	for _, r := range c.rules {
		for _, p := range r.patterns {
			if m := p.FindString(text); m != "" {
				return m
			}
		}
	}
	return ""
}

// IsAuthorityPayer reports whether the normalized payee name identifies a
// government payer.
func (c *Classifier) IsAuthorityPayer(normPayee string) bool {
	for _, p := range c.authorityPayers {
		if p.MatchString(normPayee) {
			return true
		}
	}
	return false
}

// Derive computes all derived transaction fields in one place. It runs
// exactly once per transaction; the audit sheet and every tenant's matching
// pass read the cached results.
func (c *Classifier) Derive(t *model.Transaction) {
	combined := t.Purpose + " " + t.Category + " " + t.Object

	t.Class = c.Classify(combined)
	t.NormPayee = normalize.Text(t.Payee)
	t.NormCombined = normalize.Text(t.Payee + " " + t.Purpose + " " + t.Object)

	hit := c.KeywordHit(combined)
	if c.IsAuthorityPayer(t.NormPayee) {
		// Authority descriptions embed the actual tenant's name; keep the
		// whole purpose text instead of truncating to a category keyword.
		hit = t.Purpose
	}
	if strings.TrimSpace(hit) == "" {
		hit = string(t.Class)
	}
	t.SearchHit = hit
	t.NormHit = normalize.Text(hit)

	t.MonthOverride = c.monthOverride(t.Purpose + " " + t.Category)
}

// DeriveAll derives every transaction of a statement.
func (c *Classifier) DeriveAll(txns []*model.Transaction) {
	for _, t := range txns {
		c.Derive(t)
	}
}
