// Package normalize canonicalizes free text so that tenant names and
// statement descriptions compare stably regardless of case, German umlauts,
// punctuation, or spacing.
package normalize

import (
	"regexp"
	"strings"
)

var (
	umlauts = strings.NewReplacer(
		"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	)
	nonAlnum   = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Text lower-cases the input, folds German diacritics (ä→ae, ö→oe, ü→ue,
// ß→ss), replaces punctuation with spaces, and collapses whitespace. Empty
// input yields the empty string.
//
// Every comparison in the engine runs on both sides through this function, so
// Text("Müller-Schmidt") == Text("mueller schmidt").
func Text(s string) string {
	t := strings.ToLower(s)
	t = umlauts.Replace(t)
	t = nonAlnum.ReplaceAllString(t, " ")
	t = whitespace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}
