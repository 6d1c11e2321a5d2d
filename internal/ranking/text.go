package ranking

import (
	"strings"
	"unicode"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "by": {}, "for": {},
	"from": {}, "in": {}, "into": {}, "is": {}, "of": {}, "on": {}, "or": {}, "the": {},
	"to": {}, "with": {}, "program": {}, "programs": {}, "programme": {}, "exchange": {},
	"study": {}, "abroad": {}, "i": {}, "want": {}, "looking": {}, "some": {},
}

// normalizeText lower-cases s, folds diacritics, replaces non-alphanumerics
// with spaces and pads the result so " term " lookups match whole words.
func normalizeText(parts ...string) string {
	folded := domain.NormalizeInstitution(strings.Join(parts, " "))
	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// contentTokens returns the distinct non-stop-word tokens of s in order.
func contentTokens(s string) []string {
	fields := strings.Fields(normalizeText(s))
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// containsTerm reports whether padded text holds term as whole words.
func containsTerm(padded, term string) bool {
	t := strings.TrimSpace(normalizeText(term))
	if t == "" {
		return false
	}
	return strings.Contains(padded, " "+t+" ")
}

// fractionFound is the share of terms present in padded; no terms is full credit.
func fractionFound(padded string, terms []string) float64 {
	if len(terms) == 0 {
		return 1
	}
	found := 0
	for _, t := range terms {
		if containsTerm(padded, t) {
			found++
		}
	}
	return float64(found) / float64(len(terms))
}
