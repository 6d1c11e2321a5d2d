package domain

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RawHit is an unprocessed search result.
type RawHit struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Stage   Stage  `json:"stage"`
}

// ProgramRecord is one extracted exchange program.
type ProgramRecord struct {
	ProgramName         string    `json:"programName"`
	Institution         string    `json:"institution"`
	Location            string    `json:"location"`
	Duration            string    `json:"duration"`
	Cost                string    `json:"cost,omitempty"`
	ApplicationDeadline string    `json:"applicationDeadline,omitempty"`
	Eligibility         string    `json:"eligibility"`
	Highlights          []string  `json:"highlights"`
	Description         string    `json:"description"`
	ProgramURL          string    `json:"programUrl"`
	MatchScore          *float64  `json:"matchScore,omitempty"`
	ExtractedAt         time.Time `json:"extractedAt"`
}

// IdentityKey identifies a program across hits and stages.
type IdentityKey struct {
	URL         string
	Institution string
}

func (k IdentityKey) String() string {
	return k.URL + "|" + k.Institution
}

// Identity returns the dedup key of r.
func (r *ProgramRecord) Identity() IdentityKey {
	return IdentityKey{
		URL:         NormalizeURL(r.ProgramURL),
		Institution: NormalizeInstitution(r.Institution),
	}
}

// NormalizeURL lower-cases u and strips scheme, leading "www.", fragment and
// trailing slashes.
func NormalizeURL(u string) string {
	s := strings.ToLower(strings.TrimSpace(u))
	if i := strings.Index(s, "#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/")
}

// NormalizeInstitution folds diacritics and case and collapses whitespace.
func NormalizeInstitution(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
