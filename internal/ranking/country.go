package ranking

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

var countryAliases = map[string][]string{
	"united states":  {"usa", "u s a", "united states of america", "america"},
	"united kingdom": {"uk", "u k", "britain", "great britain", "england", "scotland", "wales", "northern ireland"},
	"south korea":    {"korea", "republic of korea"},
	"netherlands":    {"holland", "the netherlands"},
	"czech republic": {"czechia"},
	"ireland":        {"eire"},
	"new zealand":    {"aotearoa"},
	"china":          {"prc", "people s republic of china"},
	"taiwan":         {"republic of china"},
	"germany":        {"deutschland"},
	"spain":          {"espana"},
	"japan":          {"nippon"},
}

// countryMatcher finds preferred countries, or their aliases, in a single
// pass over padded text.
type countryMatcher struct {
	matcher *ahocorasick.Matcher
}

func newCountryMatcher(countries []string) *countryMatcher {
	var patterns []string
	for _, c := range countries {
		name := strings.TrimSpace(normalizeText(c))
		if name == "" {
			continue
		}
		patterns = append(patterns, " "+name+" ")
		for _, alias := range countryAliases[name] {
			patterns = append(patterns, " "+alias+" ")
		}
	}
	if len(patterns) == 0 {
		return &countryMatcher{}
	}
	return &countryMatcher{matcher: ahocorasick.NewStringMatcher(patterns)}
}

// score is 1 when padded mentions a preferred country or there are none.
func (m *countryMatcher) score(padded string) float64 {
	if m.matcher == nil {
		return 1
	}
	if len(m.matcher.Match([]byte(padded))) > 0 {
		return 1
	}
	return 0
}
