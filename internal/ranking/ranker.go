// Package ranking deduplicates extracted programs and orders them by how well
// they match a query.
package ranking

import (
	"math"
	"sort"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

// Component weights. They sum to 100.
const (
	weightFreeText  = 35
	weightCountry   = 20
	weightField     = 15
	weightBudget    = 15
	weightTypeLevel = 10
	weightInterests = 5

	maxScore = 100
)

var programTypeTerms = map[domain.ProgramType][]string{
	domain.TypeSemester:   {"semester", "term", "trimester", "quarter"},
	domain.TypeSummer:     {"summer"},
	domain.TypeYear:       {"year", "academic year", "full year", "two semesters"},
	domain.TypeInternship: {"internship", "intern", "placement", "work experience"},
	domain.TypeResearch:   {"research", "laboratory", "lab", "thesis"},
}

var levelTerms = map[domain.EducationLevel][]string{
	domain.LevelUndergraduate: {"undergraduate", "bachelor", "bachelors", "college"},
	domain.LevelGraduate:      {"graduate", "master", "masters", "mba", "msc"},
	domain.LevelPostgraduate:  {"postgraduate", "phd", "doctoral", "doctorate", "postdoctoral"},
}

// Rank removes identity duplicates, keeping the first, scores every remaining
// record and sorts them by descending score. Ties keep input order.
func Rank(records []domain.ProgramRecord, q *domain.SearchQuery) []domain.ProgramRecord {
	if q == nil {
		q = &domain.SearchQuery{}
	}

	deduped := Dedupe(records)
	s := newScorer(q)
	for i := range deduped {
		score := s.score(&deduped[i])
		deduped[i].MatchScore = &score
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return *deduped[i].MatchScore > *deduped[j].MatchScore
	})
	return deduped
}

// Dedupe keeps the first record of every identity key. The result is a new slice.
func Dedupe(records []domain.ProgramRecord) []domain.ProgramRecord {
	seen := make(map[domain.IdentityKey]struct{}, len(records))
	out := make([]domain.ProgramRecord, 0, len(records))
	for _, r := range records {
		key := r.Identity()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

type scorer struct {
	query      *domain.SearchQuery
	textTerms  []string
	fieldTerms []string
	extraTerms []string
	countries  *countryMatcher
}

func newScorer(q *domain.SearchQuery) *scorer {
	extra := make([]string, 0, len(q.SpecialInterests)+len(q.LanguageRequirements))
	extra = append(extra, q.SpecialInterests...)
	extra = append(extra, q.LanguageRequirements...)

	return &scorer{
		query:      q,
		textTerms:  contentTokens(q.FreeText),
		fieldTerms: contentTokens(q.FieldOfStudy),
		extraTerms: extra,
		countries:  newCountryMatcher(q.Countries),
	}
}

func (s *scorer) score(r *domain.ProgramRecord) float64 {
	body := normalizeText(append([]string{r.ProgramName, r.Description}, r.Highlights...)...)
	withInstitution := body + normalizeText(r.Institution)
	place := normalizeText(r.Location, r.Institution)
	everything := withInstitution + normalizeText(r.Location, r.Duration, r.Eligibility)

	total := weightFreeText*fractionFound(withInstitution, s.textTerms) +
		weightCountry*s.countries.score(place) +
		weightField*fractionFound(body, s.fieldTerms) +
		weightBudget*budgetFit(r.Cost, s.query.Budget) +
		weightTypeLevel*s.typeLevel(body+normalizeText(r.Duration)) +
		weightInterests*fractionFound(everything, s.extraTerms)

	return clamp(math.Round(total*10) / 10)
}

func (s *scorer) typeLevel(padded string) float64 {
	typeScore := 1.0
	if terms, ok := programTypeTerms[s.query.ProgramType]; ok {
		typeScore = anyFound(padded, terms)
	}
	levelScore := 1.0
	if terms, ok := levelTerms[s.query.EducationLevel]; ok {
		levelScore = anyFound(padded, terms)
	}
	return (typeScore + levelScore) / 2
}

func anyFound(padded string, terms []string) float64 {
	for _, t := range terms {
		if containsTerm(padded, t) {
			return 1
		}
	}
	return 0
}

func clamp(v float64) float64 {
	return min(max(v, 0), maxScore)
}
