// Package query validates and canonicalizes search requests.
package query

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

const (
	defaultMaxQueryLength = 500
	defaultMaxCountries   = 25
	defaultCurrency       = "USD"
)

// Config bounds accepted queries.
type Config struct {
	MaxQueryLength int `env:"QUERY_MAX_LENGTH"    yaml:"max_query_length"`
	MaxCountries   int `env:"QUERY_MAX_COUNTRIES" yaml:"max_countries"`
}

// SetDefaults fills zero limits.
func (c *Config) SetDefaults() {
	if c.MaxQueryLength == 0 {
		c.MaxQueryLength = defaultMaxQueryLength
	}
	if c.MaxCountries == 0 {
		c.MaxCountries = defaultMaxCountries
	}
}

// Normalizer turns a SearchRequest into a SearchQuery. It is safe for
// concurrent use and performs no I/O.
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(cfg Config) *Normalizer {
	cfg.SetDefaults()
	return &Normalizer{cfg: cfg}
}

// Normalize validates req. Errors are *domain.ValidationError.
func (n *Normalizer) Normalize(req domain.SearchRequest) (*domain.SearchQuery, error) {
	q := &domain.SearchQuery{
		FreeText:             strings.TrimSpace(req.FreeTextQuery),
		Countries:            dedupeFold(req.PreferredCountries),
		FieldOfStudy:         strings.TrimSpace(req.FieldOfStudy),
		Duration:             strings.TrimSpace(req.Duration),
		StartDate:            strings.TrimSpace(req.StartDate),
		SpecialInterests:     dedupeFold(req.SpecialInterests),
		LanguageRequirements: dedupeFold(req.LanguageRequirements),
		ConnectionID:         strings.TrimSpace(req.ClientID),
	}

	if utf8.RuneCountInString(q.FreeText) > n.cfg.MaxQueryLength {
		return nil, &domain.ValidationError{
			Field:   "freeTextQuery",
			Message: fmt.Sprintf("must be at most %d characters", n.cfg.MaxQueryLength),
		}
	}
	if len(q.Countries) > n.cfg.MaxCountries {
		return nil, &domain.ValidationError{
			Field:   "preferredCountries",
			Message: fmt.Sprintf("must list at most %d countries", n.cfg.MaxCountries),
		}
	}

	level, err := parseEnum("educationLevel", req.EducationLevel, domain.EducationLevels)
	if err != nil {
		return nil, err
	}
	q.EducationLevel = level

	programType, err := parseEnum("programType", req.ProgramType, domain.ProgramTypes)
	if err != nil {
		return nil, err
	}
	q.ProgramType = programType

	budget, err := normalizeBudget(req.BudgetRange)
	if err != nil {
		return nil, err
	}
	q.Budget = budget

	return q, nil
}

func parseEnum[T ~string](field, raw string, allowed []T) (T, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return "", nil
	}
	for _, a := range allowed {
		if string(a) == v {
			return a, nil
		}
	}

	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", &domain.ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%q is not one of %s", raw, strings.Join(names, ", ")),
	}
}

func normalizeBudget(in *domain.BudgetRangeRequest) (*domain.Budget, error) {
	if in == nil || (in.Min == nil && in.Max == nil) {
		return nil, nil //nolint:nilnil // absent budget
	}

	lo, err := clampBound("budgetRange.min", in.Min)
	if err != nil {
		return nil, err
	}
	hi, err := clampBound("budgetRange.max", in.Max)
	if err != nil {
		return nil, err
	}
	// Order is checked on the raw bounds, before clamping.
	if lo != nil && hi != nil && *in.Min > *in.Max {
		return nil, &domain.ValidationError{
			Field:   "budgetRange",
			Message: fmt.Sprintf("min %.2f is greater than max %.2f", *in.Min, *in.Max),
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return &domain.Budget{Min: lo, Max: hi, Currency: currency}, nil
}

func clampBound(field string, v *float64) (*float64, error) {
	if v == nil {
		return nil, nil //nolint:nilnil // unbounded side
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil, &domain.ValidationError{Field: field, Message: "must be a finite number"}
	}
	out := max(*v, 0)
	return &out, nil
}

// dedupeFold trims entries, drops empties and removes case-insensitive
// duplicates, keeping the first spelling and order.
func dedupeFold(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
