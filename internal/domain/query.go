// Package domain holds the exchange-program search types shared by every layer.
package domain

import "strings"

// EducationLevel is the normalized education level filter.
type EducationLevel string

const (
	LevelUndergraduate EducationLevel = "undergraduate"
	LevelGraduate      EducationLevel = "graduate"
	LevelPostgraduate  EducationLevel = "postgraduate"
	LevelAny           EducationLevel = "any"
)

// EducationLevels lists accepted levels in display order.
var EducationLevels = []EducationLevel{LevelUndergraduate, LevelGraduate, LevelPostgraduate, LevelAny}

// ProgramType is the normalized program type filter.
type ProgramType string

const (
	TypeSemester   ProgramType = "semester"
	TypeSummer     ProgramType = "summer"
	TypeYear       ProgramType = "year"
	TypeInternship ProgramType = "internship"
	TypeResearch   ProgramType = "research"
)

// ProgramTypes lists accepted program types in display order.
var ProgramTypes = []ProgramType{TypeSemester, TypeSummer, TypeYear, TypeInternship, TypeResearch}

// BudgetRangeRequest is the wire form of a budget filter.
type BudgetRangeRequest struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// SearchRequest is the POST body of a search. Every field is optional.
type SearchRequest struct {
	FreeTextQuery        string              `json:"freeTextQuery,omitempty"`
	PreferredCountries   []string            `json:"preferredCountries,omitempty"`
	EducationLevel       string              `json:"educationLevel,omitempty"`
	ProgramType          string              `json:"programType,omitempty"`
	FieldOfStudy         string              `json:"fieldOfStudy,omitempty"`
	Duration             string              `json:"duration,omitempty"`
	BudgetRange          *BudgetRangeRequest `json:"budgetRange,omitempty"`
	StartDate            string              `json:"startDate,omitempty"`
	SpecialInterests     []string            `json:"specialInterests,omitempty"`
	LanguageRequirements []string            `json:"languageRequirements,omitempty"`
	ClientID             string              `json:"clientId,omitempty"`
}

// Budget is a validated budget filter. At least one bound is set and
// Min <= Max when both are.
type Budget struct {
	Min      *float64
	Max      *float64
	Currency string
}

// SearchQuery is a normalized, read-only search. Build it with query.Normalizer.
type SearchQuery struct {
	FreeText             string
	Countries            []string
	EducationLevel       EducationLevel
	ProgramType          ProgramType
	FieldOfStudy         string
	Duration             string
	StartDate            string
	SpecialInterests     []string
	LanguageRequirements []string
	Budget               *Budget
	ConnectionID         string
}

// Request converts q back to its wire form.
func (q *SearchQuery) Request() SearchRequest {
	req := SearchRequest{
		FreeTextQuery:        q.FreeText,
		PreferredCountries:   cloneStrings(q.Countries),
		EducationLevel:       string(q.EducationLevel),
		ProgramType:          string(q.ProgramType),
		FieldOfStudy:         q.FieldOfStudy,
		Duration:             q.Duration,
		StartDate:            q.StartDate,
		SpecialInterests:     cloneStrings(q.SpecialInterests),
		LanguageRequirements: cloneStrings(q.LanguageRequirements),
		ClientID:             q.ConnectionID,
	}
	if q.Budget != nil {
		req.BudgetRange = &BudgetRangeRequest{
			Min:      cloneFloat(q.Budget.Min),
			Max:      cloneFloat(q.Budget.Max),
			Currency: q.Budget.Currency,
		}
	}
	return req
}

// Summary renders the query as the human-readable searchQuery string.
func (q *SearchQuery) Summary() string {
	var parts []string
	if q.FreeText != "" {
		parts = append(parts, q.FreeText)
	}
	if q.FieldOfStudy != "" {
		parts = append(parts, q.FieldOfStudy)
	}
	if q.ProgramType != "" {
		parts = append(parts, string(q.ProgramType)+" program")
	}
	if q.EducationLevel != "" && q.EducationLevel != LevelAny {
		parts = append(parts, string(q.EducationLevel))
	}
	if len(q.Countries) > 0 {
		parts = append(parts, "in "+strings.Join(q.Countries, ", "))
	}
	if len(parts) == 0 {
		return "exchange programs"
	}
	return strings.Join(parts, " ")
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
