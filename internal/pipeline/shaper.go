package pipeline

import (
	"strings"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

const (
	generalSuffix  = "exchange program"
	specificSuffix = "study abroad application deadline tuition"
)

// Shaper builds the provider query text of each search stage.
type Shaper struct {
	educationDomains []string
}

// NewShaper creates a Shaper with the given site: hints.
func NewShaper(educationDomains []string) *Shaper {
	return &Shaper{educationDomains: educationDomains}
}

// Shape returns the text for stage. Non-search stages yield "".
func (s *Shaper) Shape(stage domain.Stage, q *domain.SearchQuery) string {
	switch stage {
	case domain.StageGeneral:
		return s.general(q)
	case domain.StageEducationSites:
		if len(s.educationDomains) == 0 {
			return s.general(q)
		}
		sites := make([]string, 0, len(s.educationDomains))
		for _, d := range s.educationDomains {
			sites = append(sites, "site:"+d)
		}
		return s.general(q) + " " + strings.Join(sites, " OR ")
	case domain.StageProgramSpecific:
		return s.specific(q)
	default:
		return ""
	}
}

func (s *Shaper) general(q *domain.SearchQuery) string {
	summary := q.Summary()
	if strings.Contains(strings.ToLower(summary), "exchange") {
		return summary
	}
	return summary + " " + generalSuffix
}

func (s *Shaper) specific(q *domain.SearchQuery) string {
	var terms []string
	if q.FreeText != "" {
		terms = append(terms, q.FreeText)
	}
	if q.FieldOfStudy != "" {
		terms = append(terms, q.FieldOfStudy)
	}
	if q.ProgramType != "" {
		terms = append(terms, string(q.ProgramType)+" program")
	}
	if q.EducationLevel != "" && q.EducationLevel != domain.LevelAny {
		terms = append(terms, string(q.EducationLevel))
	}
	terms = append(terms, q.Countries...)
	terms = append(terms, q.SpecialInterests...)
	terms = append(terms, specificSuffix)
	return strings.Join(terms, " ")
}
