package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

const (
	maxHighlights       = 5
	minHighlightLength  = 10
	maxHighlightLength  = 200
	maxDescriptionChars = 400
	maxEligibility      = 2
)

var (
	titleSeparators = []string{" | ", " - ", " – ", " :: "}

	costPattern = regexp.MustCompile(
		`(?i)(?:[$€£¥]\s?\d[\d,]*(?:\.\d+)?|\d[\d,]*(?:\.\d+)?\s?(?:usd|eur|gbp|aud|cad|nzd|jpy|chf))`)
	deadlinePattern = regexp.MustCompile(
		`(?i)deadline\s*(?:is|:)?\s*((?:\d{1,2}\s+)?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?(?:\s+\d{1,2})?(?:,?\s+\d{4})?|\d{4}-\d{2}-\d{2})`)
	durationPattern = regexp.MustCompile(
		`(?i)\b((?:\d+(?:\s*-\s*\d+)?|one|two|three|four|six|twelve)\s+(?:weeks?|months?|years?|semesters?|terms?))\b|\b((?:one|full|academic)\s+(?:semester|year))\b`)
	locationPattern = regexp.MustCompile(`(?i)\blocation\s*:\s*([^.;\n]{2,80})`)
	sentenceSplit   = regexp.MustCompile(`[.!?]\s+`)
)

// HeuristicInterpreter extracts program fields from page structure and
// text patterns. It needs no external service.
type HeuristicInterpreter struct{}

// NewHeuristicInterpreter creates a HeuristicInterpreter.
func NewHeuristicInterpreter() *HeuristicInterpreter {
	return &HeuristicInterpreter{}
}

func (HeuristicInterpreter) Interpret(_ context.Context, page *Page) (*domain.ProgramRecord, error) {
	title := page.OGTitle
	if title == "" {
		title = page.Title
	}
	if title == "" && len(page.Headings) > 0 {
		title = page.Headings[0]
	}
	if title == "" {
		return nil, domain.ErrNotAProgram
	}

	segments := splitTitle(title)
	name := segments[0]
	if len(page.Headings) > 0 {
		name = page.Headings[0]
	}

	text := page.Text
	record := &domain.ProgramRecord{
		ProgramName:         name,
		Institution:         institution(page, segments),
		Location:            firstGroup(locationPattern, text),
		Duration:            firstGroup(durationPattern, text),
		Cost:                costPattern.FindString(text),
		ApplicationDeadline: firstGroup(deadlinePattern, text),
		Eligibility:         eligibility(text),
		Highlights:          highlights(page.ListItems),
		Description:         description(page),
		ProgramURL:          page.URL,
	}
	return record, nil
}

func splitTitle(title string) []string {
	for _, sep := range titleSeparators {
		if strings.Contains(title, sep) {
			parts := strings.Split(title, sep)
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return []string{strings.TrimSpace(title)}
}

func institution(page *Page, segments []string) string {
	if page.SiteName != "" {
		return page.SiteName
	}
	if len(segments) > 1 {
		return segments[len(segments)-1]
	}
	return page.Host
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	for _, g := range m[min(1, len(m)):] {
		if g = strings.TrimSpace(g); g != "" {
			return g
		}
	}
	return ""
}

func eligibility(text string) string {
	var found []string
	for _, s := range sentenceSplit.Split(text, -1) {
		lower := strings.ToLower(s)
		if strings.Contains(lower, "eligib") || strings.Contains(lower, "requirement") {
			found = append(found, strings.TrimSpace(s))
			if len(found) == maxEligibility {
				break
			}
		}
	}
	return strings.Join(found, ". ")
}

func highlights(items []string) []string {
	out := make([]string, 0, maxHighlights)
	for _, item := range items {
		if n := len([]rune(item)); n < minHighlightLength || n > maxHighlightLength {
			continue
		}
		out = append(out, item)
		if len(out) == maxHighlights {
			break
		}
	}
	return out
}

func description(page *Page) string {
	if page.Description != "" {
		return page.Description
	}
	r := []rune(page.Text)
	if len(r) <= maxDescriptionChars {
		return page.Text
	}
	return string(r[:maxDescriptionChars]) + "..."
}
