package ranking

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

var costNumber = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// parseCost returns the first amount in a free-form cost string.
func parseCost(cost string) (float64, bool) {
	m := costNumber.FindString(cost)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// budgetFit is 1 inside the range or when nothing can be compared, and falls
// linearly to 0 as the cost moves away from the violated bound.
func budgetFit(cost string, budget *domain.Budget) float64 {
	if budget == nil {
		return 1
	}
	v, ok := parseCost(cost)
	if !ok {
		return 1
	}

	switch {
	case budget.Min != nil && v < *budget.Min:
		return penalty(*budget.Min-v, *budget.Min)
	case budget.Max != nil && v > *budget.Max:
		return penalty(v-*budget.Max, *budget.Max)
	default:
		return 1
	}
}

func penalty(distance, bound float64) float64 {
	scale := bound
	if scale <= 0 {
		scale = 1
	}
	return max(0, 1-distance/scale)
}
