package query_test

import (
	"strings"
	"testing"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func newNormalizer() *query.Normalizer {
	return query.NewNormalizer(query.Config{})
}

func TestNormalize_TrimsAndDedupes(t *testing.T) {
	t.Parallel()

	q, err := newNormalizer().Normalize(domain.SearchRequest{
		FreeTextQuery:      "  business program in Australia  ",
		PreferredCountries: []string{"Australia", " japan ", "AUSTRALIA", "", "Japan", "Canada"},
		EducationLevel:     " Graduate ",
		ProgramType:        "SEMESTER",
		SpecialInterests:   []string{"Surfing", "surfing"},
		ClientID:           " abc ",
	})
	require.NoError(t, err)

	assert.Equal(t, "business program in Australia", q.FreeText)
	assert.Equal(t, []string{"Australia", "japan", "Canada"}, q.Countries)
	assert.Equal(t, domain.LevelGraduate, q.EducationLevel)
	assert.Equal(t, domain.TypeSemester, q.ProgramType)
	assert.Equal(t, []string{"Surfing"}, q.SpecialInterests)
	assert.Equal(t, "abc", q.ConnectionID)
	assert.Nil(t, q.Budget)
}

func TestNormalize_EmptyFreeTextIsAbsent(t *testing.T) {
	t.Parallel()

	q, err := newNormalizer().Normalize(domain.SearchRequest{FreeTextQuery: "   "})
	require.NoError(t, err)
	assert.Empty(t, q.FreeText)
}

func TestNormalize_ValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		req   domain.SearchRequest
		field string
	}{
		{
			name:  "budget min greater than max",
			req:   domain.SearchRequest{BudgetRange: &domain.BudgetRangeRequest{Min: ptr(20000), Max: ptr(10000)}},
			field: "budgetRange",
		},
		{
			name:  "negative bounds out of order",
			req:   domain.SearchRequest{BudgetRange: &domain.BudgetRangeRequest{Min: ptr(-5), Max: ptr(-10)}},
			field: "budgetRange",
		},
		{
			name:  "unknown education level",
			req:   domain.SearchRequest{EducationLevel: "phd"},
			field: "educationLevel",
		},
		{
			name:  "unknown program type",
			req:   domain.SearchRequest{ProgramType: "weekend"},
			field: "programType",
		},
		{
			name:  "free text too long",
			req:   domain.SearchRequest{FreeTextQuery: strings.Repeat("a", 501)},
			field: "freeTextQuery",
		},
		{
			name: "too many countries",
			req: func() domain.SearchRequest {
				countries := make([]string, 26)
				for i := range countries {
					countries[i] = strings.Repeat("x", i+1)
				}
				return domain.SearchRequest{PreferredCountries: countries}
			}(),
			field: "preferredCountries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := newNormalizer().Normalize(tt.req)
			require.Error(t, err)
			assert.Nil(t, q)

			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestNormalize_Budget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       *domain.BudgetRangeRequest
		wantNil  bool
		wantMin  *float64
		wantMax  *float64
		currency string
	}{
		{name: "absent", in: nil, wantNil: true},
		{name: "no bounds", in: &domain.BudgetRangeRequest{Currency: "eur"}, wantNil: true},
		{name: "negative clamped", in: &domain.BudgetRangeRequest{Min: ptr(-50), Max: ptr(1000)}, wantMin: ptr(0), wantMax: ptr(1000), currency: "USD"},
		{name: "both negative", in: &domain.BudgetRangeRequest{Min: ptr(-5), Max: ptr(-1)}, wantMin: ptr(0), wantMax: ptr(0), currency: "USD"},
		{name: "currency upper-cased", in: &domain.BudgetRangeRequest{Max: ptr(5000), Currency: " aud "}, wantMax: ptr(5000), currency: "AUD"},
		{name: "equal bounds", in: &domain.BudgetRangeRequest{Min: ptr(10), Max: ptr(10)}, wantMin: ptr(10), wantMax: ptr(10), currency: "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := newNormalizer().Normalize(domain.SearchRequest{BudgetRange: tt.in})
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, q.Budget)
				return
			}
			require.NotNil(t, q.Budget)
			assert.Equal(t, tt.wantMin, q.Budget.Min)
			assert.Equal(t, tt.wantMax, q.Budget.Max)
			assert.Equal(t, tt.currency, q.Budget.Currency)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []domain.SearchRequest{
		{},
		{FreeTextQuery: " business program in Australia "},
		{
			FreeTextQuery:        "engineering",
			PreferredCountries:   []string{"Germany", "germany", " Japan"},
			EducationLevel:       "UNDERGRADUATE",
			ProgramType:          "Summer",
			FieldOfStudy:         " Mechanical Engineering ",
			Duration:             "6 weeks",
			BudgetRange:          &domain.BudgetRangeRequest{Min: ptr(-1), Max: ptr(8000), Currency: "eur"},
			StartDate:            "2027-06",
			SpecialInterests:     []string{"robotics", "Robotics", ""},
			LanguageRequirements: []string{"German"},
			ClientID:             "conn-1",
		},
		{BudgetRange: &domain.BudgetRangeRequest{Max: ptr(3000)}},
	}

	n := newNormalizer()
	for i, in := range inputs {
		first, err := n.Normalize(in)
		require.NoError(t, err, "input %d", i)

		second, err := n.Normalize(first.Request())
		require.NoError(t, err, "input %d", i)

		assert.Equal(t, first, second, "input %d", i)
	}
}
