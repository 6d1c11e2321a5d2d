package extract_test

import (
	"context"
	"testing"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicInterpreter_Institution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page extract.Page
		want string
	}{
		{
			name: "site name wins",
			page: extract.Page{Title: "Exchange - Other", SiteName: "Kyoto University", Host: "kyoto-u.ac.jp"},
			want: "Kyoto University",
		},
		{
			name: "last title segment",
			page: extract.Page{Title: "Summer School | Lund University", Host: "lu.se"},
			want: "Lund University",
		},
		{
			name: "host fallback",
			page: extract.Page{Title: "Summer School", Host: "lu.se"},
			want: "lu.se",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec, err := extract.NewHeuristicInterpreter().Interpret(context.Background(), &tt.page)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Institution)
		})
	}
}

func TestHeuristicInterpreter_NotAProgram(t *testing.T) {
	t.Parallel()

	_, err := extract.NewHeuristicInterpreter().Interpret(context.Background(), &extract.Page{Host: "example.org"})
	require.ErrorIs(t, err, domain.ErrNotAProgram)
}

func TestHeuristicInterpreter_HighlightsNeverNil(t *testing.T) {
	t.Parallel()

	rec, err := extract.NewHeuristicInterpreter().Interpret(context.Background(), &extract.Page{Title: "Program"})
	require.NoError(t, err)
	assert.NotNil(t, rec.Highlights)
	assert.Empty(t, rec.Highlights)
}

func TestHeuristicInterpreter_HighlightsCapped(t *testing.T) {
	t.Parallel()

	items := []string{
		"First highlight item", "Second highlight item", "Third highlight item",
		"Fourth highlight item", "Fifth highlight item", "Sixth highlight item",
	}
	rec, err := extract.NewHeuristicInterpreter().Interpret(context.Background(), &extract.Page{Title: "Program", ListItems: items})
	require.NoError(t, err)
	assert.Equal(t, items[:5], rec.Highlights)
}
