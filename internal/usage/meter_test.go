package usage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/usage"
	"github.com/stretchr/testify/assert"
)

func TestRunMeter_CountsDistinctSources(t *testing.T) {
	t.Parallel()

	m := usage.NewMeter()
	m.AddSources("https://www.uq.edu.au/exchange/", "http://uq.edu.au/exchange", "https://anu.edu.au", "")

	assert.Equal(t, 2, m.Sources())
}

func TestRunMeter_ConcurrentTokens(t *testing.T) {
	t.Parallel()

	m := usage.NewMeter()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddTokens(10)
			m.AddTokens(-5)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(500), m.Tokens())
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	fallback := usage.FromContext(context.Background())
	fallback.AddTokens(100)
	assert.Equal(t, int64(0), fallback.Tokens())

	m := usage.NewMeter()
	ctx := usage.WithMeter(context.Background(), m)
	usage.FromContext(ctx).AddTokens(7)
	assert.Equal(t, int64(7), m.Tokens())
}
