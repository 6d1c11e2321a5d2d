package profiling

import (
	"testing"

	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartPyroscope_Disabled(t *testing.T) {
	t.Setenv("ENABLE_CONTINUOUS_PROFILING", "false")

	p, err := StartPyroscope("exchange-search", logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, p.Stop())
}

func TestEnvOr(t *testing.T) {
	t.Setenv("PROFILING_TEST_KEY", "set")

	assert.Equal(t, "set", envOr("PROFILING_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", envOr("PROFILING_TEST_MISSING", "fallback"))
}
