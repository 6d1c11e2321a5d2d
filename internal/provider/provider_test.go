package provider_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/circuitbreaker"
	infraerrors "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/errors"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticProvider(name string, hits []domain.RawHit, err error) provider.SearchFunc {
	return provider.SearchFunc{
		ProviderName: name,
		Fn: func(context.Context, string, domain.Stage) ([]domain.RawHit, error) {
			return hits, err
		},
	}
}

func fastResilience() provider.ResilienceConfig {
	return provider.ResilienceConfig{
		RatePerSecond:    1000,
		Burst:            100,
		MaxAttempts:      3,
		InitialBackoff:   time.Millisecond,
		FailureThreshold: 2,
		OpenTimeout:      time.Hour,
	}
}

func TestFanout_ConcatenatesInProviderOrder(t *testing.T) {
	t.Parallel()

	f := provider.NewFanout(
		staticProvider("a", []domain.RawHit{{URL: "a1"}, {URL: "a2"}}, nil),
		staticProvider("b", nil, errors.New("down")),
		staticProvider("c", []domain.RawHit{{URL: "c1"}}, nil),
	)

	hits, err := f.Search(context.Background(), "q", domain.StageGeneral)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "c1"}, []string{hits[0].URL, hits[1].URL, hits[2].URL})
	assert.Equal(t, "a+b+c", f.Name())
}

func TestFanout_AllFail(t *testing.T) {
	t.Parallel()

	errA, errB := errors.New("a down"), errors.New("b down")
	f := provider.NewFanout(staticProvider("a", nil, errA), staticProvider("b", nil, errB))

	_, err := f.Search(context.Background(), "q", domain.StageGeneral)
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
}

func TestResilient_RetriesTemporaryHTTPErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	flaky := provider.SearchFunc{
		ProviderName: "flaky",
		Fn: func(context.Context, string, domain.Stage) ([]domain.RawHit, error) {
			if calls.Add(1) == 1 {
				return nil, &infraerrors.HTTPError{StatusCode: http.StatusServiceUnavailable, Status: "503"}
			}
			return []domain.RawHit{{URL: "ok"}}, nil
		},
	}

	r := provider.NewResilient(flaky, fastResilience(), infralogger.NewNop())
	hits, err := r.Search(context.Background(), "q", domain.StageGeneral)

	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "flaky", r.Name())
}

func TestResilient_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	bad := provider.SearchFunc{
		ProviderName: "bad",
		Fn: func(context.Context, string, domain.Stage) ([]domain.RawHit, error) {
			calls.Add(1)
			return nil, &infraerrors.HTTPError{StatusCode: http.StatusBadRequest, Status: "400"}
		},
	}

	_, err := provider.NewResilient(bad, fastResilience(), infralogger.NewNop()).Search(context.Background(), "q", domain.StageGeneral)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResilient_OpensCircuit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	broken := provider.SearchFunc{
		ProviderName: "broken",
		Fn: func(context.Context, string, domain.Stage) ([]domain.RawHit, error) {
			calls.Add(1)
			return nil, errors.New("invalid response")
		},
	}

	r := provider.NewResilient(broken, fastResilience(), infralogger.NewNop())
	ctx := context.Background()
	_, _ = r.Search(ctx, "q", domain.StageGeneral)
	_, _ = r.Search(ctx, "q", domain.StageGeneral)

	_, err := r.Search(ctx, "q", domain.StageGeneral)
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestResilient_RespectsDeadline(t *testing.T) {
	t.Parallel()

	slow := provider.SearchFunc{
		ProviderName: "slow",
		Fn: func(ctx context.Context, _ string, _ domain.Stage) ([]domain.RawHit, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := provider.NewResilient(slow, fastResilience(), infralogger.NewNop()).Search(ctx, "q", domain.StageGeneral)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
