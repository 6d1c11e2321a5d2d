package logger_test

import (
	"context"
	"testing"

	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
)

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()

	l := mustTestLogger(t)
	ctx := logger.WithContext(context.Background(), l)

	if got := logger.FromContext(ctx); got != l {
		t.Errorf("FromContext returned %v, want the stored logger", got)
	}
}

func TestWithContext_OverwritesPrevious(t *testing.T) {
	t.Parallel()

	first := mustTestLogger(t)
	second := mustTestLogger(t)

	ctx := logger.WithContext(context.Background(), first)
	ctx = logger.WithContext(ctx, second)

	if got := logger.FromContext(ctx); got != second {
		t.Error("FromContext returned the first logger, want the second")
	}
}

func TestFromContext_FallbackIsSharedAndUsable(t *testing.T) {
	t.Parallel()

	a := logger.FromContext(context.Background())
	b := logger.FromContext(context.Background())
	if a == nil || b == nil {
		t.Fatal("FromContext on empty context returned nil")
	}
	if a != b {
		t.Error("fallback logger is not a singleton")
	}

	a.Debug("filtered")
	a.Warn("run stage slow", logger.String("stage", "general"))
}

func TestWith_ReturnsDistinctLogger(t *testing.T) {
	t.Parallel()

	base := mustTestLogger(t)
	child := base.With(logger.String("run_id", "r-1"))
	if child == base {
		t.Error("With returned the parent logger, want a new instance")
	}
	child.Info("child logger works")
}

func mustTestLogger(t *testing.T) logger.Logger {
	t.Helper()

	l, err := logger.New(logger.Config{Level: "warn", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	return l
}
