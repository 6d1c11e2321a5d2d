package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/exchange-search/internal/api"
	infralogger "github.com/jonesrussell/north-cloud/exchange-search/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/exchange-search/infrastructure/profiling"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search server",
		Long: `Serves POST /api/exchange-programs/search, the SSE progress stream at
GET /api/exchange-programs/events, health checks and Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root)
		},
	}
}

func runServe(ctx context.Context, root *rootOptions) error {
	d, err := newDeps(ctx, depsOptions{configPath: root.resolveConfigPath(), debug: root.debug})
	if err != nil {
		return err
	}
	defer d.Close()

	cfg := d.Config
	log := d.Logger

	profiling.StartPprofServer(log)
	pyro, pyroErr := profiling.StartPyroscope(cfg.Service.Name, log)
	if pyroErr != nil {
		log.Warn("Pyroscope failed to start", infralogger.Error(pyroErr))
	}
	defer func() { _ = pyro.Stop() }()

	log.Info("Starting exchange search service",
		infralogger.String("name", cfg.Service.Name),
		infralogger.String("version", cfg.Service.Version),
		infralogger.Int("port", cfg.Service.Port),
		infralogger.Bool("debug", cfg.Service.Debug),
	)

	handler := api.NewHandler(d.Normalizer, d.Orchestrator, log)
	server := api.NewServer(cfg, api.ServerDeps{
		Handler:           handler,
		Registry:          d.Registry,
		Metrics:           d.Telemetry.Handler(),
		RedisPing:         d.redisPing(),
		ElasticsearchPing: d.elasticsearchPing(),
	}, log)

	if runErr := server.RunWithGracefulShutdown(ctx); runErr != nil {
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Exchange search service exited cleanly")
	return nil
}
