package main

import (
	"context"
	"os/signal"
	"syscall"

	"churnguard/db"
	qhttp "churnguard/http"
	"churnguard/monitoring"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction form over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, logger)
	},
}

func runServe(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	predictor, err := loadPredictor(cfg, logger)
	if err != nil {
		return err
	}

	deps := qhttp.Dependencies{Predictor: predictor, Logger: logger}
	if cfg.Metrics.Enabled {
		deps.Metrics = monitoring.NewMetricsCollector()
		deps.Metrics.SetExpectedWidth(predictor.ExpectedWidth())
	}
	if cfg.Database.Path != "" {
		predictionLog, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer predictionLog.Close()
		deps.Log = predictionLog
		logger.Info("prediction log enabled", zap.String("path", cfg.Database.Path))
	}

	server := qhttp.NewServer(cfg.HTTP, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		return server.Stop(context.Background())
	})

	if cfg.Artifact.Watch {
		watcher, err := monitoring.NewArtifactWatcher(cfg.Artifact.Paths(), logger, func(string) {
			if deps.Metrics != nil {
				deps.Metrics.ArtifactChanged()
			}
		})
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	return g.Wait()
}
