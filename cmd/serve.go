package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartalerte/smartalerte/internal/api"
	apiv2 "github.com/smartalerte/smartalerte/internal/api/v2"
	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/observability"
	"github.com/smartalerte/smartalerte/internal/stock"
)

const tracingShutdownTimeout = 5 * time.Second

func serveCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API with scheduled sweeps and notification cleanup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, conf.GetSettings(), info)
		},
	}
}

func runServe(ctx context.Context, settings *conf.Settings, info BuildInfo) error {
	a, err := bootstrap(ctx, settings, info, bootstrapOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	shutdownTracing, err := observability.InitTracing(ctx, settings.Tracing, info.Version, a.log)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			a.log.Warn("failed to flush traces", logger.Error(err))
		}
	}()

	if err := a.alerting.Sweeper.Start(ctx); err != nil {
		return err
	}

	a.log.Info("smartalerte started",
		logger.String("version", info.Version),
		logger.String("build_date", info.BuildDate),
		logger.Any("channels", a.notifications.EnabledChannels()))

	if !settings.WebServer.Enabled {
		<-ctx.Done()
		a.log.Info("shutting down")
		return nil
	}

	rt := a.alerting
	server := api.NewServer(api.Config{
		Listen: settings.WebServer.Listen,
		API: apiv2.Dependencies{
			Settings: settings,
			Engine:   rt.Engine,
			Repos:    rt.Repos,
			Stock:    stock.NewService(rt.Repos.Products, rt.Engine, a.log),
			Sweeper:  rt.Sweeper,
			Logger:   a.log,
		},
		Gatherer: a.registry,
		Health:   a.ping,
		Logger:   a.log,
	})
	return server.Run(ctx)
}
