package cmd

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/smartalerte/smartalerte/internal/alerting"
	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/datastore"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/notification"
	"github.com/smartalerte/smartalerte/internal/observability"
	"github.com/smartalerte/smartalerte/internal/observability/metrics"
)

// app holds the wired subsystems shared by every command.
type app struct {
	settings      *conf.Settings
	log           logger.Logger
	db            *gorm.DB
	registry      *prometheus.Registry
	notifications *notification.Service
	alerting      *alerting.Runtime

	closers []func()
}

type bootstrapOptions struct {
	// seedDefault overrides alerting.seed_default_alert.
	seedDefault *bool
	// logOutput defaults to stderr.
	logOutput io.Writer
}

func newLogger(settings *conf.Settings, w io.Writer) logger.Logger {
	if w == nil {
		w = os.Stderr
	}
	return logger.New(w, logger.ParseLevel(settings.Main.LogLevel), &logger.Options{
		Console: strings.EqualFold(settings.Main.LogFormat, "console"),
	}).With(logger.String("service", settings.Main.Name))
}

// bootstrap opens the database and wires notifications, metrics and the
// alerting runtime. The caller must call close.
func bootstrap(ctx context.Context, settings *conf.Settings, info BuildInfo, opts bootstrapOptions) (*app, error) {
	a := &app{settings: settings, log: newLogger(settings, opts.logOutput)}
	if err := a.wire(ctx, info, opts); err != nil {
		// Release whatever was acquired before the failure.
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, info BuildInfo, opts bootstrapOptions) error {
	settings := a.settings

	flushSentry, err := observability.InitSentry(settings.Sentry, info.Version, a.log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, flushSentry)

	a.db, err = datastore.Open(&settings.Database, a.log.Module("datastore"))
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() {
		if cerr := datastore.Close(a.db); cerr != nil {
			a.log.Warn("failed to close database", logger.Error(cerr))
		}
	})

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	alertingMetrics, err := metrics.NewAlertingMetrics(a.registry)
	if err != nil {
		return err
	}

	a.notifications, err = notification.Initialize(&settings.Notification, a.log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, a.notifications.Close)

	runSettings := *settings
	if opts.seedDefault != nil {
		runSettings.Alerting.SeedDefaultAlert = *opts.seedDefault
	}
	a.alerting, err = alerting.Initialize(ctx, alerting.Options{
		Settings:      &runSettings,
		DB:            a.db,
		Notifications: a.notifications,
		Metrics:       alertingMetrics,
		Logger:        a.log,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() {
		if cerr := a.alerting.Close(); cerr != nil {
			a.log.Warn("failed to close alerting runtime", logger.Error(cerr))
		}
	})

	return nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// ping checks the database for the health endpoint.
func (a *app) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
