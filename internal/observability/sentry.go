package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
)

const sentryFlushTimeout = 2 * time.Second

// InitSentry configures the Sentry client and routes built errors to it.
// The returned function flushes pending events and removes the reporter.
func InitSentry(settings conf.SentrySettings, release string, log logger.Logger) (func(), error) {
	if !settings.Enabled || settings.DSN == "" {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Environment:      settings.Environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise sentry: %w", err)
	}

	errors.SetReporter(NewSentryReporter(sentry.CurrentHub()))
	log.Info("sentry error reporting enabled", logger.String("environment", settings.Environment))

	return func() {
		errors.SetReporter(nil)
		sentry.Flush(sentryFlushTimeout)
	}, nil
}

// NewSentryReporter returns a reporter that forwards errors to hub.
// Validation and not-found errors are caller mistakes and are not sent.
func NewSentryReporter(hub *sentry.Hub) errors.Reporter {
	return func(ee *errors.EnhancedError) {
		switch ee.GetCategory() {
		case errors.CategoryValidation, errors.CategoryNotFound:
			return
		}
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("component", ee.GetComponent())
			scope.SetTag("category", string(ee.GetCategory()))
			if ctx := ee.GetContext(); len(ctx) > 0 {
				scope.SetContext("error", sentry.Context(ctx))
			}
			hub.CaptureException(ee)
		})
	}
}
