// Package api hosts the HTTP server: health, metrics and the v2 REST API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apiv2 "github.com/smartalerte/smartalerte/internal/api/v2"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
)

const (
	defaultListen   = ":8080"
	shutdownTimeout = 10 * time.Second
	healthTimeout   = 2 * time.Second
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Config wires the server.
type Config struct {
	Listen   string
	API      apiv2.Dependencies
	Gatherer prometheus.Gatherer
	Health   HealthCheck
	Logger   logger.Logger
}

// Server is the HTTP front of the service.
type Server struct {
	Echo       *echo.Echo
	Controller *apiv2.Controller

	listen string
	health HealthCheck
	log    logger.Logger
}

// NewServer builds the echo instance and registers every route.
func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	listen := cfg.Listen
	if listen == "" {
		listen = defaultListen
	}
	if cfg.API.Logger == nil {
		cfg.API.Logger = log
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{Echo: e, listen: listen, health: cfg.Health, log: log.Module("http")}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
				logger.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				s.log.Warn("request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			s.log.Debug("request", fields...)
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)
	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	s.Controller = apiv2.New(e.Group("/api/v2"), cfg.API)
	return s
}

func (s *Server) handleHealth(ctx echo.Context) error {
	if s.health != nil {
		checkCtx, cancel := context.WithTimeout(ctx.Request().Context(), healthTimeout)
		defer cancel()
		if err := s.health(checkCtx); err != nil {
			s.log.Warn("health check failed", logger.Error(err))
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logger.String("listen", s.listen))
		if err := s.Echo.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return errors.New(err).
			Component("http").
			Category(errors.CategoryNetwork).
			Context("listen", s.listen).
			Build()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return errors.New(err).
			Component("http").
			Category(errors.CategoryNetwork).
			Context("operation", "shutdown").
			Build()
	}
	s.log.Info("http server stopped")
	return nil
}
