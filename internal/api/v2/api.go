// Package api implements the v2 REST endpoints for alerts, notifications and
// products.
package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/smartalerte/smartalerte/internal/alerting"
	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
	"github.com/smartalerte/smartalerte/internal/stock"
)

// Query parameter values.
const (
	QueryValueTrue  = "true"
	QueryValueFalse = "false"
)

// Pagination defaults for list endpoints.
const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// APIKeyHeader carries the API token on mutating requests.
const APIKeyHeader = "X-API-Key"

// Dependencies are the services the controller serves.
type Dependencies struct {
	Settings *conf.Settings
	Engine   *alerting.Engine
	Repos    alerting.Repositories
	Stock    *stock.Service
	Sweeper  *alerting.Sweeper
	Logger   logger.Logger
}

// Controller handles /api/v2 requests.
type Controller struct {
	Group    *echo.Group
	Settings *conf.Settings

	engine  *alerting.Engine
	repos   alerting.Repositories
	stock   *stock.Service
	sweeper *alerting.Sweeper
	log     logger.Logger

	authMiddleware echo.MiddlewareFunc
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// New creates a controller and registers its routes on group.
func New(group *echo.Group, deps Dependencies) *Controller {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	settings := deps.Settings
	if settings == nil {
		settings = &conf.Settings{}
	}
	c := &Controller{
		Group:    group,
		Settings: settings,
		engine:   deps.Engine,
		repos:    deps.Repos,
		stock:    deps.Stock,
		sweeper:  deps.Sweeper,
		log:      log.Module("api"),
	}
	c.authMiddleware = c.newAuthMiddleware()

	c.initAlertRoutes()
	c.initNotificationRoutes()
	c.initProductRoutes()
	return c
}

// newAuthMiddleware requires the configured API token. Without a token every
// request passes.
func (c *Controller) newAuthMiddleware() echo.MiddlewareFunc {
	token := c.Settings.WebServer.APIToken
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper: func(echo.Context) bool {
			return token == ""
		},
		KeyLookup: "header:" + APIKeyHeader,
		Validator: func(key string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
		},
		ErrorHandler: func(err error, ctx echo.Context) error {
			c.logDebugIfEnabled("rejected unauthenticated request",
				logger.String("path", ctx.Path()),
				logger.Error(err))
			return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
		},
	})
}

// HandleError writes an error response. Categorized errors pick their own
// status code; anything else uses code.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation):
		code = http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNotFound):
		code = http.StatusNotFound
	}
	resp := ErrorResponse{
		Error:         message,
		Code:          code,
		CorrelationID: ctx.Response().Header().Get(echo.HeaderXRequestID),
	}
	if err != nil {
		resp.Message = err.Error()
	}
	return ctx.JSON(code, resp)
}

func (c *Controller) logErrorIfEnabled(msg string, fields ...logger.Field) {
	c.log.Error(msg, fields...)
}

func (c *Controller) logWarnIfEnabled(msg string, fields ...logger.Field) {
	c.log.Warn(msg, fields...)
}

func (c *Controller) logInfoIfEnabled(msg string, fields ...logger.Field) {
	c.log.Info(msg, fields...)
}

func (c *Controller) logDebugIfEnabled(msg string, fields ...logger.Field) {
	c.log.Debug(msg, fields...)
}

func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// parseOptionalUint parses a query parameter; an empty value yields nil.
func parseOptionalUint(ctx echo.Context, name string) (*uint, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	u := uint(v)
	return &u, nil
}

// parseOptionalBool accepts "true" and "false"; anything else is an error.
func parseOptionalBool(ctx echo.Context, name string) (*bool, error) {
	switch ctx.QueryParam(name) {
	case "":
		return nil, nil
	case QueryValueTrue:
		v := true
		return &v, nil
	case QueryValueFalse:
		v := false
		return &v, nil
	default:
		return nil, errors.Newf("invalid boolean for %s", name).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
}

// parsePagination reads limit and offset, clamping limit to maxPageLimit.
func parsePagination(ctx echo.Context) (limit, offset int) {
	limit = defaultPageLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = min(v, maxPageLimit)
		}
	}
	if raw := ctx.QueryParam("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}

func badRequest(ctx echo.Context, msg string) error {
	return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}
