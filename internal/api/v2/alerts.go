package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartalerte/smartalerte/internal/alerting"
	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
)

// initAlertRoutes registers alert API endpoints.
func (c *Controller) initAlertRoutes() {
	alerts := c.Group.Group("/alerts")

	// Public read endpoints
	alerts.GET("", c.ListAlerts)
	alerts.GET("/schema", c.GetAlertSchema)
	alerts.GET("/:id", c.GetAlert)
	alerts.GET("/:id/states", c.ListAlertStates)

	// Protected endpoints
	protected := alerts.Group("", c.authMiddleware)
	protected.POST("", c.CreateAlert)
	protected.PUT("/:id", c.UpdateAlert)
	protected.PATCH("/:id/toggle", c.ToggleAlert)
	protected.DELETE("/:id", c.DeleteAlert)
	protected.POST("/:id/evaluate", c.EvaluateAlert)
	protected.POST("/defaults", c.EnsureDefaultAlert)
	protected.POST("/sweep", c.SweepAlerts)
}

// GetAlertSchema returns the alert catalog for form builders.
func (c *Controller) GetAlertSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, alerting.GetSchema())
}

// ListAlerts returns alerts, optionally filtered by owner, module, severity,
// product or active flag.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	filter := repository.AlertFilter{
		Module:   ctx.QueryParam("module"),
		Severity: ctx.QueryParam("severity"),
	}
	userID, err := parseOptionalUint(ctx, "user_id")
	if err != nil {
		return badRequest(ctx, "Invalid user ID")
	}
	if userID != nil {
		filter.UserID = *userID
	}
	if filter.ProductID, err = parseOptionalUint(ctx, "product_id"); err != nil {
		return badRequest(ctx, "Invalid product ID")
	}
	if filter.IsActive, err = parseOptionalBool(ctx, "active"); err != nil {
		return badRequest(ctx, "Invalid active filter")
	}

	alerts, err := c.repos.Alerts.ListAlerts(ctx.Request().Context(), filter)
	if err != nil {
		c.logErrorIfEnabled("failed to list alerts", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to list alerts", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetAlert returns a single alert by ID.
func (c *Controller) GetAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert ID")
	}

	alert, err := c.repos.Alerts.GetAlert(ctx.Request().Context(), id)
	if err != nil {
		return c.alertLookupError(ctx, err, "Failed to get alert")
	}
	return ctx.JSON(http.StatusOK, alert)
}

// CreateAlert validates and stores a new alert.
func (c *Controller) CreateAlert(ctx echo.Context) error {
	var alert entities.Alert
	if err := ctx.Bind(&alert); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	alert.ID = 0
	alert.User = nil

	if alert.UserID == 0 {
		return badRequest(ctx, "Alert owner is required")
	}
	reqCtx := ctx.Request().Context()
	owner, err := c.repos.Users.GetUser(reqCtx, alert.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return badRequest(ctx, "Alert owner not found")
		}
		c.logErrorIfEnabled("failed to look up alert owner", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to create alert", http.StatusInternalServerError)
	}

	alerting.ApplyDefaults(&alert)
	if err := alerting.ValidateAlert(&alert); err != nil {
		return c.HandleError(ctx, err, "Invalid alert", http.StatusBadRequest)
	}

	if err := c.repos.Alerts.CreateAlert(reqCtx, &alert); err != nil {
		c.logErrorIfEnabled("failed to create alert", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to create alert", http.StatusInternalServerError)
	}
	c.engine.InvalidateRules()

	// The alert is stored; a failed confirmation only gets logged.
	if err := c.engine.ConfirmAlertCreated(reqCtx, &alert, owner); err != nil {
		c.logWarnIfEnabled("failed to send alert creation confirmation",
			logger.Uint64("alert_id", uint64(alert.ID)),
			logger.Error(err))
	}

	c.logInfoIfEnabled("alert created",
		logger.Uint64("alert_id", uint64(alert.ID)),
		logger.String("name", alert.Name))
	return ctx.JSON(http.StatusCreated, alert)
}

// UpdateAlert replaces the editable attributes of an alert.
func (c *Controller) UpdateAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert ID")
	}

	reqCtx := ctx.Request().Context()
	alert, err := c.repos.Alerts.GetAlert(reqCtx, id)
	if err != nil {
		return c.alertLookupError(ctx, err, "Failed to update alert")
	}
	owner := alert.UserID
	if err := ctx.Bind(alert); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	// Identity and ownership are not editable.
	alert.ID = id
	alert.UserID = owner
	alert.User = nil

	alerting.ApplyDefaults(alert)
	if err := alerting.ValidateAlert(alert); err != nil {
		return c.HandleError(ctx, err, "Invalid alert", http.StatusBadRequest)
	}

	if err := c.repos.Alerts.UpdateAlert(reqCtx, alert); err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		c.logErrorIfEnabled("failed to update alert", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to update alert", http.StatusInternalServerError)
	}
	c.engine.InvalidateRules()

	return ctx.JSON(http.StatusOK, alert)
}

// ToggleAlert flips the active flag.
func (c *Controller) ToggleAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert ID")
	}

	alert, err := c.repos.Alerts.ToggleAlert(ctx.Request().Context(), id)
	if err != nil {
		return c.alertLookupError(ctx, err, "Failed to toggle alert")
	}
	c.engine.InvalidateRules()

	return ctx.JSON(http.StatusOK, alert)
}

// DeleteAlert removes an alert together with its notifications and states.
func (c *Controller) DeleteAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert ID")
	}

	if err := c.repos.Alerts.DeleteAlert(ctx.Request().Context(), id); err != nil {
		return c.alertLookupError(ctx, err, "Failed to delete alert")
	}
	c.engine.InvalidateRules()

	return ctx.NoContent(http.StatusNoContent)
}

// EvaluateAlert runs one alert against every product in its scope.
func (c *Controller) EvaluateAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert ID")
	}

	reqCtx := ctx.Request().Context()
	alert, err := c.repos.Alerts.GetAlert(reqCtx, id)
	if err != nil {
		return c.alertLookupError(ctx, err, "Failed to evaluate alert")
	}

	result, err := c.engine.EvaluateAlertAgainstAllProducts(reqCtx, alert)
	if err != nil {
		c.logErrorIfEnabled("alert evaluation failed",
			logger.Uint64("alert_id", uint64(id)),
			logger.Error(err))
		return c.HandleError(ctx, err, "Failed to evaluate alert", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, result)
}

// ListAlertStates returns the per-product condition state of an alert.
func (c *Controller) ListAlertStates(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid alert ID")
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.repos.Alerts.GetAlert(reqCtx, id); err != nil {
		return c.alertLookupError(ctx, err, "Failed to list alert states")
	}
	states, err := c.repos.States.ListStates(reqCtx, id)
	if err != nil {
		c.logErrorIfEnabled("failed to list alert states", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to list alert states", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"states": states,
		"count":  len(states),
	})
}

// EnsureDefaultAlert creates the default low-stock alert if it is missing.
func (c *Controller) EnsureDefaultAlert(ctx echo.Context) error {
	alert, err := c.engine.EnsureDefaultStockAlert(ctx.Request().Context())
	if err != nil {
		c.logErrorIfEnabled("failed to ensure default alert", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to create default alert", http.StatusInternalServerError)
	}
	if alert == nil {
		return ctx.JSON(http.StatusConflict, map[string]string{"error": "No staff user to own the default alert"})
	}
	return ctx.JSON(http.StatusOK, alert)
}

// SweepAlerts runs a full evaluation pass. Per-pair failures are reported
// alongside the partial result.
func (c *Controller) SweepAlerts(ctx echo.Context) error {
	var (
		result alerting.EvaluationResult
		err    error
	)
	if c.sweeper != nil {
		result, err = c.sweeper.RunOnce(ctx.Request().Context())
	} else {
		result, err = c.engine.SweepAll(ctx.Request().Context())
	}

	resp := map[string]any{"result": result}
	if err != nil {
		c.logErrorIfEnabled("manual sweep finished with errors", logger.Error(err))
		resp["error"] = err.Error()
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) alertLookupError(ctx echo.Context, err error, message string) error {
	if errors.Is(err, repository.ErrAlertNotFound) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
	}
	c.logErrorIfEnabled("alert lookup failed", logger.Error(err))
	return c.HandleError(ctx, err, message, http.StatusInternalServerError)
}
