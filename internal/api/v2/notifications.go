package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
)

// defaultRetentionDays applies to cleanup requests without a days parameter
// when no retention is configured.
const defaultRetentionDays = 30

// initNotificationRoutes sets up the notification inbox routes.
func (c *Controller) initNotificationRoutes() {
	// All notification endpoints require authentication when a token is set
	notificationsGroup := c.Group.Group("/notifications", c.authMiddleware)
	notificationsGroup.GET("", c.GetNotifications)
	notificationsGroup.GET("/unread/count", c.GetUnreadCount)
	notificationsGroup.PUT("/read-all", c.MarkAllNotificationsRead)
	notificationsGroup.DELETE("/read", c.CleanupNotifications)
	notificationsGroup.GET("/:id", c.GetNotification)
	notificationsGroup.PUT("/:id/read", c.MarkNotificationRead)
	notificationsGroup.PUT("/:id/unread", c.MarkNotificationUnread)
	notificationsGroup.DELETE("/:id", c.DeleteNotification)
}

// GetNotifications returns a page of notifications, newest first.
// Query: user_id, alert_id, is_read, type, limit, offset.
func (c *Controller) GetNotifications(ctx echo.Context) error {
	limit, offset := parsePagination(ctx)
	filter := repository.NotificationFilter{
		Type:   ctx.QueryParam("type"),
		Limit:  limit,
		Offset: offset,
	}

	userID, err := parseOptionalUint(ctx, "user_id")
	if err != nil {
		return badRequest(ctx, "Invalid user ID")
	}
	if userID != nil {
		filter.UserID = *userID
	}
	alertID, err := parseOptionalUint(ctx, "alert_id")
	if err != nil {
		return badRequest(ctx, "Invalid alert ID")
	}
	if alertID != nil {
		filter.AlertID = *alertID
	}
	if filter.IsRead, err = parseOptionalBool(ctx, "is_read"); err != nil {
		return badRequest(ctx, "Invalid is_read filter")
	}

	items, total, err := c.repos.Notifications.ListNotifications(ctx.Request().Context(), filter)
	if err != nil {
		c.logErrorIfEnabled("failed to list notifications", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to list notifications", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": items,
		"count":         len(items),
		"total":         total,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetNotification returns a single notification.
func (c *Controller) GetNotification(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid notification ID")
	}

	n, err := c.repos.Notifications.GetNotification(ctx.Request().Context(), id)
	if err != nil {
		return c.notificationLookupError(ctx, err, "Failed to get notification")
	}
	return ctx.JSON(http.StatusOK, n)
}

// MarkNotificationRead marks a notification as read.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid notification ID")
	}

	if err := c.repos.Notifications.MarkAsRead(ctx.Request().Context(), id); err != nil {
		return c.notificationLookupError(ctx, err, "Failed to mark notification as read")
	}
	return ctx.JSON(http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkNotificationUnread clears the read flag.
func (c *Controller) MarkNotificationUnread(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid notification ID")
	}

	if err := c.repos.Notifications.MarkAsUnread(ctx.Request().Context(), id); err != nil {
		return c.notificationLookupError(ctx, err, "Failed to mark notification as unread")
	}
	return ctx.JSON(http.StatusOK, map[string]string{"message": "Notification marked as unread"})
}

// MarkAllNotificationsRead marks every unread notification of a user as read.
func (c *Controller) MarkAllNotificationsRead(ctx echo.Context) error {
	userID, err := requiredUserID(ctx)
	if err != nil {
		return badRequest(ctx, "user_id parameter is required")
	}

	updated, err := c.repos.Notifications.MarkAllAsRead(ctx.Request().Context(), userID)
	if err != nil {
		c.logErrorIfEnabled("failed to mark all notifications read", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to mark notifications as read", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"updated": updated})
}

// GetUnreadCount returns the unread notification count of a user.
func (c *Controller) GetUnreadCount(ctx echo.Context) error {
	userID, err := requiredUserID(ctx)
	if err != nil {
		return badRequest(ctx, "user_id parameter is required")
	}

	count, err := c.repos.Notifications.CountUnread(ctx.Request().Context(), userID)
	if err != nil {
		c.logErrorIfEnabled("failed to count unread notifications", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to count notifications", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"unreadCount": count})
}

// DeleteNotification removes a notification.
func (c *Controller) DeleteNotification(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid notification ID")
	}

	if err := c.repos.Notifications.DeleteNotification(ctx.Request().Context(), id); err != nil {
		return c.notificationLookupError(ctx, err, "Failed to delete notification")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// CleanupNotifications deletes read notifications older than ?days=N.
func (c *Controller) CleanupNotifications(ctx echo.Context) error {
	days := c.Settings.Alerting.NotificationRetentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	if raw := ctx.QueryParam("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return badRequest(ctx, "Invalid days parameter")
		}
		days = v
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	deleted, err := c.repos.Notifications.DeleteReadBefore(ctx.Request().Context(), cutoff)
	if err != nil {
		c.logErrorIfEnabled("failed to clean up notifications", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to delete notifications", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("notification cleanup requested",
		logger.Int("days", days),
		logger.Int64("deleted", deleted))
	return ctx.JSON(http.StatusOK, map[string]any{"deleted": deleted, "days": days})
}

func requiredUserID(ctx echo.Context) (uint, error) {
	userID, err := parseOptionalUint(ctx, "user_id")
	if err != nil {
		return 0, err
	}
	if userID == nil || *userID == 0 {
		return 0, errors.NewStd("missing user_id")
	}
	return *userID, nil
}

func (c *Controller) notificationLookupError(ctx echo.Context, err error, message string) error {
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
	}
	c.logErrorIfEnabled("notification lookup failed", logger.Error(err))
	return c.HandleError(ctx, err, message, http.StatusInternalServerError)
}
