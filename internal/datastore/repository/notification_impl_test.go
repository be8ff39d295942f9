package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

func pairNotification(userID, alertID, productID uint, notifType, message string) *entities.Notification {
	return &entities.Notification{
		UserID:           userID,
		AlertID:          &alertID,
		ProductID:        &productID,
		Title:            "t",
		Message:          message,
		NotificationType: notifType,
	}
}

func TestNotificationRepository_RecordTransitionMaintainsState(t *testing.T) {
	db := setupTestDB(t)
	notifs := NewNotificationRepository(db)
	states := NewAlertStateRepository(db)

	user := createTestUser(t, db, "owner", true, true)
	product := createTestProduct(t, db, "P1", "tools", 1, 5)
	alert := createTestAlert(t, db, user.ID, "low", true)

	_, err := states.GetState(t.Context(), alert.ID, product.ID)
	require.ErrorIs(t, err, ErrAlertStateNotFound)

	triggeredAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	trigger := pairNotification(user.ID, alert.ID, product.ID, entities.NotificationTypeAlertTriggered, "low [PRODUCT:1]")
	trigger.CreatedAt = triggeredAt
	require.NoError(t, notifs.RecordTransition(t.Context(), trigger, entities.AlertStatusUnresolved))

	state, err := states.GetState(t.Context(), alert.ID, product.ID)
	require.NoError(t, err)
	assert.True(t, state.IsUnresolved())
	require.NotNil(t, state.LastTriggerAt)
	assert.True(t, triggeredAt.Equal(*state.LastTriggerAt))
	assert.Nil(t, state.LastResolvedAt)

	resolvedAt := triggeredAt.Add(time.Hour)
	resolved := pairNotification(user.ID, alert.ID, product.ID, entities.NotificationTypeSystem, "[RESOLVED] [PRODUCT:1]")
	resolved.CreatedAt = resolvedAt
	require.NoError(t, notifs.RecordTransition(t.Context(), resolved, entities.AlertStatusResolved))

	state, err = states.GetState(t.Context(), alert.ID, product.ID)
	require.NoError(t, err)
	assert.False(t, state.IsUnresolved())
	require.NotNil(t, state.LastTriggerAt, "trigger time survives resolution")
	assert.True(t, triggeredAt.Equal(*state.LastTriggerAt))
	require.NotNil(t, state.LastResolvedAt)
	assert.True(t, resolvedAt.Equal(*state.LastResolvedAt))

	all, err := states.ListStates(t.Context(), alert.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "upsert keeps one row per pair")
}

func TestNotificationRepository_RecordTransitionRequiresPair(t *testing.T) {
	db := setupTestDB(t)
	notifs := NewNotificationRepository(db)
	user := createTestUser(t, db, "owner", true, true)

	err := notifs.RecordTransition(t.Context(), &entities.Notification{UserID: user.ID, Title: "x", Message: "y"}, entities.AlertStatusUnresolved)
	require.Error(t, err)

	count, err := notifs.CountUnread(t.Context(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationRepository_LatestForPair(t *testing.T) {
	db := setupTestDB(t)
	notifs := NewNotificationRepository(db)

	user := createTestUser(t, db, "owner", true, true)
	product := createTestProduct(t, db, "P1", "tools", 1, 5)
	other := createTestProduct(t, db, "P2", "tools", 1, 5)
	alert := createTestAlert(t, db, user.ID, "low", true)
	token := fmt.Sprintf("[PRODUCT:%d]", product.ID)

	_, err := notifs.LatestForPair(t.Context(), PairQuery{AlertID: alert.ID, ProductID: product.ID, Type: entities.NotificationTypeAlertTriggered})
	require.ErrorIs(t, err, ErrNotificationNotFound)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, pid := range []uint{product.ID, other.ID, product.ID} {
		n := pairNotification(user.ID, alert.ID, pid, entities.NotificationTypeAlertTriggered, fmt.Sprintf("#%d", i))
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, notifs.CreateNotification(t.Context(), n))
	}

	latest, err := notifs.LatestForPair(t.Context(), PairQuery{
		AlertID: alert.ID, ProductID: product.ID, Type: entities.NotificationTypeAlertTriggered, ProductToken: token,
	})
	require.NoError(t, err)
	assert.Equal(t, "#2", latest.Message)

	// A legacy row without product_id is matched by its message token.
	legacy := &entities.Notification{
		UserID:           user.ID,
		AlertID:          &alert.ID,
		Title:            "legacy",
		Message:          "[RESOLVED] " + token + " resolved",
		NotificationType: entities.NotificationTypeSystem,
		CreatedAt:        base.Add(time.Hour),
	}
	require.NoError(t, notifs.CreateNotification(t.Context(), legacy))

	resolved, err := notifs.LatestForPair(t.Context(), PairQuery{
		AlertID: alert.ID, ProductID: product.ID, Type: entities.NotificationTypeSystem,
		ProductToken: token, Marker: "[RESOLVED]",
	})
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, resolved.ID)
}

func TestNotificationRepository_InboxOperations(t *testing.T) {
	db := setupTestDB(t)
	notifs := NewNotificationRepository(db)
	user := createTestUser(t, db, "owner", true, true)
	other := createTestUser(t, db, "other", false, false)

	var ids []uint
	for i := range 3 {
		n := &entities.Notification{UserID: user.ID, Title: fmt.Sprintf("n%d", i), Message: "m", NotificationType: entities.NotificationTypeSystem}
		require.NoError(t, notifs.CreateNotification(t.Context(), n))
		ids = append(ids, n.ID)
	}
	require.NoError(t, notifs.CreateNotification(t.Context(), &entities.Notification{UserID: other.ID, Title: "x", Message: "m", NotificationType: entities.NotificationTypeSystem}))

	count, err := notifs.CountUnread(t.Context(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	require.NoError(t, notifs.MarkAsRead(t.Context(), ids[0]))
	n, err := notifs.GetNotification(t.Context(), ids[0])
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.NotNil(t, n.ReadAt)

	require.NoError(t, notifs.MarkAsUnread(t.Context(), ids[0]))
	n, err = notifs.GetNotification(t.Context(), ids[0])
	require.NoError(t, err)
	assert.False(t, n.IsRead)
	assert.Nil(t, n.ReadAt)

	updated, err := notifs.MarkAllAsRead(t.Context(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, updated)

	count, err = notifs.CountUnread(t.Context(), other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "other users are untouched")

	unread := false
	items, total, err := notifs.ListNotifications(t.Context(), NotificationFilter{UserID: user.ID, IsRead: &unread})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	items, total, err = notifs.ListNotifications(t.Context(), NotificationFilter{UserID: user.ID, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 2)

	require.ErrorIs(t, notifs.MarkAsRead(t.Context(), 9999), ErrNotificationNotFound)
	require.NoError(t, notifs.DeleteNotification(t.Context(), ids[2]))
	require.ErrorIs(t, notifs.DeleteNotification(t.Context(), ids[2]), ErrNotificationNotFound)
}

func TestNotificationRepository_DeleteReadBefore(t *testing.T) {
	db := setupTestDB(t)
	notifs := NewNotificationRepository(db)
	user := createTestUser(t, db, "owner", true, true)

	old := time.Now().AddDate(0, 0, -40)
	yesterday := time.Now().AddDate(0, 0, -1)
	newNotification := func(title string, isRead bool, createdAt time.Time, readAt *time.Time) *entities.Notification {
		return &entities.Notification{
			UserID: user.ID, Title: title, Message: "m", NotificationType: entities.NotificationTypeSystem,
			IsRead: isRead, ReadAt: readAt, CreatedAt: createdAt,
		}
	}
	readLongAgo := newNotification("read long ago", true, old, &old)
	readRecently := newNotification("old, read yesterday", true, old, &yesterday)
	unread := newNotification("old unread", false, old, nil)
	fresh := newNotification("fresh", true, time.Now(), &yesterday)
	for _, n := range []*entities.Notification{readLongAgo, readRecently, unread, fresh} {
		require.NoError(t, notifs.CreateNotification(t.Context(), n))
	}

	deleted, err := notifs.DeleteReadBefore(t.Context(), time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = notifs.GetNotification(t.Context(), readLongAgo.ID)
	require.ErrorIs(t, err, ErrNotificationNotFound)
	for _, kept := range []*entities.Notification{readRecently, unread, fresh} {
		_, err = notifs.GetNotification(t.Context(), kept.ID)
		require.NoError(t, err, kept.Title)
	}
}
