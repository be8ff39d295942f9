package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/notification"
)

func TestInitialize_SeedsDefaultAlert(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	admin := &entities.User{Username: "admin", Email: "admin@example.com", IsStaff: true, IsSuperuser: true}
	require.NoError(t, db.Create(admin).Error)

	settings := &conf.Settings{}
	settings.Alerting.SeedDefaultAlert = true

	rt, err := Initialize(t.Context(), Options{
		Settings:      settings,
		DB:            db,
		Notifications: &notification.Service{},
		Logger:        testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	rules, err := rt.Engine.ActiveRules(t.Context())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, DefaultAlertName, rules[0].Name)
	assert.Equal(t, admin.ID, rules[0].UserID)
}

func TestInitialize_WithoutSeeding(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	rt, err := Initialize(t.Context(), Options{Settings: &conf.Settings{}, DB: db})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	rules, err := rt.Engine.ActiveRules(t.Context())
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.NotNil(t, rt.Sweeper)
}

func TestInitialize_UnknownLockBackend(t *testing.T) {
	t.Parallel()
	settings := &conf.Settings{}
	settings.Alerting.LockBackend = "etcd"

	_, err := Initialize(t.Context(), Options{Settings: settings, DB: newTestDB(t)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
