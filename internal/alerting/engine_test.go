package alerting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/notification"
	"github.com/smartalerte/smartalerte/internal/observability/metrics"
)

func TestEngine_TriggerOnFirstMatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 2, 5)
	alert := env.createAlert(t, owner, nil)

	result, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1, Triggered: 1}, result)

	ns := env.pairNotifications(t, alert.ID)
	require.Len(t, ns, 1)
	n := ns[0]
	assert.Equal(t, entities.NotificationTypeAlertTriggered, n.NotificationType)
	assert.Equal(t, owner.ID, n.UserID)
	assert.Equal(t, product.ID, *n.ProductID)
	assert.Equal(t, fmt.Sprintf("Alerte: Stock bas (Produit #%d)", product.ID), n.Title)
	assert.True(t, strings.HasPrefix(n.Message, ProductToken(product.ID)))
	assert.Contains(t, n.Message, "Valeur actuelle (quantity) : 2")
	assert.Contains(t, n.Message, "Seuil (min_quantity) : 5")
	assert.False(t, n.IsRead)

	state, err := env.repos.states.GetState(t.Context(), alert.ID, product.ID)
	require.NoError(t, err)
	assert.True(t, state.IsUnresolved())
	require.NotNil(t, state.LastTriggerAt)
	assert.True(t, state.LastTriggerAt.Equal(env.clock.Now()))

	sent := env.email.all()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ops@example.com", "owner@example.com"}, sent[0].addresses)
	assert.Equal(t, "Alerte déclenchée: Stock bas", sent[0].subject)
	assert.Equal(t, n.Message, sent[0].body)
}

func TestEngine_NoMatchNoNotification(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 10, 5)
	alert := env.createAlert(t, owner, nil)

	result, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1}, result)
	assert.Empty(t, env.pairNotifications(t, alert.ID))

	_, err = env.repos.states.GetState(t.Context(), alert.ID, product.ID)
	require.ErrorIs(t, err, repository.ErrAlertStateNotFound)
}

func TestEngine_IdempotentWithoutRepeat(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 2, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.Schedule = ScheduleHourly
	})

	for range 3 {
		_, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
		require.NoError(t, err)
		env.clock.Advance(2 * time.Hour)
	}

	assert.Len(t, env.pairNotifications(t, alert.ID), 1)
	assert.Len(t, env.email.all(), 1)
}

func TestEngine_RepeatHonoursSchedule(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 2, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.Schedule = ScheduleHourly
		a.RepeatUntilResolved = true
	})

	steps := []struct {
		advance time.Duration
		want    int
	}{
		{0, 1},
		{30 * time.Minute, 1},
		{29 * time.Minute, 1},
		{time.Minute, 2},
		{time.Hour, 3},
	}
	for i, step := range steps {
		env.clock.Advance(step.advance)
		_, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
		require.NoError(t, err)
		assert.Len(t, env.pairNotifications(t, alert.ID), step.want, "step %d", i)
	}
}

func TestEngine_RepeatImmediateFiresEveryEvaluation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 2, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.RepeatUntilResolved = true
	})

	for range 3 {
		env.clock.Advance(time.Second)
		_, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
		require.NoError(t, err)
	}
	assert.Len(t, env.pairNotifications(t, alert.ID), 3)
}

func TestEngine_ResolutionCycle(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 2, 5)
	alert := env.createAlert(t, owner, nil)
	ctx := t.Context()

	_, err := env.engine.EvaluateAllAlertsForProduct(ctx, product)
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	env.setQuantity(t, product, 6)
	result, err := env.engine.EvaluateAllAlertsForProduct(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1, Resolved: 1}, result)

	// A second clear evaluation does not resolve again.
	env.clock.Advance(time.Minute)
	result, err = env.engine.EvaluateAllAlertsForProduct(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1}, result)

	env.clock.Advance(time.Minute)
	env.setQuantity(t, product, 1)
	result, err = env.engine.EvaluateAllAlertsForProduct(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1, Triggered: 1}, result)

	ns := env.pairNotifications(t, alert.ID)
	assert.Equal(t, []string{
		entities.NotificationTypeAlertTriggered,
		entities.NotificationTypeSystem,
		entities.NotificationTypeAlertTriggered,
	}, notificationTypes(ns))

	resolved := ns[1]
	assert.Equal(t, fmt.Sprintf("Alerte résolue: Stock bas (Produit #%d)", product.ID), resolved.Title)
	assert.Equal(t,
		fmt.Sprintf("[RESOLVED] [PRODUCT:%d] Condition résolue pour le produit Produit SKU-1 (SKU-1) sur l'alerte Stock bas.", product.ID),
		resolved.Message)

	// Resolutions are in-app only.
	assert.Len(t, env.email.all(), 2)

	state, err := env.repos.states.GetState(ctx, alert.ID, product.ID)
	require.NoError(t, err)
	assert.True(t, state.IsUnresolved())
	assert.NotNil(t, state.LastResolvedAt)
}

func TestEngine_ClearPairNeverTriggeredDoesNotResolve(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	env.createProduct(t, "SKU-1", "tools", 50, 5)
	alert := env.createAlert(t, owner, nil)

	for range 2 {
		result, err := env.engine.EvaluateAlertAgainstAllProducts(t.Context(), alert)
		require.NoError(t, err)
		assert.Zero(t, result.Resolved)
	}
	assert.Empty(t, env.pairNotifications(t, alert.ID))
}

func TestEngine_CategoryFilter(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	laptop := env.createProduct(t, "LAP-1", "Electronics", 1, 5)
	chair := env.createProduct(t, "CHR-1", "furniture", 1, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.Categories = []string{"  electronics "}
	})

	result, err := env.engine.EvaluateAlertAgainstAllProducts(t.Context(), alert)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1, Triggered: 1}, result)

	ns := env.pairNotifications(t, alert.ID)
	require.Len(t, ns, 1)
	assert.Equal(t, laptop.ID, *ns[0].ProductID)

	// The product entry point applies the same filter.
	result, err = env.engine.EvaluateAllAlertsForProduct(t.Context(), chair)
	require.NoError(t, err)
	assert.Zero(t, result.Triggered)
	assert.Len(t, env.pairNotifications(t, alert.ID), 1)
}

func TestEngine_AccentedCategoryOnEveryEntryPoint(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	tv := env.createProduct(t, "TV-1", "ÉLECTRONIQUE", 1, 5)
	env.createProduct(t, "CHR-1", "Mobilier", 1, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.Categories = []string{"électronique"}
	})

	result, err := env.engine.EvaluateAlertAgainstAllProducts(t.Context(), alert)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1, Triggered: 1}, result)

	// Restocked: the sweep must still select the product to resolve it.
	env.setQuantity(t, tv, 20)
	result, err = env.engine.SweepAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1, Resolved: 1}, result)

	env.setQuantity(t, tv, 0)
	result, err = env.engine.EvaluateAllAlertsForProduct(t.Context(), tv)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1, Triggered: 1}, result)

	assert.Equal(t,
		[]string{
			entities.NotificationTypeAlertTriggered,
			entities.NotificationTypeSystem,
			entities.NotificationTypeAlertTriggered,
		},
		notificationTypes(env.pairNotifications(t, alert.ID)))
}

func TestEngine_BlankCategoriesMatchNothing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	env.createProduct(t, "SKU-1", "tools", 1, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.Categories = []string{"   "}
	})

	result, err := env.engine.EvaluateAlertAgainstAllProducts(t.Context(), alert)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{}, result)
}

func TestEngine_ProductScopedAlert(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	target := env.createProduct(t, "SKU-1", "tools", 1, 5)
	env.createProduct(t, "SKU-2", "tools", 1, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.ProductID = uintPtr(target.ID)
	})

	result, err := env.engine.EvaluateAlertAgainstAllProducts(t.Context(), alert)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 1, Triggered: 1}, result)
	ns := env.pairNotifications(t, alert.ID)
	require.Len(t, ns, 1)
	assert.Equal(t, target.ID, *ns[0].ProductID)
}

func TestEngine_LiteralThreshold(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	cheap := env.createProduct(t, "SKU-1", "tools", 10, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.ConditionField = string(FieldPrice)
		a.ComparisonOperator = OperatorGreaterEqual
		a.CompareTo = CompareToValue
		a.ThresholdValue = strPtr("19.9")
	})

	result, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), cheap)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Triggered)

	ns := env.pairNotifications(t, alert.ID)
	require.Len(t, ns, 1)
	assert.Contains(t, ns[0].Message, "Seuil (value) : 19.9")
}

func TestEngine_AbsenceCondition(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 0, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.ConditionType = ConditionAbsence
	})

	result, err := env.engine.EvaluateAlertAgainstAllProducts(t.Context(), alert)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Triggered)

	env.clock.Advance(time.Minute)
	env.setQuantity(t, product, 3)
	result, err = env.engine.EvaluateAlertAgainstAllProducts(t.Context(), alert)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Resolved)
}

func TestEngine_UnsupportedConditionTypesAreSkipped(t *testing.T) {
	t.Parallel()

	for _, ct := range []string{ConditionAnomaly, ConditionTrend} {
		t.Run(ct, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			owner := env.createUser(t, "owner", "owner@example.com", true, false)
			product := env.createProduct(t, "SKU-1", "tools", 1, 5)
			alert := env.createAlert(t, owner, func(a *entities.Alert) {
				a.ConditionType = ct
			})

			result, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
			require.NoError(t, err)
			assert.Equal(t, EvaluationResult{Evaluated: 1}, result)
			assert.Empty(t, env.pairNotifications(t, alert.ID))
		})
	}
}

func TestEngine_InactiveAndForeignModuleAlertsIgnored(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 1, 5)
	inactive := env.createAlert(t, owner, func(a *entities.Alert) {
		a.Name = "inactive"
		a.IsActive = false
	})
	crm := env.createAlert(t, owner, func(a *entities.Alert) {
		a.Name = "crm"
		a.Module = ModuleCRM
	})

	result, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{}, result)

	for _, a := range []*entities.Alert{inactive, crm} {
		result, err := env.engine.EvaluateAlertAgainstAllProducts(t.Context(), a)
		require.NoError(t, err)
		assert.Equal(t, EvaluationResult{}, result, a.Name)
	}
}

func TestEngine_DispatchRouting(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := &entities.User{Username: "owner", Email: "owner@example.com", TelegramChatID: "42"}
	require.NoError(t, env.repos.users.CreateUser(t.Context(), owner))
	product := env.createProduct(t, "SKU-1", "tools", 2, 5)
	alert := env.createAlert(t, owner, func(a *entities.Alert) {
		a.NotificationChannels = []string{ChannelEmail, " Telegram ", ChannelMQTT, "sms"}
		a.Recipients = []string{"ops@example.com", "@stock_bot", "-100123", "not-a-recipient"}
	})

	_, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)

	sent := env.email.all()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ops@example.com", "owner@example.com"}, sent[0].addresses)

	env.telegram.mu.Lock()
	chats := append([]string(nil), env.telegram.chats...)
	env.telegram.mu.Unlock()
	assert.ElementsMatch(t, []string{"-100123", "42", "@stock_bot"}, chats)

	env.events.mu.Lock()
	defer env.events.mu.Unlock()
	require.Len(t, env.events.events, 1)
	event := env.events.events[0]
	assert.Equal(t, notification.EventTriggered, event.Kind)
	assert.Equal(t, alert.ID, event.AlertID)
	assert.Equal(t, product.ID, event.ProductID)
	assert.Equal(t, "SKU-1", event.SKU)
	assert.NotEmpty(t, event.ID)
	assert.NotZero(t, event.NotificationID)
}

func TestEngine_DispatchFailureDoesNotFailEvaluation(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewAlertingMetrics(reg)
	require.NoError(t, err)

	env := newTestEnv(t, func(d *Deps) { d.Metrics = m })
	env.email.err = errors.NewStd("smtp unavailable")
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 2, 5)
	alert := env.createAlert(t, owner, nil)

	result, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Triggered)
	assert.Len(t, env.pairNotifications(t, alert.ID), 1)

	assert.InDelta(t, 1, testutil.ToFloat64(m.DispatchTotal.WithLabelValues(ChannelEmail, metrics.OutcomeFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TriggersTotal.WithLabelValues(SeverityHigh)), 0)
}

// failingNotifications fails every state transition write.
type failingNotifications struct {
	repository.NotificationRepository
}

func (failingNotifications) RecordTransition(context.Context, *entities.Notification, string) error {
	return errors.NewStd("database is locked")
}

func TestEngine_StoreFailureIsReturnedAndOtherPairsContinue(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	env.createProduct(t, "SKU-1", "tools", 1, 5)
	env.createProduct(t, "SKU-2", "tools", 1, 5)
	alert := env.createAlert(t, owner, nil)

	engine := NewEngine(Deps{
		Alerts:        env.repos.alerts,
		Products:      env.repos.products,
		Notifications: failingNotifications{env.repos.notifications},
		States:        env.repos.states,
		Users:         env.repos.users,
		Channels:      Channels{Email: env.email},
		Now:           env.clock.Now,
		Logger:        testLogger(),
	})

	result, err := engine.EvaluateAlertAgainstAllProducts(t.Context(), alert)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
	assert.Equal(t, EvaluationResult{Evaluated: 2}, result)
	assert.Empty(t, env.email.all())
}

func TestEngine_EvaluateProductNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.engine.EvaluateProduct(t.Context(), 999)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestEngine_EvaluateProductByID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 1, 5)
	env.createAlert(t, owner, nil)

	result, err := env.engine.EvaluateProduct(t.Context(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Triggered)
}

func TestEngine_RuleCacheInvalidation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(d *Deps) { d.RuleCacheTTL = time.Hour })
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 1, 5)
	env.createAlert(t, owner, func(a *entities.Alert) { a.Name = "first" })

	result, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated)

	env.createAlert(t, owner, func(a *entities.Alert) { a.Name = "second" })
	result, err = env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Evaluated, "cached rule set is reused")

	env.engine.InvalidateRules()
	result, err = env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 1, result.Triggered)
}

func TestEngine_SweepAll(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewAlertingMetrics(reg)
	require.NoError(t, err)

	env := newTestEnv(t, func(d *Deps) {
		d.Metrics = m
		d.RuleCacheTTL = time.Hour
	})
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	env.createProduct(t, "SKU-1", "tools", 1, 5)
	env.createProduct(t, "SKU-2", "tools", 9, 5)
	env.createAlert(t, owner, func(a *entities.Alert) { a.Name = "low" })

	// Prime the cache, then add a rule the sweep must still see.
	_, err = env.engine.ActiveRules(t.Context())
	require.NoError(t, err)
	env.createAlert(t, owner, func(a *entities.Alert) {
		a.Name = "overstock"
		a.ComparisonOperator = OperatorGreaterThan
		a.CompareTo = ""
		a.ThresholdValue = strPtr("8")
	})

	result, err := env.engine.SweepAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 4, Triggered: 2}, result)

	result, err = env.engine.SweepAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, EvaluationResult{Evaluated: 4}, result)

	assert.InDelta(t, 8, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues(entrySweep)), 0, "counts evaluated pairs")
}

func TestEngine_LegacyHistoryWithoutStateRow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 1, 5)
	alert := env.createAlert(t, owner, nil)

	// Written before product ids and state rows were recorded.
	legacy := &entities.Notification{
		UserID:           owner.ID,
		AlertID:          uintPtr(alert.ID),
		Title:            "Alerte: Stock bas",
		Message:          ProductToken(product.ID) + " stock bas",
		NotificationType: entities.NotificationTypeAlertTriggered,
		CreatedAt:        env.clock.Now().Add(-time.Hour),
	}
	require.NoError(t, env.repos.notifications.CreateNotification(t.Context(), legacy))

	state, err := env.engine.StateTracker().State(t.Context(), alert, product)
	require.NoError(t, err)
	assert.Equal(t, StatusUnresolved, state.Status)

	result, err := env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Zero(t, result.Triggered, "legacy open trigger suppresses a new one")

	env.setQuantity(t, product, 10)
	result, err = env.engine.EvaluateAllAlertsForProduct(t.Context(), product)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Resolved)

	row, err := env.repos.states.GetState(t.Context(), alert.ID, product.ID)
	require.NoError(t, err)
	assert.False(t, row.IsUnresolved())
}

func TestEngine_ConcurrentEvaluationsTriggerOnce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	owner := env.createUser(t, "owner", "owner@example.com", true, false)
	product := env.createProduct(t, "SKU-1", "tools", 1, 5)
	alert := env.createAlert(t, owner, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			_, err := env.engine.EvaluateAllAlertsForProduct(context.Background(), product)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Len(t, env.pairNotifications(t, alert.ID), 1)
	assert.Len(t, env.email.all(), 1)
}
