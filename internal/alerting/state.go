package alerting

import (
	"context"
	"time"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/errors"
)

// PairStatus is the condition state of one (alert, product) pair.
type PairStatus string

const (
	StatusNeverTriggered PairStatus = "never_triggered"
	StatusUnresolved     PairStatus = entities.AlertStatusUnresolved
	StatusResolved       PairStatus = entities.AlertStatusResolved
)

// PairState is the resolved view of a pair, whichever source it came from.
type PairState struct {
	Status         PairStatus
	LastTriggerAt  time.Time
	LastResolvedAt time.Time
}

// StateTracker reads pair state from the alert_states table. Pairs without a
// row fall back to the newest trigger and resolution notifications, which
// covers history written before state rows existed.
type StateTracker struct {
	states        repository.AlertStateRepository
	notifications repository.NotificationRepository
}

// NewStateTracker creates a StateTracker.
func NewStateTracker(states repository.AlertStateRepository, notifications repository.NotificationRepository) *StateTracker {
	return &StateTracker{states: states, notifications: notifications}
}

// State returns the current pair state.
func (t *StateTracker) State(ctx context.Context, alert *entities.Alert, product *entities.Product) (PairState, error) {
	row, err := t.states.GetState(ctx, alert.ID, product.ID)
	switch {
	case err == nil:
		return fromRow(row), nil
	case !errors.Is(err, repository.ErrAlertStateNotFound):
		return PairState{}, storeError(err, "get_state", alert, product)
	}
	return t.stateFromHistory(ctx, alert, product)
}

// IsCurrentlyUnresolved reports whether the pair has an open trigger.
func (t *StateTracker) IsCurrentlyUnresolved(ctx context.Context, alert *entities.Alert, product *entities.Product) (bool, error) {
	state, err := t.State(ctx, alert, product)
	if err != nil {
		return false, err
	}
	return state.Status == StatusUnresolved, nil
}

func (t *StateTracker) stateFromHistory(ctx context.Context, alert *entities.Alert, product *entities.Product) (PairState, error) {
	token := ProductToken(product.ID)

	trigger, err := t.notifications.LatestForPair(ctx, repository.PairQuery{
		AlertID:      alert.ID,
		ProductID:    product.ID,
		Type:         entities.NotificationTypeAlertTriggered,
		ProductToken: token,
	})
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return PairState{Status: StatusNeverTriggered}, nil
	}
	if err != nil {
		return PairState{}, storeError(err, "latest_trigger", alert, product)
	}

	state := PairState{Status: StatusUnresolved, LastTriggerAt: trigger.CreatedAt}
	resolved, err := t.notifications.LatestForPair(ctx, repository.PairQuery{
		AlertID:      alert.ID,
		ProductID:    product.ID,
		Type:         entities.NotificationTypeSystem,
		ProductToken: token,
		Marker:       ResolutionMarker,
	})
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return state, nil
	}
	if err != nil {
		return PairState{}, storeError(err, "latest_resolution", alert, product)
	}

	state.LastResolvedAt = resolved.CreatedAt
	if !trigger.CreatedAt.After(resolved.CreatedAt) {
		state.Status = StatusResolved
	}
	return state, nil
}

func fromRow(row *entities.AlertState) PairState {
	state := PairState{Status: StatusResolved}
	if row.IsUnresolved() {
		state.Status = StatusUnresolved
	}
	if row.LastTriggerAt != nil {
		state.LastTriggerAt = *row.LastTriggerAt
	}
	if row.LastResolvedAt != nil {
		state.LastResolvedAt = *row.LastResolvedAt
	}
	return state
}

func storeError(err error, op string, alert *entities.Alert, product *entities.Product) error {
	b := errors.New(err).
		Component(componentName).
		Category(errors.CategoryDatabase).
		Context("operation", op).
		Context("alert_id", alert.ID)
	if product != nil {
		b = b.Context("product_id", product.ID)
	}
	return b.Build()
}
