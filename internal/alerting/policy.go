package alerting

import (
	"context"
	"strings"
	"time"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

var scheduleIntervals = map[string]time.Duration{
	ScheduleImmediate: 0,
	ScheduleHourly:    time.Hour,
	ScheduleDaily:     24 * time.Hour,
	ScheduleWeekly:    7 * 24 * time.Hour,
	ScheduleMonthly:   30 * 24 * time.Hour,
}

// ScheduleInterval returns the minimum delay between repeat triggers.
// Unknown tags behave like immediate.
func ScheduleInterval(schedule string) time.Duration {
	tag := strings.ToLower(strings.TrimSpace(schedule))
	if tag == "" {
		tag = ScheduleImmediate
	}
	return scheduleIntervals[tag]
}

// CanRepeatNow reports whether the schedule interval has elapsed since lastTrigger.
func CanRepeatNow(alert *entities.Alert, lastTrigger, now time.Time) bool {
	interval := ScheduleInterval(alert.Schedule)
	if interval <= 0 {
		return true
	}
	return !now.Before(lastTrigger.Add(interval))
}

// shouldTrigger applies the repeat policy to a known pair state.
func shouldTrigger(alert *entities.Alert, state PairState, now time.Time) bool {
	switch state.Status {
	case StatusNeverTriggered, StatusResolved:
		return true
	}
	if !alert.RepeatUntilResolved {
		return false
	}
	return CanRepeatNow(alert, state.LastTriggerAt, now)
}

// RepeatPolicy decides whether a matching pair should emit a trigger now.
type RepeatPolicy struct {
	tracker *StateTracker
	now     func() time.Time
}

// NewRepeatPolicy creates a RepeatPolicy. now may be nil.
func NewRepeatPolicy(tracker *StateTracker, now func() time.Time) *RepeatPolicy {
	if now == nil {
		now = time.Now
	}
	return &RepeatPolicy{tracker: tracker, now: now}
}

// ShouldCreateTrigger is true for pairs that never triggered or were
// resolved; an open pair repeats only when the alert asks for it and the
// schedule interval has elapsed.
func (p *RepeatPolicy) ShouldCreateTrigger(ctx context.Context, alert *entities.Alert, product *entities.Product) (bool, error) {
	state, err := p.tracker.State(ctx, alert, product)
	if err != nil {
		return false, err
	}
	return shouldTrigger(alert, state, p.now()), nil
}
