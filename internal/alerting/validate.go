package alerting

import (
	"slices"
	"strings"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/errors"
)

var (
	supportedModules        = []string{ModuleStock, ModuleCRM, ModuleFacturation, ModuleGMAO, ModuleGPAO, ModuleRH}
	supportedSeverities     = []string{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
	supportedConditionTypes = []string{ConditionThreshold, ConditionAbsence, ConditionAnomaly, ConditionTrend}
	supportedSchedules      = []string{ScheduleImmediate, ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly}
	supportedChannels       = []string{ChannelEmail, ChannelTelegram, ChannelMQTT}
	supportedOperators      = []string{OperatorGreaterThan, OperatorLessThan, OperatorEqualTo, OperatorNotEqual, OperatorGreaterEqual, OperatorLessEqual}
)

// ApplyDefaults fills unset rule attributes the way a newly created alert expects them.
func ApplyDefaults(alert *entities.Alert) {
	if alert.Severity == "" {
		alert.Severity = SeverityMedium
	}
	if alert.ConditionType == "" {
		alert.ConditionType = ConditionThreshold
	}
	if alert.ConditionField == "" {
		alert.ConditionField = string(FieldQuantity)
	}
	if alert.ComparisonOperator == "" {
		alert.ComparisonOperator = OperatorGreaterThan
	}
	if alert.Schedule == "" {
		alert.Schedule = ScheduleImmediate
	}
	if alert.NotificationChannels == nil {
		alert.NotificationChannels = []string{}
	}
	if alert.Recipients == nil {
		alert.Recipients = []string{}
	}
	if alert.Categories == nil {
		alert.Categories = []string{}
	}
	if alert.Tags == nil {
		alert.Tags = []string{}
	}
}

// ValidateAlert rejects rules the engine could never evaluate meaningfully.
// Every problem found is returned, joined, as a validation error.
func ValidateAlert(alert *entities.Alert) error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, errors.Newf(format, args...).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("field", field).
			Build())
	}

	if strings.TrimSpace(alert.Name) == "" {
		invalid("name", "alert name is required")
	}
	if !slices.Contains(supportedModules, alert.Module) {
		invalid("module", "unsupported module %q", alert.Module)
	}
	if !slices.Contains(supportedSeverities, alert.Severity) {
		invalid("severity", "unsupported severity %q", alert.Severity)
	}
	if !slices.Contains(supportedConditionTypes, alert.ConditionType) {
		invalid("condition_type", "unsupported condition type %q", alert.ConditionType)
	}
	if _, ok := ResolveField(alert.ConditionField); !ok {
		invalid("condition_field", "unsupported condition field %q", alert.ConditionField)
	}
	if !IsSupportedOperator(alert.ComparisonOperator) {
		invalid("comparison_operator", "unsupported comparison operator %q", alert.ComparisonOperator)
	}

	compareTo := strings.ToLower(strings.TrimSpace(alert.CompareTo))
	_, usesField := ResolveCompareTo(compareTo)
	if compareTo != "" && compareTo != CompareToValue && !usesField {
		invalid("compare_to", "unsupported comparand %q", alert.CompareTo)
	}
	if alert.ConditionType == ConditionThreshold && !usesField {
		if _, ok := ToDecimal(alert.ThresholdValue); !ok {
			invalid("threshold_value", "threshold value %q is not numeric", alert.Threshold())
		}
	}

	if !slices.Contains(supportedSchedules, strings.ToLower(alert.Schedule)) {
		invalid("schedule", "unsupported schedule %q", alert.Schedule)
	}
	for _, ch := range alert.NotificationChannels {
		if !slices.Contains(supportedChannels, normalizeChannel(ch)) {
			invalid("notification_channels", "unsupported notification channel %q", ch)
		}
	}

	return errors.Join(errs...)
}

func normalizeChannel(ch string) string {
	return strings.ToLower(strings.TrimSpace(ch))
}
