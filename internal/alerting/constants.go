// Package alerting evaluates stock alert rules against products and records
// trigger and resolution notifications for each (alert, product) pair.
package alerting

// Modules an alert can belong to. Only ModuleStock is evaluated.
const (
	ModuleStock       = "stock"
	ModuleCRM         = "crm"
	ModuleFacturation = "facturation"
	ModuleGMAO        = "gmao"
	ModuleGPAO        = "gpao"
	ModuleRH          = "rh"
)

// Severities.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Condition types. Anomaly and trend are stored but never evaluated.
const (
	ConditionThreshold = "threshold"
	ConditionAbsence   = "absence"
	ConditionAnomaly   = "anomaly"
	ConditionTrend     = "trend"
)

// Comparison operators.
const (
	OperatorGreaterThan  = "greater_than"
	OperatorLessThan     = "less_than"
	OperatorEqualTo      = "equal_to"
	OperatorNotEqual     = "not_equal"
	OperatorGreaterEqual = "greater_equal"
	OperatorLessEqual    = "less_equal"
)

// Schedule tags controlling the minimum repeat interval.
const (
	ScheduleImmediate = "immediate"
	ScheduleHourly    = "hourly"
	ScheduleDaily     = "daily"
	ScheduleWeekly    = "weekly"
	ScheduleMonthly   = "monthly"
)

// Notification channels.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
	ChannelMQTT     = "mqtt"
)

// Comparand sources other than product fields.
const (
	CompareToValue    = "value"
	CompareToMinStock = "min_stock"
)

// ResolutionMarker tags resolution notifications.
const ResolutionMarker = "[RESOLVED]"

// DefaultAlertName names the automatic low-stock alert.
const DefaultAlertName = "Stock faible - AUTO"

const componentName = "alerting"
