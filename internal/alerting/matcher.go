package alerting

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

// Matches reports whether alert currently holds for product, together with
// the trigger message. Rules that cannot be evaluated never match.
func Matches(alert *entities.Alert, product *entities.Product) (bool, string) {
	if alert == nil || product == nil {
		return false, ""
	}
	if !alert.IsActive || alert.Module != ModuleStock {
		return false, ""
	}
	if alert.ProductID != nil && *alert.ProductID != product.ID {
		return false, ""
	}
	if !MatchesCategories(alert.Categories, product.Category) {
		return false, ""
	}
	field, ok := ResolveField(alert.ConditionField)
	if !ok {
		return false, ""
	}
	current, ok := field.Value(product)
	if !ok {
		return false, ""
	}

	switch alert.ConditionType {
	case ConditionThreshold:
		target, ok := comparand(alert, product)
		if !ok || !Compare(current, target, alert.ComparisonOperator) {
			return false, ""
		}
		return true, buildTriggerMessage(alert, product, field, current.String(), target.String())
	case ConditionAbsence:
		if !current.LessThanOrEqual(decimal.Zero) {
			return false, ""
		}
		return true, buildTriggerMessage(alert, product, field, current.String(), decimal.Zero.String())
	default:
		return false, ""
	}
}

// IsEvaluable reports whether the condition type has an evaluation algorithm.
func IsEvaluable(conditionType string) bool {
	return conditionType == ConditionThreshold || conditionType == ConditionAbsence
}

// MatchesCategories compares trimmed, case-folded labels. An empty allow-list
// matches everything.
func MatchesCategories(allowed []string, category string) bool {
	if len(allowed) == 0 {
		return true
	}
	want := foldCategory(category)
	folded := make([]string, 0, len(allowed))
	for _, c := range allowed {
		if c = foldCategory(c); c != "" {
			folded = append(folded, c)
		}
	}
	return slices.Contains(folded, want)
}

// NormalizeCategories folds and de-duplicates labels for store queries.
func NormalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = foldCategory(c); c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func foldCategory(s string) string {
	return entities.FoldCategory(s)
}

func comparand(alert *entities.Alert, product *entities.Product) (decimal.Decimal, bool) {
	if f, ok := ResolveCompareTo(alert.CompareTo); ok {
		return f.Value(product)
	}
	return ToDecimal(alert.ThresholdValue)
}
