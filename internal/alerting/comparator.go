package alerting

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ToDecimal coerces a raw field value to an exact decimal. It reports false
// for nil, empty or non-numeric input.
func ToDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromUint64(uint64(v)), true
	case uint32:
		return decimal.NewFromUint64(uint64(v)), true
	case uint64:
		return decimal.NewFromUint64(v), true
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case string:
		return fromString(v)
	case *string:
		if v == nil {
			return decimal.Zero, false
		}
		return fromString(*v)
	default:
		return decimal.Zero, false
	}
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func fromString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Compare applies operator to left and right. Unknown operators never match.
func Compare(left, right decimal.Decimal, operator string) bool {
	switch operator {
	case OperatorGreaterThan:
		return left.GreaterThan(right)
	case OperatorLessThan:
		return left.LessThan(right)
	case OperatorEqualTo:
		return left.Equal(right)
	case OperatorNotEqual:
		return !left.Equal(right)
	case OperatorGreaterEqual:
		return left.GreaterThanOrEqual(right)
	case OperatorLessEqual:
		return left.LessThanOrEqual(right)
	default:
		return false
	}
}

// IsSupportedOperator reports whether operator is one of the six comparisons.
func IsSupportedOperator(operator string) bool {
	switch operator {
	case OperatorGreaterThan, OperatorLessThan, OperatorEqualTo,
		OperatorNotEqual, OperatorGreaterEqual, OperatorLessEqual:
		return true
	}
	return false
}
