package alerting

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

// Field is a numeric product attribute an alert can read.
type Field string

// Supported product fields.
const (
	FieldQuantity    Field = "quantity"
	FieldMinQuantity Field = "min_quantity"
	FieldMaxQuantity Field = "max_quantity"
	FieldPrice       Field = "price"
)

// fieldAccessors is the closed set of readable fields.
var fieldAccessors = map[Field]func(*entities.Product) decimal.Decimal{
	FieldQuantity:    func(p *entities.Product) decimal.Decimal { return decimal.NewFromInt(int64(p.Quantity)) },
	FieldMinQuantity: func(p *entities.Product) decimal.Decimal { return decimal.NewFromInt(int64(p.MinQuantity)) },
	FieldMaxQuantity: func(p *entities.Product) decimal.Decimal { return decimal.NewFromInt(int64(p.MaxQuantity)) },
	FieldPrice:       func(p *entities.Product) decimal.Decimal { return p.Price },
}

// compareToAliases maps legacy comparand names onto product fields.
var compareToAliases = map[string]Field{
	CompareToMinStock: FieldMinQuantity,
}

// SupportedFields lists the readable fields in display order.
func SupportedFields() []Field {
	return []Field{FieldQuantity, FieldMinQuantity, FieldMaxQuantity, FieldPrice}
}

// ResolveField maps a condition_field value to a supported field.
// An empty name defaults to quantity.
func ResolveField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FieldQuantity, true
	}
	f := Field(name)
	if _, ok := fieldAccessors[f]; !ok {
		return "", false
	}
	return f, true
}

// ResolveCompareTo maps a compare_to value to a product field. It reports
// false when the comparand is the threshold literal, which is the case for
// "", "value" and names that are not supported fields.
func ResolveCompareTo(compareTo string) (Field, bool) {
	name := strings.ToLower(strings.TrimSpace(compareTo))
	if name == "" || name == CompareToValue {
		return "", false
	}
	if f, ok := compareToAliases[name]; ok {
		return f, true
	}
	f := Field(name)
	if _, ok := fieldAccessors[f]; !ok {
		return "", false
	}
	return f, true
}

// Value reads the field from product.
func (f Field) Value(product *entities.Product) (decimal.Decimal, bool) {
	accessor, ok := fieldAccessors[f]
	if !ok || product == nil {
		return decimal.Zero, false
	}
	return accessor(product), true
}

func (f Field) String() string { return string(f) }
