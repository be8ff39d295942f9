package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Product stock statuses.
const (
	ProductStatusOptimal    = "optimal"
	ProductStatusLow        = "low"
	ProductStatusOutOfStock = "out_of_stock"
	ProductStatusRupture    = "rupture"
)

// Product is an inventory item. Alerts are evaluated against its numeric fields.
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	SKU           string          `gorm:"column:sku;size:100;not null;uniqueIndex" json:"sku"`
	Category      string          `gorm:"size:120" json:"category"`
	CategoryKey   string          `gorm:"size:120;index" json:"-"`
	Status        string          `gorm:"size:20;not null" json:"status"`
	Quantity      int             `gorm:"not null" json:"quantity"`
	MinQuantity   int             `gorm:"not null" json:"min_quantity"`
	MaxQuantity   int             `gorm:"not null" json:"max_quantity"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Supplier      string          `gorm:"size:255" json:"supplier"`
	LastRestocked *time.Time      `json:"last_restocked"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Product) TableName() string {
	return "products"
}

// FoldCategory trims and Unicode case-folds a category label. Category
// filters compare folded labels, so "Électronique" and "ÉLECTRONIQUE" are equal.
func FoldCategory(s string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(s))
}

// SyncCategoryKey refreshes CategoryKey from Category. The repository calls
// it before every write.
func (p *Product) SyncCategoryKey() {
	p.CategoryKey = FoldCategory(p.Category)
}
