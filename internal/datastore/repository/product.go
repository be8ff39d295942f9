package repository

import (
	"context"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
)

// ProductRepository provides products to the evaluation engine and the stock service.
type ProductRepository interface {
	GetProduct(ctx context.Context, id uint) (*entities.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]entities.Product, error)
	CreateProduct(ctx context.Context, product *entities.Product) error
	UpdateProduct(ctx context.Context, product *entities.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	// SaveAllProducts upserts products by SKU in batches and returns the number written.
	SaveAllProducts(ctx context.Context, products []entities.Product) (int, error)
}

// ProductFilter narrows product listings. Categories are compared trimmed
// and case-insensitively; an empty list means no category filter.
type ProductFilter struct {
	ProductID  *uint
	Categories []string
	Limit      int
	Offset     int
}
