package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/errors"
)

const productBatchSize = 200

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProduct(ctx context.Context, id uint) (*entities.Product, error) {
	var product entities.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &product, nil
}

// ListProducts returns products matching the filter ordered by ID.
func (r *productRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]entities.Product, error) {
	var products []entities.Product
	query := r.db.WithContext(ctx)

	if filter.ProductID != nil {
		query = query.Where("id = ?", *filter.ProductID)
	}
	if cats := normalizeCategories(filter.Categories); len(cats) > 0 {
		query = query.Where("category_key IN ?", cats)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *productRepository) CreateProduct(ctx context.Context, product *entities.Product) error {
	if product.Status == "" {
		product.Status = entities.ProductStatusOptimal
	}
	product.SyncCategoryKey()
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) UpdateProduct(ctx context.Context, product *entities.Product) error {
	if product.ID == 0 {
		return fmt.Errorf("failed to update product: missing product ID")
	}
	product.SyncCategoryKey()
	result := r.db.WithContext(ctx).Select("*").Omit("created_at").
		Where("id = ?", product.ID).Updates(product)
	if result.Error != nil {
		return fmt.Errorf("failed to update product %d: %w", product.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SaveAllProducts upserts in batches. A conflicting SKU updates the stock
// columns of the existing row.
func (r *productRepository) SaveAllProducts(ctx context.Context, products []entities.Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}

	var saved int
	for i := 0; i < len(products); i += productBatchSize {
		end := min(i+productBatchSize, len(products))
		batch := products[i:end]
		for j := range batch {
			batch[j].SyncCategoryKey()
		}

		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "sku"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "category", "category_key", "status", "quantity", "min_quantity",
					"max_quantity", "price", "supplier", "updated_at",
				}),
			}).
			Create(&batch).Error
		if err != nil {
			return saved, fmt.Errorf("failed to save products batch at %d: %w", i, err)
		}
		saved += len(batch)
	}
	return saved, nil
}

func normalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = entities.FoldCategory(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
