// Package stock owns product writes. Every successful create or update is
// followed by an alert evaluation of the written product.
package stock

import (
	"context"
	"strings"

	"github.com/smartalerte/smartalerte/internal/alerting"
	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/errors"
	"github.com/smartalerte/smartalerte/internal/logger"
)

const componentName = "stock"

// Evaluator runs every active stock alert against one product.
type Evaluator interface {
	EvaluateAllAlertsForProduct(ctx context.Context, product *entities.Product) (alerting.EvaluationResult, error)
}

// Service persists products and evaluates alerts after each write.
type Service struct {
	products  repository.ProductRepository
	evaluator Evaluator
	log       logger.Logger
}

// NewService creates a Service. evaluator may be nil, which disables evaluation.
func NewService(products repository.ProductRepository, evaluator Evaluator, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{products: products, evaluator: evaluator, log: log.Module(componentName)}
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id uint) (*entities.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "get_product", id)
	}
	return p, nil
}

// List returns products matching filter.
func (s *Service) List(ctx context.Context, filter repository.ProductFilter) ([]entities.Product, error) {
	products, err := s.products.ListProducts(ctx, filter)
	if err != nil {
		return nil, s.storeError(err, "list_products", 0)
	}
	return products, nil
}

// Create stores a new product and evaluates alerts against it.
func (s *Service) Create(ctx context.Context, p *entities.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return s.storeError(err, "create_product", 0)
	}
	s.evaluate(ctx, p)
	return nil
}

// Update replaces a stored product and evaluates alerts against it.
func (s *Service) Update(ctx context.Context, p *entities.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return s.storeError(err, "update_product", p.ID)
	}
	s.evaluate(ctx, p)
	return nil
}

// Delete removes a product. Its alert states cascade.
func (s *Service) Delete(ctx context.Context, id uint) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return s.storeError(err, "delete_product", id)
	}
	return nil
}

// evaluate never fails the write; the next evaluation is the retry.
func (s *Service) evaluate(ctx context.Context, p *entities.Product) {
	if s.evaluator == nil {
		return
	}
	result, err := s.evaluator.EvaluateAllAlertsForProduct(ctx, p)
	if err != nil {
		s.log.Error("alert evaluation failed after product write",
			logger.Uint64("product_id", uint64(p.ID)),
			logger.Error(err))
		return
	}
	if result.Triggered > 0 || result.Resolved > 0 {
		s.log.Debug("product write changed alert state",
			logger.Uint64("product_id", uint64(p.ID)),
			logger.Int("triggered", result.Triggered),
			logger.Int("resolved", result.Resolved))
	}
}

func validateProduct(p *entities.Product) error {
	var errs []error
	invalid := func(field, msg string) {
		errs = append(errs, errors.Newf("%s", msg).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("field", field).
			Build())
	}
	if strings.TrimSpace(p.Name) == "" {
		invalid("name", "product name is required")
	}
	if strings.TrimSpace(p.SKU) == "" {
		invalid("sku", "product sku is required")
	}
	if p.Price.IsNegative() {
		invalid("price", "price must not be negative")
	}
	if p.Status != "" {
		switch p.Status {
		case entities.ProductStatusOptimal, entities.ProductStatusLow,
			entities.ProductStatusOutOfStock, entities.ProductStatusRupture:
		default:
			invalid("status", "unsupported product status "+p.Status)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) storeError(err error, op string, id uint) error {
	category := errors.CategoryDatabase
	if errors.Is(err, repository.ErrProductNotFound) {
		category = errors.CategoryNotFound
	}
	b := errors.New(err).
		Component(componentName).
		Category(category).
		Context("operation", op)
	if id != 0 {
		b = b.Context("product_id", id)
	}
	return b.Build()
}
