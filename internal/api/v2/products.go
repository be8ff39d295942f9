package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/smartalerte/smartalerte/internal/datastore/entities"
	"github.com/smartalerte/smartalerte/internal/datastore/repository"
	"github.com/smartalerte/smartalerte/internal/logger"
)

// initProductRoutes registers product endpoints. Writes go through the stock
// service so every change is evaluated against the active alerts.
func (c *Controller) initProductRoutes() {
	products := c.Group.Group("/products")
	products.GET("", c.ListProducts)
	products.GET("/:id", c.GetProduct)

	protected := products.Group("", c.authMiddleware)
	protected.POST("", c.CreateProduct)
	protected.PUT("/:id", c.UpdateProduct)
	protected.DELETE("/:id", c.DeleteProduct)
	protected.POST("/:id/evaluate", c.EvaluateProduct)
}

// ListProducts returns products, optionally restricted to categories.
// Query: category (repeatable), limit, offset.
func (c *Controller) ListProducts(ctx echo.Context) error {
	limit, offset := parsePagination(ctx)
	filter := repository.ProductFilter{
		Categories: ctx.QueryParams()["category"],
		Limit:      limit,
		Offset:     offset,
	}

	products, err := c.stock.List(ctx.Request().Context(), filter)
	if err != nil {
		c.logErrorIfEnabled("failed to list products", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to list products", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"products": products,
		"count":    len(products),
		"limit":    limit,
		"offset":   offset,
	})
}

// GetProduct returns one product.
func (c *Controller) GetProduct(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid product ID")
	}

	p, err := c.stock.Get(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get product", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, p)
}

// CreateProduct stores a product and evaluates alerts against it.
func (c *Controller) CreateProduct(ctx echo.Context) error {
	var p entities.Product
	if err := ctx.Bind(&p); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	p.ID = 0

	if err := c.stock.Create(ctx.Request().Context(), &p); err != nil {
		c.logErrorIfEnabled("failed to create product", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to create product", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusCreated, p)
}

// UpdateProduct replaces a product and evaluates alerts against it.
func (c *Controller) UpdateProduct(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid product ID")
	}

	reqCtx := ctx.Request().Context()
	p, err := c.stock.Get(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to update product", http.StatusInternalServerError)
	}
	if err := ctx.Bind(p); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	p.ID = id

	if err := c.stock.Update(reqCtx, p); err != nil {
		c.logErrorIfEnabled("failed to update product", logger.Error(err))
		return c.HandleError(ctx, err, "Failed to update product", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, p)
}

// DeleteProduct removes a product.
func (c *Controller) DeleteProduct(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid product ID")
	}

	if err := c.stock.Delete(ctx.Request().Context(), id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete product", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// EvaluateProduct runs every active stock alert against one product.
func (c *Controller) EvaluateProduct(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return badRequest(ctx, "Invalid product ID")
	}

	result, err := c.engine.EvaluateProduct(ctx.Request().Context(), id)
	if err != nil {
		c.logErrorIfEnabled("product evaluation failed",
			logger.Uint64("product_id", uint64(id)),
			logger.Error(err))
		return c.HandleError(ctx, err, "Failed to evaluate product", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, result)
}
