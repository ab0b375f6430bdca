package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	"dealfeed/internal/domain"

	"go.uber.org/zap"
)

// CategoryLister is the slice of the category store the cache reads.
type CategoryLister interface {
	List(ctx context.Context) ([]*domain.Category, error)
}

// ProductLister is the slice of the product store the cache reads.
type ProductLister interface {
	FindAll(ctx context.Context) ([]*domain.Product, error)
}

// snapshot is an immutable view of the whole catalog. Readers never
// see a partially built one; Reload publishes a complete replacement
// in a single pointer swap.
type snapshot struct {
	byCategory map[string][]*domain.Product
	products   int
}

// Cache keeps the browse-path catalog in memory so reads never hit
// the store.
type Cache struct {
	categories CategoryLister
	products   ProductLister
	logger     *zap.Logger
	snap       atomic.Pointer[snapshot]
}

func New(categories CategoryLister, products ProductLister, logger *zap.Logger) *Cache {
	c := &Cache{categories: categories, products: products, logger: logger}
	c.snap.Store(&snapshot{byCategory: map[string][]*domain.Product{}})
	return c
}

// Reload rebuilds the snapshot from the store and swaps it in. On
// failure the previous snapshot stays published. Empty categories are
// kept so they remain browsable.
func (c *Cache) Reload(ctx context.Context) error {
	categories, err := c.categories.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	products, err := c.products.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}

	byCategory := make(map[string][]*domain.Product, len(categories))
	for _, cat := range categories {
		byCategory[cat.Name] = []*domain.Product{}
	}
	for _, p := range products {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	c.snap.Store(&snapshot{byCategory: byCategory, products: len(products)})
	c.logger.Debug("Catalog cache reloaded",
		zap.Int("categories", len(byCategory)),
		zap.Int("products", len(products)))
	return nil
}

// Get returns the products filed under category, in insertion order.
func (c *Cache) Get(category string) []*domain.Product {
	return c.snap.Load().byCategory[category]
}

// Has reports whether the category exists in the current snapshot.
func (c *Cache) Has(category string) bool {
	_, ok := c.snap.Load().byCategory[category]
	return ok
}

// All returns the current snapshot map. Callers must treat it as
// read-only.
func (c *Cache) All() map[string][]*domain.Product {
	return c.snap.Load().byCategory
}

// Counts returns the number of categories and products in the current
// snapshot.
func (c *Cache) Counts() (categories, products int) {
	s := c.snap.Load()
	return len(s.byCategory), s.products
}
