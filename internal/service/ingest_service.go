package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"dealfeed/internal/catalog"
	"dealfeed/internal/domain"
	"dealfeed/internal/repository"
	"dealfeed/internal/resolver"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrPersistenceFailed reports that the scrape succeeded but the
	// product could not be saved.
	ErrPersistenceFailed = errors.New("failed to save product")

	// ErrCategoryExists reports a duplicate category name.
	ErrCategoryExists = errors.New("category already exists")

	// ErrInvalidIndex reports a product number outside the listing
	// shown to the admin.
	ErrInvalidIndex = errors.New("invalid product number")

	// ErrConfirmationRequired reports that removing the category would
	// also remove its products and the caller has not confirmed.
	ErrConfirmationRequired = errors.New("category is not empty; confirmation required")
)

// URLResolver validates and canonicalizes a product reference.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) (resolver.Resolved, error)
}

// PageExtractor scrapes structured fields from a product page.
type PageExtractor interface {
	Extract(ctx context.Context, pageURL string) (domain.ProductFields, error)
}

// IngestService runs the product pipeline and the category registry.
type IngestService interface {
	// AddProductFromURL runs resolve, extract, persist, reload. The
	// cache is only reloaded when the product was saved.
	AddProductFromURL(ctx context.Context, rawURL, category string) (*domain.Product, error)
	// RemoveProductAt deletes the index-th product (1-based) of the
	// category listing as the admin currently sees it.
	RemoveProductAt(ctx context.Context, category string, index int) (*domain.Product, error)
	AddCategory(ctx context.Context, name string) (string, error)
	// RemoveCategory cascades onto the category's products; without
	// confirmed it refuses when products would be lost. Returns the
	// number of removed products.
	RemoveCategory(ctx context.Context, name string, confirmed bool) (int, error)
}

type ingestService struct {
	resolver   URLResolver
	extractor  PageExtractor
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      *catalog.Cache
	logger     *zap.Logger
}

func NewIngestService(
	urlResolver URLResolver,
	extractor PageExtractor,
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	cache *catalog.Cache,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		resolver:   urlResolver,
		extractor:  extractor,
		products:   products,
		categories: categories,
		cache:      cache,
		logger:     logger,
	}
}

func (s *ingestService) AddProductFromURL(ctx context.Context, rawURL, category string) (*domain.Product, error) {
	category = NormalizeCategory(category)

	resolved, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	fields, err := s.extractor.Extract(ctx, resolved.URL)
	if err != nil {
		return nil, err
	}

	if err := s.categories.Ensure(ctx, category); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		Title:     fields.Title,
		Price:     fields.Price,
		Category:  category,
		Details:   fields.Details,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	s.reload(ctx)
	s.logger.Info("Product ingested",
		zap.String("title", product.Title),
		zap.String("category", category),
		zap.String("asin", resolved.ASIN))
	return product, nil
}

func (s *ingestService) RemoveProductAt(ctx context.Context, category string, index int) (*domain.Product, error) {
	category = NormalizeCategory(category)

	listing := s.cache.Get(category)
	if index < 1 || index > len(listing) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(listing))
	}
	product := listing[index-1]

	deleted, err := s.products.Delete(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if !deleted {
		return nil, repository.ErrProductNotFound
	}

	s.reload(ctx)
	return product, nil
}

func (s *ingestService) AddCategory(ctx context.Context, name string) (string, error) {
	name = NormalizeCategory(name)

	created, err := s.categories.Create(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if !created {
		return "", fmt.Errorf("%w: %q", ErrCategoryExists, name)
	}

	s.reload(ctx)
	return name, nil
}

func (s *ingestService) RemoveCategory(ctx context.Context, name string, confirmed bool) (int, error) {
	name = NormalizeCategory(name)

	if !confirmed {
		if pending := len(s.cache.Get(name)); pending > 0 {
			return pending, ErrConfirmationRequired
		}
	}

	removed, err := s.categories.Remove(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	s.reload(ctx)
	s.logger.Info("Category removed", zap.String("name", name), zap.Int("products", removed))
	return removed, nil
}

// reload refreshes the cache after a successful write. A failed
// reload only delays visibility; the status loop retries it.
func (s *ingestService) reload(ctx context.Context) {
	if err := s.cache.Reload(ctx); err != nil {
		s.logger.Warn("Catalog cache reload failed", zap.Error(err))
	}
}

// NormalizeCategory folds the name to Title-case so "home", "HOME"
// and "Home" all land in the same category.
func NormalizeCategory(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	runes := []rune(strings.ToLower(name))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
