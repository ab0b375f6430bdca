package transport

import (
	"math/rand"
	"net/http"
	"strconv"

	"dealfeed/internal/catalog"
	"dealfeed/internal/domain"
	"dealfeed/internal/middleware"
	"dealfeed/internal/repository"
	"dealfeed/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const dealsSampleSize = 5

// CatalogHandler serves the subscriber-facing browse surface. Product
// listings come from the in-memory catalog snapshot; the store is only
// touched for registration, activity tracking, and search.
type CatalogHandler struct {
	cache      *catalog.Cache
	categories repository.CategoryRepository
	products   repository.ProductRepository
	users      repository.UserRepository
	failOpen   bool
	logger     *zap.Logger
}

func NewCatalogHandler(
	cache *catalog.Cache,
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	users repository.UserRepository,
	failOpen bool,
	logger *zap.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		cache:      cache,
		categories: categories,
		products:   products,
		users:      users,
		failOpen:   failOpen,
		logger:     logger,
	}
}

// RegisterRoutes registers catalog endpoints
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/users/register", h.RegisterUser)
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/categories/{name}/products", h.CategoryProducts)
	r.Get("/api/deals", h.Deals)
	r.Get("/api/products/search", h.SearchProducts)
}

// RegisterUserRequest represents a subscriber registration
type RegisterUserRequest struct {
	TelegramID int64  `json:"telegram_id" validate:"required,gt=0"`
	Username   string `json:"username" validate:"max=255"`
}

// RegisterUser handles POST /api/users/register
func (h *CatalogHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.Upsert(r.Context(), req.TelegramID, req.Username); err != nil {
		h.logger.Error("Failed to register user", zap.Int64("telegram_id", req.TelegramID), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

// ListCategories handles GET /api/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		if !h.failOpen {
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load categories")
			return
		}
		categories = nil
	}

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"categories": names})
}

// CategoryProducts handles GET /api/categories/{name}/products. An
// optional telegram_id query parameter refreshes the caller's
// activity timestamp.
func (h *CatalogHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	name := service.NormalizeCategory(chi.URLParam(r, "name"))

	if raw := r.URL.Query().Get("telegram_id"); raw != "" {
		if telegramID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			matched, err := h.users.Touch(r.Context(), telegramID)
			if err != nil {
				h.logger.Warn("Failed to touch user", zap.Int64("telegram_id", telegramID), zap.Error(err))
			} else if !matched {
				h.logger.Debug("Activity touch for unknown user", zap.Int64("telegram_id", telegramID))
			}
		}
	}

	if !h.cache.Has(name) {
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"category": name,
		"products": publicProducts(h.cache.Get(name)),
	})
}

// Deals handles GET /api/deals with a random sample across the whole
// catalog.
func (h *CatalogHandler) Deals(w http.ResponseWriter, r *http.Request) {
	var all []*domain.Product
	for _, products := range h.cache.All() {
		all = append(all, products...)
	}

	rand.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	if len(all) > dealsSampleSize {
		all = all[:dealsSampleSize]
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"deals": publicProducts(all)})
}

// SearchProducts handles GET /api/products/search?q=
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing search query")
		return
	}

	products, err := h.products.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("Product search failed", zap.String("query", query), zap.Error(err))
		if !h.failOpen {
			middleware.RespondWithError(w, http.StatusInternalServerError, "search failed")
			return
		}
		products = nil
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": publicProducts(products)})
}

// publicProducts guarantees an empty array instead of null in JSON
// output.
func publicProducts(products []*domain.Product) []*domain.Product {
	if products == nil {
		return []*domain.Product{}
	}
	return products
}
