package transport

import (
	"errors"
	"net/http"

	"dealfeed/internal/middleware"
	"dealfeed/internal/repository"
	"dealfeed/internal/resolver"
	"dealfeed/internal/scraper"
	"dealfeed/internal/service"
	"dealfeed/internal/status"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves the authenticated curation surface.
type AdminHandler struct {
	ingest   service.IngestService
	auth     service.AuthService
	products repository.ProductRepository
	reporter *status.Reporter
	logger   *zap.Logger
}

func NewAdminHandler(
	ingest service.IngestService,
	auth service.AuthService,
	products repository.ProductRepository,
	reporter *status.Reporter,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		ingest:   ingest,
		auth:     auth,
		products: products,
		reporter: reporter,
		logger:   logger,
	}
}

// RegisterRoutes registers admin endpoints. Ingest is rate limited on
// top of authentication because each call fans out into scrape
// traffic.
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMW, rateLimitMW func(http.Handler) http.Handler) {
	r.Post("/api/admin/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.With(rateLimitMW).Post("/api/admin/products", h.AddProduct)
		r.Delete("/api/admin/products", h.RemoveProduct)
		r.Get("/api/products", h.ListProducts)
		r.Post("/api/admin/categories", h.AddCategory)
		r.Delete("/api/admin/categories/{name}", h.RemoveCategory)
		r.Get("/api/status", h.Status)
	})
}

// LoginRequest represents an admin login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("Admin login rejected", zap.String("username", req.Username))
		middleware.RespondWithError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "Bearer",
	})
}

// AddProductRequest represents a product ingest request. Category is
// optional; uncategorized products land in the default bucket.
type AddProductRequest struct {
	URL      string `json:"url" validate:"required,max=2048"`
	Category string `json:"category" validate:"omitempty,min=2,max=100"`
}

const defaultCategory = "Deals"

// AddProduct handles POST /api/admin/products
func (h *AdminHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Category == "" {
		req.Category = defaultCategory
	}

	product, err := h.ingest.AddProductFromURL(r.Context(), req.URL, req.Category)
	if err != nil {
		h.respondIngestError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// RemoveProductRequest identifies a product by its position in the
// category listing, the way the admin sees it.
type RemoveProductRequest struct {
	Category string `json:"category" validate:"required"`
	Index    int    `json:"index" validate:"required,gt=0"`
}

// RemoveProduct handles DELETE /api/admin/products
func (h *AdminHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	var req RemoveProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.ingest.RemoveProductAt(r.Context(), req.Category, req.Index)
	if err != nil {
		h.respondIngestError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"removed": product.Title,
	})
}

// ListProducts handles GET /api/products, the full listing with ids
// for curation.
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.FindAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"products": publicProducts(products)})
}

// AddCategoryRequest represents a category creation
type AddCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

// AddCategory handles POST /api/admin/categories
func (h *AdminHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req AddCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name, err := h.ingest.AddCategory(r.Context(), req.Name)
	if err != nil {
		h.respondIngestError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, map[string]string{"name": name})
}

// RemoveCategory handles DELETE /api/admin/categories/{name}. When
// the category still has products, ?confirm=true acknowledges that
// they are removed with it.
func (h *AdminHandler) RemoveCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	confirmed := r.URL.Query().Get("confirm") == "true"

	removed, err := h.ingest.RemoveCategory(r.Context(), name, confirmed)
	if err != nil {
		if errors.Is(err, service.ErrConfirmationRequired) {
			middleware.RespondWithErrorDetails(w, http.StatusConflict,
				"category is not empty; repeat with confirm=true to remove it and its products",
				map[string]interface{}{"products": removed})
			return
		}
		h.respondIngestError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"removed_products": removed,
	})
}

// Status handles GET /api/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.reporter.Report(r.Context()))
}

// respondIngestError maps pipeline errors onto HTTP statuses with
// operator-readable messages.
func (h *AdminHandler) respondIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, resolver.ErrInvalidURL):
		middleware.RespondWithError(w, http.StatusBadRequest, "not a recognizable product link")
	case errors.Is(err, scraper.ErrExtractionFailed):
		middleware.RespondWithError(w, http.StatusBadGateway,
			"could not read the product page; it may be blocked, removed, or out of stock")
	case errors.Is(err, service.ErrInvalidIndex):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product number")
	case errors.Is(err, service.ErrCategoryExists):
		middleware.RespondWithError(w, http.StatusConflict, "category already exists")
	case errors.Is(err, repository.ErrCategoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	default:
		h.logger.Error("Ingest operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "operation failed")
	}
}
