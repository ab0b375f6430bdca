package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dealfeed/internal/catalog"
	"dealfeed/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stubCategoryRepo struct {
	names []string
	err   error
}

func (s *stubCategoryRepo) Create(ctx context.Context, name string) (bool, error) { return true, nil }
func (s *stubCategoryRepo) Ensure(ctx context.Context, name string) error         { return nil }
func (s *stubCategoryRepo) Remove(ctx context.Context, name string) (int, error)  { return 0, nil }

func (s *stubCategoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.Category
	for _, n := range s.names {
		out = append(out, &domain.Category{ID: uuid.New(), Name: n})
	}
	return out, nil
}

type stubProductRepo struct {
	products []*domain.Product
	err      error
}

func (s *stubProductRepo) Create(ctx context.Context, p *domain.Product) error { return nil }
func (s *stubProductRepo) Update(ctx context.Context, id uuid.UUID, f domain.ProductFields) (bool, error) {
	return false, nil
}
func (s *stubProductRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}
func (s *stubProductRepo) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) FindAll(ctx context.Context) ([]*domain.Product, error) {
	return s.products, s.err
}

func (s *stubProductRepo) Search(ctx context.Context, query string) ([]*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubUserRepo struct {
	touched []int64
	known   map[int64]bool
}

func (s *stubUserRepo) Upsert(ctx context.Context, telegramID int64, username string) error {
	if s.known == nil {
		s.known = map[int64]bool{}
	}
	s.known[telegramID] = true
	return nil
}

func (s *stubUserRepo) Touch(ctx context.Context, telegramID int64) (bool, error) {
	s.touched = append(s.touched, telegramID)
	return s.known[telegramID], nil
}

func (s *stubUserRepo) Stats(ctx context.Context) (domain.UserStats, error) {
	return domain.UserStats{TotalUsers: len(s.known)}, nil
}

func setupCatalogRouter(t *testing.T, failOpen bool, categories *stubCategoryRepo, products *stubProductRepo, users *stubUserRepo) chi.Router {
	t.Helper()

	cache := catalog.New(categories, products, zap.NewNop())
	if categories.err == nil && products.err == nil {
		if err := cache.Reload(context.Background()); err != nil {
			t.Fatalf("reload failed: %v", err)
		}
	}

	handler := NewCatalogHandler(cache, categories, products, users, failOpen, zap.NewNop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func catalogFixture() (*stubCategoryRepo, *stubProductRepo, *stubUserRepo) {
	categories := &stubCategoryRepo{names: []string{"Electronics", "Home"}}
	products := &stubProductRepo{products: []*domain.Product{
		{ID: uuid.New(), Title: "Wipro Smart LED Bulb", Price: "₹499", Category: "Home"},
		{ID: uuid.New(), Title: "Echo Dot", Price: "₹3999", Category: "Electronics"},
	}}
	users := &stubUserRepo{known: map[int64]bool{42: true}}
	return categories, products, users
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListCategoriesEndpoint(t *testing.T) {
	categories, products, users := catalogFixture()
	router := setupCatalogRouter(t, true, categories, products, users)

	rec := get(router, "/api/categories")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Categories) != 2 {
		t.Errorf("expected 2 categories, got %v", resp.Categories)
	}
}

func TestListCategoriesFailOpen(t *testing.T) {
	categories, products, users := catalogFixture()
	categories.err = errors.New("connection refused")

	router := setupCatalogRouter(t, true, categories, products, users)
	rec := get(router, "/api/categories")
	if rec.Code != http.StatusOK {
		t.Fatalf("fail-open read should return 200, got %d", rec.Code)
	}

	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Categories) != 0 {
		t.Errorf("expected empty list, got %v", resp.Categories)
	}

	router = setupCatalogRouter(t, false, categories, products, users)
	if rec := get(router, "/api/categories"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("fail-closed read should return 500, got %d", rec.Code)
	}
}

func TestCategoryProductsEndpoint(t *testing.T) {
	categories, products, users := catalogFixture()
	router := setupCatalogRouter(t, true, categories, products, users)

	rec := get(router, "/api/categories/home/products?telegram_id=42")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Category string            `json:"category"`
		Products []*domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Category != "Home" {
		t.Errorf("category not normalized: %q", resp.Category)
	}
	if len(resp.Products) != 1 || resp.Products[0].Title != "Wipro Smart LED Bulb" {
		t.Errorf("unexpected products %v", resp.Products)
	}
	if len(users.touched) != 1 || users.touched[0] != 42 {
		t.Errorf("expected activity touch for user 42, got %v", users.touched)
	}
}

func TestCategoryProductsUnknown(t *testing.T) {
	categories, products, users := catalogFixture()
	router := setupCatalogRouter(t, true, categories, products, users)

	if rec := get(router, "/api/categories/ghost/products"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDealsEndpoint(t *testing.T) {
	categories, products, users := catalogFixture()
	router := setupCatalogRouter(t, true, categories, products, users)

	rec := get(router, "/api/deals")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Deals []*domain.Product `json:"deals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Deals) != 2 {
		t.Errorf("expected both products in deals sample, got %d", len(resp.Deals))
	}
}

func TestSearchEndpoint(t *testing.T) {
	categories, products, users := catalogFixture()
	router := setupCatalogRouter(t, true, categories, products, users)

	rec := get(router, "/api/products/search?q=bulb")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Products []*domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Products) != 1 {
		t.Errorf("expected 1 match, got %d", len(resp.Products))
	}

	if rec := get(router, "/api/products/search"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without query, got %d", rec.Code)
	}
}

func TestRegisterUserEndpoint(t *testing.T) {
	categories, products, users := catalogFixture()
	router := setupCatalogRouter(t, true, categories, products, users)

	rec := postJSON(router, "", "/api/users/register", map[string]interface{}{
		"telegram_id": 1001,
		"username":    "dave",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !users.known[1001] {
		t.Error("user not registered")
	}

	rec = postJSON(router, "", "/api/users/register", map[string]interface{}{"username": "no_id"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without telegram_id, got %d", rec.Code)
	}
}
