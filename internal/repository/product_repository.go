package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"dealfeed/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrProductNotFound is returned when an operation targets a
	// product id that does not exist.
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository persists products. Scraped extras live in a JSONB
// details column so layout changes on the source pages never require
// a schema migration.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	// Update merges non-empty fields into the stored product and
	// reports whether a row was modified.
	Update(ctx context.Context, id uuid.UUID, fields domain.ProductFields) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	FindAll(ctx context.Context) ([]*domain.Product, error)
	Search(ctx context.Context, query string) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	details, err := json.Marshal(product.Details)
	if err != nil {
		return fmt.Errorf("failed to encode product details: %w", err)
	}

	query := `
		INSERT INTO products (id, title, price, category, details, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.db.ExecContext(ctx, query,
		product.ID, product.Title, product.Price, product.Category,
		details, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, id uuid.UUID, fields domain.ProductFields) (bool, error) {
	details, err := json.Marshal(fields.Details)
	if err != nil {
		return false, fmt.Errorf("failed to encode product details: %w", err)
	}

	// details || $4 merges the new keys into the stored document and
	// leaves fields the scrape did not produce untouched.
	query := `
		UPDATE products
		SET title = COALESCE(NULLIF($2, ''), title),
		    price = COALESCE(NULLIF($3, ''), price),
		    details = details || $4::jsonb,
		    updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, fields.Title, fields.Price, details)
	if err != nil {
		return false, fmt.Errorf("failed to update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return rows > 0, nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return rows > 0, nil
}

func (r *productRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	query := `
		SELECT id, title, price, category, details, created_at, updated_at
		FROM products
		WHERE category = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by category: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *productRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, title, price, category, details, created_at, updated_at
		FROM products
		ORDER BY category ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *productRepository) Search(ctx context.Context, search string) ([]*domain.Product, error) {
	query := `
		SELECT id, title, price, category, details, created_at, updated_at
		FROM products
		WHERE title ILIKE '%' || $1 || '%'
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, search)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]*domain.Product, error) {
	var products []*domain.Product
	for rows.Next() {
		var p domain.Product
		var details []byte
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Category, &details, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &p.Details); err != nil {
				return nil, fmt.Errorf("failed to decode product details: %w", err)
			}
		}
		products = append(products, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}
