package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dealfeed/internal/domain"

	"github.com/google/uuid"
)

// ErrCategoryNotFound is returned when an operation targets a
// category name that does not exist.
var ErrCategoryNotFound = errors.New("category not found")

// CategoryRepository persists the category registry.
type CategoryRepository interface {
	// Create inserts a category and reports false when the name is
	// already taken.
	Create(ctx context.Context, name string) (bool, error)
	// Ensure inserts the category if missing and is a no-op otherwise.
	Ensure(ctx context.Context, name string) error
	// Remove deletes the category and every product filed under it in
	// a single transaction, returning the number of removed products.
	Remove(ctx context.Context, name string) (int, error)
	List(ctx context.Context) ([]*domain.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, name string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (name) DO NOTHING`,
		uuid.New(), name, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to create category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read create result: %w", err)
	}
	return rows > 0, nil
}

func (r *categoryRepository) Ensure(ctx context.Context, name string) error {
	_, err := r.Create(ctx, name)
	return err
}

func (r *categoryRepository) Remove(ctx context.Context, name string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE category = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete category products: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM categories WHERE name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("failed to delete category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	if rows == 0 {
		return 0, ErrCategoryNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit category removal: %w", err)
	}
	return int(removed), nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM categories
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}
	return categories, nil
}
