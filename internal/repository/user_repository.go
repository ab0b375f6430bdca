package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dealfeed/internal/domain"
)

// UserRepository tracks subscribers and their activity.
type UserRepository interface {
	// Upsert registers a user, preserving the original join date when
	// the user is already known.
	Upsert(ctx context.Context, telegramID int64, username string) error
	// Touch refreshes last-active and reports whether the user exists.
	Touch(ctx context.Context, telegramID int64) (bool, error)
	Stats(ctx context.Context) (domain.UserStats, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(ctx context.Context, telegramID int64, username string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, joined_date, last_active)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username, last_active = EXCLUDED.last_active`,
		telegramID, username, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *userRepository) Touch(ctx context.Context, telegramID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_active = now() WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to touch user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read touch result: %w", err)
	}
	return rows > 0, nil
}

func (r *userRepository) Stats(ctx context.Context) (domain.UserStats, error) {
	var stats domain.UserStats
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE last_active >= date_trunc('day', now()))
		FROM users`).Scan(&stats.TotalUsers, &stats.ActiveToday)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("failed to query user stats: %w", err)
	}
	return stats, nil
}
