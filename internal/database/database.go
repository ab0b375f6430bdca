package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dealfeed/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// ErrConnectivityLost reports that the store is unreachable and a
// reconnect attempt did not bring it back.
var ErrConnectivityLost = errors.New("database connectivity lost")

// Service owns the connection pool and its liveness checks.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

func dsn(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.Schema)
}

// New opens the connection pool. The pool is lazy; Ping decides
// whether the database is actually reachable.
func New(cfg config.DatabaseConfig, logger *zap.Logger) (*Service, error) {
	db, err := sql.Open("pgx", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Service{db: db, logger: logger}, nil
}

// DB returns the connection pool.
func (s *Service) DB() *sql.DB {
	return s.db
}

// Ping checks liveness of the connection pool.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Reconnect forces the pool to re-establish connectivity within the
// given timeout. database/sql redials broken connections on demand,
// so a bounded ping is what drives the redial; in-flight operations
// keep their handle and fail individually if the store stays down.
func (s *Service) Reconnect(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivityLost, err)
	}

	s.logger.Info("Database connection re-established")
	return nil
}

// Close shuts down the connection pool.
func (s *Service) Close() error {
	return s.db.Close()
}
