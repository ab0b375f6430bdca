package status

import (
	"context"
	"time"

	"dealfeed/internal/catalog"
	"dealfeed/internal/config"
	"dealfeed/internal/domain"

	"go.uber.org/zap"
)

// Pinger is the slice of the database service the reporter drives.
type Pinger interface {
	Ping(ctx context.Context) error
	Reconnect(ctx context.Context, timeout time.Duration) error
}

// UserStatser reads subscriber statistics.
type UserStatser interface {
	Stats(ctx context.Context) (domain.UserStats, error)
}

// Report is one health observation.
type Report struct {
	Uptime      string    `json:"uptime"`
	Database    string    `json:"database"`
	Categories  int       `json:"categories"`
	Products    int       `json:"products"`
	TotalUsers  int       `json:"total_users"`
	ActiveToday int       `json:"active_today"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Reporter periodically checks store connectivity, heals it when it
// drops, and refreshes the catalog cache as a backstop for missed
// write-path reloads.
type Reporter struct {
	db      Pinger
	cache   *catalog.Cache
	users   UserStatser
	cfg     config.Config
	logger  *zap.Logger
	started time.Time
}

func NewReporter(db Pinger, cache *catalog.Cache, users UserStatser, cfg config.Config, logger *zap.Logger) *Reporter {
	return &Reporter{
		db:      db,
		cache:   cache,
		users:   users,
		cfg:     cfg,
		logger:  logger,
		started: time.Now(),
	}
}

// Run blocks until ctx is cancelled. The first check is delayed so a
// freshly started process settles before reporting.
func (r *Reporter) Run(ctx context.Context) {
	first := time.NewTimer(r.cfg.Status.FirstDelay)
	defer first.Stop()

	select {
	case <-ctx.Done():
		return
	case <-first.C:
	}
	r.tick(ctx)

	ticker := time.NewTicker(r.cfg.Status.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reporter) tick(ctx context.Context) {
	report := r.Report(ctx)

	if err := r.cache.Reload(ctx); err != nil {
		r.logger.Warn("Status-loop cache reload failed", zap.Error(err))
	}

	r.logger.Info("Status check",
		zap.String("uptime", report.Uptime),
		zap.String("database", report.Database),
		zap.Int("categories", report.Categories),
		zap.Int("products", report.Products),
		zap.Int("total_users", report.TotalUsers),
		zap.Int("active_today", report.ActiveToday),
	)
}

// Report takes a health observation now. A failed ping triggers one
// reconnect attempt before the database is declared unreachable.
func (r *Reporter) Report(ctx context.Context) Report {
	dbState := "connected"
	if err := r.db.Ping(ctx); err != nil {
		r.logger.Warn("Database ping failed", zap.Error(err))
		if err := r.db.Reconnect(ctx, r.cfg.Store.ReconnectTimeout); err != nil {
			r.logger.Error("Database reconnect failed", zap.Error(err))
			dbState = "unreachable"
		} else {
			dbState = "reconnected"
		}
	}

	var stats domain.UserStats
	if dbState != "unreachable" {
		var err error
		if stats, err = r.users.Stats(ctx); err != nil {
			r.logger.Warn("Failed to read user stats", zap.Error(err))
		}
	}

	categories, products := r.cache.Counts()
	return Report{
		Uptime:      time.Since(r.started).Round(time.Second).String(),
		Database:    dbState,
		Categories:  categories,
		Products:    products,
		TotalUsers:  stats.TotalUsers,
		ActiveToday: stats.ActiveToday,
		CheckedAt:   time.Now().UTC(),
	}
}
