package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dealfeed/internal/catalog"
	"dealfeed/internal/config"
	"dealfeed/internal/database"
	custommiddleware "dealfeed/internal/middleware"
	"dealfeed/internal/repository"
	"dealfeed/internal/resolver"
	"dealfeed/internal/scraper"
	"dealfeed/internal/service"
	"dealfeed/internal/status"
	"dealfeed/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config   *config.Config
	logger   *zap.Logger
	db       *database.Service
	redis    *redis.Client
	cache    *catalog.Cache
	reporter *status.Reporter
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *database.Service) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize repositories
	productRepo := repository.NewProductRepository(db.DB())
	categoryRepo := repository.NewCategoryRepository(db.DB())
	userRepo := repository.NewUserRepository(db.DB())

	// Catalog cache serves the browse path
	cache := catalog.New(categoryRepo, productRepo, logger)

	// Initialize pipeline components
	urlResolver := resolver.New(cfg.Scraper, logger)
	extractor := scraper.NewExtractor(cfg.Scraper, logger)

	// Initialize services
	ingestService := service.NewIngestService(urlResolver, extractor, productRepo, categoryRepo, cache, logger)
	authService := service.NewAuthService(cfg.Admin)

	// Status reporter doubles as the connectivity watchdog
	reporter := status.NewReporter(db, cache, userRepo, *cfg, logger)

	// Redis backs the ingest rate limiter
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	authMiddleware := custommiddleware.AdminAuthMiddleware(authService, logger)
	rateLimitMiddleware := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit:ingest",
	}, logger)

	// Initialize handlers
	catalogHandler := transport.NewCatalogHandler(cache, categoryRepo, productRepo, userRepo, cfg.Store.FailOpen, logger)
	adminHandler := transport.NewAdminHandler(ingestService, authService, productRepo, reporter, logger)

	// Register routes
	catalogHandler.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router, authMiddleware, rateLimitMiddleware)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute, // ingest waits on scrape retries
		},
		config:   cfg,
		logger:   logger,
		db:       db,
		redis:    redisClient,
		cache:    cache,
		reporter: reporter,
	}
}

// WarmCache loads the initial catalog snapshot. Startup proceeds on
// failure; the status loop keeps retrying.
func (s *Server) WarmCache(ctx context.Context) {
	if err := s.cache.Reload(ctx); err != nil {
		s.logger.Warn("Initial catalog load failed", zap.Error(err))
	}
}

// RunStatusReporter blocks on the periodic status loop until ctx is
// cancelled.
func (s *Server) RunStatusReporter(ctx context.Context) {
	s.reporter.Run(ctx)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
