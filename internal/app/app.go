// Package app assembles the registry, its HTTP surface and the supporting
// services from a Config.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"github.com/georgemunganga/traceability-backend/internal/config"
	"github.com/georgemunganga/traceability-backend/internal/modules/auth"
	"github.com/georgemunganga/traceability-backend/internal/modules/dashboard"
	"github.com/georgemunganga/traceability-backend/internal/modules/export"
	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
	"github.com/georgemunganga/traceability-backend/internal/modules/provenance"
	"github.com/georgemunganga/traceability-backend/internal/modules/user"
	"github.com/georgemunganga/traceability-backend/internal/platform/storage"
	"github.com/georgemunganga/traceability-backend/internal/platform/web"
)

type App struct {
	cfg    config.Config
	logger *log.Logger
	db     *sqlx.DB

	productRepo provenance.Repository
	Products    provenance.Service
	Users       user.Service
	Auth        auth.Service
	Dashboard   dashboard.Service

	limiter *web.RateLimiter
}

// New opens storage, applies migrations for SQL drivers and wires every
// service. Close releases the database.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  logger,
		limiter: web.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
	}

	var userRepo user.Repository
	switch cfg.StorageDriver {
	case config.DriverMemory:
		a.productRepo = provenance.NewMemoryRepository()
		userRepo = user.NewMemoryRepository()
	case config.DriverPostgres, config.DriverSQLite:
		driver, dsn := sqlTarget(cfg)
		if err := storage.Migrate(driver, dsn); err != nil {
			return nil, err
		}
		db, err := storage.Open(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.productRepo = provenance.NewSQLRepository(db)
		userRepo = user.NewSQLRepository(db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	logger.WithField("driver", cfg.StorageDriver).Info("storage ready")

	a.Products = provenance.NewService(a.productRepo, provenance.NewLogDispatcher(logger))
	a.Users = user.NewService(userRepo)
	a.Auth = auth.NewService(userRepo, a.Users, auth.Config{
		Secret:     []byte(cfg.JWTSecret),
		TTL:        cfg.JWTTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
	})
	a.Dashboard = dashboard.NewService(a.Products)

	if cfg.SeedDemo {
		id, err := provenance.Seed(ctx, a.productRepo, a.Products, identity.Principal(cfg.SeedOwner))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("seed registry: %w", err)
		}
		if id != "" {
			logger.WithField("product_id", id).Info("seeded demo product")
		}
	}
	return a, nil
}

func sqlTarget(cfg config.Config) (driver, dsn string) {
	if cfg.StorageDriver == config.DriverPostgres {
		return storage.Postgres, cfg.DatabaseURL
	}
	return storage.SQLite, cfg.SQLitePath
}

// Exporter returns a snapshot exporter writing to the configured sink.
func (a *App) Exporter(ctx context.Context) (*export.Exporter, error) {
	sink, err := export.NewSink(ctx, a.cfg.Export)
	if err != nil {
		return nil, err
	}
	return export.NewExporter(a.Products, sink, a.logger), nil
}

// Router builds the HTTP handler for the whole API.
func (a *App) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(web.RequestLogger(a.logger))
	router.Use(middleware.Recoverer)
	router.Use(web.SecureHeaders)
	router.Use(web.CORS(a.cfg.FrontendURL))
	router.Use(web.ExposeErrors(a.cfg.Development()))
	router.Use(web.Metrics)

	router.NotFound(web.NotFound)
	router.MethodNotAllowed(web.MethodNotAllowed)

	router.Get("/healthz", a.health)
	router.Handle("/metrics", web.MetricsHandler())

	router.Group(func(r chi.Router) {
		r.Use(a.limiter.Middleware)
		r.Use(auth.Middleware(a.Auth))

		identity.NewHandler().RegisterRoutes(r)
		provenance.NewHandler(a.Products).RegisterRoutes(r)
		auth.NewHandler(a.Auth).RegisterRoutes(r)
		user.NewHandler(a.Users).RegisterRoutes(r)
		dashboard.NewHandler(a.Dashboard).RegisterRoutes(r)
	})
	return router
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		if err := a.db.PingContext(r.Context()); err != nil {
			web.Logger(r.Context()).WithError(err).Error("health check failed")
			web.Fail(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	web.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
