// Package main is the entrypoint for the back office API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/glansab/backoffice/internal/auth"
	"github.com/glansab/backoffice/internal/cache"
	"github.com/glansab/backoffice/internal/config"
	"github.com/glansab/backoffice/internal/handler"
	"github.com/glansab/backoffice/internal/identity"
	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/middleware"
	"github.com/glansab/backoffice/internal/orphan"
	"github.com/glansab/backoffice/internal/provisioning"
	"github.com/glansab/backoffice/internal/repository"
	"github.com/glansab/backoffice/internal/server"
	"github.com/glansab/backoffice/internal/service"
)

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.Options{
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	// Initialize metrics
	var (
		recorder       metrics.Recorder
		metricsHandler http.Handler
	)
	switch cfg.MetricsBackend {
	case "memory":
		mem := metrics.NewInMemory()
		recorder = mem
		metricsHandler = http.HandlerFunc(handler.NewMetricsHandler(mem).Metrics)
	default:
		prom := metrics.NewPrometheus()
		recorder = prom
		metricsHandler = prom.Handler()
	}

	// Initialize identity client and orphan pipeline
	identityClient := identity.NewClient(cfg.IdentityBaseURL(), cfg.ServiceRoleKey, nil)
	orphanPublisher := orphan.NewPublisher(cacheClient.Client(), logger, recorder)
	orphanInspector := orphan.NewInspector(cacheClient.Client(), logger)

	// Initialize services
	provisioner := provisioning.NewService(identityClient, repo, orphanPublisher, logger, recorder, provisioning.Options{
		PlaceholderPassword: cfg.PlaceholderPassword,
		RollbackMaxElapsed:  cfg.RollbackMaxElapsed,
	})
	customerService := service.NewCustomerService(repo, logger, recorder)
	orderService := service.NewOrderService(repo, repo, logger, recorder)
	teamService := service.NewTeamService(repo, logger, recorder)
	userService := service.NewUserService(repo, logger, recorder)
	taskService := service.NewTaskService(repo, logger, recorder)

	// Initialize handlers
	handlers := routeHandlers{
		root:         handler.New(),
		health:       handler.NewHealthHandler(repo, cacheClient, identityClient),
		metrics:      metricsHandler,
		provisioning: handler.NewProvisioningHandler(provisioner, logger),
		customers:    handler.NewCustomerHandler(customerService, logger),
		orders:       handler.NewOrderHandler(orderService, logger),
		teams:        handler.NewTeamHandler(teamService, logger),
		users:        handler.NewUserHandler(userService, logger),
		tasks:        handler.NewTaskHandler(taskService, logger),
		products:     handler.NewProductHandler(repo, logger),
		admin:        handler.NewAdminHandler(orphanInspector, logger),
	}

	// Setup router
	r := setupRouter(handlers, auth.NewTokens(cfg.JWTSecret), repo, cacheClient, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// The orphan sweeper stops after the HTTP server so rollbacks from
	// in-flight requests are still enqueued.
	if cfg.SweeperEnabled {
		sweeper := orphan.NewSweeper(cacheClient.Client(), identityClient, logger, orphan.NewConsumerID(), recorder)
		srv.Go(ctx, "orphan-sweeper", sweeper)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"identity_url", redactURL(cfg.IdentityBaseURL()),
		"metrics_backend", cfg.MetricsBackend,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routeHandlers groups the HTTP handlers mounted by setupRouter.
type routeHandlers struct {
	root         *handler.Handler
	health       *handler.HealthHandler
	metrics      http.Handler
	provisioning *handler.ProvisioningHandler
	customers    *handler.CustomerHandler
	orders       *handler.OrderHandler
	teams        *handler.TeamHandler
	users        *handler.UserHandler
	tasks        *handler.TaskHandler
	products     *handler.ProductHandler
	admin        *handler.AdminHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h routeHandlers,
	tokens *auth.Tokens,
	profiles middleware.ProfileLookup,
	limiter middleware.RateLimiter,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()
	corsCfg.PreflightBody = "ok"

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, cfg.IsDevelopment()))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Health and metrics endpoints (no auth required)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Method(http.MethodGet, "/metrics", h.metrics)

	// Root info endpoint
	r.Get("/", h.root.Root)

	authCfg := middleware.AuthConfig{
		Logger:   logger,
		Tokens:   tokens,
		Profiles: profiles,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       limiter,
		UserEnabled:   cfg.RateLimitAPIEnabled,
		UserPerMinute: cfg.RateLimitPerMinute,
		UserBurst:     cfg.RateLimitBurst,
		IPEnabled:     cfg.RateLimitIPEnabled,
		IPPerSecond:   cfg.RateLimitIPPerSecond,
		IPBurst:       cfg.RateLimitIPBurst,
	}

	// User provisioning keeps the path browser clients already call.
	r.Route("/functions/v1/create-user", func(r chi.Router) {
		r.Options("/", h.provisioning.Options)
		r.With(
			middleware.RateLimitIP(rateLimitCfg),
			middleware.Auth(authCfg),
			middleware.RequireAdmin(),
		).Post("/", h.provisioning.Create)
	})

	// API v1 routes (require authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitUser(rateLimitCfg))

		// Customers (sales staff write)
		r.Route("/customers", func(r chi.Router) {
			r.With(middleware.SearchQuery("q")).Get("/", h.customers.List)
			r.With(middleware.RequireSales()).Post("/", h.customers.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.URLParamUUID("id"))
				r.Get("/", h.customers.Get)
				r.Get("/interactions", h.customers.Interactions)
				r.With(middleware.RequireSales()).Put("/", h.customers.Update)
				r.With(middleware.RequireSales()).Delete("/", h.customers.Delete)
			})
		})

		// Orders (sales staff write)
		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.SearchQuery("q")).Get("/", h.orders.List)
			r.With(middleware.SearchQuery("q")).Get("/board", h.orders.Board)
			r.With(middleware.RequireSales()).Post("/", h.orders.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.URLParamUUID("id"))
				r.Get("/", h.orders.Get)
				r.With(middleware.RequireSales()).Put("/", h.orders.Update)
				r.With(middleware.RequireSales()).Delete("/", h.orders.Delete)
			})
		})

		// Teams (admin write)
		r.Route("/teams", func(r chi.Router) {
			r.With(middleware.SearchQuery("search")).Get("/", h.teams.List)
			r.With(middleware.SearchQuery("search")).Get("/board", h.teams.Board)
			r.Get("/stats", h.teams.Stats)
			r.With(middleware.RequireAdmin()).Post("/", h.teams.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.URLParamUUID("id"))
				r.Get("/", h.teams.Get)
				r.With(middleware.RequireAdmin()).Put("/", h.teams.Update)
				r.With(middleware.RequireAdmin()).Delete("/", h.teams.Delete)
				r.With(middleware.RequireAdmin()).Post("/members", h.teams.AddMember)
			})
		})
		r.With(middleware.RequireAdmin(), middleware.URLParamUUID("memberID")).
			Delete("/team-members/{memberID}", h.teams.RemoveMember)

		// Users (admin write)
		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.users.List)
			r.Get("/unassigned", h.users.Unassigned)
			r.With(middleware.RequireAdmin()).Post("/", h.provisioning.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.URLParamUUID("id"))
				r.Get("/", h.users.Get)
				r.With(middleware.RequireAdmin()).Put("/", h.users.Update)
			})
		})

		// Sales tasks
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.tasks.List)
			r.Post("/", h.tasks.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.URLParamUUID("id"))
				r.Patch("/", h.tasks.Update)
				r.Get("/notes", h.tasks.Notes)
				r.Post("/notes", h.tasks.AddNote)
			})
		})

		r.Get("/products", h.products.List)

		// Operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.Get("/stats", h.admin.Stats)
			r.Get("/orphans", h.admin.DeadLetters)
			r.Post("/orphans/{id}/requeue", h.admin.Requeue)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.root.NotFound)
	r.MethodNotAllowed(h.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
