package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"demandplanner/internal/config"
	apierrors "demandplanner/internal/errors"
	"demandplanner/internal/exporter"
	"demandplanner/internal/files"
	"demandplanner/internal/forecast"
	"demandplanner/internal/infrastructure"
	customMiddleware "demandplanner/internal/middleware"
	"demandplanner/internal/services"
	handlers "demandplanner/internal/transport/http"
	"demandplanner/internal/warehouse"
	"demandplanner/internal/websocket"
	"demandplanner/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config *config.Config
	Paths  *config.Paths
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger

	PlanningService *services.PlanningService
	HealthService   *services.HealthService
	Hub             *websocket.Hub
	Reports         *files.Archive

	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
}

// NewApplication wires every collaborator from cfg. Relative paths resolve
// against the working directory.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.InfoContext(ctx, "application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := config.ResolvePaths(cfg.Paths, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	logger.InfoContext(ctx, "application paths",
		slog.String("data_dir", paths.DataDir),
		slog.String("reports_dir", paths.ReportsDir),
		slog.String("logs_dir", paths.LogsDir))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the forecast source, the warehouse client and
// the services on top of them
func (a *Application) initializeServices(ctx context.Context) error {
	generator, err := forecast.NewGenerator(ctx, a.Config.Forecast, a.Logger)
	if err != nil {
		if !apierrors.IsType(err, apierrors.ErrTypeConfig) {
			return fmt.Errorf("failed to initialize forecast generator: %w", err)
		}
		// a missing key only disables simulation; warehouse runs still work
		a.Logger.WarnContext(ctx, "forecast generator disabled",
			slog.String("provider", a.Config.Forecast.Provider),
			slog.String("reason", err.Error()))
		generator = forecast.NoopGenerator{}
	}

	whClient := warehouse.NewClient(a.Config.Warehouse, a.Logger)

	planning := services.NewPlanningService(generator, whClient, warehouse.SettingsFromConfig(a.Config.Warehouse), a.Logger)
	planning.SetTelemetry(a.Metrics, a.OTelProviders.Tracer)
	planning.SetArchive(exporter.NewCSVWriter(a.Paths).WithBOM(a.Config.Paths.ReportBOM))
	a.Reports = files.NewArchive(a.Paths.ReportsDir, a.Logger)
	planning.SetRetention(a.Reports, a.Config.Paths.ReportRetention)
	planning.SetHorizon(a.Config.Forecast.HorizonMonths)
	a.PlanningService = planning

	a.Hub = websocket.NewHub(a.Logger)
	a.Hub.Start()
	planning.SetListener(websocket.NewStateNotifier(a.Hub))

	a.HealthService = services.NewHealthService(
		config.AppVersion,
		contracts.BuildTime,
		a.Paths.DataDir,
		a.Config.Forecast.Provider,
		planning,
		a.Logger,
	)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID -> RealIP -> OTel -> Logger -> Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.CORS(a.getCORSConfig()))

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r, errorHandler)

	r.Mount("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP).Routes())

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// long-lived; the client pumps manage their own deadlines
		r.Handle("/events", websocket.NewHandler(a.Hub, a.getCORSConfig().AllowedOrigins, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
		})

		// forecast runs bound their own deadline, so this group only
		// carries the longer write timeout
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))
			r.Use(customMiddleware.AuditLog(a.Logger))

			planningHandler := handlers.NewPlanningHandler(a.PlanningService, handlers.PlanningHandlerOptions{
				MaxUploadBytes:  a.Config.Server.MaxUploadBytes,
				ForecastTimeout: a.Config.Server.ForecastTimeout,
				JSONBody:        customMiddleware.NewJSONValidator(a.Logger, errorHandler, 1<<20).Handler,
			}, a.Logger, errorHandler)
			r.Mount("/planning", planningHandler.Routes())
			r.Mount("/reports", handlers.NewReportsHandler(a.Reports, a.Logger, errorHandler).Routes())
		})
	})
}

// getCORSConfig allows the configured origins when CORS is enabled and
// same-origin requests otherwise
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cors := customMiddleware.CORSConfig{
		AllowedOrigins: []string{
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
	if a.Config.Security.EnableCORS {
		cors.AllowedOrigins = append(cors.AllowedOrigins, a.Config.Security.AllowedOrigins...)
	}
	return cors
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run serves until ctx is cancelled and then shuts down gracefully
func (a *Application) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "server listening",
			slog.String("address", a.Server.Addr),
			slog.Bool("warehouse_enabled", a.Config.Warehouse.Enabled),
			slog.String("forecast_provider", a.Config.Forecast.Provider))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Shutdown does not track hijacked connections
	if a.Hub != nil {
		a.Hub.Stop()
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}
