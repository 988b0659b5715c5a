package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"databridge/internal/calendar"
	"databridge/internal/config"
	"databridge/internal/datastore"
	apierrors "databridge/internal/errors"
	"databridge/internal/fundadmin"
	"databridge/internal/infrastructure"
	"databridge/internal/ingest"
	customMiddleware "databridge/internal/middleware"
	"databridge/internal/positions"
	"databridge/internal/services"
	"databridge/internal/terminal"
	handlers "databridge/internal/transport/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Application is the bridge's dependency container. Everything is wired
// once here and torn down in Stop.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.PipelineMetrics

	Terminal  *terminal.Client
	Datastore *datastore.Client
	FundAdmin *fundadmin.Client
	Positions *positions.Repository

	systemCollector *infrastructure.SystemMetricsCollector

	Services *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Market   *services.MarketService
	Quote    *services.QuoteService
	Export   *services.ExportService
	Health   *services.HealthService
	Calendar *calendar.Service
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", infrastructure.ServiceVersion))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices wires clients and domain services in dependency order.
func (a *Application) initializeServices() error {
	if a.OTelProviders.Meter != nil {
		metrics, err := infrastructure.CreatePipelineMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create pipeline metrics: %w", err)
		}
		a.Metrics = metrics

		collector, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, 30*time.Second)
		if err != nil {
			return fmt.Errorf("failed to create system metrics collector: %w", err)
		}
		a.systemCollector = collector
	}

	a.Terminal = terminal.NewClient(terminal.Config{
		Host:              a.Config.Terminal.Host,
		Port:              a.Config.Terminal.Port,
		Timeout:           a.Config.Terminal.Timeout,
		RequestsPerSecond: a.Config.Terminal.RequestsPerSecond,
	}, a.Logger).WithMetrics(a.Metrics)

	store, err := datastore.NewClient(datastore.Config{
		URL:     a.Config.Datastore.URL,
		Key:     a.Config.Datastore.Key,
		Timeout: a.Config.Datastore.Timeout,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize datastore client: %w", err)
	}
	a.Datastore = store

	if a.Config.FundAdmin.BaseURL != "" && a.Config.FundAdmin.Username != "" {
		client, err := fundadmin.NewClient(fundadmin.Config{
			BaseURL:  a.Config.FundAdmin.BaseURL,
			Username: a.Config.FundAdmin.Username,
			Password: a.Config.FundAdmin.Password,
			Timeout:  a.Config.FundAdmin.Timeout,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize fund-admin client: %w", err)
		}
		a.FundAdmin = client
	} else {
		a.Logger.Warn("Fund administrator API not configured, fund endpoints disabled")
	}

	if a.Config.Positions.DSN != "" {
		repo, err := positions.NewRepository(positions.Config{
			DSN:                a.Config.Positions.DSN,
			Portfolio:          a.Config.Positions.Portfolio,
			SecurityTypes:      a.Config.Positions.SecurityTypes,
			ExcludedStrategies: a.Config.Positions.ExcludedStrategies,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize positions repository: %w", err)
		}
		a.Positions = repo
	} else {
		a.Logger.Warn("Positions source not configured, position endpoints disabled")
	}

	ingestor := ingest.NewIngestor(store, a.Config.Datastore.Table, a.Logger).WithMetrics(a.Metrics)

	a.Services = &ServiceContainer{
		Market:   services.NewMarketService(a.Terminal, store, a.Config.Datastore.Table, a.Metrics, a.Logger),
		Quote:    services.NewQuoteService(a.Terminal, a.Terminal, a.Metrics, a.Logger),
		Export:   services.NewExportService(a.Config.Exports.Dir, ingestor, a.Metrics, a.Logger),
		Health:   services.NewHealthService(a.Terminal, infrastructure.ServiceVersion, a.Logger),
		Calendar: calendar.NewService(a.Terminal, store, a.Logger).WithMetrics(a.Metrics),
	}

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Middleware ordering: RequestID -> RealIP -> OTel -> error middleware
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r.Group(func(r chi.Router) {
		otelMiddleware := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		r.Use(otelMiddleware.Handler)

		r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.ContentTypeValidator("application/json"))

		validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)
		r.Use(validation.ValidateRequest)

		a.setupRoutes(r, errorHandler)
	})

	// Prometheus scrape endpoint stays outside the instrumented group.
	if a.OTelProviders.PrometheusHTTP != nil {
		metricsHandler := handlers.NewMetricsHandler(a.OTelProviders)
		r.Mount("/metrics", metricsHandler.Routes())
	}

	a.Router = r
}

// setupRoutes mounts the bridge endpoints. Short-lived endpoints run under
// the read timeout, the update and ingest pipelines under the longer write
// timeout.
func (a *Application) setupRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())

		quoteHandler := handlers.NewQuoteHandler(a.Services.Quote, a.Logger, errorHandler)
		r.Mount("/quotes", quoteHandler.Routes())
		r.Mount("/terminal", quoteHandler.PriceRoutes())

		seriesHandler := handlers.NewSeriesHandler(a.Services.Quote, a.Logger, errorHandler)
		r.Post("/historical", seriesHandler.GetHistorical)
		r.Post("/reference", seriesHandler.GetReference)

		calendarHandler := handlers.NewCalendarHandler(a.Services.Calendar, a.Logger, errorHandler)
		r.Mount("/economic-calendar", calendarHandler.Routes())

		if a.FundAdmin != nil {
			fundHandler := handlers.NewFundHandler(a.FundAdmin, a.Config.FundAdmin.FundID, a.Logger, errorHandler)
			r.Mount("/funds", fundHandler.Routes())
		}

		if a.Positions != nil {
			positionHandler := handlers.NewPositionHandler(a.Positions, a.Logger, errorHandler)
			r.Mount("/positions", positionHandler.Routes())
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout, a.Logger))

		marketHandler := handlers.NewMarketHandler(a.Services.Market, a.Logger, errorHandler)
		r.Mount("/market", marketHandler.Routes())

		exportHandler := handlers.NewExportHandler(a.Services.Export, a.Logger, errorHandler)
		r.Mount("/exports", exportHandler.Routes())
	})
}

// getCORSConfig builds the CORS policy from configuration.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	if a.Config.Security.EnableCORS {
		cfg.AllowedOrigins = a.Config.Security.AllowedOrigins
	}

	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server. Listen errors cancel the given context.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", infrastructure.ServiceVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if a.systemCollector != nil {
		go a.systemCollector.Start(ctx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if !a.Terminal.IsAvailable(ctx) {
		a.Logger.WarnContext(ctx, "Terminal gateway not reachable at startup",
			slog.String("host", a.Config.Terminal.Host),
			slog.Int("port", a.Config.Terminal.Port))
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.systemCollector != nil {
		a.systemCollector.Stop()
	}

	if a.Positions != nil {
		if err := a.Positions.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing positions repository", slog.String("error", err.Error()))
		}
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}
