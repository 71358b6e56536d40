// Package app wires the application together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/alerty/internal/alerts"
	"github.com/bissquit/alerty/internal/classifier"
	"github.com/bissquit/alerty/internal/classifier/claude"
	"github.com/bissquit/alerty/internal/config"
	"github.com/bissquit/alerty/internal/credential"
	"github.com/bissquit/alerty/internal/notifications"
	"github.com/bissquit/alerty/internal/notifications/browser"
	"github.com/bissquit/alerty/internal/notifications/relay"
	"github.com/bissquit/alerty/internal/pkg/ctxlog"
	"github.com/bissquit/alerty/internal/pkg/httputil"
	"github.com/bissquit/alerty/internal/pkg/metrics"
	"github.com/bissquit/alerty/internal/pkg/postgres"
	"github.com/bissquit/alerty/internal/settings"
	settingspostgres "github.com/bissquit/alerty/internal/settings/postgres"
	"github.com/bissquit/alerty/internal/settings/sqlite"
	"github.com/bissquit/alerty/internal/toast"
	"github.com/bissquit/alerty/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	sqlite        *sqlite.Store
	ready         func(ctx context.Context) error
	hub           *browser.Hub
	toasts        *toast.Center
	alerts        *alerts.Service
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	streamsCancel context.CancelFunc
	shutdownOnce  sync.Once
	shutdownErr   error
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)
	metrics.RecordBuildInfo(version.Version, version.GitCommit)

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		metricsCancel: metricsCancel,
		ready:         func(context.Context) error { return nil },
	}

	store, err := app.openSettingsStore(metricsCtx)
	if err != nil {
		metricsCancel()
		return nil, fmt.Errorf("open settings store: %w", err)
	}

	router := app.setupRouter(metricsCtx, settings.NewService(store))

	streamsCtx, streamsCancel := context.WithCancel(context.Background())
	app.streamsCancel = streamsCancel

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		// Event streams end when the server shuts down.
		BaseContext: func(net.Listener) context.Context { return streamsCtx },
	}
	app.server.RegisterOnShutdown(streamsCancel)

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// openSettingsStore opens the configured settings backend and records how to probe it.
func (a *App) openSettingsStore(ctx context.Context) (settings.Store, error) {
	switch a.config.Settings.Backend {
	case config.BackendSQLite:
		store, err := sqlite.Open(a.config.Settings.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.sqlite = store
		a.ready = store.Ping
		a.logger.Info("settings backend ready", "backend", "sqlite", "path", a.config.Settings.SQLitePath)
		return store, nil

	case config.BackendPostgres:
		if err := settingspostgres.Migrate(a.config.Database.URL); err != nil {
			return nil, err
		}

		connectCtx, connectCancel := context.WithTimeout(ctx, a.config.Database.ConnectTimeout)
		defer connectCancel()

		db, err := postgres.Connect(connectCtx, postgres.Config{
			URL:             a.config.Database.URL,
			MaxOpenConns:    a.config.Database.MaxOpenConns,
			MaxIdleConns:    a.config.Database.MaxIdleConns,
			ConnMaxLifetime: a.config.Database.ConnMaxLifetime,
			ConnectAttempts: a.config.Database.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		a.ready = db.Ping
		go a.collectDBMetrics(ctx)
		a.logger.Info("settings backend ready", "backend", "postgres")
		return settingspostgres.NewRepository(db), nil

	default:
		a.logger.Info("settings backend ready", "backend", "memory")
		return settings.NewMemoryStore(), nil
	}
}

// classifierAPIKey prefers configuration and falls back to the OS keyring.
func (a *App) classifierAPIKey() string {
	if a.config.Classifier.APIKey != "" || !a.config.Credentials.Enabled {
		return a.config.Classifier.APIKey
	}

	store, err := credential.Open(credential.Config{
		ServiceName:  a.config.Credentials.ServiceName,
		FileDir:      a.config.Credentials.FileDir,
		FilePassword: a.config.Credentials.FilePassword,
	})
	if err != nil {
		a.logger.Warn("keyring unavailable, classifier credential not loaded", "error", err)
		return ""
	}
	return credential.Resolve("", store, credential.ClassifierAPIKey)
}

func (a *App) newClassifier() *classifier.Classifier {
	var provider classifier.Provider
	if key := a.classifierAPIKey(); key != "" {
		provider = claude.New(claude.Config{
			APIKey:    key,
			Model:     a.config.Classifier.Model,
			BaseURL:   a.config.Classifier.BaseURL,
			MaxTokens: a.config.Classifier.MaxTokens,
		})
	}

	c := classifier.New(provider, classifier.Config{Language: a.config.Classifier.Language})
	a.logger.Info("classifier configured",
		"remote", c.Enabled(),
		"model", a.config.Classifier.Model,
		"language", a.config.Classifier.Language,
	)
	return c
}

func (a *App) newDispatcher(ctx context.Context) *notifications.Dispatcher {
	cfg := a.config.Notifications

	a.hub = browser.NewHub(browser.Config{
		Supported:         cfg.Supported,
		PermissionTimeout: cfg.PermissionTimeout,
		BufferSize:        cfg.BufferSize,
		KeepAlive:         cfg.KeepAlive,
	})

	var background notifications.BackgroundSurface
	if cfg.Relay.URL != "" {
		background = relay.NewSender(relay.Config{
			URL:       cfg.Relay.URL,
			Token:     cfg.Relay.Token,
			Source:    cfg.Relay.Source,
			Timeout:   cfg.Relay.Timeout,
			RateLimit: cfg.Relay.RateLimit,
		})
	}

	assets := notifications.DefaultAssets()
	if cfg.IconURL != "" {
		assets.DefaultIconURL = cfg.IconURL
	}
	if cfg.BadgeURL != "" {
		assets.BadgeURL = cfg.BadgeURL
	}

	a.logger.Info("notifications configured",
		"supported", cfg.Supported,
		"relay_enabled", background != nil,
	)

	return notifications.NewDispatcher(ctx, a.hub, background, assets)
}

// Run starts the HTTP servers and blocks until ctx is done or a server fails.
// It shuts the application down before returning.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("starting server",
			"host", a.config.Server.Host,
			"port", a.config.Server.Port,
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.shutdownErr = a.shutdown(ctx)
	})
	return a.shutdownErr
}

func (a *App) shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()
	a.streamsCancel()

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	// Pending classifications are discarded; in-flight dispatches finish.
	a.alerts.Close()
	a.toasts.Close()

	if a.db != nil {
		a.db.Close()
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close settings store: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter(ctx context.Context, settingsService *settings.Service) *chi.Mux {
	dispatcher := a.newDispatcher(ctx)
	a.hub.OnConnect(func() { dispatcher.PromptIfUndecided(ctx) })
	a.toasts = toast.NewCenter(a.config.Toast.TTL, a.hub)
	a.alerts = alerts.NewService(
		alerts.NewMemoryStore(),
		a.newClassifier(),
		dispatcher,
		settingsService,
		a.toasts,
	)

	alertsHandler := alerts.NewHandler(a.alerts)
	notificationsHandler := notifications.NewHandler(dispatcher, a.hub)
	toastHandler := toast.NewHandler(a.toasts)
	settingsHandler := settings.NewHandler(settingsService)

	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Route("/api/v1", func(r chi.Router) {
		// Event streams are long-lived and stay outside the request timeout.
		a.hub.RegisterRoutes(r)

		// Classification has no deadline; a submission ends only when the
		// client goes away or it is abandoned.
		r.Group(func(r chi.Router) {
			r.Use(httputil.RequireJSON)
			alertsHandler.RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
			r.Use(httputil.RequireJSON)

			notificationsHandler.RegisterRoutes(r)
			toastHandler.RegisterRoutes(r)
			settingsHandler.RegisterRoutes(r)
		})
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.ready(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Settings store unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
