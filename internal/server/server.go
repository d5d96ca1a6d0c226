package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/DevToolkit/backend/internal/api/http"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/api/middleware"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/api/ws"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/providers/cache"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/providers/filesystem"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/providers/fonts"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/providers/media"
	terminalProvider "github.com/GriffinCanCode/DevToolkit/backend/internal/providers/terminal"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/service"
	"github.com/GriffinCanCode/DevToolkit/backend/internal/terminal"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	httpSrv   *http.Server
	streams   *ws.Handler
	registry  *service.Registry
	terminals *terminal.Manager
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// Option adjusts how NewServer builds its components.
type Option func(*options)

type options struct {
	logger *logging.Logger
	opener terminal.Opener
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithOpener replaces the native PTY implementation.
func WithOpener(op terminal.Opener) Option {
	return func(o *options) { o.opener = op }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{opener: terminal.NewOpener()}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)
	}

	logger.Info("Initializing DevToolkit Server",
		zap.String("addr", cfg.Addr()),
		zap.String("platform", runtime.GOOS),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	resolver := terminal.NewResolver(terminal.WithDefaultShell(cfg.Terminal.DefaultShell))
	terminals := terminal.NewManager(terminal.NewRegistry(),
		terminal.WithOpener(o.opener),
		terminal.WithResolver(resolver),
		terminal.WithHub(terminal.NewHub(cfg.Terminal.SubscriberBuffer)),
		terminal.WithLogger(logger.Logger),
		terminal.WithMetrics(metrics),
		terminal.WithDefaultSize(cfg.Terminal.Rows, cfg.Terminal.Cols),
	)
	logger.Info("Terminal manager initialized",
		zap.String("platform", resolver.Platform()),
		zap.Strings("profiles", resolver.Profiles()),
	)

	serviceRegistry := service.NewRegistry(
		service.WithLogger(logger.Logger),
		service.WithMetrics(metrics),
	)

	logger.Info("Registering service providers...")
	registerProviders(serviceRegistry, terminals, cfg, logger.Logger)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig().WithOrigins(cfg.Server.AllowedOrigins)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(serviceRegistry, terminals, metrics, logger.Logger)
	wsHandler := ws.NewHandler(terminals, metrics, logger.Logger, cfg.Server.AllowedOrigins)

	registerRoutes(router, handlers, wsHandler, metrics)

	logger.Info("Server initialized successfully")

	return &Server{
		router:    router,
		registry:  serviceRegistry,
		terminals: terminals,
		streams:   wsHandler,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

func registerRoutes(router *gin.Engine, handlers *apihttp.Handlers, wsHandler *ws.Handler, metrics *monitoring.Metrics) {
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Service management
	router.GET("/services", handlers.ListServices)
	router.POST("/services/discover", handlers.DiscoverServices)
	router.POST("/services/execute", handlers.ExecuteService)

	// Terminal sessions
	terminals := router.Group("/terminals")
	{
		terminals.GET("", handlers.ListTerminals)
		terminals.GET("/profiles", handlers.TerminalProfiles)
		terminals.POST("/:id", handlers.SpawnTerminal)
		terminals.GET("/:id", handlers.GetTerminal)
		terminals.DELETE("/:id", handlers.KillTerminal)
		terminals.POST("/:id/input", handlers.TerminalInput)
		terminals.POST("/:id/resize", handlers.ResizeTerminal)
		terminals.GET("/:id/stream", wsHandler.HandleConnection)
	}

	// Frontend logs
	router.POST("/logs", handlers.StreamLogs)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/metrics/json", handlers.MetricsJSON)
}

// Router exposes the configured engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Terminals exposes the session manager.
func (s *Server) Terminals() *terminal.Manager {
	return s.terminals
}

// Run starts the HTTP server and blocks until it stops. A clean Shutdown
// returns nil.
func (s *Server) Run() error {
	addr := s.config.Addr()
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpSrv.RegisterOnShutdown(s.streams.Close)

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, detaches terminal streams and waits for
// in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		s.streams.Close()
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
	}

	// Kill every live shell
	if cerr := s.terminals.Close(); cerr != nil {
		s.logger.Error("Failed to close terminal sessions", zap.Error(cerr))
		err = multierr.Append(err, cerr)
	}
	s.logger.Info("Closed terminal sessions")

	// Sync logger before exit
	_ = s.logger.Sync()

	return err
}

func registerProviders(registry *service.Registry, terminals *terminal.Manager, cfg *config.Config, logger *zap.Logger) {
	// Terminal provider
	if err := registry.Register(terminalProvider.NewProvider(terminals)); err != nil {
		logger.Warn("Failed to register terminal provider", zap.Error(err))
	}

	// Filesystem provider
	if err := registry.Register(filesystem.NewProvider(logger, cfg.Files.SizeLimit)); err != nil {
		logger.Warn("Failed to register filesystem provider", zap.Error(err))
	}

	// Cache provider
	store, err := cache.NewStore(cfg.Files.CacheDir, logger)
	if err != nil {
		logger.Warn("Cache directory unavailable, skipping cache provider", zap.Error(err))
	} else if err := registry.Register(cache.NewProvider(store)); err != nil {
		logger.Warn("Failed to register cache provider", zap.Error(err))
	}

	// Media provider
	locator := media.NewLocator(cfg.Media.FFmpegPath)
	if err := registry.Register(media.NewProvider(locator, media.WithLogger(logger))); err != nil {
		logger.Warn("Failed to register media provider", zap.Error(err))
	}

	// Fonts provider
	scanner := fonts.NewScanner(fonts.SystemDirs(runtime.GOOS, os.Getenv), logger)
	if err := registry.Register(fonts.NewProvider(scanner)); err != nil {
		logger.Warn("Failed to register fonts provider", zap.Error(err))
	}
}
