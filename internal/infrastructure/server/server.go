package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/quickpen/backend/internal/api/http"
	"github.com/quickpen/backend/internal/api/middleware"
	"github.com/quickpen/backend/internal/api/ws"
	"github.com/quickpen/backend/internal/domain/project"
	"github.com/quickpen/backend/internal/infrastructure/config"
	"github.com/quickpen/backend/internal/infrastructure/logging"
	"github.com/quickpen/backend/internal/infrastructure/monitoring"
	"github.com/quickpen/backend/internal/preview/channel"
	"github.com/quickpen/backend/internal/providers/registry"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	projects *project.Manager
	sessions *channel.Manager
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing playground server",
		zap.String("port", cfg.Server.Port),
		zap.Duration("debounce", cfg.Preview.Debounce),
	)

	// Metrics first, other components report into them
	metrics := monitoring.NewMetrics()

	projects := project.NewManager().WithMetrics(metrics)
	sessions := channel.NewManager(projects, cfg.Preview.Debounce, logger.Component("preview"), metrics)
	registryProvider := registry.New(cfg.Registry)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(cfg.RateLimit))
	}

	handlers := apihttp.NewHandlers(projects, sessions, registryProvider, metrics, cfg.Preview)
	wsHandler := ws.NewHandler(sessions, logger.Component("ws"), metrics)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Project management
	router.POST("/projects", handlers.CreateProject)
	router.GET("/projects", handlers.ListProjects)
	router.GET("/projects/:id", handlers.GetProject)
	router.DELETE("/projects/:id", handlers.DeleteProject)
	router.PUT("/projects/:id/files", handlers.ReplaceFiles)
	router.GET("/projects/:id/share", handlers.ShareProject)
	router.GET("/projects/:id/render", handlers.RenderProject)

	// Preview sessions
	router.POST("/previews", handlers.MountPreview)
	router.DELETE("/previews/:id", handlers.UnmountPreview)
	router.POST("/previews/:id/refresh", handlers.RefreshPreview)

	// Preview frame: bootstrap document plus its sync channel
	router.GET("/preview/:id/frame", handlers.Frame)
	router.GET("/preview/:id/channel", wsHandler.HandleChannel)

	// Package search
	router.GET("/registry/search", handlers.SearchRegistry)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/stats", handlers.Stats)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		projects: projects,
		sessions: sessions,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the gin engine, used by tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	for _, p := range s.projects.List() {
		s.sessions.UnmountProject(p.ID)
	}

	s.logger.Sync()
	return nil
}
