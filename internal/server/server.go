package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ifuryst/agencylens/internal/config"
	"github.com/ifuryst/agencylens/internal/security"
	"github.com/ifuryst/agencylens/internal/server/middleware"
	"github.com/ifuryst/agencylens/internal/service"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	App      *service.App
	Handlers *Handlers
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	app, err := service.NewApp(cfg, logger)
	if err != nil {
		return nil, err
	}

	handlers := &Handlers{
		Sync:       app.Sync,
		Dispatcher: app.Dispatcher,
		Access:     app.Access,
		Status:     app.Status,
		Runs:       app.Monitoring,
		Dashboard:  app.Dashboard,
		Logger:     logger,
	}
	jwt := security.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, 0)

	return &Server{
		Config:   cfg,
		Router:   NewRouter(handlers, jwt),
		Logger:   logger,
		App:      app,
		Handlers: handlers,
	}, nil
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(h *Handlers, tokens middleware.TokenValidator) *gin.Engine {
	router := gin.New()
	setupMiddleware(router)
	setupRoutes(router, h, tokens)
	return router
}

func setupMiddleware(router *gin.Engine) {
	// Recovery middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Trace())

	// Logger middleware
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\" trace=%s\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
				param.Keys[middleware.TraceIDKey],
			)
		},
	}))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Trace-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func setupRoutes(router *gin.Engine, h *Handlers, tokens middleware.TokenValidator) {
	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		// shared-secret trigger for external cron hosts
		api.GET("/cron/sync-analytics", h.handleCronSync)

		authed := api.Group("", middleware.Auth(tokens))

		admin := authed.Group("/admin")
		{
			admin.POST("/trigger-sync", h.handleTriggerSync)

			global := admin.Group("", middleware.CheckRoles(service.RoleAdmin))
			global.GET("/sync-status", h.handleSyncStatus)
			global.GET("/sync-runs", h.handleSyncRuns)
			global.POST("/clear-cache", h.handleClearCache)
		}

		authed.GET("/dashboard/:companyId", h.handleDashboard)
		authed.GET("/dashboard/:companyId/realtime", h.handleRealtime)
		authed.GET("/portfolio", middleware.CheckRoles(service.RoleAdmin), h.handlePortfolio)
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start background jobs
	if err := s.App.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	s.App.Housekeeper.Start(ctx)

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	var err error
	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		err = s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	} else {
		err = s.Server.ListenAndServe()
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background jobs first
	s.App.Scheduler.Stop()
	s.App.Housekeeper.Stop()
	defer s.App.Close()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
