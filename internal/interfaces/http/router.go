package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenlife/internal/interfaces/http/handlers"
	"github.com/turtacn/tokenlife/internal/interfaces/http/middleware"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// Router HTTP 路由器
type Router struct {
	engine         *gin.Engine
	config         *config.Config
	logger         logger.Logger
	metrics        *monitoring.Metrics
	healthHandler  *handlers.HealthHandler
	authHandler    *handlers.AuthHandler
	userHandler    *handlers.UserHandler
	authMiddleware gin.HandlerFunc
	loginLimiter   gin.HandlerFunc
	server         *http.Server
}

// NewRouter 创建路由器并注册全部路由
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	metrics *monitoring.Metrics,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	authMiddleware gin.HandlerFunc,
	loginLimiter gin.HandlerFunc,
) *Router {
	// 设置 Gin 模式
	if cfg.Server.Environment == constants.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:         gin.New(),
		config:         cfg,
		logger:         log.WithComponent("http"),
		metrics:        metrics,
		healthHandler:  healthHandler,
		authHandler:    authHandler,
		userHandler:    userHandler,
		authMiddleware: authMiddleware,
		loginLimiter:   loginLimiter,
	}
	r.setupRoutes()
	r.server = &http.Server{
		Addr:           cfg.Server.HTTPAddress(),
		Handler:        r.engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return r
}

// Engine returns the gin engine, for tests and embedding.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupRoutes() {
	// 全局中间件
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Observability(r.metrics))
	r.engine.Use(middleware.Logger(r.logger))

	// CORS 配置；refresh cookie 需要 credentials，因此不能使用通配 origin
	if len(r.config.Server.AllowedOrigins) > 0 {
		r.engine.Use(cors.New(cors.Config{
			AllowOrigins:     r.config.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", constants.HeaderRequestID},
			ExposeHeaders:    []string{constants.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 健康检查路由（不需要认证）
	r.engine.GET("/health", r.healthHandler.HealthCheck)
	r.engine.GET("/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/live", r.healthHandler.LivenessCheck)

	// Prometheus metrics
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Pprof 性能分析（仅在非生产环境）
	if r.config.Server.Environment != constants.EnvProduction {
		pprof.Register(r.engine)
	}

	// 认证相关路由
	auth := r.engine.Group(constants.AuthPrefix)
	{
		auth.POST("/", r.authHandler.Register)
		auth.POST(constants.LoginPath, r.loginLimiter, r.authHandler.Login)
		auth.GET(constants.RefreshPath, r.authHandler.Refresh)
		auth.DELETE(constants.RefreshPath, r.authHandler.Logout)
		auth.GET(constants.SessionsPath, r.authMiddleware, r.authHandler.ListSessions)
		auth.DELETE(constants.SessionsPath, r.authMiddleware, r.authHandler.RevokeSessions)
	}

	// 当前用户路由（需要 access token）
	user := r.engine.Group(constants.UserPrefix, r.authMiddleware)
	{
		user.GET("/", r.userHandler.Me)
		user.PUT("/change_password", r.userHandler.ChangePassword)
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errors.ErrorResponse{
			Error:            string(constants.ErrCodeNotFound),
			ErrorDescription: "The requested resource was not found",
		})
	})
}

// Start 启动 HTTP 服务器，阻塞直到 Stop 被调用。Stop 先于 Start 时立即返回。
func (r *Router) Start() error {
	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", r.server.Addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 优雅停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info(ctx, "Stopping HTTP server...")
	return r.server.Shutdown(ctx)
}

//Personal.AI order the ending
