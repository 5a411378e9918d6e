package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/handler"
	internalmiddleware "github.com/noah-isme/study-planner-api/internal/middleware"
	"github.com/noah-isme/study-planner-api/internal/service"
	"github.com/noah-isme/study-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/study-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/study-planner-api/pkg/middleware/requestid"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService

	TimetableHandler *handler.TimetableHandler
	MetricsHandler   *handler.MetricsHandler
}

// NewRouter builds the gin engine. Planner routes are only mounted when a timetable handler is supplied.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logr := cfg.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(cfg.Metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", cfg.MetricsHandler.Health)
	r.GET("/ready", cfg.MetricsHandler.Ready)
	r.GET("/metrics", cfg.MetricsHandler.Prometheus)
	r.GET("/metrics/summary", cfg.MetricsHandler.Summary)

	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.TimetableHandler != nil {
		api := r.Group(cfg.APIPrefix)
		api.Use(internalmiddleware.WithResponseMeta())
		{
			api.POST("/generate-timetable", cfg.TimetableHandler.Generate)

			plans := api.Group("/study-plans")
			plans.POST("", cfg.TimetableHandler.Save)
			plans.GET("", cfg.TimetableHandler.List)
			plans.GET("/:id/sessions", cfg.TimetableHandler.Sessions)
			plans.GET("/:id/export", cfg.TimetableHandler.Export)
			plans.DELETE("/:id", cfg.TimetableHandler.Delete)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found", "status": http.StatusNotFound}})
	})

	return r
}
