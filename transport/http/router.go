package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/linker/ports"
	"go.uber.org/zap"
)

// Metrics is what the router needs from the metrics adapter
type Metrics interface {
	PingCounter
	RequestRecorder
	Handler() http.Handler
}

// RouterConfig holds the dependencies of the HTTP layer
type RouterConfig struct {
	Entities Deployer
	Content  ports.ContentClient
	Registry RegistryStatus
	Metrics  Metrics
	Logger   *zap.Logger
	Version  string
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, requestIDHeader)

	router.Use(
		RequestID(),
		RequestLogger(cfg.Logger, cfg.Metrics),
		Recovery(cfg.Logger),
		cors.New(corsConfig),
	)

	status := NewStatusHandlers(cfg.Registry, cfg.Metrics, cfg.Version)
	entities := NewEntityHandlers(cfg.Entities, cfg.Content, cfg.Logger)

	// Health routes
	router.GET("/ping", status.Ping)
	router.GET("/health/ready", status.Ready)
	router.GET("/health/startup", status.Ping)
	router.GET("/health/live", status.Ping)

	router.GET("/about", status.About)
	router.GET("/status", status.Status)
	router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	// Content routes
	content := router.Group("/content")
	{
		content.GET("/available-content", entities.AvailableContent)
		content.POST("/entities", entities.Deploy)
	}

	return router
}
