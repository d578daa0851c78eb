// Package api exposes the rate limiter engine over HTTP.
//
// All application routes live under /api; Prometheus metrics are served
// at /metrics. Handlers are thin: validation and status mapping here,
// semantics in the engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/krishna-kudari/limiterd"
	"github.com/krishna-kudari/limiterd/store"
)

// Server routes HTTP traffic into the engine.
type Server struct {
	engine  *gin.Engine
	store   store.ConfigStore
	gateway *limiterd.Gateway
	driver  *limiterd.LoadDriver
	logger  *zap.Logger

	gatherer prometheus.Gatherer
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger (default: no-op).
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithGatherer sets the Prometheus gatherer backing /metrics
// (default: prometheus.DefaultGatherer).
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) { s.gatherer = g }
}

// NewServer wires the HTTP surface over its collaborators.
func NewServer(st store.ConfigStore, gw *limiterd.Gateway, driver *limiterd.LoadDriver, opts ...ServerOption) *Server {
	s := &Server{
		store:    st,
		gateway:  gw,
		driver:   driver,
		logger:   zap.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	s.engine = engine
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler, for mounting and for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.engine.Group("/api")
	api.GET("/", s.handleBanner)

	api.POST("/api-keys", s.handleCreateAPIKey)
	api.GET("/api-keys", s.handleListAPIKeys)

	api.POST("/rate-limit-configs", s.handleCreateConfig)
	api.GET("/rate-limit-configs", s.handleListConfigs)

	api.GET("/protected/test", s.handleProtectedTest)

	api.GET("/analytics/summary", s.handleAnalyticsSummary)
	api.GET("/analytics/recent-logs", s.handleRecentLogs)

	api.POST("/load-test", s.handleLoadTest)

	api.GET("/system-status", s.handleSystemStatus)
	api.DELETE("/reset-stats", s.handleResetStats)
}
