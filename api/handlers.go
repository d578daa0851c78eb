package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krishna-kudari/limiterd"
	"github.com/krishna-kudari/limiterd/store"
)

const defaultRecentLogs = 100

func (s *Server) handleBanner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Rate Limiter System API",
		"version": "1.0",
	})
}

type createAPIKeyRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) handleCreateAPIKey(c *gin.Context) {
	var req createAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	rec := &store.APIKey{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Key:       newKeyToken(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.PutAPIKey(c.Request.Context(), rec); err != nil {
		s.fail(c, "create api key", err)
		return
	}
	s.logger.Info("api key created", zap.String("name", rec.Name), zap.String("id", rec.ID))
	c.JSON(http.StatusOK, rec)
}

// newKeyToken mints an opaque key token. Tokens are prefixed so they are
// recognizable in logs and dashboards.
func newKeyToken() string {
	u := uuid.New()
	return fmt.Sprintf("api_key_%x", u[:])
}

func (s *Server) handleListAPIKeys(c *gin.Context) {
	keys, err := s.store.ListAPIKeys(c.Request.Context())
	if err != nil {
		s.fail(c, "list api keys", err)
		return
	}
	if keys == nil {
		keys = []store.APIKey{}
	}
	c.JSON(http.StatusOK, keys)
}

type createConfigRequest struct {
	APIKey        string `json:"api_key" binding:"required"`
	Algorithm     string `json:"algorithm" binding:"required"`
	MaxRequests   int64  `json:"max_requests" binding:"required"`
	WindowSeconds int64  `json:"window_seconds" binding:"required"`
}

func (s *Server) handleCreateConfig(c *gin.Context) {
	var req createConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if !limiterd.Algorithm(req.Algorithm).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("unknown algorithm %q", req.Algorithm)})
		return
	}
	if req.MaxRequests < 1 || req.WindowSeconds < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "max_requests and window_seconds must be positive"})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.store.FindAPIKey(ctx, req.APIKey); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "API key not found"})
			return
		}
		s.fail(c, "find api key", err)
		return
	}

	cfg := &store.Config{
		ID:            uuid.NewString(),
		APIKey:        req.APIKey,
		Algorithm:     req.Algorithm,
		MaxRequests:   req.MaxRequests,
		WindowSeconds: req.WindowSeconds,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.PutConfig(ctx, cfg); err != nil {
		s.fail(c, "create config", err)
		return
	}

	// The next decision for this key rebuilds its limiter from the new
	// configuration.
	s.gateway.Registry().Invalidate(req.APIKey)
	s.logger.Info("rate limit config created",
		zap.String("api_key", req.APIKey),
		zap.String("algorithm", req.Algorithm),
		zap.Int64("max_requests", req.MaxRequests),
		zap.Int64("window_seconds", req.WindowSeconds))
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleListConfigs(c *gin.Context) {
	configs, err := s.store.ListConfigs(c.Request.Context())
	if err != nil {
		s.fail(c, "list configs", err)
		return
	}
	if configs == nil {
		configs = []store.Config{}
	}
	c.JSON(http.StatusOK, configs)
}

func (s *Server) handleProtectedTest(c *gin.Context) {
	apiKey := c.Query("api_key")
	if apiKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "api_key query parameter is required"})
		return
	}

	dec, err := s.gateway.Decide(c.Request.Context(), apiKey, "/api/protected/test")
	if err != nil {
		if errors.Is(err, limiterd.ErrUnknownKey) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid API key"})
			return
		}
		s.fail(c, "decide", err)
		return
	}

	if !dec.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"detail":          "Rate limit exceeded",
			"algorithm":       string(dec.Algorithm),
			"remaining_quota": 0,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Request allowed",
		"algorithm":       string(dec.Algorithm),
		"remaining_quota": dec.RemainingQuota,
		"timestamp":       dec.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleAnalyticsSummary(c *gin.Context) {
	if key := c.Query("api_key"); key != "" {
		c.JSON(http.StatusOK, s.gateway.Analytics().SummaryFor(key))
		return
	}
	c.JSON(http.StatusOK, s.gateway.Analytics().Summary())
}

func (s *Server) handleRecentLogs(c *gin.Context) {
	limit := defaultRecentLogs
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	logs := s.gateway.Analytics().RecentFor(c.Query("api_key"), limit)
	if logs == nil {
		logs = []store.RequestLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func (s *Server) handleLoadTest(c *gin.Context) {
	var req limiterd.LoadTest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	result, err := s.driver.Run(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, limiterd.ErrUnknownKey) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "API key not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSystemStatus(c *gin.Context) {
	ctx := c.Request.Context()
	keys, err := s.store.CountAPIKeys(ctx)
	if err != nil {
		s.fail(c, "count api keys", err)
		return
	}
	configs, err := s.store.CountConfigs(ctx)
	if err != nil {
		s.fail(c, "count configs", err)
		return
	}
	logged, err := s.store.CountLogs(ctx)
	if err != nil {
		s.fail(c, "count logs", err)
		return
	}

	counts := s.gateway.Registry().Counts()
	active := make(map[string]int, len(counts))
	for algo, n := range counts {
		active[string(algo)] = n
	}

	c.JSON(http.StatusOK, gin.H{
		"status":                "operational",
		"active_api_keys":       keys,
		"active_configs":        configs,
		"total_requests_logged": logged,
		"active_rate_limiters":  active,
	})
}

func (s *Server) handleResetStats(c *gin.Context) {
	if err := s.gateway.ResetStats(c.Request.Context()); err != nil {
		s.fail(c, "reset stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Statistics and rate limiters reset successfully",
	})
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	s.logger.Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
}
