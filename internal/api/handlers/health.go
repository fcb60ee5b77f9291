package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// HealthHandler reports liveness, readiness, and basic operational metrics.
// The service holds no database — Redis is the only external dependency to
// check.
type HealthHandler struct {
	redis  *redis.Client
	logger *logrus.Logger
}

func NewHealthHandler(redisClient *redis.Client, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{redis: redisClient, logger: logger}
}

type healthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := healthStatus{
		Status:    "ok",
		Service:   "lineup-optimizer",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		response.Status = "unhealthy"
		response.Checks["redis"] = "failed: " + err.Error()
	} else {
		response.Checks["redis"] = "ok"
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

func (h *HealthHandler) GetReady(c *gin.Context) {
	response := healthStatus{
		Status:    "ready",
		Service:   "lineup-optimizer",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		response.Status = "not_ready"
		response.Checks["redis"] = "failed: " + err.Error()
	} else {
		response.Checks["redis"] = "ok"
	}

	statusCode := http.StatusOK
	if response.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, response)
}

func (h *HealthHandler) GetMetrics(c *gin.Context) {
	metrics := map[string]interface{}{
		"service":   "lineup-optimizer",
		"timestamp": time.Now(),
	}

	if dbSize, err := h.redis.DBSize(c.Request.Context()).Result(); err == nil {
		metrics["cache"] = map[string]interface{}{
			"total_keys": dbSize,
		}
		if keys, err := h.redis.Keys(c.Request.Context(), "lineup-optimize:*").Result(); err == nil {
			metrics["optimization_cache"] = map[string]interface{}{
				"cached_results": len(keys),
			}
		}
	}

	c.JSON(http.StatusOK, metrics)
}
