package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-optimizer/internal/api/handlers"
	"github.com/stitts-dev/lineup-optimizer/internal/cache"
	"github.com/stitts-dev/lineup-optimizer/internal/config"
	"github.com/stitts-dev/lineup-optimizer/internal/logging"
	"github.com/stitts-dev/lineup-optimizer/internal/progress"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logging.InitLogger("info", cfg.IsDevelopment())
	logging.WithService("lineup-optimizer").WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("starting lineup optimizer service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logging.WithService("lineup-optimizer").Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.WithService("lineup-optimizer").Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	resultCache := cache.NewResultCache(redisClient, structuredLogger)

	progressHub := progress.NewHub(structuredLogger)
	go progressHub.Run()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	optimizationHandler := handlers.NewOptimizationHandler(resultCache, progressHub, cfg, structuredLogger)
	healthHandler := handlers.NewHealthHandler(redisClient, structuredLogger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/optimize", optimizationHandler.OptimizeLineups)
		apiV1.POST("/optimize/validate", optimizationHandler.ValidateOptimizationRequest)
		apiV1.GET("/optimize/cache-status", optimizationHandler.GetCacheStatus)
	}

	router.GET("/ws/optimize-progress/:request_id", progressHub.HandleWebSocket)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	router.GET("/metrics", healthHandler.GetMetrics)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logging.WithService("lineup-optimizer").WithField("port", cfg.Port).Info("lineup optimizer service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.WithService("lineup-optimizer").Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.WithService("lineup-optimizer").Info("shutting down lineup optimizer service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.WithService("lineup-optimizer").Fatalf("lineup optimizer service forced to shutdown: %v", err)
	}

	logging.WithService("lineup-optimizer").Info("lineup optimizer service exited")
}
