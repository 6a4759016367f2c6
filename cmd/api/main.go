package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/behindy-dev/storyserver/internal/config"
	"github.com/behindy-dev/storyserver/internal/handlers"
	"github.com/behindy-dev/storyserver/internal/logger"
	"github.com/behindy-dev/storyserver/internal/middleware"
	internalmp "github.com/behindy-dev/storyserver/internal/multiplayer"
	"github.com/behindy-dev/storyserver/internal/ratelimit"
	"github.com/behindy-dev/storyserver/internal/services"
	internalstory "github.com/behindy-dev/storyserver/internal/story"
	"github.com/behindy-dev/storyserver/pkg/prompts"
	"github.com/behindy-dev/storyserver/pkg/story"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting story server",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"ai_provider", cfg.AIProvider)

	provider := services.NewProvider(cfg, log)
	log.Info("Provider selected", "provider", provider.Name())

	var cache services.Cache
	if cfg.RedisURL != "" {
		redisCache := services.NewRedisCache(cfg.RedisURL, log)
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := redisCache.Ping(pingCtx)
		pingCancel()
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		cache = redisCache
		log.Info("Redis cache connected", "url", cfg.RedisURL)
	} else {
		cache = services.NewMemoryCache(cfg.CacheTTL, log)
		log.Info("Using in-process cache", "ttl", cfg.CacheTTL)
	}

	promptManager, err := prompts.NewManager(cfg.PromptsDir)
	if err != nil {
		log.Error("Failed to load prompts", "error", err, "dir", cfg.PromptsDir)
		os.Exit(1)
	}

	stats := internalstory.NewStats()
	limiter := ratelimit.New(cfg.RequestLimitPerHour, time.Hour)
	scorer := internalstory.NewScorer(provider, promptManager, cfg.MinQualityScore, log)

	storyCache := cache
	if !cfg.UseCache {
		storyCache = nil
		log.Info("Story caching disabled")
	}

	storyService := internalstory.NewService(provider, promptManager, scorer, cfg.MaxRetries, stats, nil, log)
	batchService := internalstory.NewBatchService(provider, promptManager, story.NewTemplateGenerator(nil), storyCache, cfg.CacheTTL, stats, log)
	phaseEngine := internalmp.NewEngine(provider, nil, log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(cache, provider, limiter, stats, log))
	mux.Handle("/providers", handlers.NewProvidersHandler(cfg, provider, log))

	// The one public generation endpoint: internal-key callers bypass
	// the limit and the cache, everyone else is limited per client.
	mux.Handle("/generate-complete-story",
		middleware.RateLimit(limiter, cfg.InternalAPIKey, log,
			handlers.NewBatchStoryHandler(batchService, cfg.InternalAPIKey, log)))

	internalOnly := func(h http.Handler) http.Handler {
		return middleware.InternalAuth(cfg.InternalAPIKey, log, h)
	}
	mux.Handle("/generate-story", internalOnly(handlers.NewGenerateStoryHandler(storyService, log)))
	mux.Handle("/continue-story", internalOnly(handlers.NewContinueStoryHandler(storyService, log)))
	mux.Handle("/llm/multiplayer/next-phase", internalOnly(handlers.NewMultiplayerHandler(phaseEngine, log)))
	mux.Handle("/validate-story-structure", internalOnly(handlers.NewValidateHandler(log)))

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := cache.Close(); err != nil {
		log.Error("Error closing cache", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
