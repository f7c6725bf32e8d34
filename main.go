package main

import (
	"log"
	"net/http"
	"time"

	"github/mosaic/backend/config"
	"github/mosaic/backend/controller"
	"github/mosaic/backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()

	// Create HTTP client properly
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Open the local story cache. The server still works without it; cached
	// search and collections just become unavailable.
	cache, err := services.OpenStoryCache(cfg.CachePath)
	if err != nil {
		log.Printf("Warning: Failed to open story cache at %s: %v", cfg.CachePath, err)
		cache = nil
	} else {
		defer func() {
			if closeErr := cache.Close(); closeErr != nil {
				log.Printf("Warning: Failed to close story cache: %v", closeErr)
			}
		}()
	}

	// Use the proper constructor functions
	limiter := services.NewAdaptiveRateLimiter(2.0, 10.0)
	storyService := services.NewStoryService(httpClient, cfg.ArchiveBaseURL, limiter, cache)
	claudeClient := services.NewClaudeClient(httpClient, cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, cfg.AnthropicModel)
	narrativeService := services.NewNarrativeService(claudeClient)
	mosaicService := services.NewMosaicService(storyService, narrativeService)
	mosaicController := controller.NewMosaicController(mosaicService, storyService, cache, cfg)

	if cfg.AnthropicAPIKey == "" {
		log.Printf("Warning: ANTHROPIC_API_KEY is not set. Chat requests will fail until it is configured.")
	}

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware so the demo frontend can call us from any origin
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Tag every request with an id for log correlation
	router.Use(func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	})

	// A wrong method on a known route should be a 405, not a 404
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	// Add health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Mosaic API",
			"version": "1.0.0",
		})
	})

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", mosaicController.Chat)                  // Endpoint to ask a question
		apiV1.GET("/stories/search", mosaicController.SearchStories) // Endpoint to search cached stories
		apiV1.POST("/collections", mosaicController.SaveCollection) // Endpoint to save a story collection
		apiV1.GET("/collections", mosaicController.ListCollections) // Endpoint to list saved collections
	}

	// Start the Server
	port := cfg.Port
	log.Printf("Go Gin backend server starting on http://localhost:%s", port)
	log.Printf("Health check available at: http://localhost:%s/health", port)
	log.Printf("API endpoints:")
	log.Printf("  POST http://localhost:%s/api/v1/chat", port)
	log.Printf("  GET  http://localhost:%s/api/v1/stories/search", port)
	log.Printf("  POST http://localhost:%s/api/v1/collections", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
