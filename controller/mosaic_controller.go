package controller

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github/mosaic/backend/config"
	"github/mosaic/backend/models"
	"github/mosaic/backend/services"
)

// MosaicController owns the HTTP handlers for the chat pipeline and the
// supporting story/collection endpoints.
type MosaicController struct {
	mosaic  services.MosaicService
	stories services.StoryService
	cache   *services.StoryCache
	cfg     *config.Config
}

// NewMosaicController creates the controller with its service dependencies.
// The cache may be nil; the collection endpoints report 503 then.
func NewMosaicController(mosaic services.MosaicService, stories services.StoryService, cache *services.StoryCache, cfg *config.Config) *MosaicController {
	return &MosaicController{
		mosaic:  mosaic,
		stories: stories,
		cache:   cache,
		cfg:     cfg,
	}
}

// Chat handles POST /api/v1/chat. It validates the request, runs the
// pipeline, and wraps the result in the response envelope.
func (mc *MosaicController) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	// Missing credentials are a server problem, not a client one. The server
	// still boots without a key; only chat requests fail.
	if mc.cfg.AnthropicAPIKey == "" {
		log.Printf("CONTROLLER ERROR: chat request received but no API key is configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
		return
	}

	response, intent, err := mc.mosaic.Chat(c.Request.Context(), req)
	if err != nil {
		log.Printf("CONTROLLER ERROR: chat pipeline failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ChatEnvelope{
		Response:   response,
		Intent:     intent,
		StoryCount: response.StoryCount,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// SearchStories handles GET /api/v1/stories/search. It serves from the local
// cache only and never touches the upstream archive.
func (mc *MosaicController) SearchStories(c *gin.Context) {
	term := c.Query("term")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'term' is required"})
		return
	}
	location := c.Query("location")

	stories, err := mc.stories.SearchCached(term, location)
	if err != nil {
		log.Printf("CONTROLLER ERROR: cached story search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search stories"})
		return
	}

	c.JSON(http.StatusOK, models.SearchStoriesResponse{
		Stories: stories,
		Count:   len(stories),
		Source:  "cache",
	})
}

// SaveCollection handles POST /api/v1/collections.
func (mc *MosaicController) SaveCollection(c *gin.Context) {
	if mc.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Story cache is not available"})
		return
	}

	var req models.SaveCollectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Name == "" || len(req.StoryIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Both 'name' and 'story_ids' are required"})
		return
	}

	if err := mc.cache.SaveCollection(req.Name, req.StoryIDs); err != nil {
		log.Printf("CONTROLLER ERROR: failed to save collection %q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save collection"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Collection saved",
		"name":    req.Name,
		"count":   len(req.StoryIDs),
	})
}

// ListCollections handles GET /api/v1/collections.
func (mc *MosaicController) ListCollections(c *gin.Context) {
	if mc.cache == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Story cache is not available"})
		return
	}

	collections, err := mc.cache.ListCollections()
	if err != nil {
		log.Printf("CONTROLLER ERROR: failed to list collections: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list collections"})
		return
	}

	c.JSON(http.StatusOK, models.ListCollectionsResponse{
		Count:       len(collections),
		Collections: collections,
	})
}
