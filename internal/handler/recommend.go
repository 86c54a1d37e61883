package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"yescity/internal/model"
	"yescity/internal/service"
)

// Recommender is the pipeline as seen by the HTTP layer
type Recommender interface {
	Run(ctx context.Context, query string) *model.RecommendationResult
	RunStream(ctx context.Context, query string, callback service.EventCallback) *model.RecommendationResult
	GetByCategory(ctx context.Context, category, city string, filters map[string]string) *model.RecommendationResult
	Classify(ctx context.Context, query string) model.QueryIntent
	Health(ctx context.Context) model.HealthReport
}

// RecommendHandler handles recommendation-related HTTP requests
type RecommendHandler struct {
	recommender Recommender
	version     string
}

// NewRecommendHandler creates a new recommend handler
func NewRecommendHandler(recommender Recommender, version string) *RecommendHandler {
	return &RecommendHandler{
		recommender: recommender,
		version:     version,
	}
}

// Recommend handles POST /api/v1/recommend
func (h *RecommendHandler) Recommend(c *gin.Context) {
	var req model.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result := h.recommender.Run(c.Request.Context(), req.Query)
	c.JSON(service.HTTPStatus(result.Err), result)
}

// CategorySearch handles POST /api/v1/category-search
func (h *RecommendHandler) CategorySearch(c *gin.Context) {
	var req model.CategorySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if _, ok := model.LookupCategory(req.Category); !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid category. Must be one of: " + strings.Join(model.CategoryNames(), ", "),
		})
		return
	}

	result := h.recommender.GetByCategory(c.Request.Context(), req.Category, req.City, req.Filters)
	c.JSON(service.HTTPStatus(result.Err), result)
}

// Classify handles GET /api/v1/classify?query=
func (h *RecommendHandler) Classify(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}

	start := time.Now()
	intent := h.recommender.Classify(c.Request.Context(), query)
	c.JSON(http.StatusOK, model.ClassifyResponse{
		Query:  query,
		Intent: intent,
		Took:   time.Since(start).Milliseconds(),
	})
}

// HealthDetailed handles GET /api/v1/health/detailed
func (h *RecommendHandler) HealthDetailed(c *gin.Context) {
	report := h.recommender.Health(c.Request.Context())
	report.Version = h.version

	status := http.StatusOK
	if report.Status == model.HealthDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// RecommendStream handles POST /api/v1/recommend/stream - SSE streaming recommendation
func (h *RecommendHandler) RecommendStream(c *gin.Context) {
	var req model.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	sendSSE(c, "start", map[string]any{"query": req.Query})
	flusher.Flush()

	ctx := c.Request.Context()
	result := h.recommender.RunStream(ctx, req.Query, func(event string, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})

	if result.Success {
		sendSSE(c, "result", result)
	} else {
		sendSSE(c, "error", result)
	}
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
