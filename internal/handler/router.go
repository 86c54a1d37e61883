package handler

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"yescity/internal/config"
	"yescity/internal/metrics"
)

// BuildInfo is reported by /health and /version
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// Services are the dependencies behind the HTTP routes
type Services struct {
	Recommender Recommender
	Catalog     CatalogBrowser
	Feedback    FeedbackLogger
}

// NewRouter builds the gin engine with all routes
func NewRouter(cfg *config.ServerConfig, svc Services, build BuildInfo, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID(log))
	router.Use(AccessLog())
	router.Use(metrics.Middleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.AllowedHeaders)
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	if len(corsConfig.AllowOrigins) == 0 || corsConfig.AllowOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	recommendHandler := NewRecommendHandler(svc.Recommender, build.Version)
	catalogHandler := NewCatalogHandler(svc.Catalog)
	feedbackHandler := NewFeedbackHandler(svc.Feedback)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "yescity-recommendation",
			"version":    build.Version,
			"build_time": build.BuildTime,
			"git_commit": build.GitCommit,
		})
	})

	// Version endpoint
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    build.Version,
			"build_time": build.BuildTime,
			"git_commit": build.GitCommit,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	apiV1 := router.Group("/api/v1")
	{
		// Recommendation endpoints
		apiV1.POST("/recommend", recommendHandler.Recommend)
		apiV1.POST("/recommend/stream", recommendHandler.RecommendStream)
		apiV1.POST("/category-search", recommendHandler.CategorySearch)
		apiV1.GET("/classify", recommendHandler.Classify)
		apiV1.GET("/health/detailed", recommendHandler.HealthDetailed)

		// Catalog endpoints
		apiV1.GET("/catalog/:category", catalogHandler.List)
		apiV1.GET("/catalog/:category/:id", catalogHandler.Get)
		apiV1.GET("/cities", catalogHandler.Cities)
		apiV1.GET("/categories", catalogHandler.Categories)

		// Feedback endpoint
		apiV1.POST("/feedback", feedbackHandler.Submit)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
	})

	return router
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
