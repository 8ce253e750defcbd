package apihandlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIKeyHeader carries the shared secret on every protected request.
const APIKeyHeader = "API_KEY"

// RequireAPIKey rejects requests without the header (400) or with the wrong
// key (403).
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(APIKeyHeader)
		if got == "" {
			BadRequest(c, "Please provide an API key")
			c.Abort()
			return
		}
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			Forbidden(c, "The provided API key is not valid")
			c.Abort()
			return
		}
		c.Next()
	}
}

type RouterOptions struct {
	APIKey   string
	Gatherer prometheus.Gatherer
	// Health checks backing services for GET /health.
	Health func(ctx context.Context) error
}

// NewRouter mounts the ingestion endpoints on a gin engine.
func NewRouter(h *APIHandler, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				JSONError(c, http.StatusServiceUnavailable, "unhealthy", err.Error())
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	protected := router.Group("/", RequireAPIKey(opts.APIKey))
	{
		protected.POST("/classify_and_ingest_posts_ig", h.ClassifyAndIngestHandler)
		protected.POST("/ingest_posts_ig", h.IngestHandler)
		protected.POST("/ingest_new_user_classify_ingest_posts_ig", h.NewUserClassifyIngestHandler)
		protected.POST("/ingest_new_user_ingest_posts_ig", h.NewUserIngestHandler)
		protected.POST("/ingest_new_user_ig", h.IngestNewUserHandler)

		protected.GET("/runs", h.ListRunsHandler)
		protected.GET("/runs/:id", h.GetRunHandler)
	}
	return router
}
