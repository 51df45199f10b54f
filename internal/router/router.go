// internal/router/router.go
package router

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/curation-backend/internal/config"
	"github.com/javajoker/curation-backend/internal/handlers"
	"github.com/javajoker/curation-backend/internal/middleware"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/services"
)

// Services is everything the HTTP surface calls into.
type Services struct {
	Store       repository.Store
	Scrape      *services.ScrapeService
	Curation    *services.CurationService
	Translation *services.TranslationService
	Publisher   *services.Publisher
	Pipeline    *services.PipelineService
}

// Initialize builds the gin engine. ctx bounds the rate limiters' cleanup
// goroutines.
func Initialize(ctx context.Context, cfg *config.Config, svc Services) *gin.Engine {
	scrapeHandler := handlers.NewScrapeHandler(svc.Scrape, svc.Curation)
	draftHandler := handlers.NewDraftHandler(svc.Curation, svc.Translation, svc.Publisher)
	reviewHandler := handlers.NewReviewHandler(svc.Curation, svc.Translation)
	pipelineHandler := handlers.NewPipelineHandler(svc.Pipeline)

	apiLimiter := middleware.APIRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	scrapeLimiter := middleware.ScrapeRateLimiter(cfg.Server.ScrapeRateLimit)
	go apiLimiter.Cleanup(ctx)
	go scrapeLimiter.Cleanup(ctx)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Frontend.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(apiLimiter.Middleware())
	r.Use(middleware.AuditLogMiddleware(svc.Store.Audit()))

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	}
	r.GET("/health", health)

	v1 := r.Group("/v1")
	{
		v1.GET("/health", health)

		scraped := v1.Group("/scraped")
		{
			scraped.GET("", scrapeHandler.List)
			scraped.GET("/stats", scrapeHandler.Stats)
			scraped.GET("/:id", scrapeHandler.Get)
			scraped.GET("/:id/reviews", scrapeHandler.ListReviews)
			scraped.DELETE("/:id", scrapeHandler.Delete)
			scraped.POST("/:id/send-to-curation", scrapeHandler.SendToCuration)

			// Routes that fetch third-party pages
			fetching := scraped.Group("")
			fetching.Use(scrapeLimiter.Middleware())
			{
				fetching.POST("", scrapeHandler.Scrape)
				fetching.POST("/batch", scrapeHandler.ScrapeBatch)
				fetching.POST("/:id/retry", scrapeHandler.Retry)
				fetching.POST("/:id/rescrape-reviews", scrapeHandler.RescrapeReviews)
			}
		}

		drafts := v1.Group("/drafts")
		{
			drafts.GET("", draftHandler.List)
			drafts.POST("", draftHandler.Create)
			drafts.POST("/translate-batch", draftHandler.TranslateBatch)
			drafts.GET("/:id", draftHandler.Get)
			drafts.DELETE("/:id", draftHandler.Delete)
			drafts.PUT("/:id/curated", draftHandler.UpdateCurated)
			drafts.POST("/:id/retranslate", draftHandler.Retranslate)
			drafts.PUT("/:id/approve", draftHandler.Approve)
			drafts.PUT("/:id/reject", draftHandler.Reject)
			drafts.PUT("/:id/in-review", draftHandler.SetInReview)
			drafts.POST("/:id/publish", draftHandler.Publish)
			drafts.POST("/:id/unpublish", draftHandler.Unpublish)
			drafts.POST("/:id/review-images", draftHandler.UploadReviewImages)
			drafts.POST("/:id/sync-review-images", draftHandler.SyncReviewImages)
		}

		reviews := v1.Group("/reviews")
		{
			reviews.GET("/stats", reviewHandler.Stats)
			reviews.POST("/translate-batch", reviewHandler.TranslateBatch)
			reviews.PUT("/:id/curated-text", reviewHandler.UpdateCuratedText)
		}

		v1.GET("/categories", pipelineHandler.Categories)
		v1.GET("/pipeline/stats", pipelineHandler.Stats)
	}

	// Static file serving (for development)
	if cfg.Environment == "development" && !cfg.AWS.UseS3() {
		r.Static(uploadsMountPath(cfg.AWS.LocalBaseURL), cfg.AWS.LocalDir)
	}

	return r
}

// uploadsMountPath is the path part of the local uploads base URL.
func uploadsMountPath(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/uploads"
	}
	return strings.TrimRight(u.Path, "/")
}
