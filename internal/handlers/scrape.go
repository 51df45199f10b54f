// internal/handlers/scrape.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/curation-backend/internal/i18n"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/utils"
)

type ScrapeHandler struct {
	scrapeService   *services.ScrapeService
	curationService *services.CurationService
}

func NewScrapeHandler(scrapeService *services.ScrapeService, curationService *services.CurationService) *ScrapeHandler {
	return &ScrapeHandler{
		scrapeService:   scrapeService,
		curationService: curationService,
	}
}

// POST /scraped
func (h *ScrapeHandler) Scrape(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.scrapeService.Scrape(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err, "scraped_product")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyScrapeCompleted),
		"result":  result,
	})
}

// POST /scraped/batch
func (h *ScrapeHandler) ScrapeBatch(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.BatchScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	batch := h.scrapeService.ScrapeURLs(c.Request.Context(), req.URLs)
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyScrapeBatchCompleted, len(batch.Results), len(req.URLs)),
		"results": batch.Results,
		"errors":  batch.Errors,
	})
}

// GET /scraped
func (h *ScrapeHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := repository.ScrapedFilter{
		PaginationParams: params,
		SourceName:       c.Query("source"),
		Status:           models.ScrapeStatus(c.Query("status")),
	}
	if sentStr := c.Query("sent"); sentStr != "" {
		if sent, err := strconv.ParseBool(sentStr); err == nil {
			filter.SentToCuration = &sent
		}
	}

	products, total, err := h.scrapeService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "scraped_product")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params))
}

// GET /scraped/stats
func (h *ScrapeHandler) Stats(c *gin.Context) {
	stats, err := h.scrapeService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "scraped_product")
		return
	}
	utils.SuccessResponse(c, gin.H{"stats": stats})
}

// GET /scraped/:id
func (h *ScrapeHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.scrapeService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "scraped_product")
		return
	}
	utils.SuccessResponse(c, gin.H{"product": product})
}

// GET /scraped/:id/reviews
func (h *ScrapeHandler) ListReviews(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	reviews, err := h.scrapeService.ListReviews(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "scraped_product")
		return
	}
	utils.SuccessResponse(c, gin.H{"reviews": reviews})
}

// DELETE /scraped/:id
func (h *ScrapeHandler) Delete(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.scrapeService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "scraped_product")
		return
	}
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyScrapedDeleted)})
}

// POST /scraped/:id/retry
func (h *ScrapeHandler) Retry(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.scrapeService.Retry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "scraped_product")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyScrapeCompleted),
		"result":  result,
	})
}

// POST /scraped/:id/rescrape-reviews
func (h *ScrapeHandler) RescrapeReviews(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.scrapeService.RescrapeReviews(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "scraped_product")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReviewsRescraped, result.NewReviews),
		"result":  result,
	})
}

// POST /scraped/:id/send-to-curation
func (h *ScrapeHandler) SendToCuration(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.curationService.SendToCuration(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "scraped_product")
		return
	}

	message := i18n.T(lang, i18n.KeySentToCuration)
	if result.Images != nil && result.Images.Err() != nil {
		message = i18n.T(lang, i18n.KeyUploadPartial)
	}
	utils.CreatedResponse(c, gin.H{
		"message":       message,
		"draft":         result.Draft,
		"images":        result.Images,
		"review_images": result.ReviewImages,
	})
}
