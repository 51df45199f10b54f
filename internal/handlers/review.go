// internal/handlers/review.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/curation-backend/internal/i18n"
	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/utils"
)

type ReviewHandler struct {
	curationService    *services.CurationService
	translationService *services.TranslationService
}

func NewReviewHandler(curationService *services.CurationService, translationService *services.TranslationService) *ReviewHandler {
	return &ReviewHandler{
		curationService:    curationService,
		translationService: translationService,
	}
}

type curatedTextRequest struct {
	Text string `json:"text"`
}

// PUT /reviews/:id/curated-text
func (h *ReviewHandler) UpdateCuratedText(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req curatedTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	review, err := h.curationService.UpdateReviewText(c.Request.Context(), id, req.Text)
	if err != nil {
		respondError(c, err, "review")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReviewTextUpdated),
		"review":  review,
	})
}

// POST /reviews/translate-batch
func (h *ReviewHandler) TranslateBatch(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req batchRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.translationService.BatchTranslateReviews(c.Request.Context(), req.Limit)
	if err != nil {
		respondError(c, err, "review")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReviewTranslateDone, result.Translated, result.Processed),
		"result":  result,
	})
}

// GET /reviews/stats
func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.translationService.ReviewStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "review")
		return
	}
	utils.SuccessResponse(c, gin.H{"stats": stats})
}
