// internal/handlers/draft.go
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/curation-backend/internal/i18n"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/utils"
)

type DraftHandler struct {
	curationService    *services.CurationService
	translationService *services.TranslationService
	publisher          *services.Publisher
}

func NewDraftHandler(curationService *services.CurationService, translationService *services.TranslationService, publisher *services.Publisher) *DraftHandler {
	return &DraftHandler{
		curationService:    curationService,
		translationService: translationService,
		publisher:          publisher,
	}
}

type versionRequest struct {
	Version *int `json:"version,omitempty"`
}

type batchRequest struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

type reviewImagesRequest struct {
	ScrapedProductID *uuid.UUID `json:"scraped_product_id,omitempty"`
}

// GET /drafts
func (h *DraftHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := repository.DraftFilter{PaginationParams: params}
	if status := c.Query("status"); status != "" {
		for _, s := range strings.Split(status, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, models.DraftStatus(s))
			}
		}
	}

	drafts, total, err := h.curationService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "draft")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(drafts, total, params))
}

// POST /drafts
func (h *DraftHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	draft, err := h.curationService.CreateDraft(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "draft")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDraftCreated),
		"draft":   draft,
	})
}

// GET /drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	detail, err := h.curationService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{"draft": detail})
}

// PUT /drafts/:id/curated
func (h *DraftHandler) UpdateCurated(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateCuratedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	draft, err := h.curationService.UpdateCuratedFields(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDraftUpdated),
		"draft":   draft,
	})
}

// DELETE /drafts/:id
func (h *DraftHandler) Delete(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.curationService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyDraftDeleted)})
}

// POST /drafts/:id/retranslate
func (h *DraftHandler) Retranslate(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req versionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	draft, err := h.curationService.Retranslate(c.Request.Context(), id, req.Version)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDraftRetranslated),
		"draft":   draft,
	})
}

// POST /drafts/translate-batch
func (h *DraftHandler) TranslateBatch(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req batchRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.translationService.BatchTranslate(c.Request.Context(), req.Limit)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTranslateBatch, result.Translated, result.Processed),
		"result":  result,
	})
}

// PUT /drafts/:id/approve
func (h *DraftHandler) Approve(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	draft, err := h.curationService.Approve(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDraftApproved),
		"draft":   draft,
	})
}

// PUT /drafts/:id/reject
func (h *DraftHandler) Reject(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	draft, err := h.curationService.Reject(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDraftRejected),
		"draft":   draft,
	})
}

// PUT /drafts/:id/in-review
func (h *DraftHandler) SetInReview(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	draft, err := h.curationService.SetInReview(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDraftInReview),
		"draft":   draft,
	})
}

// POST /drafts/:id/publish
func (h *DraftHandler) Publish(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.publisher.Publish(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDraftPublished),
		"product": product,
	})
}

// POST /drafts/:id/unpublish
func (h *DraftHandler) Unpublish(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	draft, err := h.publisher.Unpublish(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDraftUnpublished),
		"draft":   draft,
	})
}

// POST /drafts/:id/review-images
func (h *DraftHandler) UploadReviewImages(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req reviewImagesRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	// Without an explicit product, use the one the draft was made from.
	scrapedID := req.ScrapedProductID
	if scrapedID == nil {
		detail, err := h.curationService.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, "draft")
			return
		}
		if detail.ScrapedProductID == nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "scraped_product_id"), nil)
			return
		}
		scrapedID = detail.ScrapedProductID
	}

	result, err := h.curationService.UploadReviewImages(c.Request.Context(), id, *scrapedID)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReviewImagesDone),
		"result":  result,
	})
}

// POST /drafts/:id/sync-review-images
func (h *DraftHandler) SyncReviewImages(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.publisher.SyncPublishedReviewImages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "draft")
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyReviewImagesSynced),
		"result":  result,
	})
}
