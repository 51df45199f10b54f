// internal/services/curation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/utils"
)

type CurationService struct {
	store       repository.Store
	images      *ImageProcessor
	translation *TranslationService
	locker      Locker
}

type CreateDraftRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=255"`
	Description string   `json:"description,omitempty"`
	PriceText   string   `json:"price_text,omitempty" validate:"omitempty,max=100"`
	Category    string   `json:"category,omitempty" validate:"omitempty,max=255"`
	Images      []string `json:"images,omitempty" validate:"omitempty,max=20,dive,http_url"`
	SourceURL   string   `json:"source_url,omitempty" validate:"omitempty,http_url"`
}

// UpdateCuratedRequest carries operator overrides. A nil field is left
// alone; an empty string or zero price clears the override.
type UpdateCuratedRequest struct {
	Version          *int      `json:"version,omitempty"`
	Name             *string   `json:"name,omitempty" validate:"omitempty,max=255"`
	Description      *string   `json:"description,omitempty"`
	ShortDescription *string   `json:"short_description,omitempty" validate:"omitempty,max=500"`
	Category         *string   `json:"category,omitempty" validate:"omitempty,product_category"`
	Price            *int64    `json:"price,omitempty" validate:"omitempty,min=0"`
	CompareAtPrice   *int64    `json:"compare_at_price,omitempty" validate:"omitempty,min=0"`
	Images           *[]string `json:"images,omitempty" validate:"omitempty,max=20,dive,http_url"`
}

type TransitionRequest struct {
	Version    *int   `json:"version,omitempty"`
	ReviewedBy string `json:"reviewed_by,omitempty" validate:"omitempty,max=100"`
}

type RejectRequest struct {
	TransitionRequest
	Reason string `json:"reason" validate:"required,max=2000"`
}

type SendToCurationResult struct {
	Draft        *models.ProductDraft `json:"draft"`
	Images       *ImageResult         `json:"images"`
	ReviewImages *ReviewImageResult   `json:"review_images"`
}

type ReviewImageError struct {
	ReviewID uuid.UUID `json:"review_id"`
	ImageError
}

type ReviewImageResult struct {
	Reviews  int                `json:"reviews"`
	Uploaded int                `json:"uploaded"`
	Failed   int                `json:"failed"`
	Errors   []ReviewImageError `json:"errors"`
}

// DraftDetail is a draft plus its resolved effective values.
type DraftDetail struct {
	*models.ProductDraft
	Effective []models.EffectiveValue `json:"effective"`
	Missing   []string                `json:"missing"`
}

func NewCurationService(store repository.Store, images *ImageProcessor, translation *TranslationService, locker Locker) *CurationService {
	return &CurationService{
		store:       store,
		images:      images,
		translation: translation,
		locker:      locker,
	}
}

// SendToCuration re-uploads the product and review images, then snapshots
// the product into a new pending_translation draft. A product is sent once.
func (s *CurationService) SendToCuration(ctx context.Context, scrapedProductID uuid.UUID) (*SendToCurationResult, error) {
	var result *SendToCurationResult
	err := withLock(ctx, s.locker, "scraped", scrapedProductID, func() error {
		product, err := s.store.ScrapedProducts().GetByID(ctx, scrapedProductID)
		if err != nil {
			return err
		}
		if product.SentToCuration {
			return ErrAlreadySent
		}
		if product.ScrapeStatus != models.ScrapeStatusSuccess {
			return validationError(fmt.Errorf("scraped product %s has no usable data", scrapedProductID))
		}

		log := logrus.WithField("scraped_product_id", scrapedProductID)

		product.ImageUploadStatus = models.ImageUploadStatusUploading
		if err := s.store.ScrapedProducts().Save(ctx, product); err != nil {
			return err
		}

		images := s.images.ProcessAndUploadImages(ctx, product.RawImages, "products/"+scrapedProductID.String(), 0)
		product.UploadedImageURLs = MergeIndexed(len(product.RawImages), product.UploadedImageURLs, images)
		product.ImageUploadStatus = images.UploadStatus()
		if err := s.store.ScrapedProducts().Save(ctx, product); err != nil {
			return err
		}
		if err := images.Err(); err != nil {
			log.WithError(err).Warn("Some product images failed to upload")
		}

		reviewImages, err := s.uploadReviewPhotos(ctx, scrapedProductID)
		if err != nil {
			return err
		}

		draft := draftFromScraped(product)
		err = s.store.Transaction(ctx, func(tx repository.Store) error {
			if err := tx.Drafts().Create(ctx, draft); err != nil {
				return err
			}
			if err := tx.ScrapedProducts().MarkSentToCuration(ctx, scrapedProductID, draft.ID); err != nil {
				if errors.Is(err, repository.ErrConditionFailed) {
					return ErrAlreadySent
				}
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"draft_id":        draft.ID,
			"images_uploaded": len(images.Successful),
			"images_failed":   len(images.Errors),
		}).Info("Sent scraped product to curation")

		result = &SendToCurationResult{Draft: draft, Images: images, ReviewImages: reviewImages}
		return nil
	})
	return result, err
}

func draftFromScraped(p *models.ScrapedProduct) *models.ProductDraft {
	id := p.ID
	sourceURL := p.SourceURL
	sourceName := p.SourceName
	return &models.ProductDraft{
		ScrapedProductID: &id,
		RawName:          p.RawName,
		RawDescription:   p.RawDescription,
		RawPriceText:     p.RawPriceText,
		RawCategory:      p.RawCategory,
		RawImages:        append([]string{}, p.RawImages...),
		UploadedImages:   p.UploadedImages(),
		RawSourceURL:     &sourceURL,
		RawSourceName:    &sourceName,
		Status:           models.DraftStatusPendingTranslation,
	}
}

// CreateDraft starts a draft with no scraped origin.
func (s *CurationService) CreateDraft(ctx context.Context, req *CreateDraftRequest) (*models.ProductDraft, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	draft := &models.ProductDraft{
		RawName:        strings.TrimSpace(req.Name),
		RawDescription: optionalString(strings.TrimSpace(req.Description)),
		RawPriceText:   optionalString(strings.TrimSpace(req.PriceText)),
		RawCategory:    optionalString(strings.TrimSpace(req.Category)),
		RawImages:      append([]string{}, req.Images...),
		UploadedImages: []string{},
		RawSourceURL:   optionalString(req.SourceURL),
		Status:         models.DraftStatusPendingTranslation,
	}
	if err := s.store.Drafts().Create(ctx, draft); err != nil {
		return nil, err
	}

	logrus.WithField("draft_id", draft.ID).Info("Created manual draft")
	return draft, nil
}

// UpdateCuratedFields applies operator overrides. Edits are allowed in any
// status; a published product keeps the values it was published with.
func (s *CurationService) UpdateCuratedFields(ctx context.Context, id uuid.UUID, req *UpdateCuratedRequest) (*models.ProductDraft, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	return s.mutateDraft(ctx, id, req.Version, func(d *models.ProductDraft) error {
		if req.Name != nil {
			d.CuratedName = optionalString(strings.TrimSpace(*req.Name))
		}
		if req.Description != nil {
			d.CuratedDescription = optionalString(strings.TrimSpace(*req.Description))
		}
		if req.ShortDescription != nil {
			d.CuratedShortDescription = optionalString(strings.TrimSpace(*req.ShortDescription))
		}
		if req.Category != nil {
			d.CuratedCategory = optionalString(strings.ToLower(strings.TrimSpace(*req.Category)))
		}
		if req.Price != nil {
			d.CuratedPrice = optionalCents(*req.Price)
		}
		if req.CompareAtPrice != nil {
			d.CuratedCompareAtPrice = optionalCents(*req.CompareAtPrice)
		}
		if req.Images != nil {
			d.CuratedImages = append([]string{}, (*req.Images)...)
		}
		return nil
	})
}

// Approve requires an effective name, category and price.
func (s *CurationService) Approve(ctx context.Context, id uuid.UUID, req *TransitionRequest) (*models.ProductDraft, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	return s.mutateDraft(ctx, id, req.Version, func(d *models.ProductDraft) error {
		if err := checkTransition(d, models.DraftStatusApproved); err != nil {
			return err
		}
		if missing := models.MissingForApproval(d); len(missing) > 0 {
			return &DraftIncompleteError{DraftID: d.ID, Missing: missing}
		}
		stampReview(d, req.ReviewedBy)
		d.Status = models.DraftStatusApproved
		d.RejectionReason = nil
		return nil
	})
}

func (s *CurationService) Reject(ctx context.Context, id uuid.UUID, req *RejectRequest) (*models.ProductDraft, error) {
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = ""
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	return s.mutateDraft(ctx, id, req.Version, func(d *models.ProductDraft) error {
		if err := checkTransition(d, models.DraftStatusRejected); err != nil {
			return err
		}
		reason := strings.TrimSpace(req.Reason)
		stampReview(d, req.ReviewedBy)
		d.Status = models.DraftStatusRejected
		d.RejectionReason = &reason
		return nil
	})
}

// SetInReview moves a translated, rejected or approved draft into review.
func (s *CurationService) SetInReview(ctx context.Context, id uuid.UUID, req *TransitionRequest) (*models.ProductDraft, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}
	return s.mutateDraft(ctx, id, req.Version, func(d *models.ProductDraft) error {
		if err := checkTransition(d, models.DraftStatusInReview); err != nil {
			return err
		}
		d.Status = models.DraftStatusInReview
		return nil
	})
}

// Retranslate clears the ai fields, puts the draft back in
// pending_translation and translates it right away.
func (s *CurationService) Retranslate(ctx context.Context, id uuid.UUID, version *int) (*models.ProductDraft, error) {
	_, err := s.mutateDraft(ctx, id, version, func(d *models.ProductDraft) error {
		if d.Status != models.DraftStatusPendingTranslation {
			if err := checkTransition(d, models.DraftStatusPendingTranslation); err != nil {
				return err
			}
		}
		d.ClearAI()
		d.Status = models.DraftStatusPendingTranslation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.translation.TranslateDraft(ctx, id)
}

// Delete removes a draft that is not live and frees its scraped product so
// it can be sent again.
func (s *CurationService) Delete(ctx context.Context, id uuid.UUID) error {
	return withLock(ctx, s.locker, "draft", id, func() error {
		draft, err := s.store.Drafts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if draft.Status == models.DraftStatusPublished {
			return &StateConflictError{
				ID:     id,
				From:   draft.Status,
				Reason: "unpublish the draft before deleting it",
			}
		}

		err = s.store.Transaction(ctx, func(tx repository.Store) error {
			if err := tx.ScrapedProducts().ReleaseDraft(ctx, id); err != nil {
				return err
			}
			return tx.Drafts().Delete(ctx, id)
		})
		if err != nil {
			return err
		}

		logrus.WithField("draft_id", id).Info("Deleted draft")
		return nil
	})
}

func (s *CurationService) Get(ctx context.Context, id uuid.UUID) (*DraftDetail, error) {
	draft, err := s.store.Drafts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return newDraftDetail(draft), nil
}

func newDraftDetail(d *models.ProductDraft) *DraftDetail {
	detail := &DraftDetail{ProductDraft: d, Missing: models.MissingForApproval(d)}
	for _, field := range models.DraftFields {
		detail.Effective = append(detail.Effective, models.ResolveEffective(d, field))
	}
	if detail.Missing == nil {
		detail.Missing = []string{}
	}
	return detail
}

func (s *CurationService) List(ctx context.Context, filter repository.DraftFilter) ([]models.ProductDraft, int64, error) {
	for _, status := range filter.Statuses {
		if !status.IsValid() {
			return nil, 0, validationError(fmt.Errorf("unknown draft status %q", status))
		}
	}
	return s.store.Drafts().List(ctx, filter)
}

// UploadReviewImages re-uploads the photos of the reviews behind a draft.
func (s *CurationService) UploadReviewImages(ctx context.Context, draftID, scrapedProductID uuid.UUID) (*ReviewImageResult, error) {
	draft, err := s.store.Drafts().GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.ScrapedProductID == nil || *draft.ScrapedProductID != scrapedProductID {
		return nil, validationError(fmt.Errorf("draft %s does not come from scraped product %s", draftID, scrapedProductID))
	}

	var result *ReviewImageResult
	err = withLock(ctx, s.locker, "scraped", scrapedProductID, func() error {
		var err error
		result, err = s.uploadReviewPhotos(ctx, scrapedProductID)
		return err
	})
	return result, err
}

// UpdateReviewText sets the operator's wording for a review. An empty text
// clears the override.
func (s *CurationService) UpdateReviewText(ctx context.Context, reviewID uuid.UUID, curatedText string) (*models.ScrapedReview, error) {
	if len(curatedText) > 5000 {
		return nil, validationError(errors.New("curated text must be at most 5000 characters"))
	}
	review, err := s.store.ScrapedReviews().GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	review.CuratedText = optionalString(strings.TrimSpace(curatedText))
	if err := s.store.ScrapedReviews().Save(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// uploadReviewPhotos uploads the raw photos of each review that have no
// uploaded copy yet and appends them to the review's uploads. Earlier uploads
// are kept. Order within a review is not kept.
func (s *CurationService) uploadReviewPhotos(ctx context.Context, scrapedProductID uuid.UUID) (*ReviewImageResult, error) {
	reviews, err := s.store.ScrapedReviews().ListByProduct(ctx, scrapedProductID)
	if err != nil {
		return nil, err
	}

	result := &ReviewImageResult{Errors: []ReviewImageError{}}
	for i := range reviews {
		review := &reviews[i]
		missing := missingReviewPhotos(review)
		if len(missing) == 0 {
			continue
		}
		result.Reviews++

		batch := s.images.ProcessAndUploadImages(ctx, missing, "reviews/"+review.ID.String(), DefaultImageConcurrency)
		result.Uploaded += len(batch.Successful)
		result.Failed += len(batch.Errors)
		for _, e := range batch.Errors {
			result.Errors = append(result.Errors, ReviewImageError{ReviewID: review.ID, ImageError: e})
		}
		if len(batch.Successful) == 0 {
			continue
		}

		review.UploadedReviewImages = appendUnique(review.UploadedReviewImages, batch.URLs())
		if err := s.store.ScrapedReviews().Save(ctx, review); err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"scraped_product_id": scrapedProductID,
		"reviews":            result.Reviews,
		"uploaded":           result.Uploaded,
		"failed":             result.Failed,
	}).Info("Review photos processed")
	return result, nil
}

// missingReviewPhotos lists the raw photos with no upload tagged with their
// source.
func missingReviewPhotos(review *models.ScrapedReview) []string {
	if len(review.UploadedReviewImages) >= len(review.ReviewImages) {
		return nil
	}
	uploaded := make(map[string]bool, len(review.UploadedReviewImages))
	for _, u := range review.UploadedReviewImages {
		if tag, _, ok := strings.Cut(path.Base(u), "_"); ok {
			uploaded[tag] = true
		}
	}

	var missing []string
	seen := map[string]bool{}
	for _, raw := range review.ReviewImages {
		tag := SourceTag(raw)
		if uploaded[tag] || seen[tag] {
			continue
		}
		seen[tag] = true
		missing = append(missing, raw)
	}
	return missing
}

func appendUnique(list []string, more []string) []string {
	out := append([]string{}, list...)
	for _, m := range more {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}

// mutateDraft loads a draft under its lock, checks the caller's version,
// applies fn and writes it back with the optimistic check.
func (s *CurationService) mutateDraft(ctx context.Context, id uuid.UUID, version *int, fn func(*models.ProductDraft) error) (*models.ProductDraft, error) {
	var draft *models.ProductDraft
	err := withLock(ctx, s.locker, "draft", id, func() error {
		var err error
		draft, err = s.store.Drafts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if version != nil && *version != draft.Version {
			return repository.ErrVersionConflict
		}
		from := draft.Status
		if err := fn(draft); err != nil {
			return err
		}
		if err := s.store.Drafts().Update(ctx, draft); err != nil {
			return err
		}
		if from != draft.Status {
			logrus.WithFields(logrus.Fields{
				"draft_id": id,
				"from":     from,
				"status":   draft.Status,
			}).Info("Draft status changed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

func checkTransition(d *models.ProductDraft, to models.DraftStatus) error {
	if !models.CanTransition(d.Status, to) {
		return &StateConflictError{ID: d.ID, From: d.Status, To: to}
	}
	return nil
}

func stampReview(d *models.ProductDraft, reviewedBy string) {
	now := time.Now()
	d.ReviewedAt = &now
	if reviewedBy != "" {
		d.ReviewedBy = &reviewedBy
	}
}

func optionalCents(c int64) *int64 {
	if c <= 0 {
		return nil
	}
	return &c
}
