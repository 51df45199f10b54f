// internal/services/translation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/curation-backend/internal/ai"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
)

const (
	// draftReviewLimit caps the reviews translated inline with a draft.
	draftReviewLimit = 10
	// contextReviewLimit caps the translated reviews fed to product copy.
	contextReviewLimit = 5

	DefaultReviewBatchSize = 10
)

// Translator is the AI surface the pipeline needs; *ai.Client satisfies it.
type Translator interface {
	TranslateProduct(ctx context.Context, in ai.ProductInput) (*ai.ProductTranslation, error)
	TranslateReview(ctx context.Context, text, language string) (string, error)
	Model() string
	PromptVersion() string
}

type TranslationService struct {
	store      repository.Store
	translator Translator
	locker     Locker
	delay      time.Duration

	reviewBatch int
}

// BatchResult reports a sequential batch. Stopped is set when the batch
// ended early because the AI endpoint rate limited us.
type BatchResult struct {
	Processed  int      `json:"processed"`
	Translated int      `json:"translated"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
	Stopped    bool     `json:"stopped"`
}

func newBatchResult() *BatchResult {
	return &BatchResult{Errors: []string{}}
}

func NewTranslationService(store repository.Store, translator Translator, locker Locker, delay time.Duration) *TranslationService {
	return &TranslationService{
		store:      store,
		translator: translator,
		locker:     locker,
		delay:      delay,

		reviewBatch: DefaultReviewBatchSize,
	}
}

// SetReviewBatchSize changes the review batch used when no limit is given.
func (s *TranslationService) SetReviewBatchSize(n int) {
	if n > 0 {
		s.reviewBatch = n
	}
}

// TranslateDraft runs a pending_translation draft through the AI. A failed
// AI call does not fail the operation: the draft lands in translated with
// translation_error set, or back in pending_translation when rate limited.
func (s *TranslationService) TranslateDraft(ctx context.Context, id uuid.UUID) (*models.ProductDraft, error) {
	outcome, err := s.translateDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	return outcome.draft, nil
}

// draftOutcome carries the AI failure apart from structural errors.
type draftOutcome struct {
	draft    *models.ProductDraft
	aiFailed error
}

func (s *TranslationService) translateDraft(ctx context.Context, id uuid.UUID) (*draftOutcome, error) {
	var (
		draft    *models.ProductDraft
		aiFailed error
	)
	err := withLock(ctx, s.locker, "draft", id, func() error {
		var err error
		draft, err = s.store.Drafts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !models.CanTransition(draft.Status, models.DraftStatusTranslating) {
			return &StateConflictError{ID: id, From: draft.Status, To: models.DraftStatusTranslating}
		}

		draft.Status = models.DraftStatusTranslating
		if err := s.store.Drafts().Update(ctx, draft); err != nil {
			return err
		}

		log := logrus.WithField("draft_id", id)

		var reviews []ai.ReviewSnippet
		if draft.ScrapedProductID != nil {
			s.translatePendingReviews(ctx, *draft.ScrapedProductID)
			reviews = s.contextReviews(ctx, *draft.ScrapedProductID)
		}

		translation, err := s.translator.TranslateProduct(ctx, productInput(draft, reviews))
		if err != nil {
			aiFailed = &TranslationError{DraftID: &id, Err: err}
			msg := err.Error()
			draft.TranslationError = &msg
			draft.Status = models.DraftStatusTranslated
			log.WithError(err).WithField("status", draft.Status).Warn("Draft translation failed")
			return s.store.Drafts().Update(ctx, draft)
		}

		now := time.Now()
		model := s.translator.Model()
		promptVersion := s.translator.PromptVersion()
		price := translation.SuggestedPriceCents
		draft.AIName = &translation.Name
		draft.AIDescription = &translation.Description
		draft.AIShortDescription = &translation.ShortDescription
		draft.AICategory = &translation.Category
		draft.AISuggestedPrice = &price
		draft.AIModel = &model
		draft.AIPromptVersion = &promptVersion
		draft.TranslatedAt = &now
		draft.TranslationError = nil
		draft.Status = models.DraftStatusTranslated
		if err := s.store.Drafts().Update(ctx, draft); err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"context_reviews": len(reviews),
			"category":        translation.Category,
		}).Info("Draft translated")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &draftOutcome{draft: draft, aiFailed: aiFailed}, nil
}

// BatchTranslate translates up to limit pending drafts one at a time,
// oldest first, and stops early when rate limited.
func (s *TranslationService) BatchTranslate(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	drafts, err := s.store.Drafts().ListByStatus(ctx, models.DraftStatusPendingTranslation, limit)
	if err != nil {
		return nil, err
	}

	result := newBatchResult()
	for i, d := range drafts {
		if i > 0 && !s.pause(ctx) {
			break
		}

		result.Processed++
		outcome, err := s.translateDraft(ctx, d.ID)
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("draft %s (%s): %v", d.ID, d.RawName, err))
		case outcome.aiFailed != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("draft %s (%s): %v", d.ID, d.RawName, outcome.aiFailed))
			if errors.Is(outcome.aiFailed, ai.ErrRateLimited) {
				result.Stopped = true
			}
		default:
			result.Translated++
		}
		if result.Stopped {
			result.Errors = append(result.Errors, "rate limited, stopping batch")
			break
		}
	}

	logrus.WithFields(logrus.Fields{
		"processed":  result.Processed,
		"translated": result.Translated,
		"failed":     result.Failed,
		"stopped":    result.Stopped,
	}).Info("Draft translation batch finished")
	return result, nil
}

// BatchTranslateReviews translates up to limit pending reviews across all
// products, those with photos first.
func (s *TranslationService) BatchTranslateReviews(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = s.reviewBatch
	}
	// Over-fetch so photo reviews win even when older text-only ones exist.
	pending, err := s.store.ScrapedReviews().ListPending(ctx, nil, limit*3)
	if err != nil {
		return nil, err
	}
	if len(pending) > limit {
		pending = pending[:limit]
	}

	result := s.translateReviews(ctx, pending)
	logrus.WithFields(logrus.Fields{
		"processed":  result.Processed,
		"translated": result.Translated,
		"failed":     result.Failed,
		"stopped":    result.Stopped,
	}).Info("Review translation batch finished")
	return result, nil
}

func (s *TranslationService) ReviewStats(ctx context.Context) (*repository.ReviewStats, error) {
	return s.store.ScrapedReviews().Stats(ctx)
}

// translatePendingReviews handles the product's own pending reviews before
// its copy is written. Failures stay on the reviews.
func (s *TranslationService) translatePendingReviews(ctx context.Context, productID uuid.UUID) {
	pending, err := s.store.ScrapedReviews().ListPending(ctx, &productID, draftReviewLimit)
	if err != nil {
		logrus.WithError(err).WithField("scraped_product_id", productID).Warn("Failed to load pending reviews")
		return
	}
	if len(pending) == 0 {
		return
	}
	result := s.translateReviews(ctx, pending)
	logrus.WithFields(logrus.Fields{
		"scraped_product_id": productID,
		"translated":         result.Translated,
		"failed":             result.Failed,
	}).Info("Translated product reviews")
}

// contextReviews picks translated reviews rated 4+ to enrich product copy.
func (s *TranslationService) contextReviews(ctx context.Context, productID uuid.UUID) []ai.ReviewSnippet {
	reviews, err := s.store.ScrapedReviews().ListByProduct(ctx, productID)
	if err != nil {
		logrus.WithError(err).WithField("scraped_product_id", productID).Warn("Failed to load reviews for context")
		return nil
	}

	var snippets []ai.ReviewSnippet
	for _, r := range reviews {
		if len(snippets) == contextReviewLimit {
			break
		}
		if r.TranslationStatus != models.TranslationStatusTranslated || r.Rating < 4 {
			continue
		}
		if r.TranslatedText == nil || strings.TrimSpace(*r.TranslatedText) == "" {
			continue
		}
		snippets = append(snippets, ai.ReviewSnippet{Text: *r.TranslatedText, Rating: r.Rating})
	}
	return snippets
}

// translateReviews processes reviews sequentially. A review is claimed as
// translating before its call, so overlapping runs skip it. Each failure is
// stored on its review; a rate limit puts it back to pending and stops the run.
func (s *TranslationService) translateReviews(ctx context.Context, reviews []models.ScrapedReview) *BatchResult {
	result := newBatchResult()
	called := false

	for i := range reviews {
		review := &reviews[i]
		log := logrus.WithFields(logrus.Fields{
			"review_id":          review.ID,
			"scraped_product_id": review.ScrapedProductID,
		})
		result.Processed++

		// Rating-only reviews need no call.
		if strings.TrimSpace(review.ReviewText) == "" {
			empty := ""
			review.TranslatedText = &empty
			review.TranslationStatus = models.TranslationStatusTranslated
			review.TranslationError = nil
			if err := s.store.ScrapedReviews().Save(ctx, review); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("review %s: %v", review.ID, err))
				continue
			}
			result.Translated++
			continue
		}

		if called && !s.pause(ctx) {
			result.Processed--
			break
		}
		called = true

		if err := s.store.ScrapedReviews().ClaimForTranslation(ctx, review.ID); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				// Another run is translating it.
				result.Processed--
				continue
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("review %s: %v", review.ID, err))
			continue
		}
		review.TranslationStatus = models.TranslationStatusTranslating

		language := ""
		if review.OriginalLanguage != nil {
			language = *review.OriginalLanguage
		}
		text, err := s.translator.TranslateReview(ctx, review.ReviewText, language)
		if err != nil {
			translationErr := &TranslationError{ReviewID: &review.ID, Err: err}
			result.Failed++
			result.Errors = append(result.Errors, translationErr.Error())

			if errors.Is(err, ai.ErrRateLimited) {
				review.TranslationStatus = models.TranslationStatusPending
				if saveErr := s.store.ScrapedReviews().Save(ctx, review); saveErr != nil {
					log.WithError(saveErr).Warn("Failed to release rate limited review")
				}
				log.Warn("Rate limited, stopping review translation")
				result.Stopped = true
				break
			}

			msg := err.Error()
			review.TranslationStatus = models.TranslationStatusFailed
			review.TranslationError = &msg
			if saveErr := s.store.ScrapedReviews().Save(ctx, review); saveErr != nil {
				log.WithError(saveErr).Warn("Failed to record review translation failure")
			}
			log.WithError(err).Warn("Review translation failed")
			continue
		}

		review.TranslatedText = &text
		review.TranslationStatus = models.TranslationStatusTranslated
		review.TranslationError = nil
		if err := s.store.ScrapedReviews().Save(ctx, review); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("review %s: %v", review.ID, err))
			continue
		}
		result.Translated++
		log.WithField("rating", review.Rating).Debug("Review translated")
	}
	return result
}

// pause waits the configured delay between AI calls. It reports false when
// ctx ended first.
func (s *TranslationService) pause(ctx context.Context) bool {
	if s.delay <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(s.delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func productInput(d *models.ProductDraft, reviews []ai.ReviewSnippet) ai.ProductInput {
	in := ai.ProductInput{
		Name:    d.RawName,
		Reviews: reviews,
	}
	if d.RawDescription != nil {
		in.Description = *d.RawDescription
	}
	if d.RawCategory != nil {
		in.Category = *d.RawCategory
	}
	if d.RawPriceText != nil {
		in.PriceHint = *d.RawPriceText
	}
	if d.RawSourceName != nil {
		in.SourceName = *d.RawSourceName
	}
	return in
}
