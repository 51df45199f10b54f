package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/curation-backend/internal/ai"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/scraper"
	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/testutil"
)

func TestTranslateDraftSuccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.adapter.set(chichaCrystal(h), reviewSet(map[int]int{5: 8, 4: 4, 2: 2}))

	scraped, draft := h.scrapeAndSend(t, "translate")

	draft, err := h.translation.TranslateDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusTranslated, draft.Status)
	assert.Nil(t, draft.TranslationError)
	require.NotNil(t, draft.AIName)
	assert.Equal(t, "Chicha Cristal", *draft.AIName)
	require.NotNil(t, draft.AISuggestedPrice)
	assert.Equal(t, int64(5990), *draft.AISuggestedPrice)
	require.NotNil(t, draft.AIPromptVersion)
	assert.Equal(t, "test-v1", *draft.AIPromptVersion)

	// Up to ten reviews are translated before the copy is written.
	reviews, err := h.store.ScrapedReviews().ListByProduct(ctx, scraped.ID)
	require.NoError(t, err)
	translated := 0
	for _, r := range reviews {
		if r.TranslationStatus == models.TranslationStatusTranslated {
			translated++
		}
	}
	assert.Equal(t, min(10, len(reviews)), translated)

	require.Len(t, h.translator.ProductCalls, 1)
	input := h.translator.ProductCalls[0]
	assert.Equal(t, "Chicha Crystal", input.Name)
	assert.Equal(t, "49,99 €", input.PriceHint)
	assert.LessOrEqual(t, len(input.Reviews), 5)
	for _, snippet := range input.Reviews {
		assert.GreaterOrEqual(t, snippet.Rating, 4)
		assert.Contains(t, snippet.Text, "FR: ")
	}
}

func TestTranslateDraftIsolatesReviewFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.adapter.set(chichaCrystal(h), []scraper.ReviewCandidate{
		{Text: "Parfait", Rating: 5},
		{Text: "Cassé", Rating: 1},
	})
	h.translator.ReviewErrs["Cassé"] = &ai.APIError{StatusCode: 500, Status: "500 Internal Server Error"}

	scraped, draft := h.scrapeAndSend(t, "review-failure")

	draft, err := h.translation.TranslateDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusTranslated, draft.Status)
	assert.Nil(t, draft.TranslationError)

	reviews, err := h.store.ScrapedReviews().ListByProduct(ctx, scraped.ID)
	require.NoError(t, err)
	for _, r := range reviews {
		switch r.ReviewText {
		case "Parfait":
			assert.Equal(t, models.TranslationStatusTranslated, r.TranslationStatus)
		case "Cassé":
			assert.Equal(t, models.TranslationStatusFailed, r.TranslationStatus)
			assert.NotNil(t, r.TranslationError)
		}
	}
}

func TestTranslateDraftRateLimitedIsTranslatedWithError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	draft, err := h.curation.CreateDraft(ctx, &services.CreateDraftRequest{Name: "Chicha"})
	require.NoError(t, err)

	h.translator.ProductErr = ai.ErrRateLimited
	draft, err = h.translation.TranslateDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusTranslated, draft.Status)
	require.NotNil(t, draft.TranslationError)

	stored, err := h.store.Drafts().GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusTranslated, stored.Status)
}

func TestTranslateDraftRequiresPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	draft, err := h.curation.CreateDraft(ctx, &services.CreateDraftRequest{Name: "Chicha"})
	require.NoError(t, err)
	_, err = h.translation.TranslateDraft(ctx, draft.ID)
	require.NoError(t, err)

	_, err = h.translation.TranslateDraft(ctx, draft.ID)
	var conflict *services.StateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, models.DraftStatusTranslated, conflict.From)
}

func TestBatchTranslate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := h.curation.CreateDraft(ctx, &services.CreateDraftRequest{Name: fmt.Sprintf("Produit %d", i)})
		require.NoError(t, err)
	}

	result, err := h.translation.BatchTranslate(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 3, result.Translated)
	assert.Zero(t, result.Failed)
	assert.False(t, result.Stopped)

	pending, err := h.store.Drafts().ListByStatus(ctx, models.DraftStatusPendingTranslation, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Produit 3", pending[0].RawName)
}

func TestBatchTranslateCountsFailuresAndStopsOnRateLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := h.curation.CreateDraft(ctx, &services.CreateDraftRequest{Name: fmt.Sprintf("Produit %d", i)})
		require.NoError(t, err)
	}

	h.translator.ProductErr = errors.New("bad gateway")
	result, err := h.translation.BatchTranslate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Errors, 1)

	h.translator.ProductErr = ai.ErrRateLimited
	result, err = h.translation.BatchTranslate(ctx, 10)
	require.NoError(t, err)
	assert.True(t, result.Stopped)
	assert.Equal(t, 1, result.Processed)

	// The rate limited draft is translated with its error; the last one was never tried.
	pending, err := h.store.Drafts().ListByStatus(ctx, models.DraftStatusPendingTranslation, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	counts, err := h.store.Drafts().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.DraftStatusTranslated])
}

func TestBatchTranslateReviews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reviews := []scraper.ReviewCandidate{
		{Text: "Sans photo 1", Rating: 5},
		{Text: "Sans photo 2", Rating: 4},
		{Text: "", Rating: 5},
		{Text: "Avec photo", Rating: 5, Images: []string{h.imageURL("p.png")}},
		{Text: "Erreur", Rating: 3},
	}
	h.adapter.set(chichaCrystal(h), reviews)
	h.translator.ReviewErrs["Erreur"] = errors.New("boom")

	_, err := h.scrape.Scrape(ctx, pageURL("review-batch"))
	require.NoError(t, err)

	result, err := h.translation.BatchTranslateReviews(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	require.NotEmpty(t, h.translator.ReviewCalls)
	assert.Equal(t, "Avec photo", h.translator.ReviewCalls[0])

	result, err = h.translation.BatchTranslateReviews(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Translated)
	assert.Equal(t, 1, result.Failed)

	stats, err := h.translation.ReviewStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(4), stats.Translated)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Zero(t, stats.Pending)

	// The rating-only review never reached the AI.
	for _, text := range h.translator.ReviewCalls {
		assert.NotEmpty(t, text)
	}
}

func TestBatchTranslateReviewsStopsOnRateLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.adapter.set(chichaCrystal(h), reviewSet(map[int]int{5: 6}))
	h.translator.ReviewErr = ai.ErrRateLimited

	_, err := h.scrape.Scrape(ctx, pageURL("review-429"))
	require.NoError(t, err)

	result, err := h.translation.BatchTranslateReviews(ctx, 10)
	require.NoError(t, err)
	assert.True(t, result.Stopped)
	assert.Equal(t, 1, result.Failed)
	_, calls := h.translator.Calls()
	assert.Equal(t, 1, calls)

	stats, err := h.translation.ReviewStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats.Total, stats.Pending)
}

// staleReviewStore serves a pending list read before another run claimed
// some of its reviews.
type staleReviewStore struct {
	*testutil.MemoryStore
	snapshot []models.ScrapedReview
}

type staleReviews struct {
	repository.ScrapedReviewRepository
	snapshot []models.ScrapedReview
}

func (s staleReviewStore) ScrapedReviews() repository.ScrapedReviewRepository {
	return staleReviews{ScrapedReviewRepository: s.MemoryStore.ScrapedReviews(), snapshot: s.snapshot}
}

func (r staleReviews) ListPending(ctx context.Context, productID *uuid.UUID, limit int) ([]models.ScrapedReview, error) {
	return append([]models.ScrapedReview{}, r.snapshot...), nil
}

func TestBatchTranslateReviewsSkipsClaimedReviews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.adapter.set(chichaCrystal(h), reviewSet(map[int]int{5: 2}))

	_, err := h.scrape.Scrape(ctx, pageURL("review-claim"))
	require.NoError(t, err)
	pending, err := h.store.ScrapedReviews().ListPending(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// Another run takes the first review after the list was read.
	require.NoError(t, h.store.ScrapedReviews().ClaimForTranslation(ctx, pending[0].ID))

	store := staleReviewStore{MemoryStore: h.store, snapshot: pending}
	translation := services.NewTranslationService(store, h.translator, h.locker, 0)

	result, err := translation.BatchTranslateReviews(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Translated)
	_, calls := h.translator.Calls()
	assert.Equal(t, 1, calls)

	claimed, err := h.store.ScrapedReviews().GetByID(ctx, pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranslationStatusTranslating, claimed.TranslationStatus)

	done, err := h.store.ScrapedReviews().GetByID(ctx, pending[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TranslationStatusTranslated, done.TranslationStatus)
	assert.ErrorIs(t, h.store.ScrapedReviews().ClaimForTranslation(ctx, pending[1].ID), repository.ErrConditionFailed)
}
