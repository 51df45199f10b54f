// internal/services/scrape_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/scraper"
)

type ScrapeService struct {
	store    repository.Store
	registry *scraper.Registry
	fetcher  scraper.Fetcher
	browser  scraper.Fetcher
	locker   Locker
	delay    time.Duration
	sampling scraper.SampleOptions
}

type ScrapeRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

type BatchScrapeRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,max=50,dive,required,http_url"`
}

type ScrapeResult struct {
	Product      *models.ScrapedProduct `json:"product"`
	ReviewsFound int                    `json:"reviews_found"`
	ReviewsSaved int                    `json:"reviews_saved"`
	SampleStats  *scraper.SampleStats   `json:"sample_stats,omitempty"`
}

type ScrapeFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type BatchScrapeResult struct {
	Results []*models.ScrapedProduct `json:"results"`
	Errors  []ScrapeFailure          `json:"errors"`
}

type RescrapeResult struct {
	NewReviews   int `json:"new_reviews"`
	TotalReviews int `json:"total_reviews"`
}

// NewScrapeService wires the scrape engine. browser may be nil; when set it
// serves adapters that declare NeedsRendering.
func NewScrapeService(store repository.Store, registry *scraper.Registry, fetcher, browser scraper.Fetcher, locker Locker, delay time.Duration) *ScrapeService {
	return &ScrapeService{
		store:    store,
		registry: registry,
		fetcher:  fetcher,
		browser:  browser,
		locker:   locker,
		delay:    delay,
	}
}

// seedFor derives the sampler seed from the page URL so a page always
// samples the same way.
func seedFor(pageURL string) int64 {
	h := fnv.New64a()
	h.Write([]byte(pageURL))
	return int64(h.Sum64())
}

func validatePageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError(fmt.Errorf("url %q must be an absolute http(s) url", raw))
	}
	return nil
}

// Scrape fetches one page, extracts it and upserts the scraped product keyed
// on the URL. Reviews are sampled and deduplicated against the ones already
// stored for the product.
func (s *ScrapeService) Scrape(ctx context.Context, pageURL string) (*ScrapeResult, error) {
	if err := validatePageURL(pageURL); err != nil {
		return nil, err
	}

	log := logrus.WithField("url", pageURL)

	adapter, err := s.registry.Resolve(pageURL)
	if err != nil {
		return nil, err
	}
	log = log.WithField("adapter", adapter.Name())

	doc, err := s.fetch(ctx, adapter, pageURL)
	if err != nil {
		s.recordFailure(ctx, adapter.Name(), pageURL, err)
		return nil, err
	}

	data, err := adapter.ExtractProduct(doc, pageURL)
	if err != nil {
		var adapterErr *scraper.AdapterError
		if !errors.As(err, &adapterErr) {
			err = &scraper.AdapterError{Adapter: adapter.Name(), URL: pageURL, Err: err}
		}
		s.recordFailure(ctx, adapter.Name(), pageURL, err)
		return nil, err
	}

	product := &models.ScrapedProduct{
		SourceURL:         pageURL,
		SourceName:        adapter.Name(),
		ExternalID:        data.ExternalID,
		RawName:           data.Name,
		RawDescription:    optionalString(data.Description),
		RawPriceText:      optionalString(data.PriceText),
		RawCategory:       optionalString(data.Category),
		RawImages:         append([]string{}, data.Images...),
		UploadedImageURLs: []string{},
		RawMetadata:       models.JSONB(data.Metadata),
		ScrapeStatus:      models.ScrapeStatusSuccess,
		ImageUploadStatus: models.ImageUploadStatusPending,
		ScrapedAt:         time.Now(),
	}
	if err := s.store.ScrapedProducts().Upsert(ctx, product); err != nil {
		return nil, err
	}
	log = log.WithField("scraped_product_id", product.ID)

	result := &ScrapeResult{Product: product}

	extractor, ok := scraper.SupportsReviews(adapter)
	if !ok {
		log.Info("Scraped product")
		return result, nil
	}

	candidates, err := extractor.ExtractReviews(doc, pageURL)
	if err != nil {
		// Review extraction never fails the scrape.
		log.WithError(err).Warn("Review extraction failed")
		return result, nil
	}
	result.ReviewsFound = len(candidates)

	sampled := scraper.Sample(candidates, s.sampleOptions(seedFor(pageURL)))
	stats := scraper.Stats(sampled)
	result.SampleStats = &stats
	if !stats.InTargetBand() {
		log.WithField("average_rating", stats.AverageRating).Warn("Sampled reviews fall outside the target rating band")
	}

	saved, total, err := s.persistNewReviews(ctx, product.ID, sampled)
	if err != nil {
		log.WithError(err).Warn("Failed to save sampled reviews")
		return result, nil
	}
	result.ReviewsSaved = saved
	product.ReviewCount = total

	log.WithFields(logrus.Fields{
		"reviews_found":  len(candidates),
		"reviews_saved":  saved,
		"average_rating": stats.AverageRating,
		"with_photos":    stats.WithPhotos,
	}).Info("Scraped product")
	return result, nil
}

// ScrapeURLs scrapes sequentially with a pause between pages. Per-URL
// failures are collected, not returned.
func (s *ScrapeService) ScrapeURLs(ctx context.Context, urls []string) *BatchScrapeResult {
	batch := &BatchScrapeResult{
		Results: []*models.ScrapedProduct{},
		Errors:  []ScrapeFailure{},
	}

	for i, pageURL := range urls {
		if i > 0 && s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				for _, rest := range urls[i:] {
					batch.Errors = append(batch.Errors, ScrapeFailure{URL: rest, Error: ctx.Err().Error()})
				}
				return batch
			}
		}

		result, err := s.Scrape(ctx, pageURL)
		if err != nil {
			batch.Errors = append(batch.Errors, ScrapeFailure{URL: pageURL, Error: err.Error()})
			continue
		}
		batch.Results = append(batch.Results, result.Product)
	}

	logrus.WithFields(logrus.Fields{
		"total":     len(urls),
		"succeeded": len(batch.Results),
		"failed":    len(batch.Errors),
	}).Info("Batch scrape finished")
	return batch
}

// RescrapeReviews fetches the page again and stores only reviews whose text
// is not already known for the product.
func (s *ScrapeService) RescrapeReviews(ctx context.Context, id uuid.UUID) (*RescrapeResult, error) {
	var result *RescrapeResult
	err := withLock(ctx, s.locker, "scraped", id, func() error {
		product, err := s.store.ScrapedProducts().GetByID(ctx, id)
		if err != nil {
			return err
		}

		adapter, ok := s.registry.Get(product.SourceName)
		if !ok {
			if adapter, err = s.registry.Resolve(product.SourceURL); err != nil {
				return err
			}
		}
		extractor, ok := scraper.SupportsReviews(adapter)
		if !ok {
			return &scraper.AdapterError{
				Adapter: adapter.Name(),
				URL:     product.SourceURL,
				Err:     errors.New("adapter does not support review scraping"),
			}
		}

		doc, err := s.fetch(ctx, adapter, product.SourceURL)
		if err != nil {
			return err
		}
		candidates, err := extractor.ExtractReviews(doc, product.SourceURL)
		if err != nil {
			return &scraper.AdapterError{Adapter: adapter.Name(), URL: product.SourceURL, Err: err}
		}

		// Same seed as the first scrape: an unchanged page yields no new rows.
		sampled := scraper.Sample(candidates, s.sampleOptions(seedFor(product.SourceURL)))

		saved, total, err := s.persistNewReviews(ctx, id, sampled)
		if err != nil {
			return err
		}
		result = &RescrapeResult{NewReviews: saved, TotalReviews: total}

		logrus.WithFields(logrus.Fields{
			"scraped_product_id": id,
			"new_reviews":        saved,
			"total_reviews":      total,
		}).Info("Re-scraped reviews")
		return nil
	})
	return result, err
}

// Retry scrapes the stored URL again.
func (s *ScrapeService) Retry(ctx context.Context, id uuid.UUID) (*ScrapeResult, error) {
	product, err := s.store.ScrapedProducts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Scrape(ctx, product.SourceURL)
}

func (s *ScrapeService) Delete(ctx context.Context, id uuid.UUID) error {
	return withLock(ctx, s.locker, "scraped", id, func() error {
		if err := s.store.ScrapedProducts().Delete(ctx, id); err != nil {
			return err
		}
		logrus.WithField("scraped_product_id", id).Info("Deleted scraped product")
		return nil
	})
}

func (s *ScrapeService) Get(ctx context.Context, id uuid.UUID) (*models.ScrapedProduct, error) {
	return s.store.ScrapedProducts().GetByID(ctx, id)
}

func (s *ScrapeService) ListReviews(ctx context.Context, id uuid.UUID) ([]models.ScrapedReview, error) {
	if _, err := s.store.ScrapedProducts().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ScrapedReviews().ListByProduct(ctx, id)
}

func (s *ScrapeService) List(ctx context.Context, filter repository.ScrapedFilter) ([]models.ScrapedProduct, int64, error) {
	return s.store.ScrapedProducts().List(ctx, filter)
}

// ListUnsent returns successful products not yet sent to curation, oldest first.
func (s *ScrapeService) ListUnsent(ctx context.Context, limit int) ([]models.ScrapedProduct, error) {
	return s.store.ScrapedProducts().ListUnsent(ctx, limit)
}

func (s *ScrapeService) Stats(ctx context.Context) (*repository.ScrapedStats, error) {
	return s.store.ScrapedProducts().Stats(ctx)
}

func (s *ScrapeService) sampleOptions(seed int64) scraper.SampleOptions {
	opts := s.sampling
	opts.Seed = seed
	return opts
}

func (s *ScrapeService) fetch(ctx context.Context, adapter scraper.Adapter, pageURL string) (*goquery.Document, error) {
	if s.browser != nil && scraper.NeedsRendering(adapter) {
		doc, err := s.browser.Fetch(ctx, pageURL)
		if err == nil {
			return doc, nil
		}
		logrus.WithError(err).WithField("url", pageURL).Warn("Rendered fetch failed, falling back to plain HTTP")
	}
	return s.fetcher.Fetch(ctx, pageURL)
}

// persistNewReviews stores the sampled reviews not already known for the
// product and updates its review count. It returns the number saved and the
// new total.
func (s *ScrapeService) persistNewReviews(ctx context.Context, productID uuid.UUID, sampled []scraper.ReviewCandidate) (int, int, error) {
	existing, err := s.store.ScrapedReviews().ListByProduct(ctx, productID)
	if err != nil {
		return 0, 0, err
	}
	texts := make([]string, len(existing))
	for i, r := range existing {
		texts[i] = r.ReviewText
	}

	fresh := scraper.FilterNew(texts, sampled)
	if len(fresh) > 0 {
		reviews := make([]models.ScrapedReview, len(fresh))
		for i, c := range fresh {
			reviews[i] = models.ScrapedReview{
				ScrapedProductID:     productID,
				ReviewText:           c.Text,
				Rating:               c.Rating,
				AuthorName:           optionalString(c.AuthorName),
				AuthorCountry:        optionalString(c.AuthorCountry),
				ReviewDate:           optionalString(c.Date),
				ReviewImages:         append([]string{}, c.Images...),
				UploadedReviewImages: []string{},
				OriginalLanguage:     optionalString(c.Language),
				TranslationStatus:    models.TranslationStatusPending,
			}
		}
		if err := s.store.ScrapedReviews().CreateBatch(ctx, reviews); err != nil {
			return 0, 0, err
		}
	}

	total := len(existing) + len(fresh)
	if err := s.store.ScrapedProducts().UpdateReviewCount(ctx, productID, total); err != nil {
		return len(fresh), total, err
	}
	return len(fresh), total, nil
}

// recordFailure marks the product for pageURL as failed. A URL that was never
// scraped successfully gets an error row with empty raw fields, so the failure
// can be inspected and retried.
func (s *ScrapeService) recordFailure(ctx context.Context, source, pageURL string, cause error) {
	log := logrus.WithField("url", pageURL).WithError(cause)
	msg := cause.Error()

	product, err := s.store.ScrapedProducts().GetBySourceURL(ctx, pageURL)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		product = &models.ScrapedProduct{
			SourceURL:         pageURL,
			SourceName:        source,
			RawImages:         []string{},
			UploadedImageURLs: []string{},
			ScrapeStatus:      models.ScrapeStatusError,
			ErrorMessage:      &msg,
			ImageUploadStatus: models.ImageUploadStatusPending,
			ScrapedAt:         time.Now(),
		}
		err = s.store.ScrapedProducts().Upsert(ctx, product)
	case err != nil:
		log.WithField("lookup_error", err.Error()).Warn("Failed to look up product for failure record")
		log.Warn("Scrape failed")
		return
	default:
		product.ScrapeStatus = models.ScrapeStatusError
		product.ErrorMessage = &msg
		product.ScrapedAt = time.Now()
		err = s.store.ScrapedProducts().Save(ctx, product)
	}
	if err != nil {
		log.WithField("save_error", err.Error()).Warn("Failed to record scrape failure")
		return
	}
	log.WithField("scraped_product_id", product.ID).Warn("Scrape failed")
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
