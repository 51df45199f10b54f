// internal/services/publisher.go
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/javajoker/curation-backend/internal/config"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
)

const maxSlugLength = 80

// deliveryKeywords flag reviews about shipping rather than the product.
var deliveryKeywords = []string{
	"livraison", "delivery", "shipping", "доставка", "entrega", "משלוח",
	"colis", "package", "посылка", "paquete", "חבילה",
	"délai", "delay", "ожидание", "espera",
	"rapide", "fast", "быстро",
	"lent", "slow", "долго",
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

type Publisher struct {
	store       repository.Store
	locker      Locker
	invalidator Invalidator
	config      config.CatalogConfig
}

type SyncResult struct {
	Matched int `json:"matched"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

func NewPublisher(store repository.Store, locker Locker, invalidator Invalidator, cfg config.CatalogConfig) *Publisher {
	if cfg.DefaultReviewerName == "" {
		cfg.DefaultReviewerName = "Client Nuage"
	}
	if cfg.ProductPathPrefix == "" {
		cfg.ProductPathPrefix = "/produits/"
	}
	return &Publisher{
		store:       store,
		locker:      locker,
		invalidator: invalidator,
		config:      cfg,
	}
}

// Publish creates a catalog product from the draft's effective values at
// this instant. Each call creates a new product.
func (p *Publisher) Publish(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product *models.Product
	err := withLock(ctx, p.locker, "draft", id, func() error {
		draft, err := p.store.Drafts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if draft.Status != models.DraftStatusApproved {
			return &StateConflictError{ID: id, From: draft.Status, To: models.DraftStatusPublished}
		}
		if missing := models.MissingForApproval(draft); len(missing) > 0 {
			return &DraftIncompleteError{DraftID: id, Missing: missing}
		}

		product, err = p.buildProduct(ctx, draft)
		if err != nil {
			return err
		}

		err = p.store.Transaction(ctx, func(tx repository.Store) error {
			if err := tx.Catalog().CreateProduct(ctx, product); err != nil {
				return err
			}
			now := time.Now()
			draft.Status = models.DraftStatusPublished
			draft.PublishedProductID = &product.ID
			draft.PublishedAt = &now
			return tx.Drafts().Update(ctx, draft)
		})
		if err != nil {
			return err
		}

		log := logrus.WithFields(logrus.Fields{
			"draft_id":   id,
			"product_id": product.ID,
			"slug":       product.Slug,
		})
		log.Info("Draft published")

		if draft.ScrapedProductID != nil {
			p.copyReviews(ctx, product, *draft.ScrapedProductID)
		}

		p.invalidate(ctx, product.Slug)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (p *Publisher) buildProduct(ctx context.Context, draft *models.ProductDraft) (*models.Product, error) {
	name, _ := models.EffectiveName(draft)
	description, _ := models.EffectiveDescription(draft)
	short, _ := models.EffectiveShortDescription(draft)
	category, _ := models.EffectiveCategory(draft)
	price, _ := models.EffectivePrice(draft)

	slug, err := p.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	var compareAt *int64
	if draft.CuratedCompareAtPrice != nil && *draft.CuratedCompareAtPrice > 0 {
		c := *draft.CuratedCompareAtPrice
		compareAt = &c
	}

	return &models.Product{
		Slug:             slug,
		Name:             strings.TrimSpace(name),
		Description:      description,
		ShortDescription: short,
		Category:         models.ProductCategory(strings.ToLower(strings.TrimSpace(category))),
		Price:            price,
		CompareAtPrice:   compareAt,
		Images:           models.PublishableImages(draft),
		InStock:          true,
		Featured:         false,
	}, nil
}

// copyReviews turns the translated scraped reviews into catalog reviews.
// A review that fails to copy is logged and skipped.
func (p *Publisher) copyReviews(ctx context.Context, product *models.Product, scrapedProductID uuid.UUID) {
	log := logrus.WithFields(logrus.Fields{
		"product_id":         product.ID,
		"scraped_product_id": scrapedProductID,
	})

	reviews, err := p.store.ScrapedReviews().ListByProduct(ctx, scrapedProductID)
	if err != nil {
		log.WithError(err).Warn("Failed to load reviews for publishing")
		return
	}

	var (
		copied int64
		total  int
	)
	for i := range reviews {
		review := &reviews[i]
		if review.TranslationStatus != models.TranslationStatusTranslated {
			continue
		}
		comment := reviewComment(review)
		if isDeliveryReview(comment) {
			continue
		}

		catalogReview := &models.ProductReview{
			ProductID:        product.ID,
			UserName:         p.reviewerName(review),
			Rating:           review.Rating,
			Comment:          comment,
			ReviewPhotos:     append([]string{}, review.Photos()...),
			VerifiedPurchase: true,
		}
		if err := p.store.Catalog().CreateReview(ctx, catalogReview); err != nil {
			log.WithError(err).WithField("review_id", review.ID).Warn("Failed to copy review")
			continue
		}
		copied++
		total += review.Rating
	}

	if copied == 0 {
		return
	}
	rating := float64(total) / float64(copied)
	if err := p.store.Catalog().UpdateProductRating(ctx, product.ID, rating, copied); err != nil {
		log.WithError(err).Warn("Failed to update product rating")
		return
	}
	product.Rating = rating
	product.ReviewCount = copied
	log.WithField("reviews", copied).Info("Copied reviews to catalog")
}

// Unpublish removes the catalog product and returns the draft to approved.
// The draft's reference is cleared before the product row is deleted.
func (p *Publisher) Unpublish(ctx context.Context, id uuid.UUID) (*models.ProductDraft, error) {
	var draft *models.ProductDraft
	err := withLock(ctx, p.locker, "draft", id, func() error {
		var err error
		draft, err = p.store.Drafts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if draft.Status != models.DraftStatusPublished || draft.PublishedProductID == nil {
			return &StateConflictError{ID: id, From: draft.Status, To: models.DraftStatusApproved}
		}

		productID := *draft.PublishedProductID
		slug := ""
		if product, err := p.store.Catalog().GetProduct(ctx, productID); err == nil {
			slug = product.Slug
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		err = p.store.Transaction(ctx, func(tx repository.Store) error {
			draft.Status = models.DraftStatusApproved
			draft.PublishedProductID = nil
			draft.PublishedAt = nil
			if err := tx.Drafts().Update(ctx, draft); err != nil {
				return err
			}
			if err := tx.Catalog().DeleteProduct(ctx, productID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			return nil
		})
		if err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"draft_id":   id,
			"product_id": productID,
		}).Info("Draft unpublished")

		if slug != "" {
			p.invalidate(ctx, slug)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// SyncPublishedReviewImages pushes the latest text and photos of scraped
// reviews onto the catalog reviews created at publish time. Catalog reviews
// are matched by product, rating and author, not by id.
func (p *Publisher) SyncPublishedReviewImages(ctx context.Context, id uuid.UUID) (*SyncResult, error) {
	draft, err := p.store.Drafts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.Status != models.DraftStatusPublished || draft.PublishedProductID == nil {
		return nil, &StateConflictError{ID: id, From: draft.Status, Reason: "draft is not published"}
	}
	if draft.ScrapedProductID == nil {
		return &SyncResult{}, nil
	}

	reviews, err := p.store.ScrapedReviews().ListByProduct(ctx, *draft.ScrapedProductID)
	if err != nil {
		return nil, err
	}

	productID := *draft.PublishedProductID
	log := logrus.WithFields(logrus.Fields{"draft_id": id, "product_id": productID})
	result := &SyncResult{}

	for i := range reviews {
		review := &reviews[i]
		userName := p.reviewerName(review)

		catalogReview, err := p.store.Catalog().FindReview(ctx, productID, review.Rating, userName)
		if errors.Is(err, repository.ErrNotFound) {
			result.Skipped++
			log.WithFields(logrus.Fields{
				"review_id": review.ID,
				"rating":    review.Rating,
				"user_name": userName,
			}).Debug("No catalog review matches, skipping")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to match review %s: %w", review.ID, err)
		}
		result.Matched++

		catalogReview.Comment = reviewComment(review)
		catalogReview.ReviewPhotos = append([]string{}, review.Photos()...)
		if err := p.store.Catalog().UpdateReview(ctx, catalogReview); err != nil {
			log.WithError(err).WithField("review_id", review.ID).Warn("Failed to update catalog review")
			continue
		}
		result.Updated++
	}

	log.WithFields(logrus.Fields{
		"matched": result.Matched,
		"updated": result.Updated,
		"skipped": result.Skipped,
	}).Info("Review images synced")
	return result, nil
}

func (p *Publisher) reviewerName(r *models.ScrapedReview) string {
	if r.AuthorName != nil && strings.TrimSpace(*r.AuthorName) != "" {
		return strings.TrimSpace(*r.AuthorName)
	}
	return p.config.DefaultReviewerName
}

func (p *Publisher) invalidate(ctx context.Context, slug string) {
	path := p.config.ProductPathPrefix + slug
	if err := p.invalidator.Invalidate(ctx, path, "/"); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("Failed to publish cache invalidation")
	}
}

func (p *Publisher) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	slug := base
	for n := 2; ; n++ {
		exists, err := p.store.Catalog().SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// Slugify folds accents and keeps lowercase ASCII letters and digits joined
// by single hyphens.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}
	slug := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(folded), "-"), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return "produit"
	}
	return slug
}

func reviewComment(r *models.ScrapedReview) string {
	if text := strings.TrimSpace(r.EffectiveText()); text != "" {
		return text
	}
	return "⭐"
}

func isDeliveryReview(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range deliveryKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
