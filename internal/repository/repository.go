// Package repository is the persistence boundary of the pipeline. Services
// depend on the Store interface; the gorm implementation backs production and
// testutil provides an in-memory one.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/utils"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict means the row changed since it was read.
	ErrVersionConflict = errors.New("record was modified concurrently")
	// ErrConditionFailed means a guarded update matched no row.
	ErrConditionFailed = errors.New("update condition not met")
)

type ScrapedFilter struct {
	utils.PaginationParams
	SourceName     string
	Status         models.ScrapeStatus
	SentToCuration *bool
}

type DraftFilter struct {
	utils.PaginationParams
	Statuses []models.DraftStatus
}

type ScrapedStats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
	Sent    int64 `json:"sent"`
	Unsent  int64 `json:"unsent"`
}

type ReviewStats struct {
	Total       int64         `json:"total"`
	Pending     int64         `json:"pending"`
	Translating int64         `json:"translating"`
	Translated  int64         `json:"translated"`
	Failed      int64         `json:"failed"`
	WithPhotos  int64         `json:"with_photos"`
	ByRating    map[int]int64 `json:"by_rating"`
}

type ScrapedProductRepository interface {
	Create(ctx context.Context, p *models.ScrapedProduct) error
	// Upsert inserts or updates by source URL and reloads p with the stored row.
	Upsert(ctx context.Context, p *models.ScrapedProduct) error
	Save(ctx context.Context, p *models.ScrapedProduct) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ScrapedProduct, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (*models.ScrapedProduct, error)
	// MarkSentToCuration flips the flag only if it is still false.
	MarkSentToCuration(ctx context.Context, id, draftID uuid.UUID) error
	// ReleaseDraft clears the draft back-reference so the product can be sent again.
	ReleaseDraft(ctx context.Context, draftID uuid.UUID) error
	UpdateReviewCount(ctx context.Context, id uuid.UUID, count int) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ScrapedFilter) ([]models.ScrapedProduct, int64, error)
	ListUnsent(ctx context.Context, limit int) ([]models.ScrapedProduct, error)
	Stats(ctx context.Context) (*ScrapedStats, error)
}

type ScrapedReviewRepository interface {
	CreateBatch(ctx context.Context, reviews []models.ScrapedReview) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ScrapedReview, error)
	Save(ctx context.Context, r *models.ScrapedReview) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ScrapedReview, error)
	// ListPending returns pending reviews, those with photos first. A nil
	// productID spans every product.
	ListPending(ctx context.Context, productID *uuid.UUID, limit int) ([]models.ScrapedReview, error)
	// ClaimForTranslation moves a pending review to translating. It returns
	// ErrConditionFailed when another run got there first.
	ClaimForTranslation(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*ReviewStats, error)
}

type DraftRepository interface {
	Create(ctx context.Context, d *models.ProductDraft) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProductDraft, error)
	// Update writes every column if the stored version still equals d.Version,
	// then increments d.Version.
	Update(ctx context.Context, d *models.ProductDraft) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter DraftFilter) ([]models.ProductDraft, int64, error)
	ListByStatus(ctx context.Context, status models.DraftStatus, limit int) ([]models.ProductDraft, error)
	CountByStatus(ctx context.Context) (map[models.DraftStatus]int64, error)
}

type CatalogRepository interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	UpdateProductRating(ctx context.Context, id uuid.UUID, rating float64, count int64) error
	// DeleteProduct removes the product and its reviews.
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	CreateReview(ctx context.Context, r *models.ProductReview) error
	FindReview(ctx context.Context, productID uuid.UUID, rating int, userName string) (*models.ProductReview, error)
	UpdateReview(ctx context.Context, r *models.ProductReview) error
}

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

type Store interface {
	ScrapedProducts() ScrapedProductRepository
	ScrapedReviews() ScrapedReviewRepository
	Drafts() DraftRepository
	Catalog() CatalogRepository
	Audit() AuditRepository
	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(Store) error) error
}
