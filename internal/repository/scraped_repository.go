package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/utils"
)

var scrapedSortFields = []string{"created_at", "updated_at", "scraped_at", "raw_name", "source_name"}

// Columns refreshed when a source URL is scraped again. Curation state is
// left alone.
var rescrapeColumns = []string{
	"source_name", "external_id", "raw_name", "raw_description", "raw_price_text",
	"raw_category", "raw_images", "uploaded_image_urls", "raw_metadata", "scrape_status",
	"error_message", "image_upload_status", "scraped_at", "updated_at",
}

type scrapedProductRepo struct {
	db *gorm.DB
}

func (r *scrapedProductRepo) Create(ctx context.Context, p *models.ScrapedProduct) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create scraped product: %w", err)
	}
	return nil
}

func (r *scrapedProductRepo) Upsert(ctx context.Context, p *models.ScrapedProduct) error {
	db := r.db.WithContext(ctx)
	err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_url"}},
		DoUpdates: clause.AssignmentColumns(rescrapeColumns),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("failed to upsert scraped product: %w", err)
	}

	// The insert may have hit the conflict path, in which case p.ID is not
	// the stored id.
	if err := db.Where("source_url = ?", p.SourceURL).First(p).Error; err != nil {
		return notFound(err, "scraped product")
	}
	return nil
}

func (r *scrapedProductRepo) Save(ctx context.Context, p *models.ScrapedProduct) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error; err != nil {
		return fmt.Errorf("failed to save scraped product: %w", err)
	}
	return nil
}

func (r *scrapedProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ScrapedProduct, error) {
	var p models.ScrapedProduct
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "scraped product")
	}
	return &p, nil
}

func (r *scrapedProductRepo) GetBySourceURL(ctx context.Context, sourceURL string) (*models.ScrapedProduct, error) {
	var p models.ScrapedProduct
	if err := r.db.WithContext(ctx).First(&p, "source_url = ?", sourceURL).Error; err != nil {
		return nil, notFound(err, "scraped product")
	}
	return &p, nil
}

func (r *scrapedProductRepo) MarkSentToCuration(ctx context.Context, id, draftID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.ScrapedProduct{}).
		Where("id = ? AND sent_to_curation = ?", id, false).
		Updates(map[string]interface{}{
			"sent_to_curation": true,
			"draft_id":         draftID,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark scraped product as sent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *scrapedProductRepo) ReleaseDraft(ctx context.Context, draftID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.ScrapedProduct{}).
		Where("draft_id = ?", draftID).
		Updates(map[string]interface{}{
			"sent_to_curation": false,
			"draft_id":         nil,
			"updated_at":       time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to release scraped product: %w", err)
	}
	return nil
}

func (r *scrapedProductRepo) UpdateReviewCount(ctx context.Context, id uuid.UUID, count int) error {
	err := r.db.WithContext(ctx).Model(&models.ScrapedProduct{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"review_count": count, "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to update review count: %w", err)
	}
	return nil
}

func (r *scrapedProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scraped_product_id = ?", id).Delete(&models.ScrapedReview{}).Error; err != nil {
			return fmt.Errorf("failed to delete scraped reviews: %w", err)
		}
		res := tx.Delete(&models.ScrapedProduct{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete scraped product: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("scraped product: %w", ErrNotFound)
		}
		return nil
	})
}

func (r *scrapedProductRepo) List(ctx context.Context, filter ScrapedFilter) ([]models.ScrapedProduct, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ScrapedProduct{})
	if filter.SourceName != "" {
		query = query.Where("source_name = ?", filter.SourceName)
	}
	if filter.Status != "" {
		query = query.Where("scrape_status = ?", filter.Status)
	}
	if filter.SentToCuration != nil {
		query = query.Where("sent_to_curation = ?", *filter.SentToCuration)
	}
	if filter.Search != "" {
		query = query.Where("raw_name ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count scraped products: %w", err)
	}

	var products []models.ScrapedProduct
	query = utils.ApplySort(query, filter.PaginationParams, scrapedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list scraped products: %w", err)
	}
	return products, total, nil
}

func (r *scrapedProductRepo) ListUnsent(ctx context.Context, limit int) ([]models.ScrapedProduct, error) {
	var products []models.ScrapedProduct
	query := r.db.WithContext(ctx).
		Where("sent_to_curation = ? AND scrape_status = ?", false, models.ScrapeStatusSuccess).
		Order("scraped_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list unsent products: %w", err)
	}
	return products, nil
}

func (r *scrapedProductRepo) Stats(ctx context.Context) (*ScrapedStats, error) {
	var row struct {
		Total   int64
		Success int64
		Failed  int64
		Sent    int64
	}
	err := r.db.WithContext(ctx).Model(&models.ScrapedProduct{}).Select(
		"COUNT(*) AS total, " +
			"COUNT(*) FILTER (WHERE scrape_status = 'success') AS success, " +
			"COUNT(*) FILTER (WHERE scrape_status = 'error') AS failed, " +
			"COUNT(*) FILTER (WHERE sent_to_curation) AS sent",
	).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute scraped stats: %w", err)
	}
	return &ScrapedStats{
		Total:   row.Total,
		Success: row.Success,
		Failed:  row.Failed,
		Sent:    row.Sent,
		Unsent:  row.Total - row.Sent,
	}, nil
}

type scrapedReviewRepo struct {
	db *gorm.DB
}

func (r *scrapedReviewRepo) CreateBatch(ctx context.Context, reviews []models.ScrapedReview) error {
	if len(reviews) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&reviews, 100).Error; err != nil {
		return fmt.Errorf("failed to create scraped reviews: %w", err)
	}
	return nil
}

func (r *scrapedReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ScrapedReview, error) {
	var review models.ScrapedReview
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "scraped review")
	}
	return &review, nil
}

func (r *scrapedReviewRepo) Save(ctx context.Context, review *models.ScrapedReview) error {
	if err := r.db.WithContext(ctx).Save(review).Error; err != nil {
		return fmt.Errorf("failed to save scraped review: %w", err)
	}
	return nil
}

func (r *scrapedReviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ScrapedReview, error) {
	var reviews []models.ScrapedReview
	err := r.db.WithContext(ctx).
		Where("scraped_product_id = ?", productID).
		Order("rating DESC, created_at ASC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scraped reviews: %w", err)
	}
	return reviews, nil
}

func (r *scrapedReviewRepo) ListPending(ctx context.Context, productID *uuid.UUID, limit int) ([]models.ScrapedReview, error) {
	query := r.db.WithContext(ctx).
		Where("translation_status = ?", models.TranslationStatusPending).
		Order("COALESCE(array_length(review_images, 1), 0) > 0 DESC, created_at ASC")
	if productID != nil {
		query = query.Where("scraped_product_id = ?", *productID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var reviews []models.ScrapedReview
	if err := query.Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending reviews: %w", err)
	}
	return reviews, nil
}

func (r *scrapedReviewRepo) ClaimForTranslation(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.ScrapedReview{}).
		Where("id = ? AND translation_status = ?", id, models.TranslationStatusPending).
		Updates(map[string]interface{}{
			"translation_status": models.TranslationStatusTranslating,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to claim review for translation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConditionFailed
	}
	return nil
}

func (r *scrapedReviewRepo) Stats(ctx context.Context) (*ReviewStats, error) {
	var row struct {
		Total       int64
		Pending     int64
		Translating int64
		Translated  int64
		Failed      int64
		WithPhotos  int64
	}
	db := r.db.WithContext(ctx)
	err := db.Model(&models.ScrapedReview{}).Select(
		"COUNT(*) AS total, " +
			"COUNT(*) FILTER (WHERE translation_status = 'pending') AS pending, " +
			"COUNT(*) FILTER (WHERE translation_status = 'translating') AS translating, " +
			"COUNT(*) FILTER (WHERE translation_status = 'translated') AS translated, " +
			"COUNT(*) FILTER (WHERE translation_status = 'failed') AS failed, " +
			"COUNT(*) FILTER (WHERE COALESCE(array_length(review_images, 1), 0) > 0) AS with_photos",
	).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute review stats: %w", err)
	}

	var byRating []struct {
		Rating int
		Count  int64
	}
	if err := db.Model(&models.ScrapedReview{}).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&byRating).Error; err != nil {
		return nil, fmt.Errorf("failed to compute rating distribution: %w", err)
	}

	stats := &ReviewStats{
		Total:       row.Total,
		Pending:     row.Pending,
		Translating: row.Translating,
		Translated:  row.Translated,
		Failed:      row.Failed,
		WithPhotos:  row.WithPhotos,
		ByRating:    map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	for _, b := range byRating {
		stats.ByRating[b.Rating] = b.Count
	}
	return stats, nil
}
