package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/curation-backend/internal/models"
)

type catalogRepo struct {
	db *gorm.DB
}

func (r *catalogRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create catalog product: %w", err)
	}
	return nil
}

func (r *catalogRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "catalog product")
	}
	return &p, nil
}

func (r *catalogRepo) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "slug = ?", slug).Error; err != nil {
		return nil, notFound(err, "catalog product")
	}
	return &p, nil
}

func (r *catalogRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return count > 0, nil
}

func (r *catalogRepo) UpdateProductRating(ctx context.Context, id uuid.UUID, rating float64, count int64) error {
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"rating":       rating,
			"review_count": count,
			"updated_at":   time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update product rating: %w", err)
	}
	return nil
}

func (r *catalogRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&models.ProductReview{}).Error; err != nil {
		return fmt.Errorf("failed to delete product reviews: %w", err)
	}
	res := db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete catalog product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("catalog product: %w", ErrNotFound)
	}
	return nil
}

func (r *catalogRepo) CreateReview(ctx context.Context, review *models.ProductReview) error {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("failed to create product review: %w", err)
	}
	return nil
}

func (r *catalogRepo) FindReview(ctx context.Context, productID uuid.UUID, rating int, userName string) (*models.ProductReview, error) {
	var review models.ProductReview
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND rating = ? AND user_name = ?", productID, rating, userName).
		Order("created_at ASC").
		First(&review).Error
	if err != nil {
		return nil, notFound(err, "product review")
	}
	return &review, nil
}

func (r *catalogRepo) UpdateReview(ctx context.Context, review *models.ProductReview) error {
	err := r.db.WithContext(ctx).Model(review).Updates(map[string]interface{}{
		"comment":       review.Comment,
		"review_photos": review.ReviewPhotos,
		"updated_at":    time.Now(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update product review: %w", err)
	}
	return nil
}
