package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/utils"
)

var draftSortFields = []string{"created_at", "updated_at", "raw_name", "status", "published_at"}

type draftRepo struct {
	db *gorm.DB
}

func (r *draftRepo) Create(ctx context.Context, d *models.ProductDraft) error {
	if d.Version == 0 {
		d.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

func (r *draftRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ProductDraft, error) {
	var d models.ProductDraft
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "draft")
	}
	return &d, nil
}

func (r *draftRepo) Update(ctx context.Context, d *models.ProductDraft) error {
	db := r.db.WithContext(ctx)
	expected := d.Version
	d.Version = expected + 1

	res := db.Model(d).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(d)
	if res.Error != nil {
		d.Version = expected
		return fmt.Errorf("failed to update draft: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	d.Version = expected
	var count int64
	if err := db.Model(&models.ProductDraft{}).Where("id = ?", d.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check draft: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("draft: %w", ErrNotFound)
	}
	return ErrVersionConflict
}

func (r *draftRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.ProductDraft{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete draft: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("draft: %w", ErrNotFound)
	}
	return nil
}

func (r *draftRepo) List(ctx context.Context, filter DraftFilter) ([]models.ProductDraft, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductDraft{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("raw_name ILIKE ? OR ai_name ILIKE ? OR curated_name ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count drafts: %w", err)
	}

	var drafts []models.ProductDraft
	query = utils.ApplySort(query, filter.PaginationParams, draftSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&drafts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, total, nil
}

func (r *draftRepo) ListByStatus(ctx context.Context, status models.DraftStatus, limit int) ([]models.ProductDraft, error) {
	query := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var drafts []models.ProductDraft
	if err := query.Find(&drafts).Error; err != nil {
		return nil, fmt.Errorf("failed to list drafts by status: %w", err)
	}
	return drafts, nil
}

func (r *draftRepo) CountByStatus(ctx context.Context) (map[models.DraftStatus]int64, error) {
	var rows []struct {
		Status models.DraftStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.ProductDraft{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count drafts by status: %w", err)
	}

	counts := make(map[models.DraftStatus]int64, len(models.AllDraftStatuses))
	for _, status := range models.AllDraftStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
