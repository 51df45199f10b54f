// internal/services/pipeline_service.go
package services

import (
	"context"

	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
)

type PipelineService struct {
	store repository.Store
}

type PipelineStats struct {
	Scraped *repository.ScrapedStats     `json:"scraped"`
	Drafts  map[models.DraftStatus]int64 `json:"drafts"`
	Reviews *repository.ReviewStats      `json:"reviews"`
}

func NewPipelineService(store repository.Store) *PipelineService {
	return &PipelineService{store: store}
}

// Stats counts every stage. Draft statuses with no rows report zero.
func (s *PipelineService) Stats(ctx context.Context) (*PipelineStats, error) {
	scraped, err := s.store.ScrapedProducts().Stats(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.store.Drafts().CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	drafts := make(map[models.DraftStatus]int64, len(models.AllDraftStatuses))
	for _, status := range models.AllDraftStatuses {
		drafts[status] = counts[status]
	}

	reviews, err := s.store.ScrapedReviews().Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &PipelineStats{Scraped: scraped, Drafts: drafts, Reviews: reviews}, nil
}

// Categories lists the catalog categories drafts may be filed under.
func (s *PipelineService) Categories() []models.ProductCategory {
	return append([]models.ProductCategory{}, models.ProductCategories...)
}
