package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/curation-backend/internal/database"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm connection.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) ScrapedProducts() ScrapedProductRepository {
	return &scrapedProductRepo{db: s.db}
}

func (s *gormStore) ScrapedReviews() ScrapedReviewRepository {
	return &scrapedReviewRepo{db: s.db}
}

func (s *gormStore) Drafts() DraftRepository {
	return &draftRepo{db: s.db}
}

func (s *gormStore) Catalog() CatalogRepository {
	return &catalogRepo{db: s.db}
}

func (s *gormStore) Audit() AuditRepository {
	return &auditRepo{db: s.db}
}

func (s *gormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// notFound maps gorm's sentinel onto ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
