package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/curation-backend/internal/models"
)

type auditRepo struct {
	db *gorm.DB
}

func (r *auditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
