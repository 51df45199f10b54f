// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a live catalog entry. The pipeline only creates and deletes it.
type Product struct {
	BaseModel
	Slug             string          `json:"slug" gorm:"size:255;not null;uniqueIndex"`
	Name             string          `json:"name" gorm:"size:255;not null"`
	Description      string          `json:"description" gorm:"type:text"`
	ShortDescription string          `json:"short_description" gorm:"type:text"`
	Category         ProductCategory `json:"category" gorm:"size:50;index"`
	Price            int64           `json:"price" gorm:"not null"`
	CompareAtPrice   *int64          `json:"compare_at_price"`
	Images           pq.StringArray  `json:"images" gorm:"type:text[]"`
	InStock          bool            `json:"in_stock" gorm:"default:true"`
	Featured         bool            `json:"featured" gorm:"default:false"`
	Rating           float64         `json:"rating" gorm:"type:decimal(3,2);default:0"`
	ReviewCount      int64           `json:"review_count" gorm:"default:0"`

	// Relationships
	Reviews []ProductReview `json:"reviews,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

type ProductReview struct {
	BaseModel
	ProductID        uuid.UUID      `json:"product_id" gorm:"type:uuid;not null;index"`
	UserName         string         `json:"user_name" gorm:"size:255;not null"`
	Rating           int            `json:"rating" gorm:"not null"`
	Comment          string         `json:"comment" gorm:"type:text"`
	ReviewPhotos     pq.StringArray `json:"review_photos" gorm:"type:text[]"`
	VerifiedPurchase bool           `json:"verified_purchase" gorm:"default:false"`
}
