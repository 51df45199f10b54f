// internal/models/scraped.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ScrapedProduct is one row per distinct source URL.
//
// UploadedImageURLs is index-aligned with RawImages. An empty entry means the
// image at that index has not been uploaded yet.
type ScrapedProduct struct {
	BaseModel
	SourceURL         string            `json:"source_url" gorm:"type:text;not null;uniqueIndex"`
	SourceName        string            `json:"source_name" gorm:"size:50;index"`
	ExternalID        string            `json:"external_id,omitempty" gorm:"size:100"`
	RawName           string            `json:"raw_name" gorm:"type:text"`
	RawDescription    *string           `json:"raw_description" gorm:"type:text"`
	RawPriceText      *string           `json:"raw_price_text" gorm:"size:100"`
	RawCategory       *string           `json:"raw_category" gorm:"size:255"`
	RawImages         pq.StringArray    `json:"raw_images" gorm:"type:text[]"`
	UploadedImageURLs pq.StringArray    `json:"uploaded_image_urls" gorm:"type:text[]"`
	RawMetadata       JSONB             `json:"raw_metadata,omitempty" gorm:"type:jsonb"`
	ScrapeStatus      ScrapeStatus      `json:"scrape_status" gorm:"type:varchar(20);default:'success';index"`
	ErrorMessage      *string           `json:"error_message,omitempty" gorm:"type:text"`
	ImageUploadStatus ImageUploadStatus `json:"image_upload_status" gorm:"type:varchar(20);default:'pending'"`
	ReviewCount       int               `json:"review_count" gorm:"default:0"`
	SentToCuration    bool              `json:"sent_to_curation" gorm:"default:false;index"`
	DraftID           *uuid.UUID        `json:"draft_id" gorm:"type:uuid"`
	ScrapedAt         time.Time         `json:"scraped_at"`

	// Relationships
	Reviews []ScrapedReview `json:"reviews,omitempty" gorm:"foreignKey:ScrapedProductID;constraint:OnDelete:CASCADE"`
}

// UploadedImages returns the uploaded URLs that are present, in source order.
func (p *ScrapedProduct) UploadedImages() []string {
	var urls []string
	for _, u := range p.UploadedImageURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

type ScrapedReview struct {
	BaseModel
	ScrapedProductID     uuid.UUID         `json:"scraped_product_id" gorm:"type:uuid;not null;index"`
	ReviewText           string            `json:"review_text" gorm:"type:text"`
	Rating               int               `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	AuthorName           *string           `json:"author_name" gorm:"size:255"`
	AuthorCountry        *string           `json:"author_country" gorm:"size:100"`
	ReviewDate           *string           `json:"review_date" gorm:"size:50"`
	ReviewImages         pq.StringArray    `json:"review_images" gorm:"type:text[]"`
	UploadedReviewImages pq.StringArray    `json:"uploaded_review_images" gorm:"type:text[]"`
	OriginalLanguage     *string           `json:"original_language" gorm:"size:10"`
	TranslatedText       *string           `json:"translated_text" gorm:"type:text"`
	TranslationStatus    TranslationStatus `json:"translation_status" gorm:"type:varchar(20);default:'pending';index"`
	TranslationError     *string           `json:"translation_error,omitempty" gorm:"type:text"`
	CuratedText          *string           `json:"curated_text" gorm:"type:text"`
}

// EffectiveText resolves the display text: curated, then translated, then original.
func (r *ScrapedReview) EffectiveText() string {
	if r.CuratedText != nil && strings.TrimSpace(*r.CuratedText) != "" {
		return *r.CuratedText
	}
	if r.TranslatedText != nil && strings.TrimSpace(*r.TranslatedText) != "" {
		return *r.TranslatedText
	}
	return r.ReviewText
}

// Photos prefers owned-storage copies over source hotlinks.
func (r *ScrapedReview) Photos() []string {
	if len(r.UploadedReviewImages) > 0 {
		return r.UploadedReviewImages
	}
	return r.ReviewImages
}

func (r *ScrapedReview) HasPhotos() bool {
	return len(r.ReviewImages) > 0
}
