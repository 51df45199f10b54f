// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the id client-side so callers can reference it
// before the row is flushed.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type ScrapeStatus string

const (
	ScrapeStatusSuccess ScrapeStatus = "success"
	ScrapeStatusError   ScrapeStatus = "error"
)

type ImageUploadStatus string

const (
	ImageUploadStatusPending   ImageUploadStatus = "pending"
	ImageUploadStatusUploading ImageUploadStatus = "uploading"
	ImageUploadStatusUploaded  ImageUploadStatus = "uploaded"
	ImageUploadStatusFailed    ImageUploadStatus = "failed"
)

type TranslationStatus string

const (
	TranslationStatusPending     TranslationStatus = "pending"
	TranslationStatusTranslating TranslationStatus = "translating"
	TranslationStatusTranslated  TranslationStatus = "translated"
	TranslationStatusFailed      TranslationStatus = "failed"
)

type DraftStatus string

const (
	DraftStatusPendingTranslation DraftStatus = "pending_translation"
	DraftStatusTranslating        DraftStatus = "translating"
	DraftStatusTranslated         DraftStatus = "translated"
	DraftStatusInReview           DraftStatus = "in_review"
	DraftStatusApproved           DraftStatus = "approved"
	DraftStatusRejected           DraftStatus = "rejected"
	DraftStatusPublished          DraftStatus = "published"
)

// AllDraftStatuses lists every status in pipeline order.
var AllDraftStatuses = []DraftStatus{
	DraftStatusPendingTranslation,
	DraftStatusTranslating,
	DraftStatusTranslated,
	DraftStatusInReview,
	DraftStatusApproved,
	DraftStatusRejected,
	DraftStatusPublished,
}

func (s DraftStatus) IsValid() bool {
	for _, status := range AllDraftStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ValueSource tells which tier an effective value was taken from.
type ValueSource string

const (
	ValueSourceCurated ValueSource = "curated"
	ValueSourceAI      ValueSource = "ai"
	ValueSourceRaw     ValueSource = "raw"
	ValueSourceNone    ValueSource = "none"
)

// Catalog categories accepted by the storefront.
type ProductCategory string

const (
	CategoryChicha     ProductCategory = "chicha"
	CategoryBol        ProductCategory = "bol"
	CategoryTuyau      ProductCategory = "tuyau"
	CategoryCharbon    ProductCategory = "charbon"
	CategoryAccessoire ProductCategory = "accessoire"
)

var ProductCategories = []ProductCategory{
	CategoryChicha,
	CategoryBol,
	CategoryTuyau,
	CategoryCharbon,
	CategoryAccessoire,
}

func IsValidCategory(category string) bool {
	for _, c := range ProductCategories {
		if string(c) == category {
			return true
		}
	}
	return false
}
