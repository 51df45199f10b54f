// internal/models/draft.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/javajoker/curation-backend/internal/money"
)

// ProductDraft is the curation unit. Raw fields are a snapshot taken when the
// draft was created, ai fields are filled by translation and curated fields
// are operator overrides.
type ProductDraft struct {
	BaseModel
	ScrapedProductID *uuid.UUID `json:"scraped_product_id" gorm:"type:uuid;uniqueIndex"`

	RawName        string         `json:"raw_name" gorm:"type:text;not null"`
	RawDescription *string        `json:"raw_description" gorm:"type:text"`
	RawPriceText   *string        `json:"raw_price_text" gorm:"size:100"`
	RawCategory    *string        `json:"raw_category" gorm:"size:255"`
	RawImages      pq.StringArray `json:"raw_images" gorm:"type:text[]"`
	UploadedImages pq.StringArray `json:"uploaded_images" gorm:"type:text[]"`
	RawSourceURL   *string        `json:"raw_source_url" gorm:"type:text"`
	RawSourceName  *string        `json:"raw_source_name" gorm:"size:50"`

	AIName             *string    `json:"ai_name" gorm:"type:text"`
	AIDescription      *string    `json:"ai_description" gorm:"type:text"`
	AIShortDescription *string    `json:"ai_short_description" gorm:"type:text"`
	AICategory         *string    `json:"ai_category" gorm:"size:50"`
	AISuggestedPrice   *int64     `json:"ai_suggested_price"`
	AIModel            *string    `json:"ai_model" gorm:"size:100"`
	AIPromptVersion    *string    `json:"ai_prompt_version" gorm:"size:20"`
	TranslatedAt       *time.Time `json:"translated_at"`
	TranslationError   *string    `json:"translation_error" gorm:"type:text"`

	CuratedName             *string        `json:"curated_name" gorm:"type:text"`
	CuratedDescription      *string        `json:"curated_description" gorm:"type:text"`
	CuratedShortDescription *string        `json:"curated_short_description" gorm:"type:text"`
	CuratedCategory         *string        `json:"curated_category" gorm:"size:50"`
	CuratedPrice            *int64         `json:"curated_price"`
	CuratedCompareAtPrice   *int64         `json:"curated_compare_at_price"`
	CuratedImages           pq.StringArray `json:"curated_images" gorm:"type:text[]"`

	Status             DraftStatus `json:"status" gorm:"type:varchar(30);not null;default:'pending_translation';index"`
	RejectionReason    *string     `json:"rejection_reason" gorm:"type:text"`
	ReviewedBy         *string     `json:"reviewed_by" gorm:"size:100"`
	ReviewedAt         *time.Time  `json:"reviewed_at"`
	PublishedProductID *uuid.UUID  `json:"published_product_id" gorm:"type:uuid;index"`
	PublishedAt        *time.Time  `json:"published_at"`

	// Version is bumped on every successful write.
	Version int `json:"version" gorm:"not null;default:1"`
}

// ClearAI resets every ai* field and the translation error.
func (d *ProductDraft) ClearAI() {
	d.AIName = nil
	d.AIDescription = nil
	d.AIShortDescription = nil
	d.AICategory = nil
	d.AISuggestedPrice = nil
	d.AIModel = nil
	d.AIPromptVersion = nil
	d.TranslatedAt = nil
	d.TranslationError = nil
}

// DraftField names a field that has curated/ai/raw tiers.
type DraftField string

const (
	FieldName             DraftField = "name"
	FieldDescription      DraftField = "description"
	FieldShortDescription DraftField = "short_description"
	FieldCategory         DraftField = "category"
	FieldPrice            DraftField = "price"
	FieldImages           DraftField = "images"
)

var DraftFields = []DraftField{
	FieldName,
	FieldDescription,
	FieldShortDescription,
	FieldCategory,
	FieldPrice,
	FieldImages,
}

// EffectiveValue is the outcome of resolving one field.
type EffectiveValue struct {
	Field  DraftField  `json:"field"`
	Value  interface{} `json:"value"`
	Source ValueSource `json:"source"`
}

// resolve is the single precedence rule: curated, then ai, then raw.
// Blank strings count as unset.
func resolve[T any](present func(*T) bool, curated, ai, raw *T) (T, ValueSource) {
	var zero T
	switch {
	case present(curated):
		return *curated, ValueSourceCurated
	case present(ai):
		return *ai, ValueSourceAI
	case present(raw):
		return *raw, ValueSourceRaw
	default:
		return zero, ValueSourceNone
	}
}

func presentString(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func presentCents(c *int64) bool {
	return c != nil && *c > 0
}

func presentList(l *[]string) bool {
	return l != nil && len(*l) > 0
}

func listPtr(l pq.StringArray) *[]string {
	if len(l) == 0 {
		return nil
	}
	s := []string(l)
	return &s
}

func EffectiveName(d *ProductDraft) (string, ValueSource) {
	raw := d.RawName
	return resolve(presentString, d.CuratedName, d.AIName, &raw)
}

func EffectiveDescription(d *ProductDraft) (string, ValueSource) {
	return resolve(presentString, d.CuratedDescription, d.AIDescription, d.RawDescription)
}

// EffectiveShortDescription has no raw tier.
func EffectiveShortDescription(d *ProductDraft) (string, ValueSource) {
	return resolve(presentString, d.CuratedShortDescription, d.AIShortDescription, nil)
}

func EffectiveCategory(d *ProductDraft) (string, ValueSource) {
	return resolve(presentString, d.CuratedCategory, d.AICategory, d.RawCategory)
}

// EffectivePrice returns cents. The raw tier is the parsed raw price text.
func EffectivePrice(d *ProductDraft) (int64, ValueSource) {
	var raw *int64
	if d.RawPriceText != nil {
		if cents, ok := money.ParseCents(*d.RawPriceText); ok {
			raw = &cents
		}
	}
	return resolve(presentCents, d.CuratedPrice, d.AISuggestedPrice, raw)
}

// EffectiveImages treats owned-storage uploads as the middle tier.
func EffectiveImages(d *ProductDraft) ([]string, ValueSource) {
	return resolve(presentList, listPtr(d.CuratedImages), listPtr(d.UploadedImages), listPtr(d.RawImages))
}

// PublishableImages never falls back to source hotlinks.
func PublishableImages(d *ProductDraft) []string {
	images, source := EffectiveImages(d)
	if source == ValueSourceRaw || source == ValueSourceNone {
		return []string{}
	}
	return images
}

// ResolveEffective reports the effective value and its tier for any field.
func ResolveEffective(d *ProductDraft, field DraftField) EffectiveValue {
	ev := EffectiveValue{Field: field}
	switch field {
	case FieldName:
		ev.Value, ev.Source = EffectiveName(d)
	case FieldDescription:
		ev.Value, ev.Source = EffectiveDescription(d)
	case FieldShortDescription:
		ev.Value, ev.Source = EffectiveShortDescription(d)
	case FieldCategory:
		ev.Value, ev.Source = EffectiveCategory(d)
	case FieldPrice:
		ev.Value, ev.Source = EffectivePrice(d)
	case FieldImages:
		ev.Value, ev.Source = EffectiveImages(d)
	default:
		ev.Source = ValueSourceNone
	}
	if ev.Source == ValueSourceNone {
		ev.Value = nil
	}
	return ev
}

// MissingForApproval lists the required fields that resolve to nothing.
func MissingForApproval(d *ProductDraft) []string {
	var missing []string
	for _, field := range []DraftField{FieldName, FieldCategory, FieldPrice} {
		if ResolveEffective(d, field).Source == ValueSourceNone {
			missing = append(missing, string(field))
		}
	}
	return missing
}

var draftTransitions = map[DraftStatus][]DraftStatus{
	DraftStatusPendingTranslation: {DraftStatusTranslating},
	DraftStatusTranslating:        {DraftStatusTranslated, DraftStatusPendingTranslation},
	DraftStatusTranslated:         {DraftStatusInReview, DraftStatusApproved, DraftStatusRejected, DraftStatusPendingTranslation},
	DraftStatusInReview:           {DraftStatusApproved, DraftStatusRejected, DraftStatusPendingTranslation},
	DraftStatusRejected:           {DraftStatusInReview, DraftStatusPendingTranslation},
	DraftStatusApproved:           {DraftStatusInReview, DraftStatusPublished, DraftStatusPendingTranslation},
	DraftStatusPublished:          {DraftStatusApproved},
}

// CanTransition reports whether a draft may move from one status to another.
func CanTransition(from, to DraftStatus) bool {
	for _, next := range draftTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
