package models

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func centsPtr(c int64) *int64 { return &c }

func rawDraft() *ProductDraft {
	return &ProductDraft{
		RawName:        "Chicha Crystal",
		RawDescription: strPtr("Hookah en verre"),
		RawPriceText:   strPtr("49,99 €"),
		RawCategory:    strPtr("Hookahs"),
		RawImages:      pq.StringArray{"https://cdn.example.com/a.jpg"},
	}
}

func TestEffectiveName_Precedence(t *testing.T) {
	d := rawDraft()

	name, source := EffectiveName(d)
	assert.Equal(t, "Chicha Crystal", name)
	assert.Equal(t, ValueSourceRaw, source)

	d.AIName = strPtr("Chicha Cristal")
	name, source = EffectiveName(d)
	assert.Equal(t, "Chicha Cristal", name)
	assert.Equal(t, ValueSourceAI, source)

	d.CuratedName = strPtr("Chicha Crystal Bleue")
	name, source = EffectiveName(d)
	assert.Equal(t, "Chicha Crystal Bleue", name)
	assert.Equal(t, ValueSourceCurated, source)

	d.CuratedName = strPtr("   ")
	_, source = EffectiveName(d)
	assert.Equal(t, ValueSourceAI, source, "blank curated value is treated as unset")
}

func TestEffectivePrice_FallsBackToParsedRawText(t *testing.T) {
	d := rawDraft()

	price, source := EffectivePrice(d)
	assert.Equal(t, int64(4999), price)
	assert.Equal(t, ValueSourceRaw, source)

	d.AISuggestedPrice = centsPtr(4500)
	price, source = EffectivePrice(d)
	assert.Equal(t, int64(4500), price)
	assert.Equal(t, ValueSourceAI, source)

	d.CuratedPrice = centsPtr(3999)
	price, source = EffectivePrice(d)
	assert.Equal(t, int64(3999), price)
	assert.Equal(t, ValueSourceCurated, source)

	d.CuratedPrice, d.AISuggestedPrice, d.RawPriceText = nil, nil, strPtr("sur demande")
	_, source = EffectivePrice(d)
	assert.Equal(t, ValueSourceNone, source)
}

func TestEffectiveShortDescription_HasNoRawTier(t *testing.T) {
	d := rawDraft()
	_, source := EffectiveShortDescription(d)
	assert.Equal(t, ValueSourceNone, source)

	d.AIShortDescription = strPtr("Verre soufflé")
	value, source := EffectiveShortDescription(d)
	assert.Equal(t, "Verre soufflé", value)
	assert.Equal(t, ValueSourceAI, source)
}

func TestEffectiveImages_AndPublishableImages(t *testing.T) {
	d := rawDraft()

	images, source := EffectiveImages(d)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg"}, images)
	assert.Equal(t, ValueSourceRaw, source)
	assert.Empty(t, PublishableImages(d), "raw hotlinks are never published")

	d.UploadedImages = pq.StringArray{"https://bucket.example.com/products/a.jpg"}
	assert.Equal(t, []string{"https://bucket.example.com/products/a.jpg"}, PublishableImages(d))

	d.CuratedImages = pq.StringArray{"https://bucket.example.com/products/b.jpg"}
	images, source = EffectiveImages(d)
	assert.Equal(t, []string{"https://bucket.example.com/products/b.jpg"}, images)
	assert.Equal(t, ValueSourceCurated, source)
}

func TestResolveEffective_ExactlyOneSourcePerField(t *testing.T) {
	d := rawDraft()
	d.AIDescription = strPtr("Description IA")
	d.CuratedCategory = strPtr("chicha")

	expected := map[DraftField]ValueSource{
		FieldName:             ValueSourceRaw,
		FieldDescription:      ValueSourceAI,
		FieldShortDescription: ValueSourceNone,
		FieldCategory:         ValueSourceCurated,
		FieldPrice:            ValueSourceRaw,
		FieldImages:           ValueSourceRaw,
	}

	for _, field := range DraftFields {
		ev := ResolveEffective(d, field)
		assert.Equal(t, expected[field], ev.Source, string(field))
		if ev.Source == ValueSourceNone {
			assert.Nil(t, ev.Value)
		} else {
			assert.NotNil(t, ev.Value)
		}
	}
}

func TestMissingForApproval(t *testing.T) {
	d := rawDraft()
	assert.Empty(t, MissingForApproval(d))

	d.RawCategory = nil
	d.RawPriceText = nil
	assert.Equal(t, []string{"category", "price"}, MissingForApproval(d))

	d.AICategory = strPtr("chicha")
	d.AISuggestedPrice = centsPtr(4999)
	assert.Empty(t, MissingForApproval(d))
}

func TestCanTransition(t *testing.T) {
	legal := [][2]DraftStatus{
		{DraftStatusPendingTranslation, DraftStatusTranslating},
		{DraftStatusTranslating, DraftStatusTranslated},
		{DraftStatusTranslated, DraftStatusInReview},
		{DraftStatusTranslated, DraftStatusApproved},
		{DraftStatusTranslated, DraftStatusRejected},
		{DraftStatusInReview, DraftStatusApproved},
		{DraftStatusInReview, DraftStatusRejected},
		{DraftStatusRejected, DraftStatusInReview},
		{DraftStatusApproved, DraftStatusInReview},
		{DraftStatusApproved, DraftStatusPublished},
		{DraftStatusPublished, DraftStatusApproved},
	}
	for _, tr := range legal {
		assert.True(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	illegal := [][2]DraftStatus{
		{DraftStatusPendingTranslation, DraftStatusApproved},
		{DraftStatusTranslated, DraftStatusPublished},
		{DraftStatusInReview, DraftStatusPublished},
		{DraftStatusRejected, DraftStatusApproved},
		{DraftStatusPublished, DraftStatusInReview},
		{DraftStatusPublished, DraftStatusPendingTranslation},
	}
	for _, tr := range illegal {
		assert.False(t, CanTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestScrapedReview_EffectiveText(t *testing.T) {
	r := &ScrapedReview{ReviewText: "Great hookah"}
	assert.Equal(t, "Great hookah", r.EffectiveText())

	r.TranslatedText = strPtr("Super chicha")
	assert.Equal(t, "Super chicha", r.EffectiveText())

	r.CuratedText = strPtr("Très bonne chicha")
	assert.Equal(t, "Très bonne chicha", r.EffectiveText())
}
