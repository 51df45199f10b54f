// Package scraper holds the origin adapters, page fetchers and the review
// sampling rules. Nothing in here touches persistence.
package scraper

import (
	"github.com/PuerkitoBio/goquery"
)

// ProductData is what an adapter extracts from a product page.
type ProductData struct {
	Name        string
	Description string
	PriceText   string
	Category    string
	Images      []string
	ExternalID  string
	Metadata    map[string]interface{}
}

// ReviewCandidate is one review read from a page, before sampling.
type ReviewCandidate struct {
	Text          string   `json:"text"`
	Rating        int      `json:"rating"`
	AuthorName    string   `json:"author_name,omitempty"`
	AuthorCountry string   `json:"author_country,omitempty"`
	Date          string   `json:"date,omitempty"`
	Images        []string `json:"images,omitempty"`
	Language      string   `json:"language,omitempty"`
}

func (r ReviewCandidate) HasPhotos() bool {
	return len(r.Images) > 0
}

// Adapter extracts product fields for one origin.
type Adapter interface {
	Name() string
	CanHandle(rawURL string) bool
	ExtractProduct(doc *goquery.Document, pageURL string) (*ProductData, error)
}

// ReviewExtractor is implemented by adapters whose origin exposes reviews.
type ReviewExtractor interface {
	ExtractReviews(doc *goquery.Document, pageURL string) ([]ReviewCandidate, error)
}

// RenderHinter is implemented by adapters whose pages only carry data after
// client-side rendering.
type RenderHinter interface {
	NeedsRendering() bool
}

// SupportsReviews reports whether the adapter can extract reviews.
func SupportsReviews(a Adapter) (ReviewExtractor, bool) {
	re, ok := a.(ReviewExtractor)
	return re, ok
}

// NeedsRendering reports whether the adapter prefers a rendered page.
func NeedsRendering(a Adapter) bool {
	if rh, ok := a.(RenderHinter); ok {
		return rh.NeedsRendering()
	}
	return false
}
