package scraper

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// GenericAdapter reads Open Graph, JSON-LD and common markup. It accepts any
// URL and must be registered last.
type GenericAdapter struct{}

func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

func (a *GenericAdapter) Name() string {
	return "generic"
}

func (a *GenericAdapter) CanHandle(rawURL string) bool {
	return true
}

func (a *GenericAdapter) ExtractProduct(doc *goquery.Document, pageURL string) (*ProductData, error) {
	if doc == nil {
		return nil, errors.New("empty document")
	}

	nodes := jsonLDNodes(doc)
	products := findNodes(nodes, "Product")

	data := &ProductData{
		Name:        genericName(doc, products),
		Description: genericDescription(doc, products),
		PriceText:   genericPrice(doc, products),
		Category:    genericCategory(doc, nodes, products),
		Images:      genericImages(doc, pageURL, products),
		Metadata: map[string]interface{}{
			"source_url":        pageURL,
			"extraction_method": "generic",
			"json_ld_products":  len(products),
		},
	}
	if len(products) > 0 {
		data.ExternalID = products[0].str("sku")
	}

	return data, nil
}

func (a *GenericAdapter) ExtractReviews(doc *goquery.Document, pageURL string) ([]ReviewCandidate, error) {
	if doc == nil {
		return nil, errors.New("empty document")
	}

	reviews := jsonLDReviews(jsonLDNodes(doc))
	if len(reviews) == 0 {
		reviews = microdataReviews(doc, pageURL)
	}

	lang := pageLanguage(doc)
	for i := range reviews {
		if reviews[i].Language == "" {
			reviews[i].Language = lang
		}
	}
	return reviews, nil
}

func genericName(doc *goquery.Document, products []jsonLDNode) string {
	if name := metaContent(doc, `meta[property="og:title"]`); name != "" {
		return name
	}
	if title := cleanText(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if len(products) > 0 {
		if name := products[0].str("name"); name != "" {
			return name
		}
	}
	if h1 := cleanText(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "Untitled Product"
}

func genericDescription(doc *goquery.Document, products []jsonLDNode) string {
	if desc := metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`); desc != "" {
		return desc
	}
	if len(products) > 0 {
		if desc := products[0].str("description"); desc != "" {
			return desc
		}
	}
	var parts []string
	doc.Find("main p, article p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if text := cleanText(p.Text()); text != "" {
			parts = append(parts, text)
		}
		return len(parts) < 3
	})
	return strings.Join(parts, "\n\n")
}

func genericPrice(doc *goquery.Document, products []jsonLDNode) string {
	for _, product := range products {
		if price := jsonLDPrice(product); price != "" {
			return price
		}
	}

	if v, ok := doc.Find(`[itemprop="price"]`).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
		currency, _ := doc.Find(`[itemprop="priceCurrency"]`).First().Attr("content")
		return strings.TrimSpace(strings.TrimSpace(v) + " " + currency)
	}

	var found string
	doc.Find(`[itemprop="price"], .price, #price, [class*="price"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if text != "" && len(text) < 50 && pricePattern.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	if amount := metaContent(doc, `meta[property="og:price:amount"]`, `meta[property="product:price:amount"]`); amount != "" {
		currency := metaContent(doc, `meta[property="og:price:currency"]`, `meta[property="product:price:currency"]`)
		return strings.TrimSpace(amount + " " + currency)
	}
	return ""
}

func genericCategory(doc *goquery.Document, nodes []jsonLDNode, products []jsonLDNode) string {
	if category := jsonLDBreadcrumbCategory(nodes); category != "" {
		return category
	}
	for _, product := range products {
		if category := product.str("category"); category != "" {
			return category
		}
	}

	links := doc.Find(`.breadcrumb a, .breadcrumbs a, nav[aria-label="breadcrumb"] a, [class*="breadcrumb"] a`)
	if links.Length() > 1 {
		return cleanText(links.Eq(links.Length() - 2).Text())
	}
	return ""
}

func genericImages(doc *goquery.Document, pageURL string, products []jsonLDNode) []string {
	set := newImageSet(maxProductImages)

	if og := metaContent(doc, `meta[property="og:image"]`); og != "" {
		if u := resolveURL(pageURL, og); isValidImageURL(u) {
			set.add(u)
		}
	}

	for _, product := range products {
		for _, img := range product.stringList("image") {
			if u := resolveURL(pageURL, img); isValidImageURL(u) {
				set.add(u)
			}
		}
	}

	doc.Find(`main img, article img, [class*="product"] img, [class*="gallery"] img`).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if tooSmall(img) {
			return true
		}
		src := imageSource(img)
		lower := strings.ToLower(src)
		if strings.Contains(lower, "logo") || strings.Contains(lower, "icon") {
			return true
		}
		if u := resolveURL(pageURL, src); isValidImageURL(u) {
			set.add(u)
		}
		return !set.full()
	})

	return set.urls
}

// microdataReviews reads schema.org Review microdata blocks.
func microdataReviews(doc *goquery.Document, pageURL string) []ReviewCandidate {
	var reviews []ReviewCandidate
	doc.Find(`[itemprop="review"], [itemtype*="schema.org/Review"]`).Each(func(_ int, s *goquery.Selection) {
		ratingSel := s.Find(`[itemprop="ratingValue"]`).First()
		value, ok := ratingSel.Attr("content")
		if !ok {
			value = cleanText(ratingSel.Text())
		}
		best, _ := s.Find(`[itemprop="bestRating"]`).First().Attr("content")
		rating := parseRating(value, best)
		if rating == 0 {
			return
		}

		author := cleanText(s.Find(`[itemprop="author"] [itemprop="name"]`).First().Text())
		if author == "" {
			author = cleanText(s.Find(`[itemprop="author"]`).First().Text())
		}
		date, ok := s.Find(`[itemprop="datePublished"]`).First().Attr("content")
		if !ok {
			date = cleanText(s.Find(`[itemprop="datePublished"]`).First().Text())
		}

		var images []string
		s.Find("img").Each(func(_ int, img *goquery.Selection) {
			if u := resolveURL(pageURL, imageSource(img)); isValidImageURL(u) {
				images = append(images, u)
			}
		})

		reviews = append(reviews, ReviewCandidate{
			Text:       cleanText(s.Find(`[itemprop="reviewBody"], [itemprop="description"]`).First().Text()),
			Rating:     rating,
			AuthorName: author,
			Date:       date,
			Images:     images,
		})
	})
	return reviews
}
