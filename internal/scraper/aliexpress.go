package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	aliItemIDPattern     = regexp.MustCompile(`/item/(\d+)\.html`)
	aliTitleSuffix       = regexp.MustCompile(`(?i)\s*[-|]\s*AliExpress.*$`)
	aliThumbnailSuffix   = regexp.MustCompile(`(?i)(\.(?:jpe?g|png|webp))_\d+x\d+[^/]*$`)
	aliRunParamsPrice    = regexp.MustCompile(`"formatedActivityPrice"\s*:\s*"([^"]+)"|"formatedPrice"\s*:\s*"([^"]+)"`)
	aliFeedbackListStart = regexp.MustCompile(`"feedbackList"\s*:\s*\[`)
)

// AliExpressAdapter reads AliExpress item pages. Most of the data is only
// present after the page scripts run, so it asks for a rendered page.
type AliExpressAdapter struct{}

func NewAliExpressAdapter() *AliExpressAdapter {
	return &AliExpressAdapter{}
}

func (a *AliExpressAdapter) Name() string {
	return "aliexpress"
}

func (a *AliExpressAdapter) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "aliexpress.com" || strings.HasSuffix(host, ".aliexpress.com")
}

func (a *AliExpressAdapter) NeedsRendering() bool {
	return true
}

func (a *AliExpressAdapter) ExtractProduct(doc *goquery.Document, pageURL string) (*ProductData, error) {
	if doc == nil {
		return nil, errors.New("empty document")
	}

	data := &ProductData{
		Name:        a.name(doc),
		Description: a.description(doc),
		PriceText:   a.price(doc),
		Category:    a.category(doc),
		Images:      a.images(doc, pageURL),
		ExternalID:  aliItemID(pageURL),
	}
	if data.Name == "" {
		return nil, fmt.Errorf("no product title found on %s", pageURL)
	}
	data.Metadata = map[string]interface{}{
		"source_url":        pageURL,
		"extraction_method": "aliexpress",
		"item_id":           data.ExternalID,
	}
	return data, nil
}

func (a *AliExpressAdapter) ExtractReviews(doc *goquery.Document, pageURL string) ([]ReviewCandidate, error) {
	if doc == nil {
		return nil, errors.New("empty document")
	}

	var reviews []ReviewCandidate
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		reviews = append(reviews, parseFeedbackList(s.Text())...)
		return len(reviews) == 0
	})
	if len(reviews) == 0 {
		reviews = aliMarkupReviews(doc, pageURL)
	}
	return reviews, nil
}

func aliItemID(pageURL string) string {
	if m := aliItemIDPattern.FindStringSubmatch(pageURL); len(m) == 2 {
		return m[1]
	}
	return ""
}

func (a *AliExpressAdapter) name(doc *goquery.Document) string {
	name := metaContent(doc, `meta[property="og:title"]`)
	if name == "" {
		name = cleanText(doc.Find(`h1[data-pl="product-title"], .product-title-text, h1`).First().Text())
	}
	if name == "" {
		name = cleanText(doc.Find("title").First().Text())
	}
	return strings.TrimSpace(aliTitleSuffix.ReplaceAllString(name, ""))
}

func (a *AliExpressAdapter) description(doc *goquery.Document) string {
	if desc := metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`); desc != "" {
		return desc
	}
	return cleanText(doc.Find(`.product-description, #product-description`).First().Text())
}

func (a *AliExpressAdapter) price(doc *goquery.Document) string {
	if amount := metaContent(doc, `meta[property="og:price:amount"]`, `meta[property="product:price:amount"]`); amount != "" {
		currency := metaContent(doc, `meta[property="og:price:currency"]`, `meta[property="product:price:currency"]`)
		return strings.TrimSpace(amount + " " + currency)
	}

	var found string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "runParams") {
			return true
		}
		if m := aliRunParamsPrice.FindStringSubmatch(text); m != nil {
			found = m[1]
			if found == "" {
				found = m[2]
			}
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	doc.Find(`.product-price-value, [class*="price--current"], [class*="uniform-banner-box-price"], .product-price`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanText(s.Text())
		if text != "" && pricePattern.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

func (a *AliExpressAdapter) category(doc *goquery.Document) string {
	if category := jsonLDBreadcrumbCategory(jsonLDNodes(doc)); category != "" {
		return category
	}
	links := doc.Find(`[class*="breadcrumb"] a, .cross-link a`)
	if links.Length() > 1 {
		return cleanText(links.Eq(links.Length() - 2).Text())
	}
	if links.Length() == 1 {
		return cleanText(links.Text())
	}
	return ""
}

func (a *AliExpressAdapter) images(doc *goquery.Document, pageURL string) []string {
	set := newImageSet(maxProductImages)
	add := func(src string) {
		if u := aliFullSize(resolveURL(pageURL, src)); isValidImageURL(u) {
			set.add(u)
		}
	}

	add(metaContent(doc, `meta[property="og:image"]`))
	doc.Find(`[class*="slider"] img, [class*="gallery"] img, .images-view-list img, [class*="magnifier"] img`).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		add(imageSource(img))
		return !set.full()
	})
	return set.urls
}

// aliFullSize drops the "_220x220.jpg" style thumbnail suffix from CDN URLs.
func aliFullSize(u string) string {
	if u == "" {
		return ""
	}
	return aliThumbnailSuffix.ReplaceAllString(u, "$1")
}

type aliFeedback struct {
	BuyerName     string      `json:"buyerName"`
	BuyerCountry  string      `json:"buyerCountry"`
	BuyerFeedback string      `json:"buyerFeedback"`
	BuyerEval     json.Number `json:"buyerEval"`
	EvalDate      string      `json:"evalDate"`
	Images        []string    `json:"images"`
}

// parseFeedbackList decodes the first "feedbackList" array embedded in a
// script body. buyerEval is a 0-100 score.
func parseFeedbackList(script string) []ReviewCandidate {
	loc := aliFeedbackListStart.FindStringIndex(script)
	if loc == nil {
		return nil
	}

	var items []aliFeedback
	dec := json.NewDecoder(strings.NewReader(script[loc[1]-1:]))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil
	}

	reviews := make([]ReviewCandidate, 0, len(items))
	for _, item := range items {
		score, err := item.BuyerEval.Float64()
		if err != nil || score <= 0 {
			continue
		}
		var images []string
		for _, img := range item.Images {
			if u := resolveURL("https://ae01.alicdn.com/", img); u != "" {
				images = append(images, u)
			}
		}
		reviews = append(reviews, ReviewCandidate{
			Text:          strings.TrimSpace(item.BuyerFeedback),
			Rating:        parseRating(item.BuyerEval.String(), "100"),
			AuthorName:    strings.TrimSpace(item.BuyerName),
			AuthorCountry: strings.TrimSpace(item.BuyerCountry),
			Date:          strings.TrimSpace(item.EvalDate),
			Images:        images,
		})
	}
	return reviews
}

// aliMarkupReviews reads the rendered feedback list when no JSON is embedded.
func aliMarkupReviews(doc *goquery.Document, pageURL string) []ReviewCandidate {
	var reviews []ReviewCandidate
	doc.Find(`[class*="list--itemBox"], .feedback-item`).Each(func(_ int, s *goquery.Selection) {
		stars := s.Find(`[class*="star--full"], .star-view .star-full`).Length()
		if stars == 0 {
			return
		}
		var images []string
		s.Find(`[class*="list--itemThumbnails"] img, .pic-view-item img`).Each(func(_ int, img *goquery.Selection) {
			if u := aliFullSize(resolveURL(pageURL, imageSource(img))); isValidImageURL(u) {
				images = append(images, u)
			}
		})
		reviews = append(reviews, ReviewCandidate{
			Text:       cleanText(s.Find(`[class*="list--itemReview"], .buyer-feedback span`).First().Text()),
			Rating:     clampRating(stars),
			AuthorName: cleanText(s.Find(`[class*="list--itemInfo"] span, .user-name`).First().Text()),
			Images:     images,
		})
	})
	return reviews
}
