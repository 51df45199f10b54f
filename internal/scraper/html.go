package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxProductImages = 10

var (
	pricePattern     = regexp.MustCompile(`[€$£¥₹]|\d+[.,]\d{2}|EUR|USD|GBP`)
	imageExtPattern  = regexp.MustCompile(`(?i)\.(jpe?g|png|webp|gif|avif)([?#].*)?$`)
	imageHostPattern = regexp.MustCompile(`(?i)(cdn|cloudinary|imgix|alicdn|shopify|/images?/)`)
	whitespace       = regexp.MustCompile(`\s+`)
)

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// resolveURL makes ref absolute against the page URL. Protocol-relative
// references take the page scheme.
func resolveURL(pageURL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// isValidImageURL accepts absolute http(s) URLs that look like images by
// extension or by a known image host pattern.
func isValidImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return imageExtPattern.MatchString(u.Path) || imageHostPattern.MatchString(raw)
}

// tooSmall reports explicit width or height attributes under 200px.
func tooSmall(img *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		if v, ok := img.Attr(attr); ok {
			if n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px")); err == nil && n > 0 && n < 200 {
				return true
			}
		}
	}
	return false
}

func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-image", "data-lazy-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// imageSet collects unique image URLs up to a limit.
type imageSet struct {
	urls  []string
	seen  map[string]struct{}
	limit int
}

func newImageSet(limit int) *imageSet {
	return &imageSet{seen: make(map[string]struct{}), limit: limit}
}

func (s *imageSet) add(u string) bool {
	if u == "" || s.full() {
		return false
	}
	if _, ok := s.seen[u]; ok {
		return false
	}
	s.seen[u] = struct{}{}
	s.urls = append(s.urls, u)
	return true
}

func (s *imageSet) full() bool {
	return len(s.urls) >= s.limit
}

func pageLanguage(doc *goquery.Document) string {
	lang, _ := doc.Find("html").First().Attr("lang")
	return primaryLanguage(lang)
}
