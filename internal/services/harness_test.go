package services_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/curation-backend/internal/config"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/scraper"
	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/testutil"
)

const shopHost = "shop.test"

// shopAdapter serves fixed product data for any shop.test URL.
type shopAdapter struct {
	mu      sync.Mutex
	product scraper.ProductData
	reviews []scraper.ReviewCandidate
}

func (a *shopAdapter) Name() string { return "testshop" }

func (a *shopAdapter) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Host == shopHost
}

func (a *shopAdapter) ExtractProduct(doc *goquery.Document, pageURL string) (*scraper.ProductData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.product.Name == "" {
		return nil, fmt.Errorf("no product name on page")
	}
	p := a.product
	return &p, nil
}

func (a *shopAdapter) ExtractReviews(doc *goquery.Document, pageURL string) ([]scraper.ReviewCandidate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]scraper.ReviewCandidate{}, a.reviews...), nil
}

func (a *shopAdapter) set(product scraper.ProductData, reviews []scraper.ReviewCandidate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.product = product
	a.reviews = reviews
}

// pageFetcher returns an empty document, or a FetchError for failing URLs.
type pageFetcher struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   int
}

func (f *pageFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failing[pageURL] {
		return nil, &scraper.FetchError{URL: pageURL, StatusCode: http.StatusServiceUnavailable, Status: "503 Service Unavailable"}
	}
	return goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
}

func (f *pageFetcher) fail(pageURL string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing == nil {
		f.failing = map[string]bool{}
	}
	f.failing[pageURL] = failing
}

// newImageServer serves a PNG under /img/ and 404 everywhere else.
func newImageServer(t *testing.T, width, height int) *httptest.Server {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	body := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/img/"):
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(body)
		case strings.HasPrefix(r.URL.Path, "/text/"):
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	store      *testutil.MemoryStore
	storage    *testutil.MemoryStorage
	translator *testutil.FakeTranslator
	adapter    *shopAdapter
	fetcher    *pageFetcher
	images     *httptest.Server
	locker     *services.LocalLocker

	scrape      *services.ScrapeService
	curation    *services.CurationService
	translation *services.TranslationService
	publisher   *services.Publisher
	pipeline    *services.PipelineService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store:      testutil.NewMemoryStore(),
		storage:    testutil.NewMemoryStorage(),
		translator: testutil.NewFakeTranslator(),
		adapter:    &shopAdapter{},
		fetcher:    &pageFetcher{},
		images:     newImageServer(t, 64, 48),
		locker:     services.NewLocalLocker(),
	}

	registry := scraper.NewRegistry(h.adapter)
	processor := services.NewImageProcessor(h.storage, config.ImageConfig{}, "", h.images.Client())

	h.scrape = services.NewScrapeService(h.store, registry, h.fetcher, nil, h.locker, 0)
	h.translation = services.NewTranslationService(h.store, h.translator, h.locker, 0)
	h.curation = services.NewCurationService(h.store, processor, h.translation, h.locker)
	h.publisher = services.NewPublisher(h.store, h.locker, services.LogInvalidator{}, config.CatalogConfig{})
	h.pipeline = services.NewPipelineService(h.store)
	return h
}

func (h *harness) imageURL(name string) string {
	return h.images.URL + "/img/" + name
}

func (h *harness) missingURL(name string) string {
	return h.images.URL + "/missing/" + name
}

func pageURL(slug string) string {
	return "https://" + shopHost + "/item/" + slug
}

// reviewSet builds distinct reviews per rating. Texts avoid delivery words.
func reviewSet(counts map[int]int) []scraper.ReviewCandidate {
	var out []scraper.ReviewCandidate
	for rating := 5; rating >= 1; rating-- {
		for i := 0; i < counts[rating]; i++ {
			out = append(out, scraper.ReviewCandidate{
				Text:       fmt.Sprintf("Avis %d étoiles numéro %d", rating, i),
				Rating:     rating,
				AuthorName: fmt.Sprintf("client-%d-%d", rating, i),
				Language:   "fr",
			})
		}
	}
	return out
}

func chichaCrystal(h *harness) scraper.ProductData {
	return scraper.ProductData{
		Name:      "Chicha Crystal",
		PriceText: "49,99 €",
		Category:  "chicha",
		Images:    []string{h.imageURL("a.png"), h.imageURL("b.png")},
	}
}

// scrapeAndSend scrapes the product page and sends it to curation.
func (h *harness) scrapeAndSend(t *testing.T, slug string) (*models.ScrapedProduct, *models.ProductDraft) {
	t.Helper()
	ctx := context.Background()

	scraped, err := h.scrape.Scrape(ctx, pageURL(slug))
	require.NoError(t, err)

	sent, err := h.curation.SendToCuration(ctx, scraped.Product.ID)
	require.NoError(t, err)
	return scraped.Product, sent.Draft
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
