// internal/tests/pipeline_api_test.go
package tests

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/curation-backend/internal/config"
	"github.com/javajoker/curation-backend/internal/i18n"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/router"
	"github.com/javajoker/curation-backend/internal/scraper"
	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/testutil"
)

type PipelineAPITestSuite struct {
	suite.Suite

	shop       *httptest.Server
	store      *testutil.MemoryStore
	storage    *testutil.MemoryStorage
	translator *testutil.FakeTranslator
	router     *gin.Engine
	cancel     context.CancelFunc

	// backSoonUp switches /produit/back-soon from 404 to a product page.
	backSoonUp atomic.Bool
}

func (suite *PipelineAPITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize("en"))

	img := pngBytes(suite.T(), 40, 30)
	mux := http.NewServeMux()
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	})
	mux.HandleFunc("/produit/chicha-crystal", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(productPage(suite.shop.URL, "Chicha Crystal", "49.99",
			[]string{"/img/front.png", "/img/side.png"},
			[]pageReview{
				{Author: "Karim", Rating: 5, Body: "Superb glass, great draw"},
				{Author: "Lea", Rating: 5, Body: "Beautiful piece"},
				{Author: "Sam", Rating: 4, Body: "Nice but heavy"},
				{Author: "Ines", Rating: 2, Body: "The hose broke after a week"},
			})))
	})
	mux.HandleFunc("/produit/back-soon", func(w http.ResponseWriter, r *http.Request) {
		if !suite.backSoonUp.Load() {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(productPage(suite.shop.URL, "Chicha Back", "39.99",
			[]string{"/img/front.png"},
			[]pageReview{{Author: "Nora", Rating: 5, Body: "Worth the wait"}})))
	})
	suite.shop = httptest.NewServer(mux)
}

func (suite *PipelineAPITestSuite) TearDownSuite() {
	suite.shop.Close()
}

func (suite *PipelineAPITestSuite) SetupTest() {
	suite.backSoonUp.Store(false)
	suite.store = testutil.NewMemoryStore()
	suite.storage = testutil.NewMemoryStorage()
	suite.translator = testutil.NewFakeTranslator()

	locker := services.NewLocalLocker()
	fetcher := scraper.NewHTTPFetcher(scraper.FetcherConfig{Timeout: 5 * time.Second})
	images := services.NewImageProcessor(suite.storage, config.ImageConfig{}, "", suite.shop.Client())

	scrapeService := services.NewScrapeService(suite.store, scraper.NewRegistry(scraper.NewGenericAdapter()), fetcher, nil, locker, 0)
	translationService := services.NewTranslationService(suite.store, suite.translator, locker, 0)
	curationService := services.NewCurationService(suite.store, images, translationService, locker)

	cfg := &config.Config{Environment: "test"}
	var ctx context.Context
	ctx, suite.cancel = context.WithCancel(context.Background())
	suite.router = router.Initialize(ctx, cfg, router.Services{
		Store:       suite.store,
		Scrape:      scrapeService,
		Curation:    curationService,
		Translation: translationService,
		Publisher:   services.NewPublisher(suite.store, locker, services.LogInvalidator{}, config.CatalogConfig{}),
		Pipeline:    services.NewPipelineService(suite.store),
	})
}

func (suite *PipelineAPITestSuite) TearDownTest() {
	suite.cancel()
}

func (suite *PipelineAPITestSuite) do(method, path string, body interface{}, headers ...string) response {
	return doRequest(suite.T(), suite.router, method, path, body, headers...)
}

func (suite *PipelineAPITestSuite) pageURL() string {
	return suite.shop.URL + "/produit/chicha-crystal"
}

// scrapeAndSend scrapes the fixture page and sends it to curation, returning
// the scraped product and draft ids.
func (suite *PipelineAPITestSuite) scrapeAndSend() (string, string) {
	res := suite.do(http.MethodPost, "/v1/scraped", gin.H{"url": suite.pageURL()})
	suite.Require().Equal(http.StatusCreated, res.Code, res.Body.Error)

	var scraped struct {
		Result services.ScrapeResult `json:"result"`
	}
	res.decode(suite.T(), &scraped)
	productID := scraped.Result.Product.ID.String()

	res = suite.do(http.MethodPost, "/v1/scraped/"+productID+"/send-to-curation", nil)
	suite.Require().Equal(http.StatusCreated, res.Code, res.Body.Error)

	var sent struct {
		Draft models.ProductDraft `json:"draft"`
	}
	res.decode(suite.T(), &sent)
	return productID, sent.Draft.ID.String()
}

func (suite *PipelineAPITestSuite) draft(id string) services.DraftDetail {
	res := suite.do(http.MethodGet, "/v1/drafts/"+id, nil)
	suite.Require().Equal(http.StatusOK, res.Code)
	var body struct {
		Draft struct {
			models.ProductDraft
			Effective []models.EffectiveValue `json:"effective"`
			Missing   []string                `json:"missing"`
		} `json:"draft"`
	}
	res.decode(suite.T(), &body)
	return services.DraftDetail{ProductDraft: &body.Draft.ProductDraft, Effective: body.Draft.Effective, Missing: body.Draft.Missing}
}

func (suite *PipelineAPITestSuite) TestHealth() {
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "healthy")
}

func (suite *PipelineAPITestSuite) TestScrapeCurateAndPublish() {
	productID, draftID := suite.scrapeAndSend()

	// Reviews were sampled and stored.
	res := suite.do(http.MethodGet, "/v1/scraped/"+productID+"/reviews", nil)
	suite.Require().Equal(http.StatusOK, res.Code)
	var reviews struct {
		Reviews []models.ScrapedReview `json:"reviews"`
	}
	res.decode(suite.T(), &reviews)
	suite.Len(reviews.Reviews, 4)

	// A product is sent once.
	res = suite.do(http.MethodPost, "/v1/scraped/"+productID+"/send-to-curation", nil)
	suite.Equal(http.StatusConflict, res.Code)
	suite.Equal("CONFLICT", res.Body.Error.Code)

	detail := suite.draft(draftID)
	suite.Equal(models.DraftStatusPendingTranslation, detail.Status)
	suite.Equal("Chicha Crystal", detail.RawName)
	suite.Len(detail.UploadedImages, 2)
	for _, u := range detail.UploadedImages {
		suite.True(strings.HasPrefix(u, "https://cdn.test/products/"), u)
	}

	res = suite.do(http.MethodPost, "/v1/drafts/translate-batch", nil)
	suite.Require().Equal(http.StatusOK, res.Code)
	var batch struct {
		Result services.BatchResult `json:"result"`
	}
	res.decode(suite.T(), &batch)
	suite.Equal(1, batch.Result.Translated)

	detail = suite.draft(draftID)
	suite.Equal(models.DraftStatusTranslated, detail.Status)
	suite.Empty(detail.Missing)

	// A stale version is refused.
	res = suite.do(http.MethodPut, "/v1/drafts/"+draftID+"/curated", gin.H{
		"version":          detail.Version - 1,
		"compare_at_price": 7990,
	})
	suite.Equal(http.StatusConflict, res.Code)
	suite.Equal("VERSION_CONFLICT", res.Body.Error.Code)

	res = suite.do(http.MethodPut, "/v1/drafts/"+draftID+"/curated", gin.H{
		"version":          detail.Version,
		"compare_at_price": 7990,
	})
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)

	res = suite.do(http.MethodPut, "/v1/drafts/"+draftID+"/approve", gin.H{"reviewed_by": "amel"})
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)

	res = suite.do(http.MethodPost, "/v1/drafts/"+draftID+"/publish", nil)
	suite.Require().Equal(http.StatusCreated, res.Code, res.Body.Error)
	var published struct {
		Product models.Product `json:"product"`
	}
	res.decode(suite.T(), &published)
	suite.Equal("chicha-cristal", published.Product.Slug)
	suite.Equal(int64(5990), published.Product.Price)
	suite.Require().NotNil(published.Product.CompareAtPrice)
	suite.Equal(int64(7990), *published.Product.CompareAtPrice)
	suite.Len(suite.store.ProductReviews(published.Product.ID), 4)

	res = suite.do(http.MethodPost, "/v1/drafts/"+draftID+"/publish", nil)
	suite.Equal(http.StatusConflict, res.Code)
	suite.Equal("STATE_CONFLICT", res.Body.Error.Code)

	res = suite.do(http.MethodDelete, "/v1/drafts/"+draftID, nil)
	suite.Equal(http.StatusConflict, res.Code)
	suite.Equal("STATE_CONFLICT", res.Body.Error.Code)

	res = suite.do(http.MethodPost, "/v1/drafts/"+draftID+"/sync-review-images", nil)
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)

	res = suite.do(http.MethodPost, "/v1/drafts/"+draftID+"/unpublish", nil)
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)
	suite.Zero(suite.store.ProductCount())
	suite.Equal(models.DraftStatusApproved, suite.draft(draftID).Status)

	res = suite.do(http.MethodGet, "/v1/pipeline/stats", nil)
	suite.Require().Equal(http.StatusOK, res.Code)
	var stats struct {
		Stats services.PipelineStats `json:"stats"`
	}
	res.decode(suite.T(), &stats)
	suite.Equal(int64(1), stats.Stats.Scraped.Total)
	suite.Equal(int64(1), stats.Stats.Drafts[models.DraftStatusApproved])

	// Mutations are audited off the request path.
	suite.Eventually(func() bool {
		return len(suite.store.AuditEntries()) > 0
	}, time.Second, 10*time.Millisecond)
}

func (suite *PipelineAPITestSuite) TestApproveNeedsRequiredFields() {
	suite.translator.ProductErr = errors.New("upstream unavailable")

	res := suite.do(http.MethodPost, "/v1/drafts", gin.H{"name": "Bol Terre"})
	suite.Require().Equal(http.StatusCreated, res.Code, res.Body.Error)
	var created struct {
		Draft models.ProductDraft `json:"draft"`
	}
	res.decode(suite.T(), &created)
	id := created.Draft.ID.String()

	// Translation fails but still leaves the draft reviewable.
	res = suite.do(http.MethodPost, "/v1/drafts/"+id+"/retranslate", nil)
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)
	detail := suite.draft(id)
	suite.Equal(models.DraftStatusTranslated, detail.Status)
	suite.NotNil(detail.TranslationError)

	res = suite.do(http.MethodPut, "/v1/drafts/"+id+"/approve", nil)
	suite.Equal(http.StatusUnprocessableEntity, res.Code)
	suite.Equal("DRAFT_INCOMPLETE", res.Body.Error.Code)
	suite.Contains(string(res.Body.Error.Details), "category")
	suite.Contains(string(res.Body.Error.Details), "price")

	res = suite.do(http.MethodPut, "/v1/drafts/"+id+"/curated", gin.H{"category": "pipe"})
	suite.Equal(http.StatusBadRequest, res.Code)
	suite.Equal("VALIDATION_ERROR", res.Body.Error.Code)
	suite.Contains(string(res.Body.Error.Details), "product_category")

	res = suite.do(http.MethodPut, "/v1/drafts/"+id+"/curated", gin.H{"category": "Bol", "price": 1290})
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)

	res = suite.do(http.MethodPut, "/v1/drafts/"+id+"/reject", gin.H{})
	suite.Equal(http.StatusBadRequest, res.Code)

	res = suite.do(http.MethodPut, "/v1/drafts/"+id+"/approve", nil)
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)
	suite.Equal(models.DraftStatusApproved, suite.draft(id).Status)
}

func (suite *PipelineAPITestSuite) TestListDrafts() {
	for _, name := range []string{"Tuyau Silicone", "Charbon Coco"} {
		res := suite.do(http.MethodPost, "/v1/drafts", gin.H{"name": name})
		suite.Require().Equal(http.StatusCreated, res.Code)
	}

	res := suite.do(http.MethodGet, "/v1/drafts?status=pending_translation,translated&limit=1", nil)
	suite.Require().Equal(http.StatusOK, res.Code)
	var drafts []models.ProductDraft
	res.decode(suite.T(), &drafts)
	suite.Len(drafts, 1)
	suite.Contains(string(res.Body.Meta), `"total":2`)

	res = suite.do(http.MethodGet, "/v1/drafts?status=bogus", nil)
	suite.Equal(http.StatusBadRequest, res.Code)
	suite.Equal("VALIDATION_ERROR", res.Body.Error.Code)
}

func (suite *PipelineAPITestSuite) TestScrapeErrors() {
	res := suite.do(http.MethodPost, "/v1/scraped", gin.H{"url": "ftp://shop.test/item"})
	suite.Equal(http.StatusBadRequest, res.Code)
	suite.Equal("VALIDATION_ERROR", res.Body.Error.Code)
	suite.Contains(string(res.Body.Error.Details), "http_url")

	res = suite.do(http.MethodPost, "/v1/scraped", gin.H{"url": suite.shop.URL + "/produit/missing"})
	suite.Equal(http.StatusBadGateway, res.Code)
	suite.Equal("FETCH_FAILED", res.Body.Error.Code)

	res = suite.do(http.MethodPost, "/v1/scraped/batch", gin.H{"urls": []string{suite.pageURL(), suite.shop.URL + "/produit/missing"}})
	suite.Require().Equal(http.StatusOK, res.Code)
	var batch services.BatchScrapeResult
	res.decode(suite.T(), &batch)
	suite.Len(batch.Results, 1)
	suite.Len(batch.Errors, 1)
}

func (suite *PipelineAPITestSuite) TestFailedFirstScrapeCanBeRetried() {
	pageURL := suite.shop.URL + "/produit/back-soon"

	res := suite.do(http.MethodPost, "/v1/scraped", gin.H{"url": pageURL})
	suite.Require().Equal(http.StatusBadGateway, res.Code)
	suite.Equal("FETCH_FAILED", res.Body.Error.Code)

	failed, err := suite.store.ScrapedProducts().GetBySourceURL(context.Background(), pageURL)
	suite.Require().NoError(err)
	id := failed.ID.String()

	res = suite.do(http.MethodGet, "/v1/scraped/"+id, nil)
	suite.Require().Equal(http.StatusOK, res.Code)
	var got struct {
		Product models.ScrapedProduct `json:"product"`
	}
	res.decode(suite.T(), &got)
	suite.Equal(models.ScrapeStatusError, got.Product.ScrapeStatus)
	suite.Require().NotNil(got.Product.ErrorMessage)
	suite.Contains(*got.Product.ErrorMessage, "404")

	res = suite.do(http.MethodPost, "/v1/scraped/"+id+"/send-to-curation", nil)
	suite.Equal(http.StatusBadRequest, res.Code)

	suite.backSoonUp.Store(true)
	res = suite.do(http.MethodPost, "/v1/scraped/"+id+"/retry", nil)
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)
	var retried struct {
		Result services.ScrapeResult `json:"result"`
	}
	res.decode(suite.T(), &retried)
	suite.Equal(failed.ID, retried.Result.Product.ID)
	suite.Equal(models.ScrapeStatusSuccess, retried.Result.Product.ScrapeStatus)
	suite.Nil(retried.Result.Product.ErrorMessage)
	suite.Equal("Chicha Back", retried.Result.Product.RawName)
}

func (suite *PipelineAPITestSuite) TestNotFoundIsLocalized() {
	id := "6f1c1c2e-5d55-4f43-9a43-3f9c1f2f4b10"

	res := suite.do(http.MethodGet, "/v1/drafts/"+id, nil)
	suite.Equal(http.StatusNotFound, res.Code)
	suite.Equal("NOT_FOUND", res.Body.Error.Code)
	suite.Equal("Draft not found", res.Body.Error.Message)

	res = suite.do(http.MethodGet, "/v1/scraped/"+id, nil, "Accept-Language", "fr-FR,fr;q=0.9")
	suite.Equal(http.StatusNotFound, res.Code)
	suite.Equal("Produit extrait introuvable", res.Body.Error.Message)

	res = suite.do(http.MethodGet, "/v1/drafts/not-a-uuid", nil)
	suite.Equal(http.StatusBadRequest, res.Code)
	suite.Equal("BAD_REQUEST", res.Body.Error.Code)
}

func (suite *PipelineAPITestSuite) TestReviewEndpoints() {
	productID, _ := suite.scrapeAndSend()

	res := suite.do(http.MethodGet, "/v1/reviews/stats", nil)
	suite.Require().Equal(http.StatusOK, res.Code)

	res = suite.do(http.MethodPost, "/v1/reviews/translate-batch", gin.H{"limit": 2})
	suite.Require().Equal(http.StatusOK, res.Code)
	var batch struct {
		Result services.BatchResult `json:"result"`
	}
	res.decode(suite.T(), &batch)
	suite.Equal(2, batch.Result.Translated)

	res = suite.do(http.MethodPost, "/v1/reviews/translate-batch", gin.H{"limit": 1000})
	suite.Equal(http.StatusBadRequest, res.Code)

	reviews, err := suite.store.ScrapedReviews().ListByProduct(context.Background(), uuid.MustParse(productID))
	suite.Require().NoError(err)
	suite.Require().NotEmpty(reviews)

	res = suite.do(http.MethodPut, "/v1/reviews/"+reviews[0].ID.String()+"/curated-text", gin.H{"text": "  Très belle chicha  "})
	suite.Require().Equal(http.StatusOK, res.Code, res.Body.Error)
	var updated struct {
		Review models.ScrapedReview `json:"review"`
	}
	res.decode(suite.T(), &updated)
	suite.Require().NotNil(updated.Review.CuratedText)
	suite.Equal("Très belle chicha", *updated.Review.CuratedText)
}

func (suite *PipelineAPITestSuite) TestCategories() {
	res := suite.do(http.MethodGet, "/v1/categories", nil)
	suite.Require().Equal(http.StatusOK, res.Code)
	var body struct {
		Categories []string `json:"categories"`
	}
	res.decode(suite.T(), &body)
	suite.Equal([]string{"chicha", "bol", "tuyau", "charbon", "accessoire"}, body.Categories)
}

func TestPipelineAPISuite(t *testing.T) {
	suite.Run(t, new(PipelineAPITestSuite))
}
