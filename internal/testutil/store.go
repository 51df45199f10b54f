package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
)

// MemoryStore is a repository.Store kept in maps. It follows the gorm
// store's contracts: ErrNotFound, optimistic versions on drafts and the
// guarded MarkSentToCuration. Transactions restore a snapshot on error.
type MemoryStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	scraped  map[uuid.UUID]models.ScrapedProduct
	reviews  map[uuid.UUID]models.ScrapedReview
	drafts   map[uuid.UUID]models.ProductDraft
	products map[uuid.UUID]models.Product
	pReviews map[uuid.UUID]models.ProductReview
	audit    []models.AuditLog

	failures map[string]error
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scraped:  map[uuid.UUID]models.ScrapedProduct{},
		reviews:  map[uuid.UUID]models.ScrapedReview{},
		drafts:   map[uuid.UUID]models.ProductDraft{},
		products: map[uuid.UUID]models.Product{},
		pReviews: map[uuid.UUID]models.ProductReview{},
		failures: map[string]error{},
	}
}

// FailOn makes every call to op (e.g. "Catalog.CreateReview") return err.
// A nil err clears the failure.
func (s *MemoryStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *MemoryStore) fail(op string) error {
	return s.failures[op]
}

func (s *MemoryStore) ScrapedProducts() repository.ScrapedProductRepository {
	return &memScraped{s}
}

func (s *MemoryStore) ScrapedReviews() repository.ScrapedReviewRepository {
	return &memReviews{s}
}

func (s *MemoryStore) Drafts() repository.DraftRepository {
	return &memDrafts{s}
}

func (s *MemoryStore) Catalog() repository.CatalogRepository {
	return &memCatalog{s}
}

func (s *MemoryStore) Audit() repository.AuditRepository {
	return &memAudit{s}
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	scraped  map[uuid.UUID]models.ScrapedProduct
	reviews  map[uuid.UUID]models.ScrapedReview
	drafts   map[uuid.UUID]models.ProductDraft
	products map[uuid.UUID]models.Product
	pReviews map[uuid.UUID]models.ProductReview
	audit    []models.AuditLog
}

func (s *MemoryStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		scraped:  cloneMap(s.scraped),
		reviews:  cloneMap(s.reviews),
		drafts:   cloneMap(s.drafts),
		products: cloneMap(s.products),
		pReviews: cloneMap(s.pReviews),
		audit:    append([]models.AuditLog(nil), s.audit...),
	}
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scraped = snap.scraped
	s.reviews = snap.reviews
	s.drafts = snap.drafts
	s.products = snap.products
	s.pReviews = snap.pReviews
	s.audit = snap.audit
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneList(l pq.StringArray) pq.StringArray {
	if l == nil {
		return nil
	}
	return append(pq.StringArray{}, l...)
}

// stamp assigns an id and timestamps. CreatedAt strictly increases so
// ordering by creation is deterministic.
func (s *MemoryStore) stamp(b *models.BaseModel) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	s.seq++
	now := time.Now().Add(time.Duration(s.seq) * time.Microsecond)
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// AuditEntries returns the audit rows written so far.
func (s *MemoryStore) AuditEntries() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.audit...)
}

// ---- scraped products ----

type memScraped struct{ s *MemoryStore }

func copyScraped(p models.ScrapedProduct) models.ScrapedProduct {
	p.RawImages = cloneList(p.RawImages)
	p.UploadedImageURLs = cloneList(p.UploadedImageURLs)
	p.Reviews = nil
	return p
}

func (r *memScraped) Create(ctx context.Context, p *models.ScrapedProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ScrapedProducts.Create"); err != nil {
		return err
	}
	for _, existing := range r.s.scraped {
		if existing.SourceURL == p.SourceURL {
			return fmt.Errorf("duplicate source_url %q", p.SourceURL)
		}
	}
	r.s.stamp(&p.BaseModel)
	r.s.scraped[p.ID] = copyScraped(*p)
	return nil
}

func (r *memScraped) Upsert(ctx context.Context, p *models.ScrapedProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ScrapedProducts.Upsert"); err != nil {
		return err
	}
	for id, existing := range r.s.scraped {
		if existing.SourceURL != p.SourceURL {
			continue
		}
		// Curation state survives a re-scrape.
		updated := copyScraped(*p)
		updated.BaseModel = existing.BaseModel
		updated.ReviewCount = existing.ReviewCount
		updated.SentToCuration = existing.SentToCuration
		updated.DraftID = existing.DraftID
		r.s.stamp(&updated.BaseModel)
		r.s.scraped[id] = updated
		*p = copyScraped(updated)
		return nil
	}
	p.ID = uuid.Nil
	r.s.stamp(&p.BaseModel)
	r.s.scraped[p.ID] = copyScraped(*p)
	return nil
}

func (r *memScraped) Save(ctx context.Context, p *models.ScrapedProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ScrapedProducts.Save"); err != nil {
		return err
	}
	r.s.stamp(&p.BaseModel)
	r.s.scraped[p.ID] = copyScraped(*p)
	return nil
}

func (r *memScraped) GetByID(ctx context.Context, id uuid.UUID) (*models.ScrapedProduct, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.scraped[id]
	if !ok {
		return nil, fmt.Errorf("scraped product: %w", repository.ErrNotFound)
	}
	out := copyScraped(p)
	return &out, nil
}

func (r *memScraped) GetBySourceURL(ctx context.Context, sourceURL string) (*models.ScrapedProduct, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.scraped {
		if p.SourceURL == sourceURL {
			out := copyScraped(p)
			return &out, nil
		}
	}
	return nil, fmt.Errorf("scraped product: %w", repository.ErrNotFound)
}

func (r *memScraped) MarkSentToCuration(ctx context.Context, id, draftID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.scraped[id]
	if !ok || p.SentToCuration {
		return repository.ErrConditionFailed
	}
	p.SentToCuration = true
	p.DraftID = &draftID
	p.UpdatedAt = time.Now()
	r.s.scraped[id] = p
	return nil
}

func (r *memScraped) ReleaseDraft(ctx context.Context, draftID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.scraped {
		if p.DraftID != nil && *p.DraftID == draftID {
			p.SentToCuration = false
			p.DraftID = nil
			r.s.scraped[id] = p
		}
	}
	return nil
}

func (r *memScraped) UpdateReviewCount(ctx context.Context, id uuid.UUID, count int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.scraped[id]; ok {
		p.ReviewCount = count
		r.s.scraped[id] = p
	}
	return nil
}

func (r *memScraped) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.scraped[id]; !ok {
		return fmt.Errorf("scraped product: %w", repository.ErrNotFound)
	}
	for rid, review := range r.s.reviews {
		if review.ScrapedProductID == id {
			delete(r.s.reviews, rid)
		}
	}
	delete(r.s.scraped, id)
	return nil
}

func (r *memScraped) List(ctx context.Context, filter repository.ScrapedFilter) ([]models.ScrapedProduct, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ScrapedProduct
	for _, p := range r.s.scraped {
		if filter.SourceName != "" && p.SourceName != filter.SourceName {
			continue
		}
		if filter.Status != "" && p.ScrapeStatus != filter.Status {
			continue
		}
		if filter.SentToCuration != nil && p.SentToCuration != *filter.SentToCuration {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.RawName), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, copyScraped(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r *memScraped) ListUnsent(ctx context.Context, limit int) ([]models.ScrapedProduct, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ScrapedProduct
	for _, p := range r.s.scraped {
		if !p.SentToCuration && p.ScrapeStatus == models.ScrapeStatusSuccess {
			out = append(out, copyScraped(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memScraped) Stats(ctx context.Context) (*repository.ScrapedStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &repository.ScrapedStats{}
	for _, p := range r.s.scraped {
		stats.Total++
		switch p.ScrapeStatus {
		case models.ScrapeStatusSuccess:
			stats.Success++
		case models.ScrapeStatusError:
			stats.Failed++
		}
		if p.SentToCuration {
			stats.Sent++
		}
	}
	stats.Unsent = stats.Total - stats.Sent
	return stats, nil
}

// ---- scraped reviews ----

type memReviews struct{ s *MemoryStore }

func copyReview(r models.ScrapedReview) models.ScrapedReview {
	r.ReviewImages = cloneList(r.ReviewImages)
	r.UploadedReviewImages = cloneList(r.UploadedReviewImages)
	return r
}

func (r *memReviews) CreateBatch(ctx context.Context, reviews []models.ScrapedReview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ScrapedReviews.CreateBatch"); err != nil {
		return err
	}
	for i := range reviews {
		if reviews[i].TranslationStatus == "" {
			reviews[i].TranslationStatus = models.TranslationStatusPending
		}
		r.s.stamp(&reviews[i].BaseModel)
		r.s.reviews[reviews[i].ID] = copyReview(reviews[i])
	}
	return nil
}

func (r *memReviews) GetByID(ctx context.Context, id uuid.UUID) (*models.ScrapedReview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	review, ok := r.s.reviews[id]
	if !ok {
		return nil, fmt.Errorf("scraped review: %w", repository.ErrNotFound)
	}
	out := copyReview(review)
	return &out, nil
}

func (r *memReviews) Save(ctx context.Context, review *models.ScrapedReview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ScrapedReviews.Save"); err != nil {
		return err
	}
	r.s.stamp(&review.BaseModel)
	r.s.reviews[review.ID] = copyReview(*review)
	return nil
}

func (r *memReviews) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.ScrapedReview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ScrapedReview
	for _, review := range r.s.reviews {
		if review.ScrapedProductID == productID {
			out = append(out, copyReview(review))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memReviews) ListPending(ctx context.Context, productID *uuid.UUID, limit int) ([]models.ScrapedReview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ScrapedReview
	for _, review := range r.s.reviews {
		if review.TranslationStatus != models.TranslationStatusPending {
			continue
		}
		if productID != nil && review.ScrapedProductID != *productID {
			continue
		}
		out = append(out, copyReview(review))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HasPhotos() != out[j].HasPhotos() {
			return out[i].HasPhotos()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memReviews) ClaimForTranslation(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("ScrapedReviews.ClaimForTranslation"); err != nil {
		return err
	}
	review, ok := r.s.reviews[id]
	if !ok || review.TranslationStatus != models.TranslationStatusPending {
		return repository.ErrConditionFailed
	}
	review.TranslationStatus = models.TranslationStatusTranslating
	review.UpdatedAt = time.Now()
	r.s.reviews[id] = review
	return nil
}

func (r *memReviews) Stats(ctx context.Context) (*repository.ReviewStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &repository.ReviewStats{ByRating: map[int]int64{}}
	for rating := 1; rating <= 5; rating++ {
		stats.ByRating[rating] = 0
	}
	for _, review := range r.s.reviews {
		stats.Total++
		switch review.TranslationStatus {
		case models.TranslationStatusPending:
			stats.Pending++
		case models.TranslationStatusTranslating:
			stats.Translating++
		case models.TranslationStatusTranslated:
			stats.Translated++
		case models.TranslationStatusFailed:
			stats.Failed++
		}
		if len(review.ReviewImages) > 0 {
			stats.WithPhotos++
		}
		stats.ByRating[review.Rating]++
	}
	return stats, nil
}

// ---- drafts ----

type memDrafts struct{ s *MemoryStore }

func copyDraft(d models.ProductDraft) models.ProductDraft {
	d.RawImages = cloneList(d.RawImages)
	d.UploadedImages = cloneList(d.UploadedImages)
	d.CuratedImages = cloneList(d.CuratedImages)
	return d
}

func (r *memDrafts) Create(ctx context.Context, d *models.ProductDraft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Drafts.Create"); err != nil {
		return err
	}
	if d.ScrapedProductID != nil {
		for _, existing := range r.s.drafts {
			if existing.ScrapedProductID != nil && *existing.ScrapedProductID == *d.ScrapedProductID {
				return fmt.Errorf("duplicate scraped_product_id %s", d.ScrapedProductID)
			}
		}
	}
	if d.Version == 0 {
		d.Version = 1
	}
	r.s.stamp(&d.BaseModel)
	r.s.drafts[d.ID] = copyDraft(*d)
	return nil
}

func (r *memDrafts) GetByID(ctx context.Context, id uuid.UUID) (*models.ProductDraft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[id]
	if !ok {
		return nil, fmt.Errorf("draft: %w", repository.ErrNotFound)
	}
	out := copyDraft(d)
	return &out, nil
}

func (r *memDrafts) Update(ctx context.Context, d *models.ProductDraft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Drafts.Update"); err != nil {
		return err
	}
	stored, ok := r.s.drafts[d.ID]
	if !ok {
		return fmt.Errorf("draft: %w", repository.ErrNotFound)
	}
	if stored.Version != d.Version {
		return repository.ErrVersionConflict
	}
	d.Version++
	d.CreatedAt = stored.CreatedAt
	r.s.stamp(&d.BaseModel)
	r.s.drafts[d.ID] = copyDraft(*d)
	return nil
}

func (r *memDrafts) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.drafts[id]; !ok {
		return fmt.Errorf("draft: %w", repository.ErrNotFound)
	}
	delete(r.s.drafts, id)
	return nil
}

func (r *memDrafts) List(ctx context.Context, filter repository.DraftFilter) ([]models.ProductDraft, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ProductDraft
	for _, d := range r.s.drafts {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, d.Status) {
			continue
		}
		out = append(out, copyDraft(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}

func (r *memDrafts) ListByStatus(ctx context.Context, status models.DraftStatus, limit int) ([]models.ProductDraft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ProductDraft
	for _, d := range r.s.drafts {
		if d.Status == status {
			out = append(out, copyDraft(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memDrafts) CountByStatus(ctx context.Context) (map[models.DraftStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[models.DraftStatus]int64, len(models.AllDraftStatuses))
	for _, status := range models.AllDraftStatuses {
		counts[status] = 0
	}
	for _, d := range r.s.drafts {
		counts[d.Status]++
	}
	return counts, nil
}

func containsStatus(statuses []models.DraftStatus, status models.DraftStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// ---- catalog ----

type memCatalog struct{ s *MemoryStore }

func (r *memCatalog) CreateProduct(ctx context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Catalog.CreateProduct"); err != nil {
		return err
	}
	for _, existing := range r.s.products {
		if existing.Slug == p.Slug {
			return fmt.Errorf("duplicate slug %q", p.Slug)
		}
	}
	r.s.stamp(&p.BaseModel)
	stored := *p
	stored.Images = cloneList(p.Images)
	stored.Reviews = nil
	r.s.products[p.ID] = stored
	return nil
}

func (r *memCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("catalog product: %w", repository.ErrNotFound)
	}
	return &p, nil
}

func (r *memCatalog) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.Slug == slug {
			out := p
			return &out, nil
		}
	}
	return nil, fmt.Errorf("catalog product: %w", repository.ErrNotFound)
}

func (r *memCatalog) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *memCatalog) UpdateProductRating(ctx context.Context, id uuid.UUID, rating float64, count int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.products[id]; ok {
		p.Rating = rating
		p.ReviewCount = count
		r.s.products[id] = p
	}
	return nil
}

func (r *memCatalog) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Catalog.DeleteProduct"); err != nil {
		return err
	}
	for rid, review := range r.s.pReviews {
		if review.ProductID == id {
			delete(r.s.pReviews, rid)
		}
	}
	if _, ok := r.s.products[id]; !ok {
		return fmt.Errorf("catalog product: %w", repository.ErrNotFound)
	}
	delete(r.s.products, id)
	return nil
}

func (r *memCatalog) CreateReview(ctx context.Context, review *models.ProductReview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("Catalog.CreateReview"); err != nil {
		return err
	}
	r.s.stamp(&review.BaseModel)
	stored := *review
	stored.ReviewPhotos = cloneList(review.ReviewPhotos)
	r.s.pReviews[review.ID] = stored
	return nil
}

func (r *memCatalog) FindReview(ctx context.Context, productID uuid.UUID, rating int, userName string) (*models.ProductReview, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *models.ProductReview
	for _, review := range r.s.pReviews {
		if review.ProductID != productID || review.Rating != rating || review.UserName != userName {
			continue
		}
		if found == nil || review.CreatedAt.Before(found.CreatedAt) {
			out := review
			found = &out
		}
	}
	if found == nil {
		return nil, fmt.Errorf("product review: %w", repository.ErrNotFound)
	}
	return found, nil
}

func (r *memCatalog) UpdateReview(ctx context.Context, review *models.ProductReview) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.pReviews[review.ID]
	if !ok {
		return fmt.Errorf("product review: %w", repository.ErrNotFound)
	}
	stored.Comment = review.Comment
	stored.ReviewPhotos = cloneList(review.ReviewPhotos)
	r.s.pReviews[review.ID] = stored
	return nil
}

// ProductReviews lists the catalog reviews of a product in creation order.
func (s *MemoryStore) ProductReviews(productID uuid.UUID) []models.ProductReview {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProductReview
	for _, review := range s.pReviews {
		if review.ProductID == productID {
			out = append(out, review)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ProductCount returns the number of catalog products.
func (s *MemoryStore) ProductCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

// ---- audit ----

type memAudit struct{ s *MemoryStore }

func (r *memAudit) Create(ctx context.Context, entry *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stamp(&entry.BaseModel)
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
