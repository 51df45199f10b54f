// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess       = "success"
	KeyInternalError = "error.internal"
	KeyRateLimited   = "error.rate_limited"

	// Scraping
	KeyScrapeCompleted      = "scrape.completed"
	KeyScrapeBatchCompleted = "scrape.batch_completed"
	KeyScrapeNoAdapter      = "scrape.no_adapter"
	KeyScrapeAdapterFailed  = "scrape.adapter_failed"
	KeyScrapeFetchFailed    = "scrape.fetch_failed"
	KeyScrapedDeleted       = "scraped_product.deleted"
	KeyScrapedNotFound      = "scraped_product.not_found"
	KeyReviewsRescraped     = "scraped_product.reviews_rescraped"
	KeySentToCuration       = "scraped_product.sent_to_curation"
	KeyAlreadySent          = "scraped_product.already_sent"
	KeyUploadPartial        = "image.upload_partial"

	// Drafts
	KeyDraftCreated      = "draft.created"
	KeyDraftUpdated      = "draft.updated"
	KeyDraftDeleted      = "draft.deleted"
	KeyDraftNotFound     = "draft.not_found"
	KeyDraftApproved     = "draft.approved"
	KeyDraftRejected     = "draft.rejected"
	KeyDraftInReview     = "draft.in_review"
	KeyDraftRetranslated = "draft.retranslated"
	KeyDraftPublished    = "draft.published"
	KeyDraftUnpublished  = "draft.unpublished"
	KeyDraftIncomplete   = "draft.incomplete"
	KeyDraftConflict     = "draft.state_conflict"
	KeyVersionConflict   = "draft.version_conflict"
	KeyTranslateBatch    = "draft.translate_batch"

	// Reviews
	KeyReviewNotFound      = "review.not_found"
	KeyReviewTextUpdated   = "review.text_updated"
	KeyReviewImagesDone    = "review.images_uploaded"
	KeyReviewImagesSynced  = "review.images_synced"
	KeyReviewTranslateDone = "review.translate_batch"

	// Catalog
	KeyProductNotFound = "product.not_found"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
