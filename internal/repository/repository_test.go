package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/testutil"
)

func TestDraftUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("bumps the version when it matches", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		store := repository.NewGormStore(m.DB)

		m.Mock.ExpectExec(`UPDATE "product_drafts" SET .*WHERE .*version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		d := &models.ProductDraft{RawName: "Chicha Crystal", Status: models.DraftStatusApproved, Version: 3}
		d.ID = uuid.New()
		require.NoError(t, store.Drafts().Update(ctx, d))
		assert.Equal(t, 4, d.Version)
		m.ExpectationsWereMet(t)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		store := repository.NewGormStore(m.DB)

		m.Mock.ExpectExec(`UPDATE "product_drafts" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		m.Mock.ExpectQuery(`SELECT count\(\*\) FROM "product_drafts"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		d := &models.ProductDraft{RawName: "x", Version: 2}
		d.ID = uuid.New()
		err := store.Drafts().Update(ctx, d)
		assert.True(t, errors.Is(err, repository.ErrVersionConflict))
		assert.Equal(t, 2, d.Version)
		m.ExpectationsWereMet(t)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		store := repository.NewGormStore(m.DB)

		m.Mock.ExpectExec(`UPDATE "product_drafts" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		m.Mock.ExpectQuery(`SELECT count\(\*\) FROM "product_drafts"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		d := &models.ProductDraft{RawName: "x", Version: 1}
		d.ID = uuid.New()
		err := store.Drafts().Update(ctx, d)
		assert.True(t, errors.Is(err, repository.ErrNotFound))
		m.ExpectationsWereMet(t)
	})
}

func TestDraftGetByIDNotFound(t *testing.T) {
	m := testutil.NewMockDB(t)
	store := repository.NewGormStore(m.DB)

	m.Mock.ExpectQuery(`SELECT \* FROM "product_drafts" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Drafts().GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	m.ExpectationsWereMet(t)
}

func TestMarkSentToCurationIsGuarded(t *testing.T) {
	ctx := context.Background()
	m := testutil.NewMockDB(t)
	store := repository.NewGormStore(m.DB)

	m.Mock.ExpectExec(`UPDATE "scraped_products" SET .* WHERE id = \$\d+ AND sent_to_curation = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.Mock.ExpectExec(`UPDATE "scraped_products" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	id, draftID := uuid.New(), uuid.New()
	require.NoError(t, store.ScrapedProducts().MarkSentToCuration(ctx, id, draftID))

	err := store.ScrapedProducts().MarkSentToCuration(ctx, id, draftID)
	assert.True(t, errors.Is(err, repository.ErrConditionFailed))
	m.ExpectationsWereMet(t)
}

func TestClaimForTranslationIsGuarded(t *testing.T) {
	ctx := context.Background()
	m := testutil.NewMockDB(t)
	store := repository.NewGormStore(m.DB)

	m.Mock.ExpectExec(`UPDATE "scraped_reviews" SET .* WHERE \(?id = \$\d+ AND translation_status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	m.Mock.ExpectExec(`UPDATE "scraped_reviews" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	id := uuid.New()
	require.NoError(t, store.ScrapedReviews().ClaimForTranslation(ctx, id))
	assert.ErrorIs(t, store.ScrapedReviews().ClaimForTranslation(ctx, id), repository.ErrConditionFailed)
	m.ExpectationsWereMet(t)
}

func TestCatalogDeleteProductRemovesReviewsFirst(t *testing.T) {
	m := testutil.NewMockDB(t)
	store := repository.NewGormStore(m.DB)

	m.Mock.ExpectExec(`DELETE FROM "product_reviews" WHERE product_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 4))
	m.Mock.ExpectExec(`DELETE FROM "products" WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Catalog().DeleteProduct(context.Background(), uuid.New()))
	m.ExpectationsWereMet(t)
}

func TestTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		store := repository.NewGormStore(m.DB)

		m.Mock.ExpectBegin()
		m.Mock.ExpectExec(`UPDATE "scraped_products" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
		m.Mock.ExpectCommit()

		err := store.Transaction(ctx, func(tx repository.Store) error {
			return tx.ScrapedProducts().ReleaseDraft(ctx, uuid.New())
		})
		require.NoError(t, err)
		m.ExpectationsWereMet(t)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		m := testutil.NewMockDB(t)
		store := repository.NewGormStore(m.DB)

		m.Mock.ExpectBegin()
		m.Mock.ExpectRollback()

		boom := errors.New("boom")
		err := store.Transaction(ctx, func(repository.Store) error { return boom })
		assert.True(t, errors.Is(err, boom))
		m.ExpectationsWereMet(t)
	})
}

func TestCountByStatusFillsZeroes(t *testing.T) {
	m := testutil.NewMockDB(t)
	store := repository.NewGormStore(m.DB)

	m.Mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count FROM "product_drafts" GROUP BY "?status"?`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("approved", 2).
			AddRow("published", 1))

	counts, err := store.Drafts().CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.DraftStatusApproved])
	assert.Equal(t, int64(1), counts[models.DraftStatusPublished])
	assert.Equal(t, int64(0), counts[models.DraftStatusPendingTranslation])
	assert.Len(t, counts, len(models.AllDraftStatuses))
	m.ExpectationsWereMet(t)
}
