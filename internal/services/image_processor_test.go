package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/curation-backend/internal/config"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/testutil"
)

func TestProcessAndUploadImagesPartialFailure(t *testing.T) {
	srv := newImageServer(t, 32, 32)
	storage := testutil.NewMemoryStorage()
	processor := services.NewImageProcessor(storage, config.ImageConfig{}, "", srv.Client())

	for _, tc := range []struct{ total, failing int }{{1, 0}, {5, 2}, {8, 8}, {10, 3}} {
		t.Run(fmt.Sprintf("%d_of_%d", tc.failing, tc.total), func(t *testing.T) {
			var urls []string
			for i := 0; i < tc.total; i++ {
				if i < tc.failing {
					urls = append(urls, srv.URL+fmt.Sprintf("/missing/%d.png", i))
				} else {
					urls = append(urls, srv.URL+fmt.Sprintf("/img/%d.png", i))
				}
			}

			result := processor.ProcessAndUploadImages(context.Background(), urls, "products/test", 3)
			assert.Equal(t, tc.total, result.Total())
			assert.Len(t, result.Successful, tc.total-tc.failing)
			assert.Len(t, result.Errors, tc.failing)

			for i, img := range result.Successful {
				assert.Equal(t, urls[img.Index], img.OriginalURL)
				if i > 0 {
					assert.Greater(t, img.Index, result.Successful[i-1].Index)
				}
			}

			if tc.failing == 0 {
				assert.NoError(t, result.Err())
				return
			}
			var partial *services.PartialUploadError
			require.ErrorAs(t, result.Err(), &partial)
			assert.Equal(t, tc.failing, partial.Failed)
		})
	}
}

func TestProcessAndUploadImagesDownscales(t *testing.T) {
	srv := newImageServer(t, 400, 200)
	storage := testutil.NewMemoryStorage()
	processor := services.NewImageProcessor(storage, config.ImageConfig{MaxWidth: 100}, "", srv.Client())

	result := processor.ProcessAndUploadImages(context.Background(), []string{srv.URL + "/img/wide.png"}, "products/x", 0)
	require.Len(t, result.Successful, 1)
	img := result.Successful[0]
	assert.Equal(t, 100, img.Width)
	assert.Equal(t, 50, img.Height)
	assert.Contains(t, img.URL, "https://cdn.test/products/x/")
	assert.Contains(t, img.URL, ".jpg")
	assert.Equal(t, 1, storage.Count())
}

func TestProcessAndUploadImagesRejects(t *testing.T) {
	srv := newImageServer(t, 16, 16)
	storage := testutil.NewMemoryStorage()
	processor := services.NewImageProcessor(storage, config.ImageConfig{MaxBytes: 64 << 10}, "", srv.Client())

	result := processor.ProcessAndUploadImages(context.Background(), []string{
		srv.URL + "/text/fake.png",
		"://bad",
	}, "products/y", 0)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0].Error, "unsupported image format")
	assert.Equal(t, models.ImageUploadStatusFailed, result.UploadStatus())

	storage.FailOnKey = "products/z"
	result = processor.ProcessAndUploadImages(context.Background(), []string{srv.URL + "/img/a.png"}, "products/z", 0)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "rejected")
}

func TestProcessAndUploadImagesTooLarge(t *testing.T) {
	srv := newImageServer(t, 200, 200)
	processor := services.NewImageProcessor(testutil.NewMemoryStorage(), config.ImageConfig{MaxBytes: 100}, "", srv.Client())

	result := processor.ProcessAndUploadImages(context.Background(), []string{srv.URL + "/img/big.png"}, "products/big", 0)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error, "exceeds")
}

func TestMergeIndexed(t *testing.T) {
	result := &services.ImageResult{Successful: []services.ProcessedImage{
		{Index: 0, URL: "new-0"},
		{Index: 2, URL: "new-2"},
		{Index: 9, URL: "out-of-range"},
	}}

	assert.Equal(t, []string{"new-0", "", "new-2"}, services.MergeIndexed(3, nil, result))
	assert.Equal(t, []string{"new-0", "old-1", "new-2"}, services.MergeIndexed(3, []string{"old-0", "old-1", "old-2", "old-3"}, result))
	assert.Empty(t, services.MergeIndexed(0, []string{"x"}, result))
}

func TestImageResultUploadStatus(t *testing.T) {
	assert.Equal(t, models.ImageUploadStatusUploaded, (&services.ImageResult{}).UploadStatus())
	assert.Equal(t, models.ImageUploadStatusUploaded, (&services.ImageResult{
		Successful: []services.ProcessedImage{{}},
		Errors:     []services.ImageError{{}},
	}).UploadStatus())
	assert.Equal(t, models.ImageUploadStatusFailed, (&services.ImageResult{Errors: []services.ImageError{{}}}).UploadStatus())
}
