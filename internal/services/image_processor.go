// internal/services/image_processor.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/javajoker/curation-backend/internal/config"
	"github.com/javajoker/curation-backend/internal/models"
	"github.com/javajoker/curation-backend/internal/scraper"
)

const DefaultImageConcurrency = 2

type ImageProcessor struct {
	storage ObjectStorage
	client  *http.Client
	config  config.ImageConfig
	agent   string
}

// ProcessedImage is one uploaded image. Index is its position in the input.
type ProcessedImage struct {
	Index       int    `json:"index"`
	OriginalURL string `json:"original_url"`
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int64  `json:"size"`
}

type ImageError struct {
	Index       int    `json:"index"`
	OriginalURL string `json:"original_url"`
	Error       string `json:"error"`
}

// ImageResult is the outcome of a batch. len(Successful)+len(Errors) always
// equals the number of input URLs.
type ImageResult struct {
	Successful []ProcessedImage `json:"successful"`
	Errors     []ImageError     `json:"errors"`
}

func (r *ImageResult) Total() int {
	return len(r.Successful) + len(r.Errors)
}

// Err returns a *PartialUploadError when any item failed, nil otherwise.
func (r *ImageResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &PartialUploadError{Total: r.Total(), Failed: len(r.Errors), Errors: r.Errors}
}

// UploadStatus maps a batch result to the product's image upload status.
// A batch counts as uploaded when at least one item made it.
func (r *ImageResult) UploadStatus() models.ImageUploadStatus {
	if r.Total() > 0 && len(r.Successful) == 0 {
		return models.ImageUploadStatusFailed
	}
	return models.ImageUploadStatusUploaded
}

// URLs returns the uploaded URLs in input order.
func (r *ImageResult) URLs() []string {
	urls := make([]string, 0, len(r.Successful))
	for _, img := range r.Successful {
		urls = append(urls, img.URL)
	}
	return urls
}

// MergeIndexed lays the batch result over a previous upload so that
// position i always refers to raw image i. Failed positions keep whatever
// the previous upload had there, or "" when there was nothing.
func MergeIndexed(rawLen int, existing []string, result *ImageResult) []string {
	merged := make([]string, rawLen)
	for i := 0; i < rawLen && i < len(existing); i++ {
		merged[i] = existing[i]
	}
	for _, img := range result.Successful {
		if img.Index >= 0 && img.Index < rawLen {
			merged[img.Index] = img.URL
		}
	}
	return merged
}

func NewImageProcessor(storage ObjectStorage, cfg config.ImageConfig, userAgent string, client *http.Client) *ImageProcessor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultImageConcurrency
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 15 * time.Second
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 1200
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 85
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if userAgent == "" {
		userAgent = scraper.DefaultUserAgent
	}
	if client == nil {
		client = &http.Client{}
	}
	return &ImageProcessor{storage: storage, client: client, config: cfg, agent: userAgent}
}

// ProcessAndUploadImages fetches every URL, normalizes it to JPEG and uploads
// it under folder. At most concurrency items run at once; a non-positive
// value uses the configured default. One item failing never stops the others.
func (p *ImageProcessor) ProcessAndUploadImages(ctx context.Context, urls []string, folder string, concurrency int) *ImageResult {
	if concurrency <= 0 {
		concurrency = p.config.Concurrency
	}

	type outcome struct {
		image *ProcessedImage
		err   *ImageError
	}
	outcomes := make([]outcome, len(urls))

	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, rawURL := range urls {
		wg.Add(1)
		go func(index int, rawURL string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				outcomes[index].err = &ImageError{Index: index, OriginalURL: rawURL, Error: ctx.Err().Error()}
				return
			}

			img, err := p.processOne(ctx, rawURL, folder)
			if err != nil {
				outcomes[index].err = &ImageError{Index: index, OriginalURL: rawURL, Error: err.Error()}
				return
			}
			img.Index = index
			outcomes[index].image = img
		}(i, rawURL)
	}
	wg.Wait()

	result := &ImageResult{Successful: []ProcessedImage{}, Errors: []ImageError{}}
	for _, o := range outcomes {
		if o.image != nil {
			result.Successful = append(result.Successful, *o.image)
		} else if o.err != nil {
			result.Errors = append(result.Errors, *o.err)
		}
	}
	sort.Slice(result.Successful, func(i, j int) bool { return result.Successful[i].Index < result.Successful[j].Index })

	logrus.WithFields(logrus.Fields{
		"folder":     folder,
		"total":      len(urls),
		"successful": len(result.Successful),
		"failed":     len(result.Errors),
	}).Info("Image batch processed")
	return result
}

func (p *ImageProcessor) processOne(ctx context.Context, rawURL, folder string) (*ProcessedImage, error) {
	data, err := p.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if sniffImageType(data) == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img := downscale(src, p.config.MaxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.config.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	key := SourceObjectKey(folder, rawURL, ".jpg")
	uploaded, err := p.storage.Upload(ctx, buf.Bytes(), key, "image/jpeg")
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &ProcessedImage{
		OriginalURL: rawURL,
		URL:         uploaded.URL,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Size:        uploaded.Size,
	}, nil
}

func (p *ImageProcessor) download(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image url: %w", err)
	}
	req.Header.Set("User-Agent", p.agent)
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > p.config.MaxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", p.config.MaxBytes)
	}
	return data, nil
}

// downscale keeps the aspect ratio and never upscales.
func downscale(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	if bounds.Dx() <= maxWidth {
		return src
	}
	height := bounds.Dy() * maxWidth / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
