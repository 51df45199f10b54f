package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/javajoker/curation-backend/internal/services"
)

// MemoryStorage keeps uploads in memory. Keys containing a FailOnKey
// substring fail.
type MemoryStorage struct {
	BaseURL   string
	FailOnKey string

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		BaseURL: "https://cdn.test",
		objects: map[string][]byte{},
	}
}

func (s *MemoryStorage) Upload(ctx context.Context, data []byte, key, contentType string) (*services.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.FailOnKey != "" && strings.Contains(key, s.FailOnKey) {
		return nil, fmt.Errorf("upload %s rejected", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte{}, data...)

	return &services.UploadResult{
		URL:      s.BaseURL + "/" + key,
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
	}, nil
}

func (s *MemoryStorage) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
