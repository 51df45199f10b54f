package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/javajoker/curation-backend/internal/ai"
)

// FakeTranslator answers from fixed values. Set ProductErr or ReviewErr to
// make the next calls fail; ReviewErrs fails only the listed texts.
type FakeTranslator struct {
	mu sync.Mutex

	Product    ai.ProductTranslation
	ProductErr error
	ReviewErr  error
	ReviewErrs map[string]error

	ProductCalls []ai.ProductInput
	ReviewCalls  []string
}

func NewFakeTranslator() *FakeTranslator {
	return &FakeTranslator{
		Product: ai.ProductTranslation{
			Name:                "Chicha Cristal",
			Description:         "Une chicha en verre soufflé.",
			ShortDescription:    "Chicha en verre",
			Category:            "chicha",
			SuggestedPriceCents: 5990,
		},
		ReviewErrs: map[string]error{},
	}
}

func (f *FakeTranslator) TranslateProduct(ctx context.Context, in ai.ProductInput) (*ai.ProductTranslation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ProductCalls = append(f.ProductCalls, in)
	if f.ProductErr != nil {
		return nil, f.ProductErr
	}
	out := f.Product
	return &out, nil
}

func (f *FakeTranslator) TranslateReview(ctx context.Context, text, language string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReviewCalls = append(f.ReviewCalls, text)
	if err, ok := f.ReviewErrs[text]; ok {
		return "", err
	}
	if f.ReviewErr != nil {
		return "", f.ReviewErr
	}
	return "FR: " + strings.TrimSpace(text), nil
}

func (f *FakeTranslator) Model() string {
	return "test/model"
}

func (f *FakeTranslator) PromptVersion() string {
	return "test-v1"
}

func (f *FakeTranslator) Calls() (products, reviews int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ProductCalls), len(f.ReviewCalls)
}
