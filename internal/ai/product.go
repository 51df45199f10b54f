package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/javajoker/curation-backend/internal/models"
)

const maxPromptReviews = 5

var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ReviewSnippet is a translated review used as context for product copy.
type ReviewSnippet struct {
	Text   string
	Rating int
}

type ProductInput struct {
	Name             string
	Description      string
	ShortDescription string
	Category         string
	PriceHint        string
	SourceName       string
	Reviews          []ReviewSnippet
}

type ProductTranslation struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	ShortDescription    string `json:"shortDescription"`
	Category            string `json:"category"`
	SuggestedPriceCents int64  `json:"suggestedPriceCents"`
}

// TranslateProduct rewrites raw product fields into brand copy. Only reviews
// rated 4 or more are passed along, at most five.
func (c *Client) TranslateProduct(ctx context.Context, in ProductInput) (*ProductTranslation, error) {
	in.Reviews = positiveReviews(in.Reviews)

	system := productSystemPrompt
	if len(in.Reviews) > 0 {
		system += productReviewsAddendum
	}

	content, err := c.complete(ctx, system, buildProductPrompt(in), c.config.MaxTokens, true)
	if err != nil {
		return nil, err
	}
	return parseProductTranslation(content)
}

func positiveReviews(reviews []ReviewSnippet) []ReviewSnippet {
	out := make([]ReviewSnippet, 0, maxPromptReviews)
	for _, r := range reviews {
		if r.Rating >= 4 && strings.TrimSpace(r.Text) != "" {
			out = append(out, r)
			if len(out) == maxPromptReviews {
				break
			}
		}
	}
	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func parseProductTranslation(content string) (*ProductTranslation, error) {
	raw := stripCodeFence(content)

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("parse ai response as json: %s", truncate(raw, 200))
	}

	out := &ProductTranslation{}
	for key, dst := range map[string]*string{
		"name":             &out.Name,
		"description":      &out.Description,
		"shortDescription": &out.ShortDescription,
		"category":         &out.Category,
	} {
		v, ok := fields[key].(string)
		if !ok || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("ai response missing or invalid %q field", key)
		}
		*dst = strings.TrimSpace(v)
	}

	out.Category = strings.ToLower(out.Category)
	if !models.IsValidCategory(out.Category) {
		return nil, fmt.Errorf("ai response has invalid category %q", out.Category)
	}

	price, ok := fields["suggestedPriceCents"].(float64)
	if !ok || price <= 0 {
		return nil, fmt.Errorf("ai response missing or invalid %q field", "suggestedPriceCents")
	}
	if price != math.Trunc(price) {
		return nil, fmt.Errorf("ai response has non-integer suggestedPriceCents: %v", price)
	}
	out.SuggestedPriceCents = int64(price)

	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
