package ai

import (
	"context"
	"strings"
)

// TranslateReview returns a French rendering of a review. Text already in
// French and empty text are returned without a call.
func (c *Client) TranslateReview(ctx context.Context, text, language string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if strings.EqualFold(strings.TrimSpace(language), "fr") {
		return text, nil
	}
	return c.complete(ctx, reviewSystemPrompt, buildReviewPrompt(text, language), reviewMaxTokens, false)
}
