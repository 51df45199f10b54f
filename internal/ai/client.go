// Package ai talks to an OpenAI-compatible chat completions endpoint to
// rewrite product copy and translate reviews into French.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL       = "https://openrouter.ai/api/v1"
	DefaultModel         = "openai/gpt-4o-mini"
	DefaultPromptVersion = "v2-reviews"
	DefaultMaxTokens     = 1024
	DefaultTemperature   = 0.3

	reviewMaxTokens = 512
)

// ErrRateLimited is returned when the endpoint answers 429. Batch callers
// stop on it instead of burning through the remaining items.
var ErrRateLimited = errors.New("ai endpoint rate limited")

// APIError is a non-2xx answer other than 429.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ai endpoint error %s: %s", e.Status, e.Body)
}

type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	PromptVersion     string
	MaxTokens         int
	Temperature       float64
	RequestsPerMinute int
	Referer           string
	Timeout           time.Duration
	HTTPClient        *http.Client
}

type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.PromptVersion == "" {
		cfg.PromptVersion = DefaultPromptVersion
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

func (c *Client) Model() string {
	return c.config.Model
}

func (c *Client) PromptVersion() string {
	return c.config.PromptVersion
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one system+user exchange and returns the first choice.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int, jsonMode bool) (string, error) {
	if c.config.APIKey == "" {
		return "", errors.New("ai client misconfigured: missing api key")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for ai rate limiter: %w", err)
	}

	payload := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: c.config.Temperature,
	}
	if jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.config.Referer != "" {
		req.Header.Set("HTTP-Referer", c.config.Referer)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	logrus.WithFields(logrus.Fields{
		"model":    c.config.Model,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("AI completion call")

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(snippet))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("ai response has no choices")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("ai response has no text content")
	}
	return content, nil
}
