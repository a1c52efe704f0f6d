package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client wraps the Gemini generateContent API for classification and
// translation.
type Client struct {
	apiKey         string
	model          string
	baseURL        string
	targetLanguage string
	channelTag     string
	httpClient     *http.Client

	mu    sync.Mutex
	usage Usage
}

// Usage accumulates token accounting across calls. Reset per fetch cycle.
type Usage struct {
	ClassifyCalls  int
	TranslateCalls int
	InputTokens    int
	OutputTokens   int
}

// Option customizes the Gemini client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

func NewClient(apiKey, model, targetLanguage, channelTag string, opts ...Option) *Client {
	client := &Client{
		apiKey:         strings.TrimSpace(apiKey),
		model:          model,
		baseURL:        defaultBaseURL,
		targetLanguage: targetLanguage,
		channelTag:     channelTag,
		httpClient:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ClassifyRequest carries the fields the classifier prompt needs.
type ClassifyRequest struct {
	Title      string
	Content    string
	MediaURL   string
	SourceType string
}

// Classification is the structured verdict returned by the model.
type Classification struct {
	Accept     bool    `json:"accept"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// TranslateRequest carries the fields the translator prompt needs.
type TranslateRequest struct {
	Title      string
	Content    string
	SourceURL  string
	SourceName string
	MediaType  string
}

// Classify asks the model whether the item fits the channel. A malformed
// JSON verdict is a permanent error for the item.
func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (Classification, error) {
	var empty Classification
	if req.Title == "" && req.Content == "" {
		return empty, errors.New("classify: title or content required")
	}

	text, err := c.generate(ctx, buildClassifierPrompt(req), "classify")
	if err != nil {
		return empty, err
	}

	text = stripCodeFences(text)

	var parsed Classification
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return empty, fmt.Errorf("classify: parse verdict %q: %w", truncateRunes(text, 200), err)
	}

	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	parsed.Reason = strings.TrimSpace(parsed.Reason)

	c.mu.Lock()
	c.usage.ClassifyCalls++
	c.mu.Unlock()

	return parsed, nil
}

// Translate retells the item as a formatted channel post in the target
// language. Empty output counts as a failure.
func (c *Client) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if req.SourceURL == "" {
		return "", errors.New("translate: source URL required")
	}

	text, err := c.generate(ctx, buildTranslatorPrompt(req, c.targetLanguage, c.channelTag), "translate")
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("translate: empty output")
	}

	c.mu.Lock()
	c.usage.TranslateCalls++
	c.mu.Unlock()

	return text, nil
}

// UsageSnapshot returns accumulated token accounting.
func (c *Client) UsageSnapshot() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// ResetUsage clears accumulated token accounting for a new cycle.
func (c *Client) ResetUsage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage = Usage{}
}

type generateRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) generate(ctx context.Context, prompt, callType string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("gemini: api key required")
	}

	payload := generateRequest{
		Contents: []requestContent{{Parts: []requestPart{{Text: prompt}}}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapRequestError(fmt.Errorf("gemini: request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapRequestError(fmt.Errorf("gemini: read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("gemini: http %d: %s", resp.StatusCode, strings.TrimSpace(truncateRunes(string(body), 300)))
		return "", classifyStatus(resp.StatusCode, err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini: api error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty candidates")
	}

	c.mu.Lock()
	c.usage.InputTokens += parsed.UsageMetadata.PromptTokenCount
	c.usage.OutputTokens += parsed.UsageMetadata.CandidatesTokenCount
	c.mu.Unlock()

	slog.Debug("Gemini call completed",
		"type", callType,
		"input_tokens", parsed.UsageMetadata.PromptTokenCount,
		"output_tokens", parsed.UsageMetadata.CandidatesTokenCount)

	var builder strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}
	return builder.String(), nil
}

// stripCodeFences unwraps a JSON payload the model wrapped in a markdown
// code block.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
