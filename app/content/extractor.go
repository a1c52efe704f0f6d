package content

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability"
)

// maxBodyBytes caps how much of an article page is read before extraction.
const maxBodyBytes = 2 << 20

// Extractor fetches an article page and pulls out the readable text. It is
// used for feed items that only carry a short summary.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewExtractor(httpClient *http.Client, userAgent string) *Extractor {
	return &Extractor{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    30 * time.Second,
	}
}

// ExtractFromURL downloads the page at url and returns its readable plain
// text. Failures here are expected for paywalled or script-heavy pages; the
// caller keeps the summary it already has.
func (e *Extractor) ExtractFromURL(ctx context.Context, url string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	text, err := e.Extract(data)
	if err != nil {
		return "", err
	}

	slog.Debug("Content extracted", "url", url, "length", len(text))
	return text, nil
}

// Extract runs readability over raw HTML and returns the plain text of the
// main article body.
func (e *Extractor) Extract(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	return text, nil
}
