package sources

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// RSSConnector pulls candidates from an RSS/Atom feed.
type RSSConnector struct {
	config     *Config
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
}

var _ Connector = (*RSSConnector)(nil)

func NewRSSConnector(config *Config, httpClient *http.Client, userAgent string) *RSSConnector {
	return &RSSConnector{
		config:     config,
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
	}
}

func (c *RSSConnector) Name() string {
	return c.config.Name
}

func (c *RSSConnector) Fetch(ctx context.Context) ([]Candidate, error) {
	data, err := c.fetchFeed(ctx, c.config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := c.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	limit := c.config.Settings.MaxItems
	candidates := make([]Candidate, 0, limit)
	for _, item := range feed.Items {
		if len(candidates) >= limit {
			break
		}
		if item.Link == "" {
			continue
		}

		content := cmp.Or(item.Content, item.Description)

		candidate := Candidate{
			SourceName:  c.config.Name,
			SourceType:  "rss",
			Title:       stripHTML(item.Title),
			Body:        stripHTML(content),
			URL:         item.Link,
			MediaURL:    c.extractImage(item, content),
			MediaType:   "image",
			PublishedAt: item.PublishedParsed,
		}
		candidates = append(candidates, candidate)
	}

	slog.Debug("RSS fetch completed", "source", c.config.Name, "candidates", len(candidates))
	return candidates, nil
}

func (c *RSSConnector) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(c.config.Settings.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// extractImage resolves the best image for an item, in priority order:
// media:content, media:thumbnail, enclosures, then <img> tags in the HTML.
func (c *RSSConnector) extractImage(item *gofeed.Item, htmlContent string) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			mediaType := ext.Attrs["type"]
			if mediaType == "" || strings.HasPrefix(mediaType, "image/") {
				if url := ext.Attrs["url"]; url != "" {
					return url
				}
			}
		}
		for _, ext := range media["thumbnail"] {
			if url := ext.Attrs["url"]; url != "" {
				return url
			}
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, enclosure := range item.Enclosures {
		if enclosure == nil {
			continue
		}
		if strings.HasPrefix(enclosure.Type, "image/") && enclosure.URL != "" {
			return enclosure.URL
		}
	}

	return extractImageFromHTML(htmlContent)
}
