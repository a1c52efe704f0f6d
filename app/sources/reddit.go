package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// RedditConnector pulls text posts from a subreddit's public hot.json
// endpoint. No OAuth involved; the listing endpoint is unauthenticated.
type RedditConnector struct {
	config     *Config
	httpClient *http.Client
	userAgent  string
	baseURL    string
}

var _ Connector = (*RedditConnector)(nil)

func NewRedditConnector(config *Config, httpClient *http.Client, userAgent string) *RedditConnector {
	return &RedditConnector{
		config:     config,
		httpClient: httpClient,
		userAgent:  userAgent,
		baseURL:    "https://www.reddit.com",
	}
}

func (c *RedditConnector) Name() string {
	return c.config.Name
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title     string  `json:"title"`
	Selftext  string  `json:"selftext"`
	Permalink string  `json:"permalink"`
	Score     int     `json:"score"`
	Thumbnail string  `json:"thumbnail"`
	IsVideo   bool    `json:"is_video"`
	CreatedAt float64 `json:"created_utc"`
	Preview   struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
			Resolutions []struct {
				URL   string `json:"url"`
				Width int    `json:"width"`
			} `json:"resolutions"`
		} `json:"images"`
	} `json:"preview"`
}

func (c *RedditConnector) Fetch(ctx context.Context) ([]Candidate, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, time.Duration(c.config.Settings.Timeout)*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", c.baseURL, c.config.Subreddit, c.config.Settings.MaxItems)
	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subreddit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	var candidates []Candidate
	for _, child := range listing.Data.Children {
		post := child.Data

		// Only text posts carry a story worth retelling.
		if post.Selftext == "" || post.Selftext == "[removed]" || post.Selftext == "[deleted]" {
			continue
		}
		if post.Score < c.config.Settings.MinScore {
			continue
		}

		mediaType := "image"
		if post.IsVideo {
			mediaType = "video"
		}

		var publishedAt *time.Time
		if post.CreatedAt > 0 {
			ts := time.Unix(int64(post.CreatedAt), 0).UTC()
			publishedAt = &ts
		}

		candidates = append(candidates, Candidate{
			SourceName:  c.config.Name,
			SourceType:  "reddit",
			Title:       post.Title,
			Body:        post.Selftext,
			URL:         "https://reddit.com" + post.Permalink,
			MediaURL:    extractRedditImage(post),
			MediaType:   mediaType,
			Score:       post.Score,
			PublishedAt: publishedAt,
		})
	}

	slog.Debug("Reddit fetch completed", "source", c.config.Name, "candidates", len(candidates))
	return candidates, nil
}

// extractRedditImage picks the best image from a post: preview source first,
// then the highest preview resolution, then the thumbnail.
func extractRedditImage(post redditPost) string {
	if len(post.Preview.Images) > 0 {
		image := post.Preview.Images[0]
		// Reddit escapes URLs inside its JSON payloads.
		if image.Source.URL != "" {
			return html.UnescapeString(image.Source.URL)
		}
		best := ""
		bestWidth := 0
		for _, res := range image.Resolutions {
			if res.Width > bestWidth && res.URL != "" {
				best = res.URL
				bestWidth = res.Width
			}
		}
		if best != "" {
			return html.UnescapeString(best)
		}
	}

	thumb := post.Thumbnail
	switch thumb {
	case "", "self", "default", "nsfw", "spoiler":
		return ""
	}
	if strings.HasPrefix(thumb, "http") {
		return thumb
	}
	return ""
}
