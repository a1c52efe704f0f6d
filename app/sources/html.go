package sources

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	imgPattern        = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["'][^>]*>`)
)

// skip patterns for icon/badge/tracking images embedded in article HTML
var imageSkipMarkers = []string{
	"icon", "logo", "badge", "avatar", "emoji", "button",
	"pixel", "tracking", "ads", "banner", "sprite", "1x1", "spacer",
}

// stripHTML removes tags and decodes entities, returning plain text.
func stripHTML(text string) string {
	if text == "" {
		return ""
	}
	clean := tagPattern.ReplaceAllString(text, " ")
	clean = html.UnescapeString(clean)
	clean = whitespacePattern.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// extractImageFromHTML returns the first significant image URL in the given
// HTML, skipping icons, badges and data URLs.
func extractImageFromHTML(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}

	matches := imgPattern.FindAllStringSubmatch(htmlContent, -1)
	for _, match := range matches {
		url := match[1]

		lower := strings.ToLower(url)
		skip := false
		for _, marker := range imageSkipMarkers {
			if strings.Contains(lower, marker) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		if strings.HasPrefix(url, "data:") {
			continue
		}

		// Very short URLs are usually relative paths to icons.
		if len(url) < 20 {
			continue
		}

		return url
	}

	return ""
}
