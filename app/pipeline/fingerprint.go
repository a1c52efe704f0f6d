package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/olamda/curator/app/sources"
)

// Dedup strategies.
const (
	StrategyAuto    = "auto"
	StrategyURL     = "url"
	StrategyContent = "content"
)

// contentHashRunes caps how much of the body feeds the content hash.
const contentHashRunes = 500

var whitespaceRun = regexp.MustCompile(`\s+`)

// trackingParams are stripped from URLs before fingerprinting. utm_* is
// handled by prefix.
var trackingParams = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"mc_cid": {},
	"mc_eid": {},
	"ref":    {},
	"source": {},
}

// redditHosts all alias the same content.
var redditHosts = map[string]string{
	"old.reddit.com": "reddit.com",
	"new.reddit.com": "reddit.com",
	"m.reddit.com":   "reddit.com",
	"np.reddit.com":  "reddit.com",
	"www.reddit.com": "reddit.com",
}

// Fingerprinter derives the identity keys used for deduplication.
type Fingerprinter struct {
	strategy string
}

func NewFingerprinter(strategy string) *Fingerprinter {
	switch strategy {
	case StrategyURL, StrategyContent:
	default:
		strategy = StrategyAuto
	}
	return &Fingerprinter{strategy: strategy}
}

// Fingerprint returns the primary dedup key and the content hash for a
// candidate. The content hash is always computed so cross-URL duplicates
// can be detected regardless of strategy.
func (f *Fingerprinter) Fingerprint(candidate sources.Candidate) (string, string) {
	contentHash := ContentHash(candidate.Title, candidate.Body)

	switch f.strategy {
	case StrategyURL:
		if candidate.URL != "" {
			return NormalizeURL(candidate.URL), contentHash
		}
		return contentHash, contentHash
	case StrategyContent:
		return contentHash, contentHash
	default:
		if candidate.URL != "" {
			return NormalizeURL(candidate.URL), contentHash
		}
		return contentHash, contentHash
	}
}

// NormalizeURL canonicalizes a URL so syntactic variants of the same page
// produce the same fingerprint: lowercased scheme and host, reddit host
// aliases folded, www stripped, tracking parameters removed, fragment and
// trailing slash dropped.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(raw)
	}

	host := strings.ToLower(parsed.Host)
	if folded, ok := redditHosts[host]; ok {
		host = folded
	}
	host = strings.TrimPrefix(host, "www.")

	query := parsed.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if _, tracked := trackingParams[lower]; tracked || strings.HasPrefix(lower, "utm_") {
			query.Del(key)
		}
	}

	path := strings.TrimSuffix(parsed.Path, "/")

	normalized := strings.ToLower(parsed.Scheme) + "://" + host + path
	if encoded := query.Encode(); encoded != "" {
		normalized += "?" + encoded
	}
	return normalized
}

// ContentHash hashes the normalized title plus the head of the body. Two
// stories with the same text hash identically even when fetched from
// different URLs.
func ContentHash(title, body string) string {
	bodyRunes := []rune(body)
	if len(bodyRunes) > contentHashRunes {
		bodyRunes = bodyRunes[:contentHashRunes]
	}

	text := normalizeText(title) + "\n" + normalizeText(string(bodyRunes))
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:32]
}

func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	// Casers are stateful, build one per call.
	s = cases.Fold().String(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
