package sources

import "time"

// Candidate is a story pulled from a source before any processing.
type Candidate struct {
	SourceName  string
	SourceType  string
	Title       string
	Body        string
	URL         string
	MediaURL    string
	MediaType   string // "image" or "video"
	Score       int    // upvotes/karma where the source provides it
	PublishedAt *time.Time
}

// Config describes a single source loaded from the sources directory.
type Config struct {
	Name      string         `yaml:"name"`
	Type      string         `yaml:"type"` // "rss" or "reddit"
	URL       string         `yaml:"url"`
	Subreddit string         `yaml:"subreddit"`
	Settings  ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled  bool `yaml:"enabled"`
	MaxItems int  `yaml:"max_items"`
	Timeout  int  `yaml:"timeout"`   // seconds
	MinScore int  `yaml:"min_score"` // minimum karma for reddit posts
}
