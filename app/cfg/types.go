package cfg

import "time"

type Cfg struct {
	// Telegram transport
	TelegramBotToken  string
	TelegramChannelID string
	TelegramAdminID   int64

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// Pipeline settings
	FetchIntervalHours      int
	PublishGapMinutes       int
	MaxNewItemsPerFetch     int
	MaxPublishPerCycle      int
	ClassificationThreshold float64
	MaxConsecutiveFailures  int
	CycleDeadlineMinutes    int
	DedupStrategy           string
	TargetLanguage          string

	// Storage and sources
	DatabasePath string
	SourcesDir   string

	// HTTP API
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) FetchInterval() time.Duration {
	return time.Duration(c.FetchIntervalHours) * time.Hour
}

func (c *Cfg) PublishGap() time.Duration {
	return time.Duration(c.PublishGapMinutes) * time.Minute
}

func (c *Cfg) CycleDeadline() time.Duration {
	return time.Duration(c.CycleDeadlineMinutes) * time.Minute
}
