package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Telegram transport
	TelegramBotToken  string `long:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" description:"Telegram bot token (required)" required:"true"`
	TelegramChannelID string `long:"telegram-channel-id" env:"TELEGRAM_CHANNEL_ID" description:"Target channel ID or @username (required)" required:"true"`
	TelegramAdminID   int64  `long:"telegram-admin-id" env:"TELEGRAM_ADMIN_ID" description:"Admin user ID for approval flow (required)" required:"true"`

	// Gemini
	GeminiAPIKey string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key (required)" required:"true"`
	GeminiModel  string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.0-flash" description:"Gemini model for classification and translation"`

	// Pipeline settings
	FetchIntervalHours      int     `long:"fetch-interval-hours" env:"FETCH_INTERVAL_HOURS" default:"3" description:"Hours between scheduled fetch cycles"`
	PublishGapMinutes       int     `long:"publish-gap-minutes" env:"PUBLISH_GAP_MINUTES" default:"60" description:"Minimum minutes between published posts"`
	MaxNewItemsPerFetch     int     `long:"max-new-items-per-fetch" env:"MAX_NEW_ITEMS_PER_FETCH" default:"10" description:"Cap on new items accepted per fetch cycle"`
	MaxPublishPerCycle      int     `long:"max-publish-per-cycle" env:"MAX_PUBLISH_PER_CYCLE" default:"1" description:"Cap on items published per publish cycle"`
	ClassificationThreshold float64 `long:"classification-threshold" env:"CLASSIFICATION_THRESHOLD" default:"0.5" description:"Minimum classifier confidence to accept an item"`
	MaxConsecutiveFailures  int     `long:"max-consecutive-failures" env:"MAX_CONSECUTIVE_FAILURES" default:"3" description:"Consecutive external failures before an item is rejected"`
	CycleDeadlineMinutes    int     `long:"cycle-deadline-minutes" env:"CYCLE_DEADLINE_MINUTES" default:"20" description:"Soft deadline for a single processing cycle"`
	DedupStrategy           string  `long:"dedup-strategy" env:"DEDUP_STRATEGY" default:"auto" choice:"auto" choice:"url" choice:"content" description:"Fingerprint strategy for duplicate detection"`
	TargetLanguage          string  `long:"target-language" env:"TARGET_LANGUAGE" default:"uz" description:"Language code items are rewritten into"`

	// Storage and sources
	DatabasePath string `long:"database-path" env:"DATABASE_PATH" default:"data/curator.db" description:"Path to the SQLite database file"`
	SourcesDir   string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`

	// HTTP API
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Curator/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Tashkent)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		TelegramBotToken:        raw.TelegramBotToken,
		TelegramChannelID:       raw.TelegramChannelID,
		TelegramAdminID:         raw.TelegramAdminID,
		GeminiAPIKey:            raw.GeminiAPIKey,
		GeminiModel:             raw.GeminiModel,
		FetchIntervalHours:      raw.FetchIntervalHours,
		PublishGapMinutes:       raw.PublishGapMinutes,
		MaxNewItemsPerFetch:     raw.MaxNewItemsPerFetch,
		MaxPublishPerCycle:      raw.MaxPublishPerCycle,
		ClassificationThreshold: raw.ClassificationThreshold,
		MaxConsecutiveFailures:  raw.MaxConsecutiveFailures,
		CycleDeadlineMinutes:    raw.CycleDeadlineMinutes,
		DedupStrategy:           raw.DedupStrategy,
		TargetLanguage:          raw.TargetLanguage,
		DatabasePath:            raw.DatabasePath,
		SourcesDir:              raw.SourcesDir,
		Port:                    raw.Port,
		APIAccessKey:            raw.APIAccessKey,
		UserAgent:               raw.UserAgent,
		Timezone:                raw.Timezone,
		Debug:                   raw.Debug,
		Version:                 GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// SetForTesting replaces the global configuration. Test helper only.
func SetForTesting(c *Cfg) {
	globalCfg = c
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
