package cfg

import (
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := &Cfg{
		FetchIntervalHours:   3,
		PublishGapMinutes:    60,
		CycleDeadlineMinutes: 20,
	}

	if got := cfg.FetchInterval(); got != 3*time.Hour {
		t.Errorf("FetchInterval() = %v, want 3h", got)
	}
	if got := cfg.PublishGap(); got != time.Hour {
		t.Errorf("PublishGap() = %v, want 1h", got)
	}
	if got := cfg.CycleDeadline(); got != 20*time.Minute {
		t.Errorf("CycleDeadline() = %v, want 20m", got)
	}
}

func TestSetForTesting(t *testing.T) {
	original := globalCfg
	defer func() { globalCfg = original }()

	cfg := &Cfg{
		TelegramChannelID:       "@testchannel",
		TelegramAdminID:         42,
		GeminiModel:             "gemini-2.0-flash",
		ClassificationThreshold: 0.5,
		DedupStrategy:           "auto",
		TargetLanguage:          "uz",
		Port:                    "8080",
		Timezone:                "UTC",
		Debug:                   true,
	}
	SetForTesting(cfg)

	got := Get()
	if got.TelegramChannelID != "@testchannel" {
		t.Errorf("Expected channel '@testchannel', got '%s'", got.TelegramChannelID)
	}
	if got.TelegramAdminID != 42 {
		t.Errorf("Expected admin ID 42, got %d", got.TelegramAdminID)
	}
	if got.ClassificationThreshold != 0.5 {
		t.Errorf("Expected threshold 0.5, got %f", got.ClassificationThreshold)
	}
	if got.DedupStrategy != "auto" {
		t.Errorf("Expected dedup strategy 'auto', got '%s'", got.DedupStrategy)
	}
	if !got.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestApplyTimezone(t *testing.T) {
	originalLocal := time.Local
	defer func() { time.Local = originalLocal }()

	if err := applyTimezone("UTC"); err != nil {
		t.Errorf("applyTimezone(UTC) failed: %v", err)
	}
	if err := applyTimezone("Not/AZone"); err == nil {
		t.Error("applyTimezone should reject an unknown timezone")
	}
}
