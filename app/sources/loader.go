package sources

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/yaml.v3"
)

// Loader handles loading and validation of source configurations
type Loader struct {
	sourcesDir string
}

// NewLoader creates a new configuration loader
func NewLoader(sourcesDir string) *Loader {
	return &Loader{sourcesDir: sourcesDir}
}

// LoadAll loads all YAML configuration files from the sources directory
func (l *Loader) LoadAll() ([]*Config, error) {
	var configs []*Config

	if _, err := os.Stat(l.sourcesDir); os.IsNotExist(err) {
		return configs, nil
	}

	files, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YAML files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(l.sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}
	files = append(files, ymlFiles...)

	for _, file := range files {
		config, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("error loading %s: %w", file, err)
		}

		if err := l.validate(config); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", file, err)
		}

		configs = append(configs, config)
		slog.Debug("Loaded source configuration", "file", file, "name", config.Name)
	}

	return configs, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Name == "" {
		base := filepath.Base(path)
		config.Name = strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml")
	}

	l.setDefaults(&config)

	return &config, nil
}

func (l *Loader) setDefaults(config *Config) {
	if config.Type == "" {
		config.Type = "rss"
	}
	if config.Settings.MaxItems == 0 {
		config.Settings.MaxItems = 20
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 30 // seconds
	}
	if config.Type == "reddit" && config.Settings.MinScore == 0 {
		config.Settings.MinScore = 1000
	}
}

func (l *Loader) validate(config *Config) error {
	switch config.Type {
	case "rss":
		if config.URL == "" {
			return fmt.Errorf("source URL is required for rss sources")
		}
	case "reddit":
		if config.Subreddit == "" {
			return fmt.Errorf("subreddit is required for reddit sources")
		}
	default:
		return fmt.Errorf("unknown source type: %s", config.Type)
	}

	if config.Settings.MaxItems < 0 {
		return fmt.Errorf("max items must be non-negative")
	}
	if config.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	return nil
}

// BuildConnectors turns enabled source configurations into connectors
// sharing one HTTP client.
func BuildConnectors(configs []*Config, client *http.Client, userAgent string) []Connector {
	var connectors []Connector
	for _, config := range configs {
		if !config.Settings.Enabled {
			slog.Debug("Source disabled, skipping", "source", config.Name)
			continue
		}
		switch config.Type {
		case "reddit":
			connectors = append(connectors, NewRedditConnector(config, client, userAgent))
		default:
			connectors = append(connectors, NewRSSConnector(config, client, userAgent))
		}
	}
	return connectors
}

// NewHTTPClient builds the shared outbound HTTP client with automatic
// retries on transient failures.
func NewHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil
	client := retryClient.StandardClient()
	client.Timeout = 60 * time.Second
	return client
}
