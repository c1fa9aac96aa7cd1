package config

import (
	"fmt"
	"strings"
)

// Config is the full library configuration: the logger facade, its
// output sinks and the search subsystem.
type Config struct {
	Logger    LoggerConfig    `toml:"logger"`
	Console   ConsoleConfig   `toml:"console"`
	File      FileConfig      `toml:"file"`
	Database  DatabaseConfig  `toml:"database"`
	Analytics AnalyticsConfig `toml:"analytics"`
	Search    SearchConfig    `toml:"search"`
}

type LoggerConfig struct {
	AppName     string `toml:"app_name"`
	Environment string `toml:"environment"`
	MinLevel    string `toml:"min_level"`
}

type ConsoleConfig struct {
	Enabled    bool   `toml:"enabled"`
	Target     string `toml:"target"` // "stdout", "stderr" or "split"
	Format     string `toml:"format"` // "json", "text" or "raw"
	BufferSize int    `toml:"buffer_size"`
}

type FileConfig struct {
	Enabled        bool   `toml:"enabled"`
	Directory      string `toml:"directory"`
	Name           string `toml:"name"`
	Format         string `toml:"format"`
	BufferSize     int    `toml:"buffer_size"`
	MaxSizeMB      int64  `toml:"max_size_mb"`
	MaxTotalSizeMB int64  `toml:"max_total_size_mb"`
	RetentionHours int64  `toml:"retention_hours"`
}

type DatabaseConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	Table        string `toml:"table"`
	BufferSize   int    `toml:"buffer_size"`
	BatchSize    int    `toml:"batch_size"`
	BatchDelayMS int    `toml:"batch_delay_ms"`
}

type AnalyticsConfig struct {
	Enabled       bool    `toml:"enabled"`
	URL           string  `toml:"url"`
	APIKey        string  `toml:"api_key"`
	BufferSize    int     `toml:"buffer_size"`
	BatchSize     int     `toml:"batch_size"`
	BatchDelayMS  int     `toml:"batch_delay_ms"`
	TimeoutSecs   int     `toml:"timeout_seconds"`
	MaxRetries    int     `toml:"max_retries"`
	RetryDelayMS  int     `toml:"retry_delay_ms"`
	RetryBackoff  float64 `toml:"retry_backoff"`
	FlushesPerSec float64 `toml:"flushes_per_second"`
}

type SearchConfig struct {
	NLPEnabled         bool    `toml:"nlp_enabled"`
	PatternRecognition bool    `toml:"pattern_recognition"`
	Correlation        bool    `toml:"correlation"`
	MaxIndexSize       int     `toml:"max_index_size"`
	OptimizeThreshold  int     `toml:"optimize_threshold"`
	TemporalWindowMS   int     `toml:"temporal_window_ms"`
	MinSimilarity      float64 `toml:"min_similarity"`
	AnomalyThreshold   float64 `toml:"anomaly_threshold"`
	MinFrequency       int     `toml:"min_frequency"`
	MaxPatterns        int     `toml:"max_patterns"`
	MaxHistory         int     `toml:"max_history"`
	SuggestionCache    int     `toml:"suggestion_cache"`
}

func defaults() *Config {
	return &Config{
		Logger: LoggerConfig{
			AppName:     "logixia",
			Environment: "development",
			MinLevel:    "info",
		},
		Console: ConsoleConfig{
			Enabled:    true,
			Target:     "stdout",
			Format:     "text",
			BufferSize: 1000,
		},
		File: FileConfig{
			Enabled:    false,
			Directory:  "./",
			Name:       "logixia.output",
			Format:     "json",
			BufferSize: 1000,
		},
		Database: DatabaseConfig{
			Enabled:      false,
			Path:         "logixia.db",
			Table:        "log_entries",
			BufferSize:   1000,
			BatchSize:    100,
			BatchDelayMS: 1000,
		},
		Analytics: AnalyticsConfig{
			Enabled:       false,
			BufferSize:    1000,
			BatchSize:     50,
			BatchDelayMS:  2000,
			TimeoutSecs:   10,
			MaxRetries:    3,
			RetryDelayMS:  500,
			RetryBackoff:  2.0,
			FlushesPerSec: 5,
		},
		Search: SearchConfig{
			NLPEnabled:         true,
			PatternRecognition: true,
			Correlation:        true,
			MaxIndexSize:       1_000_000,
			OptimizeThreshold:  10_000,
			TemporalWindowMS:   300_000,
			MinSimilarity:      0.3,
			AnomalyThreshold:   0.3,
			MinFrequency:       3,
			MaxPatterns:        1000,
			MaxHistory:         1000,
			SuggestionCache:    100,
		},
	}
}

func (c *Config) validate() error {
	if c.Logger.AppName == "" {
		return fmt.Errorf("logger app_name must not be empty")
	}

	switch c.Console.Target {
	case "stdout", "stderr", "split":
	default:
		return fmt.Errorf("console target must be 'stdout', 'stderr' or 'split': %s", c.Console.Target)
	}

	for _, format := range []string{c.Console.Format, c.File.Format} {
		switch format {
		case "", "json", "text", "raw":
		default:
			return fmt.Errorf("unknown formatter: %s", format)
		}
	}

	if c.File.Enabled && c.File.Directory == "" {
		return fmt.Errorf("file sink requires a directory")
	}
	if c.Database.Enabled {
		if c.Database.Path == "" {
			return fmt.Errorf("database sink requires a path")
		}
		if c.Database.BatchSize < 1 {
			return fmt.Errorf("database batch size must be positive: %d", c.Database.BatchSize)
		}
	}
	if c.Analytics.Enabled {
		if !strings.HasPrefix(c.Analytics.URL, "http://") && !strings.HasPrefix(c.Analytics.URL, "https://") {
			return fmt.Errorf("analytics URL must be http(s): %s", c.Analytics.URL)
		}
		if c.Analytics.BatchSize < 1 {
			return fmt.Errorf("analytics batch size must be positive: %d", c.Analytics.BatchSize)
		}
	}

	if c.Search.MaxIndexSize < 1 {
		return fmt.Errorf("search max_index_size must be positive: %d", c.Search.MaxIndexSize)
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		return fmt.Errorf("search min_similarity must be in [0,1]: %f", c.Search.MinSimilarity)
	}
	if c.Search.AnomalyThreshold < 0 || c.Search.AnomalyThreshold > 1 {
		return fmt.Errorf("search anomaly_threshold must be in [0,1]: %f", c.Search.AnomalyThreshold)
	}

	return nil
}
