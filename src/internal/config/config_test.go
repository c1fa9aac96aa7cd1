package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "logixia", cfg.Logger.AppName)
	assert.Equal(t, "info", cfg.Logger.MinLevel)
	assert.True(t, cfg.Console.Enabled)
	assert.Equal(t, "stdout", cfg.Console.Target)
	assert.False(t, cfg.File.Enabled)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Analytics.Enabled)

	assert.True(t, cfg.Search.NLPEnabled)
	assert.True(t, cfg.Search.PatternRecognition)
	assert.True(t, cfg.Search.Correlation)
	assert.Equal(t, 1_000_000, cfg.Search.MaxIndexSize)
	assert.Equal(t, 300_000, cfg.Search.TemporalWindowMS)
	assert.Equal(t, 0.3, cfg.Search.AnomalyThreshold)

	require.NoError(t, cfg.validate())
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		errText string
	}{
		{"EmptyAppName", func(c *Config) { c.Logger.AppName = "" }, "app_name"},
		{"BadConsoleTarget", func(c *Config) { c.Console.Target = "file" }, "console target"},
		{"BadFormatter", func(c *Config) { c.Console.Format = "yaml" }, "unknown formatter"},
		{"FileWithoutDirectory", func(c *Config) {
			c.File.Enabled = true
			c.File.Directory = ""
		}, "directory"},
		{"DatabaseWithoutPath", func(c *Config) {
			c.Database.Enabled = true
			c.Database.Path = ""
		}, "path"},
		{"DatabaseBadBatch", func(c *Config) {
			c.Database.Enabled = true
			c.Database.BatchSize = 0
		}, "batch size"},
		{"AnalyticsBadURL", func(c *Config) {
			c.Analytics.Enabled = true
			c.Analytics.URL = "ftp://collector"
		}, "http(s)"},
		{"SearchBadIndexSize", func(c *Config) { c.Search.MaxIndexSize = 0 }, "max_index_size"},
		{"SearchBadSimilarity", func(c *Config) { c.Search.MinSimilarity = 1.5 }, "min_similarity"},
		{"SearchBadThreshold", func(c *Config) { c.Search.AnomalyThreshold = -0.1 }, "anomaly_threshold"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errText)
		})
	}
}

func TestValidate_AcceptsValidVariants(t *testing.T) {
	cfg := Default()
	cfg.Console.Target = "split"
	cfg.Console.Format = "json"
	cfg.Analytics.Enabled = true
	cfg.Analytics.URL = "https://collector.example.com/ingest"
	assert.NoError(t, cfg.validate())
}

func TestGetConfigPath(t *testing.T) {
	t.Run("ExplicitFile", func(t *testing.T) {
		t.Setenv("LOGIXIA_CONFIG_FILE", "/etc/logixia/custom.toml")
		assert.Equal(t, "/etc/logixia/custom.toml", GetConfigPath())
	})

	t.Run("FileJoinedWithDir", func(t *testing.T) {
		t.Setenv("LOGIXIA_CONFIG_FILE", "custom.toml")
		t.Setenv("LOGIXIA_CONFIG_DIR", "/etc/logixia")
		assert.Equal(t, filepath.Join("/etc/logixia", "custom.toml"), GetConfigPath())
	})

	t.Run("DirOnly", func(t *testing.T) {
		t.Setenv("LOGIXIA_CONFIG_FILE", "")
		t.Setenv("LOGIXIA_CONFIG_DIR", "/opt/cfg")
		assert.Equal(t, filepath.Join("/opt/cfg", "logixia.toml"), GetConfigPath())
	})
}

func TestCustomEnvTransform(t *testing.T) {
	assert.Equal(t, "LOGIXIA_LOGGER_MIN_LEVEL", customEnvTransform("logger.min_level"))
	assert.Equal(t, "LOGIXIA_SEARCH_MAX_INDEX_SIZE", customEnvTransform("search.max_index_size"))
}
