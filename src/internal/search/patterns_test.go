package search

import (
	"fmt"
	"testing"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMessage(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Number", "User 123 logged in", "User <num> logged in"},
		{"Float", "Request took 1.5 seconds", "Request took <num> seconds"},
		{"Quoted", `Failed to open "config.toml"`, "Failed to open <str>"},
		{"SingleQuoted", "Unknown key 'retries'", "Unknown key <str>"},
		{"UUID", "Session 550e8400-e29b-41d4-a716-446655440000 expired", "Session <uuid> expired"},
		{"Email", "Invite sent to alice@example.com", "Invite sent to <email>"},
		{"Hash", "Commit 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08 built", "Commit <hash> built"},
		{"Combined", "User 42 uploaded 'report.pdf' in 300 ms", "User <num> uploaded <str> in <num> ms"},
		{"Untouched", "Cache warmed", "Cache warmed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, normalizeMessage(tc.input))
		})
	}
}

func TestAnalyzePatterns_MergesByTemplate(t *testing.T) {
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	logs := []*core.LogEntry{
		entryAt(base, "info", "auth", "", "User 123 logged in"),
		entryAt(base.Add(time.Minute), "info", "auth", "", "User 456 logged in"),
	}

	p := NewPatternEngine(PatternEngineOptions{MinFrequency: 2}, newTestLogger())
	patterns := p.AnalyzePatterns(logs)

	require.NotEmpty(t, patterns)
	assert.Equal(t, "pattern_0", patterns[0].ID)
	assert.Equal(t, "User <num> logged in", patterns[0].Template)
	assert.Equal(t, 2, patterns[0].Frequency)
	assert.Equal(t, PatternMessage, patterns[0].Category)
	assert.Len(t, patterns[0].Examples, 2)
	assert.Equal(t, base.Add(time.Minute), patterns[0].LastSeen)
}

func TestAnalyzePatterns_MinFrequency(t *testing.T) {
	base := time.Now()
	logs := []*core.LogEntry{
		entryAt(base, "info", "a", "", "once only"),
		entryAt(base, "info", "a", "", "seen 1 times"),
		entryAt(base, "info", "a", "", "seen 2 times"),
		entryAt(base, "info", "a", "", "seen 3 times"),
	}

	p := NewPatternEngine(PatternEngineOptions{MinFrequency: 3}, newTestLogger())
	patterns := p.AnalyzePatterns(logs)

	// "seen <num> times" appears three times; "once only" is discarded.
	// The timing pattern covers all four entries in the peak hour.
	templates := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		templates = append(templates, pattern.Template)
	}
	assert.Contains(t, templates, "seen <num> times")
	assert.NotContains(t, templates, "once only")
}

func TestAnalyzePatterns_ErrorPatterns(t *testing.T) {
	base := time.Now()
	withErr := func(msg string) *core.LogEntry {
		e := entryAt(base, "error", "payment", "", msg)
		e.Err = &core.ErrorInfo{Name: "DBError", Message: msg}
		return e
	}
	logs := []*core.LogEntry{
		withErr("connection 1 refused"),
		withErr("connection 2 refused"),
	}

	p := NewPatternEngine(PatternEngineOptions{MinFrequency: 2}, newTestLogger())
	patterns := p.AnalyzePatterns(logs)

	var errPattern *LogPattern
	for _, pattern := range patterns {
		if pattern.Category == PatternError {
			errPattern = pattern
		}
	}
	require.NotNil(t, errPattern)
	assert.Equal(t, "DBError: connection <num> refused", errPattern.Template)
	assert.Equal(t, 2, errPattern.Frequency)
}

func TestAnalyzePatterns_TimingPattern(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	logs := []*core.LogEntry{
		entryAt(day.Add(14*time.Hour), "info", "a", "", "m1"),
		entryAt(day.Add(14*time.Hour+10*time.Minute), "info", "a", "", "m2"),
		entryAt(day.Add(14*time.Hour+20*time.Minute), "info", "a", "", "m3"),
		entryAt(day.Add(9*time.Hour), "info", "a", "", "m4"),
	}

	p := NewPatternEngine(PatternEngineOptions{MinFrequency: 3}, newTestLogger())
	patterns := p.AnalyzePatterns(logs)

	var timing *LogPattern
	for _, pattern := range patterns {
		if pattern.Category == PatternTiming {
			timing = pattern
		}
	}
	require.NotNil(t, timing)
	assert.Equal(t, "peak activity at 14:00-14:59", timing.Template)
	assert.Equal(t, 3, timing.Frequency)
}

func TestDetectAnomalies_Scoring(t *testing.T) {
	noon := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	night := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)

	p := NewPatternEngine(PatternEngineOptions{MinFrequency: 1}, newTestLogger())
	p.AnalyzePatterns([]*core.LogEntry{
		entryAt(noon, "info", "a", "", "Heartbeat ok"),
		entryAt(noon.Add(time.Minute), "info", "a", "", "Heartbeat ok"),
	})

	known := entryAt(noon, "info", "a", "", "Heartbeat ok")
	unknownAtNoon := entryAt(noon, "info", "a", "", "Disk melted")
	unknownAtNight := entryAt(night, "info", "a", "", "Disk melted")
	rareError := entryAt(noon, "error", "a", "", "Weird failure 42")

	anomalies := p.DetectAnomalies([]*core.LogEntry{known, unknownAtNoon, unknownAtNight, rareError})

	require.Len(t, anomalies, 3)
	// Descending by score: rare error 0.6, off-hours unknown 0.5,
	// unknown at noon exactly at the 0.3 threshold.
	assert.Same(t, rareError, anomalies[0].Entry)
	assert.InDelta(t, 0.6, anomalies[0].Score, 1e-9)
	assert.Contains(t, anomalies[0].Reason, "rare error signature")

	assert.Same(t, unknownAtNight, anomalies[1].Entry)
	assert.InDelta(t, 0.5, anomalies[1].Score, 1e-9)
	assert.Contains(t, anomalies[1].Reason, "off-hours activity")

	assert.Same(t, unknownAtNoon, anomalies[2].Entry)
	assert.InDelta(t, 0.3, anomalies[2].Score, 1e-9)
	assert.Contains(t, anomalies[2].Reason, "matches no known pattern")
}

func TestDetectAnomalies_FrequentErrorNotRare(t *testing.T) {
	noon := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	errEntry := func() *core.LogEntry {
		return entryAt(noon, "error", "a", "", "connection refused")
	}

	p := NewPatternEngine(PatternEngineOptions{MinFrequency: 1}, newTestLogger())
	p.AnalyzePatterns([]*core.LogEntry{errEntry(), errEntry(), errEntry()})

	anomalies := p.DetectAnomalies([]*core.LogEntry{errEntry()})
	// Template and error signature are both known, daytime: score 0.
	assert.Empty(t, anomalies)
}

func TestDetectDeviations(t *testing.T) {
	bigPayload := make(map[string]any)
	for i := 0; i < 60; i++ {
		bigPayload[fmt.Sprintf("k%d", i)] = i
	}

	testCases := []struct {
		name     string
		entry    *core.LogEntry
		expected string
	}{
		{
			"MissingTraceID",
			&core.LogEntry{Level: "info", Context: "auth", Message: "x"},
			"missing trace ID",
		},
		{
			"MissingContext",
			&core.LogEntry{Level: "info", TraceID: "req-1", Message: "x"},
			"missing context",
		},
		{
			"OversizedPayload",
			&core.LogEntry{Level: "info", TraceID: "req-1", Context: "c", Message: "x", Payload: bigPayload},
			"oversized payload",
		},
		{
			"StackTraceInInfo",
			&core.LogEntry{Level: "info", TraceID: "req-1", Context: "c", Message: "panic at handler.go:42"},
			"stack trace in non-error entry",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, detectDeviations(tc.entry), tc.expected)
		})
	}
}

func TestPatternEngine_Accessors(t *testing.T) {
	base := time.Now()
	p := NewPatternEngine(PatternEngineOptions{MinFrequency: 2}, newTestLogger())
	p.AnalyzePatterns([]*core.LogEntry{
		entryAt(base, "info", "a", "", "job 1 done"),
		entryAt(base, "info", "a", "", "job 2 done"),
	})

	assert.Greater(t, p.PatternCount(), 0)

	patterns := p.Patterns()
	require.NotEmpty(t, patterns)
	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, patterns[i-1].Frequency, patterns[i].Frequency)
	}

	stats := p.GetStats()
	assert.Equal(t, len(patterns), stats["pattern_count"])
}
