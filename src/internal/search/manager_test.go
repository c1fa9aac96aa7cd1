package search

import (
	"testing"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, cfg ManagerConfig) *Manager {
	t.Helper()
	return NewManager(cfg, newTestLogger())
}

func TestManager_IngestKeepsComponentsInSync(t *testing.T) {
	m := newTestManager(t, DefaultManagerConfig())
	m.Ingest(testCollection())

	stats := m.GetStats()
	assert.Equal(t, 5, stats.TotalLogs)
	assert.Equal(t, 5, stats.IndexedLogs)

	results := m.Search("", nil, nil)
	assert.Len(t, results, 5)
}

func TestManager_DisabledEngines(t *testing.T) {
	m := newTestManager(t, ManagerConfig{})
	m.Ingest(testCollection())

	_, err := m.AnalyzePatterns()
	assert.ErrorIs(t, err, ErrPatternDisabled)

	_, err = m.DetectAnomalies()
	assert.ErrorIs(t, err, ErrPatternDisabled)

	_, err = m.FindRelatedLogs(m.basic.Logs()[0], 10)
	assert.ErrorIs(t, err, ErrCorrelationDisabled)

	_, err = m.CorrelateByCriteria(CorrelationCriteria{Trace: true})
	assert.ErrorIs(t, err, ErrCorrelationDisabled)

	_, err = m.AnalyzeErrorCascade()
	assert.ErrorIs(t, err, ErrCorrelationDisabled)
}

func TestManager_NLPFallback(t *testing.T) {
	m := newTestManager(t, ManagerConfig{NLPEnabled: false})
	m.Ingest(testCollection())

	// The lite parser still understands level keywords and "from X".
	parsed := m.ParseQuery("error logs from payment")
	assert.Contains(t, parsed.Filters.Levels, "error")
	assert.Contains(t, parsed.Filters.Services, "payment")
	assert.Equal(t, IntentGeneralSearch, parsed.Intent)
}

func TestManager_EnabledEngines(t *testing.T) {
	m := newTestManager(t, DefaultManagerConfig())
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	m.Ingest([]*core.LogEntry{
		entryAt(base, "error", "payment", "req-1", "User 1 failed"),
		entryAt(base.Add(time.Second), "error", "payment", "req-1", "User 2 failed"),
		entryAt(base.Add(2*time.Second), "error", "payment", "req-1", "User 3 failed"),
	})

	patterns, err := m.AnalyzePatterns()
	require.NoError(t, err)
	assert.NotEmpty(t, patterns)

	groups, err := m.CorrelateByCriteria(CorrelationCriteria{Trace: true})
	require.NoError(t, err)
	assert.Contains(t, groups, "trace_req-1")

	cascade, err := m.AnalyzeErrorCascade()
	require.NoError(t, err)
	require.NotNil(t, cascade.RootCause)
	assert.Equal(t, base, cascade.RootCause.Time)

	related, err := m.FindRelatedLogs(m.basic.Logs()[0], 10)
	require.NoError(t, err)
	assert.Len(t, related, 2)
}

func TestManager_RemoveOldLogs(t *testing.T) {
	m := newTestManager(t, DefaultManagerConfig())
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	m.Ingest(testCollection())

	removed := m.RemoveOldLogs(base.Add(90 * time.Second))
	assert.Equal(t, 2, removed)

	stats := m.GetStats()
	assert.Equal(t, 3, stats.TotalLogs)
	assert.Equal(t, 3, stats.IndexedLogs)
}

func TestManager_ClearIndex(t *testing.T) {
	m := newTestManager(t, DefaultManagerConfig())
	m.Ingest(testCollection())

	m.ClearIndex()
	stats := m.GetStats()
	assert.Equal(t, 0, stats.TotalLogs)
	assert.Equal(t, 0, stats.IndexedLogs)
	assert.Empty(t, m.Search("", nil, nil))
}

func TestManager_BuildSemanticIndex(t *testing.T) {
	m := newTestManager(t, DefaultManagerConfig())
	m.Ingest(testCollection())

	clusters := m.BuildSemanticIndex()
	assert.NotEmpty(t, clusters)
	total := 0
	for _, cluster := range clusters {
		total += len(cluster.Entries)
	}
	assert.Equal(t, 5, total)
}

func TestManager_PresetsRoundTrip(t *testing.T) {
	m := newTestManager(t, DefaultManagerConfig())

	saved := m.SavePreset(SearchPreset{Name: "errors", Query: "error"})
	got, ok := m.GetPreset(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "errors", got.Name)
	assert.Len(t, m.Presets(), 1)
	assert.True(t, m.DeletePreset(saved.ID))
}

func TestManager_ExportResults(t *testing.T) {
	m := newTestManager(t, DefaultManagerConfig())
	m.Ingest(testCollection())
	results := m.Search("database", nil, nil)

	out, err := m.ExportResults(results, ExportOptions{Format: FormatJSON})
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = m.ExportResults(results, ExportOptions{Format: "xml"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
