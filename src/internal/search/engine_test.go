package search

import (
	"testing"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func entryAt(t time.Time, level, app, traceID, message string) *core.LogEntry {
	return &core.LogEntry{
		Time:    t,
		Level:   level,
		AppName: app,
		TraceID: traceID,
		Message: message,
	}
}

func testCollection() []*core.LogEntry {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	return []*core.LogEntry{
		entryAt(base, "error", "payment", "req-001", "Database connection failed"),
		entryAt(base.Add(1*time.Minute), "info", "auth", "req-002", "User login ok"),
		entryAt(base.Add(2*time.Minute), "warn", "payment", "req-001", "Retrying database connection"),
		entryAt(base.Add(3*time.Minute), "info", "payment", "", "Payment processed"),
		entryAt(base.Add(4*time.Minute), "debug", "auth", "req-002", "Token refreshed"),
	}
}

func newEngineWithLogs(t *testing.T, logs []*core.LogEntry) *BasicEngine {
	t.Helper()
	e := NewBasicEngine(EngineOptions{}, newTestLogger())
	e.AddLogs(logs)
	return e
}

func TestSearch_BasicTextQuery(t *testing.T) {
	logs := []*core.LogEntry{
		entryAt(time.Now(), "error", "app", "", "Database connection failed"),
		entryAt(time.Now(), "info", "app", "", "User login ok"),
	}
	e := newEngineWithLogs(t, logs)

	results := e.Search("database", nil, nil)
	require.Len(t, results, 1)
	assert.Same(t, logs[0], results[0].Entry)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestSearch_ScoreRange(t *testing.T) {
	e := newEngineWithLogs(t, testCollection())

	results := e.Search("database connection retrying", nil, nil)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestSearch_PartialTermScore(t *testing.T) {
	e := newEngineWithLogs(t, testCollection())

	// "database failed" both match the first entry; only "database"
	// matches the third.
	results := e.Search("database failed", nil, &SearchOptions{SortBy: SortByScore, SortOrder: SortDesc})
	require.Len(t, results, 2)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, 0.5, results[1].Score)
}

func TestSearch_EmptyQueryPassThrough(t *testing.T) {
	logs := testCollection()
	e := newEngineWithLogs(t, logs)

	results := e.Search("", nil, nil)
	require.Len(t, results, len(logs))
	for i, r := range results {
		assert.Equal(t, 1.0, r.Score)
		// Stable sort on uniform scores preserves collection order.
		assert.Same(t, logs[i], r.Entry)
	}
}

func TestSearch_LevelFilter(t *testing.T) {
	base := time.Now()
	logs := []*core.LogEntry{
		entryAt(base, "error", "a", "", "one"),
		entryAt(base, "warn", "a", "", "two"),
		entryAt(base, "info", "a", "", "three"),
	}
	e := newEngineWithLogs(t, logs)

	results := e.Search("", &SearchFilters{Levels: []string{"error"}}, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "error", results[0].Entry.Level)
}

func TestSearch_FilterConjunction(t *testing.T) {
	e := newEngineWithLogs(t, testCollection())

	unfiltered := e.Search("", nil, nil)
	filters := &SearchFilters{
		Levels:   []string{"error", "warn"},
		Services: []string{"payment"},
	}
	filtered := e.Search("", filters, nil)

	assert.LessOrEqual(t, len(filtered), len(unfiltered))
	for _, r := range filtered {
		assert.Contains(t, []string{"error", "warn"}, r.Entry.Level)
		assert.Equal(t, "payment", r.Entry.AppName)
	}
}

func TestSearch_Filters(t *testing.T) {
	hasErr := true
	noErr := false
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	withPayload := entryAt(base, "info", "auth", "", "session created")
	withPayload.Payload = map[string]any{"userId": "u-1", "sessionId": "s-9"}
	withErr := entryAt(base.Add(time.Minute), "error", "auth", "", "boom")
	withErr.Err = &core.ErrorInfo{Name: "DBError", Message: "down"}

	e := newEngineWithLogs(t, []*core.LogEntry{withPayload, withErr})

	testCases := []struct {
		name    string
		filters SearchFilters
		want    int
	}{
		{"UserID", SearchFilters{UserIDs: []string{"u-1"}}, 1},
		{"UserIDNoMatch", SearchFilters{UserIDs: []string{"u-2"}}, 0},
		{"SessionID", SearchFilters{SessionIDs: []string{"s-9"}}, 1},
		{"HasError", SearchFilters{HasError: &hasErr}, 1},
		{"HasNoError", SearchFilters{HasError: &noErr}, 1},
		{"TimeRange", SearchFilters{TimeRange: &TimeRange{Start: base.Add(30 * time.Second)}}, 1},
		{"TimeRangeWithEnd", SearchFilters{TimeRange: &TimeRange{Start: base, End: base.Add(30 * time.Second)}}, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results := e.Search("", &tc.filters, nil)
			assert.Len(t, results, tc.want)
		})
	}
}

func TestSearch_PaginationIdempotence(t *testing.T) {
	e := newEngineWithLogs(t, testCollection())

	all := e.Search("", nil, &SearchOptions{Offset: 0, Limit: 5})
	first := e.Search("", nil, &SearchOptions{Offset: 0, Limit: 2})
	rest := e.Search("", nil, &SearchOptions{Offset: 2, Limit: 3})

	require.Len(t, all, 5)
	require.Len(t, first, 2)
	require.Len(t, rest, 3)
	for i := range first {
		assert.Same(t, all[i].Entry, first[i].Entry)
	}
	for i := range rest {
		assert.Same(t, all[i+2].Entry, rest[i].Entry)
	}
}

func TestSearch_SortByTimestamp(t *testing.T) {
	e := newEngineWithLogs(t, testCollection())

	results := e.Search("", nil, &SearchOptions{SortBy: SortByTimestamp, SortOrder: SortAsc})
	for i := 1; i < len(results); i++ {
		assert.False(t, results[i].Entry.Time.Before(results[i-1].Entry.Time))
	}

	results = e.Search("", nil, &SearchOptions{SortBy: SortByTimestamp, SortOrder: SortDesc})
	for i := 1; i < len(results); i++ {
		assert.False(t, results[i].Entry.Time.After(results[i-1].Entry.Time))
	}
}

func TestSearch_IncludeContext(t *testing.T) {
	logs := testCollection()
	e := newEngineWithLogs(t, logs)

	results := e.Search("token", nil, &SearchOptions{IncludeContext: true, ContextSize: 2})
	require.Len(t, results, 1)
	// Matched entry is last in the collection; context is the two
	// preceding entries, never the entry itself.
	require.Len(t, results[0].Context, 2)
	for _, neighbor := range results[0].Context {
		assert.NotSame(t, results[0].Entry, neighbor)
	}
}

func TestSearch_RecordsHistory(t *testing.T) {
	e := NewBasicEngine(EngineOptions{MaxHistory: 3}, newTestLogger())

	for _, q := range []string{"one", "two", "three", "four"} {
		e.Search(q, nil, nil)
	}

	history := e.History()
	assert.Equal(t, []string{"two", "three", "four"}, history)
}

func TestCorrelateByTraceID(t *testing.T) {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	logs := []*core.LogEntry{
		entryAt(base, "info", "gateway", "req-001", "Request received"),
		entryAt(base.Add(time.Second), "info", "payment", "req-001", "Charging card"),
		entryAt(base.Add(2*time.Second), "error", "payment", "req-001", "Card declined"),
		entryAt(base.Add(3*time.Second), "info", "auth", "req-999", "Unrelated"),
	}
	e := newEngineWithLogs(t, logs)

	correlated := e.CorrelateByTraceID("req-001")
	require.Len(t, correlated.Logs, 3)
	assert.Equal(t, "req-001", correlated.CorrelationKey)
	assert.Equal(t, 1, correlated.Summary.ErrorCount)
	assert.Equal(t, []string{"gateway", "payment"}, correlated.Summary.Services)
	assert.Equal(t, 2*time.Second, correlated.Summary.Duration)

	require.Len(t, correlated.Timeline, 3)
	assert.Equal(t, EventError, correlated.Timeline[2].EventType)
	for i := 1; i < len(correlated.Timeline); i++ {
		assert.False(t, correlated.Timeline[i].Time.Before(correlated.Timeline[i-1].Time))
	}
}

func TestCorrelateByTraceID_NoMatch(t *testing.T) {
	e := newEngineWithLogs(t, testCollection())

	correlated := e.CorrelateByTraceID("missing")
	assert.Empty(t, correlated.Logs)
	assert.Empty(t, correlated.Timeline)
	assert.Equal(t, 0, correlated.Summary.ErrorCount)
}

func TestFindSimilarLogs(t *testing.T) {
	base := time.Now()
	ref := entryAt(base, "error", "payment", "req-001", "Database connection failed")
	twin := entryAt(base, "error", "payment", "req-001", "Database connection timeout")
	unrelated := entryAt(base, "info", "auth", "req-777", "User logged in")

	e := newEngineWithLogs(t, []*core.LogEntry{ref, twin, unrelated})

	similar := e.FindSimilarLogs(ref, 10)
	require.Len(t, similar, 1)
	assert.Same(t, twin, similar[0].Entry)
	assert.Greater(t, similar[0].Score, 0.3)
	assert.Contains(t, similar[0].MatchedOn, "level")
	assert.Contains(t, similar[0].MatchedOn, "trace")
	assert.NotEmpty(t, similar[0].Reason)
}

func TestFindSimilarLogs_Symmetric(t *testing.T) {
	a := entryAt(time.Now(), "error", "payment", "req-001", "Database connection failed")
	b := entryAt(time.Now(), "error", "billing", "req-001", "Database connection timeout")

	scoreAB, _ := similarity(a, b)
	scoreBA, _ := similarity(b, a)
	assert.Equal(t, scoreAB, scoreBA)
}

func TestGetSuggestions(t *testing.T) {
	e := newEngineWithLogs(t, testCollection())
	e.Search("payment errors", nil, nil)

	t.Run("FieldNames", func(t *testing.T) {
		suggestions := e.GetSuggestions("le", 10)
		require.NotEmpty(t, suggestions)
		assert.Equal(t, "level", suggestions[0].Text)
		assert.Equal(t, SuggestionField, suggestions[0].Type)
	})

	t.Run("RecentValues", func(t *testing.T) {
		suggestions := e.GetSuggestions("paym", 10)
		found := false
		for _, s := range suggestions {
			if s.Text == "payment" && s.Type == SuggestionValue {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("History", func(t *testing.T) {
		suggestions := e.GetSuggestions("payment errors", 10)
		found := false
		for _, s := range suggestions {
			if s.Type == SuggestionHistory {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("LimitRespected", func(t *testing.T) {
		suggestions := e.GetSuggestions("", 2)
		assert.LessOrEqual(t, len(suggestions), 2)
	})
}

func TestPresets_CRUD(t *testing.T) {
	e := NewBasicEngine(EngineOptions{}, newTestLogger())

	saved := e.SavePreset(SearchPreset{
		Name:    "recent errors",
		Query:   "error",
		Filters: SearchFilters{Levels: []string{"error"}},
	})
	require.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	fetched, ok := e.GetPreset(saved.ID)
	require.True(t, ok)
	assert.Equal(t, "recent errors", fetched.Name)

	saved.Name = "renamed"
	updated := e.SavePreset(*saved)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, saved.CreatedAt, updated.CreatedAt)

	assert.Len(t, e.Presets(), 1)
	assert.True(t, e.DeletePreset(saved.ID))
	assert.False(t, e.DeletePreset(saved.ID))
	assert.Empty(t, e.Presets())
}

func TestParseNaturalLanguageQuery_Lite(t *testing.T) {
	e := NewBasicEngine(EngineOptions{}, newTestLogger())

	parsed := e.ParseNaturalLanguageQuery("show error logs from payment service last 2 hours for user u-42")
	assert.Contains(t, parsed.Filters.Levels, "error")
	assert.Contains(t, parsed.Filters.Services, "payment")
	assert.Contains(t, parsed.Filters.UserIDs, "u-42")
	require.NotNil(t, parsed.Filters.TimeRange)
	assert.Equal(t, 2*time.Hour, parsed.Filters.TimeRange.Last)
}

func TestGetStats(t *testing.T) {
	e := newEngineWithLogs(t, testCollection())
	e.Search("database", nil, nil)

	stats := e.GetStats()
	assert.Equal(t, 5, stats.TotalLogs)
	assert.Equal(t, uint64(1), stats.TotalSearches)
	assert.Equal(t, 2, stats.LevelBreakdown["info"])
	assert.Equal(t, 3, stats.ServiceBreakdown["payment"])
}

func TestRemoveOldLogs_Engine(t *testing.T) {
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	e := newEngineWithLogs(t, testCollection())

	removed := e.RemoveOldLogs(base.Add(90 * time.Second))
	assert.Equal(t, 2, removed)
	assert.Len(t, e.Logs(), 3)
}
