package search

import (
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"
)

// TimeRange bounds a search in time. Start is required when the range is
// set; End is optional (zero means "now"). Last is a relative shorthand
// that, when non-zero, overrides Start with now-Last at evaluation time.
type TimeRange struct {
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end,omitempty"`
	Last  time.Duration `json:"last,omitempty"`
}

// SearchFilters is a conjunctive predicate over log entries. Every present
// field must match; absent fields impose no constraint.
type SearchFilters struct {
	Levels     []string   `json:"levels,omitempty"`
	Services   []string   `json:"services,omitempty"`
	TraceIDs   []string   `json:"traceIds,omitempty"`
	TimeRange  *TimeRange `json:"timeRange,omitempty"`
	UserIDs    []string   `json:"userIds,omitempty"`
	SessionIDs []string   `json:"sessionIds,omitempty"`
	Contexts   []string   `json:"contexts,omitempty"`
	HasError   *bool      `json:"hasError,omitempty"`
}

// Sort keys and orders accepted by SearchOptions.
const (
	SortByScore     = "score"
	SortByRelevance = "relevance"
	SortByTimestamp = "timestamp"
	SortByLevel     = "level"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// SearchOptions tunes ranking, pagination and result enrichment.
type SearchOptions struct {
	SortBy         string `json:"sortBy,omitempty"`
	SortOrder      string `json:"sortOrder,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	IncludeContext bool   `json:"includeContext,omitempty"`
	ContextSize    int    `json:"contextSize,omitempty"`
	Highlight      bool   `json:"highlight,omitempty"`
	// Set by natural-language search when the detected intent calls for
	// correlation or similarity follow-ups.
	Correlate   bool `json:"correlate,omitempty"`
	FindSimilar bool `json:"findSimilar,omitempty"`
}

// SearchResult wraps one matched entry with its relevance score and
// optional enrichment.
type SearchResult struct {
	Entry      *core.LogEntry   `json:"entry"`
	Score      float64          `json:"score"`
	Highlights []string         `json:"highlights,omitempty"`
	Context    []*core.LogEntry `json:"context,omitempty"`
}

// Timeline event types inferred from level and message keywords.
const (
	EventStart     = "start"
	EventEnd       = "end"
	EventError     = "error"
	EventMilestone = "milestone"
	EventInfo      = "info"
)

// TimelineEvent is one typed point on a correlation timeline.
type TimelineEvent struct {
	Time      time.Time      `json:"timestamp"`
	EventType string         `json:"eventType"`
	Entry     *core.LogEntry `json:"entry"`
}

// CorrelationSummary aggregates a correlated group.
type CorrelationSummary struct {
	LevelCounts map[string]int `json:"levelCounts"`
	ErrorCount  int            `json:"errorCount"`
	Duration    time.Duration  `json:"duration"`
	Services    []string       `json:"services"`
}

// CorrelatedLogs is a group of entries sharing a correlation key, with a
// chronological timeline and summary.
type CorrelatedLogs struct {
	CorrelationKey string             `json:"correlationKey"`
	Logs           []*core.LogEntry   `json:"logs"`
	Timeline       []TimelineEvent    `json:"timeline"`
	Summary        CorrelationSummary `json:"summary"`
}

// Relationship types recognized by the correlator.
const (
	RelSameTrace         = "same_trace"
	RelSameUser          = "same_user"
	RelSameSession       = "same_session"
	RelTemporalProximity = "temporal_proximity"
	RelErrorCascade      = "error_cascade"
	RelSimilarPattern    = "similar_pattern"
)

// RelatedLog pairs an entry with the strongest relationship that links it
// to the reference entry.
type RelatedLog struct {
	Entry        *core.LogEntry `json:"entry"`
	Relationship string         `json:"relationship"`
	Score        float64        `json:"score"`
}

// SimilarLog is a similarity-scored neighbor of a reference entry.
type SimilarLog struct {
	Entry     *core.LogEntry `json:"entry"`
	Score     float64        `json:"score"`
	MatchedOn []string       `json:"matchedOn"`
	Reason    string         `json:"reason"`
}

// Pattern categories.
const (
	PatternMessage = "message"
	PatternError   = "error"
	PatternTiming  = "timing"
)

// LogPattern is a recurring normalized message template.
//
// IDs are assigned from array position on each analysis call and are not
// stable across calls when the input set changes.
type LogPattern struct {
	ID        string           `json:"id"`
	Template  string           `json:"template"`
	Examples  []*core.LogEntry `json:"examples"`
	Frequency int              `json:"frequency"`
	LastSeen  time.Time        `json:"lastSeen"`
	Category  string           `json:"category"`
}

// AnomalyDetection flags an unusual entry with a heuristic score.
type AnomalyDetection struct {
	Entry      *core.LogEntry `json:"entry"`
	Score      float64        `json:"score"`
	Reason     string         `json:"reason"`
	Deviations []string       `json:"deviations"`
}

// SearchPreset is a saved, named query. Lifetime is the process; there is
// no persistence behind the preset store.
type SearchPreset struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Query     string        `json:"query"`
	Filters   SearchFilters `json:"filters"`
	Options   SearchOptions `json:"options"`
	UserID    string        `json:"userId,omitempty"`
	Shared    bool          `json:"shared"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Suggestion types.
const (
	SuggestionField   = "field"
	SuggestionValue   = "value"
	SuggestionHistory = "history"
)

// SearchSuggestion is one autocomplete candidate.
type SearchSuggestion struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// QueryEntity is a recognized fragment of a natural-language query.
type QueryEntity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Query intents recognized by the NLP engine.
const (
	IntentGeneralSearch    = "general_search"
	IntentFindErrors       = "find_errors"
	IntentTraceRequest     = "trace_request"
	IntentFindUserActivity = "find_user_activity"
	IntentPerformance      = "performance_analysis"
	IntentTimeRange        = "time_range_query"
	IntentCorrelation      = "correlation"
)

// ParsedQuery is the structured interpretation of a natural-language query.
type ParsedQuery struct {
	Intent     string        `json:"intent"`
	Entities   []QueryEntity `json:"entities"`
	Filters    SearchFilters `json:"filters"`
	CleanQuery string        `json:"cleanQuery"`
	Confidence float64       `json:"confidence"`
}

// CascadeAnalysis is the result of a root-cause pass over a log set.
type CascadeAnalysis struct {
	RootCause        *core.LogEntry   `json:"rootCause"`
	Cascade          []*core.LogEntry `json:"cascade"`
	ImpactedServices []string         `json:"impactedServices"`
}

// SemanticCluster is a placeholder cluster keyed by (level, appName).
type SemanticCluster struct {
	Label   string           `json:"label"`
	Entries []*core.LogEntry `json:"entries"`
}

// SearchStats aggregates component counters for observability.
type SearchStats struct {
	TotalLogs        int            `json:"totalLogs"`
	IndexedLogs      int            `json:"indexedLogs"`
	TotalSearches    uint64         `json:"totalSearches"`
	HistorySize      int            `json:"historySize"`
	PresetCount      int            `json:"presetCount"`
	PatternCount     int            `json:"patternCount"`
	LevelBreakdown   map[string]int `json:"levelBreakdown"`
	ServiceBreakdown map[string]int `json:"serviceBreakdown"`
}
