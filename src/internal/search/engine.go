package search

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
)

// EngineOptions tunes the basic search engine's bounded caches.
type EngineOptions struct {
	MaxHistory          int // search history capacity, oldest trimmed first
	SuggestionCacheSize int // suggestion cache capacity, FIFO eviction
}

// BasicEngine owns the authoritative in-memory log collection and
// implements structured filtering, scored free-text search, similarity,
// suggestions and saved presets.
//
// The engine's collection and the indexer's primary table are populated
// independently; the Manager is the sanctioned entry point that keeps
// them in sync. All result ordering uses stable sorts, so ties preserve
// prior order.
type BasicEngine struct {
	opts   EngineOptions
	logger *log.Logger

	mu      sync.RWMutex
	logs    []*core.LogEntry
	history []string
	presets map[string]*SearchPreset

	cacheMu    sync.Mutex
	cache      map[string][]SearchSuggestion
	cacheOrder []string

	totalSearches atomic.Uint64
}

// NewBasicEngine creates an engine with defaults applied.
func NewBasicEngine(opts EngineOptions, logger *log.Logger) *BasicEngine {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 1000
	}
	if opts.SuggestionCacheSize <= 0 {
		opts.SuggestionCacheSize = 100
	}
	return &BasicEngine{
		opts:    opts,
		logger:  logger,
		presets: make(map[string]*SearchPreset),
		cache:   make(map[string][]SearchSuggestion),
	}
}

// AddLogs appends entries to the authoritative collection.
func (e *BasicEngine) AddLogs(entries []*core.LogEntry) {
	e.mu.Lock()
	e.logs = append(e.logs, entries...)
	e.mu.Unlock()
	e.invalidateSuggestions()
}

// ClearLogs drops the collection and the search history.
func (e *BasicEngine) ClearLogs() {
	e.mu.Lock()
	e.logs = nil
	e.history = nil
	e.mu.Unlock()
	e.invalidateSuggestions()
}

// Logs returns a snapshot of the authoritative collection in ingestion
// order.
func (e *BasicEngine) Logs() []*core.LogEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snapshot := make([]*core.LogEntry, len(e.logs))
	copy(snapshot, e.logs)
	return snapshot
}

// RemoveOldLogs drops entries older than cutoff from the collection and
// returns the number removed.
func (e *BasicEngine) RemoveOldLogs(cutoff time.Time) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.logs[:0]
	removed := 0
	for _, entry := range e.logs {
		if entry.Time.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	e.logs = kept
	return removed
}

// Search runs a scored free-text query constrained by filters.
//
// An empty query is pure filter mode: every surviving entry scores 1.0.
// Otherwise entries score matchedTerms/totalTerms against their combined
// searchable text, and zero-score entries are dropped.
func (e *BasicEngine) Search(query string, filters *SearchFilters, opts *SearchOptions) []SearchResult {
	e.totalSearches.Add(1)
	e.recordHistory(query)

	options := normalizeOptions(opts)

	e.mu.RLock()
	collection := make([]*core.LogEntry, len(e.logs))
	copy(collection, e.logs)
	e.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(query))

	results := make([]SearchResult, 0)
	for _, entry := range collection {
		if !matchesFilters(entry, filters) {
			continue
		}
		if len(terms) == 0 {
			results = append(results, SearchResult{Entry: entry, Score: 1.0})
			continue
		}

		text := searchableText(entry)
		matched := make([]string, 0, len(terms))
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched = append(matched, term)
			}
		}
		if len(matched) == 0 {
			continue
		}

		result := SearchResult{
			Entry: entry,
			Score: float64(len(matched)) / float64(len(terms)),
		}
		if options.Highlight {
			result.Highlights = extractHighlights(entry.Message, matched)
		}
		results = append(results, result)
	}

	sortResults(results, options.SortBy, options.SortOrder)
	results = paginate(results, options.Offset, options.Limit)

	if options.IncludeContext {
		for i := range results {
			results[i].Context = e.contextFor(collection, results[i].Entry, options.ContextSize)
		}
	}

	e.logger.Debug("msg", "Search executed",
		"component", "search_engine",
		"query", query,
		"results", len(results))

	return results
}

func normalizeOptions(opts *SearchOptions) SearchOptions {
	options := SearchOptions{}
	if opts != nil {
		options = *opts
	}
	if options.SortBy == "" {
		options.SortBy = SortByScore
	}
	if options.SortOrder == "" {
		options.SortOrder = SortDesc
	}
	if options.Limit <= 0 {
		options.Limit = 100
	}
	if options.Offset < 0 {
		options.Offset = 0
	}
	if options.ContextSize <= 0 {
		options.ContextSize = 5
	}
	return options
}

// matchesFilters applies the conjunctive filter predicate. A nil filter
// matches everything.
func matchesFilters(entry *core.LogEntry, filters *SearchFilters) bool {
	if filters == nil {
		return true
	}
	if len(filters.Levels) > 0 && !containsFold(filters.Levels, entry.Level) {
		return false
	}
	if len(filters.Services) > 0 && !containsFold(filters.Services, entry.AppName) {
		return false
	}
	if len(filters.TraceIDs) > 0 && !contains(filters.TraceIDs, entry.TraceID) {
		return false
	}
	if len(filters.UserIDs) > 0 && !contains(filters.UserIDs, entry.UserID()) {
		return false
	}
	if len(filters.SessionIDs) > 0 && !contains(filters.SessionIDs, entry.SessionID()) {
		return false
	}
	if len(filters.Contexts) > 0 && !containsFold(filters.Contexts, entry.Context) {
		return false
	}
	if filters.HasError != nil && entry.HasError() != *filters.HasError {
		return false
	}
	if filters.TimeRange != nil {
		start, end := resolveTimeRange(filters.TimeRange)
		if entry.Time.Before(start) {
			return false
		}
		if !end.IsZero() && entry.Time.After(end) {
			return false
		}
	}
	return true
}

// resolveTimeRange applies the relative-duration shorthand, if set.
func resolveTimeRange(tr *TimeRange) (time.Time, time.Time) {
	start := tr.Start
	if tr.Last > 0 {
		start = time.Now().Add(-tr.Last)
	}
	return start, tr.End
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

// searchableText concatenates the entry's textual surface, lower-cased:
// message, level, app name, context and the JSON form of the payload.
func searchableText(entry *core.LogEntry) string {
	var b strings.Builder
	b.WriteString(entry.Message)
	b.WriteByte(' ')
	b.WriteString(entry.Level)
	b.WriteByte(' ')
	b.WriteString(entry.AppName)
	b.WriteByte(' ')
	b.WriteString(entry.Context)
	if len(entry.Payload) > 0 {
		if encoded, err := json.Marshal(entry.Payload); err == nil {
			b.WriteByte(' ')
			b.Write(encoded)
		}
	}
	return strings.ToLower(b.String())
}

// extractHighlights returns a short fragment around the first occurrence
// of each matched term in the message.
func extractHighlights(message string, terms []string) []string {
	lower := strings.ToLower(message)
	highlights := make([]string, 0, len(terms))
	for _, term := range terms {
		pos := strings.Index(lower, term)
		if pos < 0 {
			continue
		}
		start := pos - 20
		if start < 0 {
			start = 0
		}
		end := pos + len(term) + 20
		if end > len(message) {
			end = len(message)
		}
		highlights = append(highlights, message[start:end])
	}
	return highlights
}

// sortResults orders results with a stable sort; ties preserve prior
// order. Level ordering uses the registered numeric priorities.
func sortResults(results []SearchResult, sortBy, sortOrder string) {
	less := func(i, j int) bool { return results[i].Score < results[j].Score }

	switch sortBy {
	case SortByTimestamp:
		less = func(i, j int) bool { return results[i].Entry.Time.Before(results[j].Entry.Time) }
	case SortByLevel:
		less = func(i, j int) bool {
			pi, _ := core.LevelPriority(results[i].Entry.Level)
			pj, _ := core.LevelPriority(results[j].Entry.Level)
			return pi < pj
		}
	case SortByScore, SortByRelevance:
		// default comparator
	}

	if sortOrder == SortDesc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(results, less)
}

func paginate(results []SearchResult, offset, limit int) []SearchResult {
	if offset >= len(results) {
		return []SearchResult{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

// contextFor collects up to contextSize neighbors before and after the
// entry's position in the authoritative collection order, excluding the
// entry itself. Position is pointer identity, not result-set order.
func (e *BasicEngine) contextFor(collection []*core.LogEntry, entry *core.LogEntry, contextSize int) []*core.LogEntry {
	pos := -1
	for i, candidate := range collection {
		if candidate == entry {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}

	start := pos - contextSize
	if start < 0 {
		start = 0
	}
	end := pos + contextSize + 1
	if end > len(collection) {
		end = len(collection)
	}

	neighbors := make([]*core.LogEntry, 0, end-start-1)
	for i := start; i < end; i++ {
		if i == pos {
			continue
		}
		neighbors = append(neighbors, collection[i])
	}
	return neighbors
}

// recordHistory appends the raw query to the bounded search history.
func (e *BasicEngine) recordHistory(query string) {
	if strings.TrimSpace(query) == "" {
		return
	}
	e.mu.Lock()
	e.history = append(e.history, query)
	if len(e.history) > e.opts.MaxHistory {
		e.history = e.history[len(e.history)-e.opts.MaxHistory:]
	}
	e.mu.Unlock()
}

// History returns a snapshot of the recorded queries, oldest first.
func (e *BasicEngine) History() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snapshot := make([]string, len(e.history))
	copy(snapshot, e.history)
	return snapshot
}

// CorrelateByTraceID groups the collection's entries with an exact trace
// ID match into a chronological timeline with a summary.
func (e *BasicEngine) CorrelateByTraceID(traceID string) *CorrelatedLogs {
	e.mu.RLock()
	matched := make([]*core.LogEntry, 0)
	for _, entry := range e.logs {
		if entry.TraceID == traceID {
			matched = append(matched, entry)
		}
	}
	e.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Time.Before(matched[j].Time)
	})

	return &CorrelatedLogs{
		CorrelationKey: traceID,
		Logs:           matched,
		Timeline:       buildTimeline(matched),
		Summary:        summarize(matched),
	}
}

// Similarity weights. The measure is symmetric: both orders of the same
// pair yield the same score.
const (
	similarityLevelWeight   = 0.3
	similarityServiceWeight = 0.2
	similarityTraceWeight   = 0.3
	similarityMessageWeight = 0.2
	similarityThreshold     = 0.3
)

// FindSimilarLogs ranks every other entry by a weighted similarity to
// the reference and returns the top limit above the 0.3 threshold.
func (e *BasicEngine) FindSimilarLogs(entry *core.LogEntry, limit int) []SimilarLog {
	if limit <= 0 {
		limit = 10
	}

	e.mu.RLock()
	collection := make([]*core.LogEntry, len(e.logs))
	copy(collection, e.logs)
	e.mu.RUnlock()

	similar := make([]SimilarLog, 0)
	for _, candidate := range collection {
		if candidate == entry {
			continue
		}
		score, matchedOn := similarity(entry, candidate)
		if score <= similarityThreshold {
			continue
		}
		similar = append(similar, SimilarLog{
			Entry:     candidate,
			Score:     score,
			MatchedOn: matchedOn,
			Reason:    fmt.Sprintf("matched on %s (score %.2f)", strings.Join(matchedOn, ", "), score),
		})
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].Score > similar[j].Score
	})
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar
}

func similarity(a, b *core.LogEntry) (float64, []string) {
	score := 0.0
	matchedOn := make([]string, 0, 4)

	if a.Level != "" && strings.EqualFold(a.Level, b.Level) {
		score += similarityLevelWeight
		matchedOn = append(matchedOn, "level")
	}
	if a.AppName != "" && a.AppName == b.AppName {
		score += similarityServiceWeight
		matchedOn = append(matchedOn, "service")
	}
	if a.TraceID != "" && a.TraceID == b.TraceID {
		score += similarityTraceWeight
		matchedOn = append(matchedOn, "trace")
	}
	if overlap := jaccard(a.Message, b.Message); overlap > 0 {
		score += similarityMessageWeight * overlap
		matchedOn = append(matchedOn, "message")
	}
	return score, matchedOn
}

// jaccard computes word-set overlap between two messages.
func jaccard(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	setB := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		setB[w] = true
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Suggestion sources: known field names, recent field values, history.
var suggestionFields = []string{
	"level", "appName", "traceId", "message", "context", "environment",
	"userId", "sessionId",
}

// GetSuggestions merges field-name, recent-value and history matches for
// a partial query. Results are cached per lower-cased partial with FIFO
// eviction.
func (e *BasicEngine) GetSuggestions(partial string, limit int) []SearchSuggestion {
	if limit <= 0 {
		limit = 10
	}
	key := strings.ToLower(partial)

	e.cacheMu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.cacheMu.Unlock()
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached
	}
	e.cacheMu.Unlock()

	suggestions := make([]SearchSuggestion, 0)
	seen := make(map[string]bool)
	add := func(text, kind string) {
		if text == "" || seen[strings.ToLower(text)] {
			return
		}
		seen[strings.ToLower(text)] = true
		suggestions = append(suggestions, SearchSuggestion{Text: text, Type: kind})
	}

	for _, field := range suggestionFields {
		if strings.HasPrefix(strings.ToLower(field), key) {
			add(field, SuggestionField)
		}
	}

	e.mu.RLock()
	recent := e.logs
	if len(recent) > 1000 {
		recent = recent[len(recent)-1000:]
	}
	for _, entry := range recent {
		if strings.Contains(strings.ToLower(entry.Level), key) {
			add(entry.Level, SuggestionValue)
		}
		if strings.Contains(strings.ToLower(entry.AppName), key) {
			add(entry.AppName, SuggestionValue)
		}
	}
	for _, query := range e.history {
		if strings.Contains(strings.ToLower(query), key) {
			add(query, SuggestionHistory)
		}
	}
	e.mu.RUnlock()

	e.cacheMu.Lock()
	if _, exists := e.cache[key]; !exists {
		if len(e.cacheOrder) >= e.opts.SuggestionCacheSize {
			oldest := e.cacheOrder[0]
			e.cacheOrder = e.cacheOrder[1:]
			delete(e.cache, oldest)
		}
		e.cache[key] = suggestions
		e.cacheOrder = append(e.cacheOrder, key)
	}
	e.cacheMu.Unlock()

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

func (e *BasicEngine) invalidateSuggestions() {
	e.cacheMu.Lock()
	e.cache = make(map[string][]SearchSuggestion)
	e.cacheOrder = nil
	e.cacheMu.Unlock()
}

// SavePreset stores a named search preset, assigning an ID and
// timestamps. An existing ID updates in place.
func (e *BasicEngine) SavePreset(preset SearchPreset) *SearchPreset {
	now := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	if preset.ID == "" {
		preset.ID = uuid.NewString()
		preset.CreatedAt = now
	} else if existing, ok := e.presets[preset.ID]; ok {
		preset.CreatedAt = existing.CreatedAt
	} else {
		preset.CreatedAt = now
	}
	preset.UpdatedAt = now

	stored := preset
	e.presets[stored.ID] = &stored
	return &stored
}

// GetPreset returns a preset by ID.
func (e *BasicEngine) GetPreset(id string) (*SearchPreset, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	preset, ok := e.presets[id]
	return preset, ok
}

// Presets lists all saved presets ordered by creation time.
func (e *BasicEngine) Presets() []*SearchPreset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	presets := make([]*SearchPreset, 0, len(e.presets))
	for _, preset := range e.presets {
		presets = append(presets, preset)
	}
	sort.SliceStable(presets, func(i, j int) bool {
		return presets[i].CreatedAt.Before(presets[j].CreatedAt)
	})
	return presets
}

// DeletePreset removes a preset, reporting whether it existed.
func (e *BasicEngine) DeletePreset(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.presets[id]; !ok {
		return false
	}
	delete(e.presets, id)
	return true
}

var (
	liteLastRe    = regexp.MustCompile(`(?i)\blast\s+(\d+)\s*(seconds?|minutes?|hours?|days?)\b`)
	liteServiceRe = regexp.MustCompile(`(?i)\bfrom\s+([\w-]+)(?:\s+service)?\b`)
	liteUserRe    = regexp.MustCompile(`(?i)\buser\s+([\w-]+)\b`)
)

// ParseNaturalLanguageQuery is the basic engine's lightweight parser:
// keyword checks for level words, simple time windows, "from <x> service"
// and "user <id>" patterns. The NLP engine overrides this with the full
// intent/entity pipeline.
func (e *BasicEngine) ParseNaturalLanguageQuery(query string) ParsedQuery {
	parsed := ParsedQuery{
		Intent:     IntentGeneralSearch,
		CleanQuery: query,
		Confidence: 0.5,
	}
	lower := strings.ToLower(query)

	for _, level := range []string{"error", "warn", "info", "debug", "fatal", "trace"} {
		if strings.Contains(lower, level) {
			parsed.Filters.Levels = append(parsed.Filters.Levels, level)
		}
	}

	if m := liteLastRe.FindStringSubmatch(query); m != nil {
		n, _ := strconv.Atoi(m[1])
		parsed.Filters.TimeRange = &TimeRange{Last: time.Duration(n) * unitDuration(m[2])}
	} else if strings.Contains(lower, "today") {
		now := time.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		parsed.Filters.TimeRange = &TimeRange{Start: midnight, End: now}
	}

	if m := liteServiceRe.FindStringSubmatch(query); m != nil {
		parsed.Filters.Services = append(parsed.Filters.Services, m[1])
	}
	if m := liteUserRe.FindStringSubmatch(query); m != nil {
		parsed.Filters.UserIDs = append(parsed.Filters.UserIDs, m[1])
	}

	return parsed
}

func unitDuration(unit string) time.Duration {
	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "second":
		return time.Second
	case "minute":
		return time.Minute
	case "hour":
		return time.Hour
	case "day":
		return 24 * time.Hour
	}
	return time.Hour
}

// NaturalLanguageSearch parses the query and runs the structured search
// with context enrichment and highlighting forced on.
func (e *BasicEngine) NaturalLanguageSearch(query string) []SearchResult {
	parsed := e.ParseNaturalLanguageQuery(query)
	opts := &SearchOptions{
		IncludeContext: true,
		Highlight:      true,
	}
	return e.Search(parsed.CleanQuery, &parsed.Filters, opts)
}

// GetStats returns engine counters and breakdowns.
func (e *BasicEngine) GetStats() SearchStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := SearchStats{
		TotalLogs:        len(e.logs),
		TotalSearches:    e.totalSearches.Load(),
		HistorySize:      len(e.history),
		PresetCount:      len(e.presets),
		LevelBreakdown:   make(map[string]int),
		ServiceBreakdown: make(map[string]int),
	}
	for _, entry := range e.logs {
		stats.LevelBreakdown[entry.Level]++
		if entry.AppName != "" {
			stats.ServiceBreakdown[entry.AppName]++
		}
	}
	return stats
}
