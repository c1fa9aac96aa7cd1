package search

import (
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
)

// ManagerConfig selects engines and forwards their tunables.
type ManagerConfig struct {
	NLPEnabled         bool
	PatternRecognition bool
	Correlation        bool

	Indexer    IndexerOptions
	Engine     EngineOptions
	Correlator CorrelatorOptions
	Patterns   PatternEngineOptions
}

// DefaultManagerConfig enables every engine with default tunables.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		NLPEnabled:         true,
		PatternRecognition: true,
		Correlation:        true,
	}
}

// Manager is the sole entry point for the search subsystem. It owns one
// instance of each engine and keeps the indexer and the search engine's
// collection consistent: Ingest is the only sanctioned mutation path.
//
// Calling a pattern or correlation method while that engine is disabled
// fails immediately with a configuration error rather than returning
// empty results.
type Manager struct {
	cfg    ManagerConfig
	logger *log.Logger

	indexer    *Indexer
	basic      *BasicEngine
	nlp        *NLPEngine // nil when NLP is disabled
	correlator *Correlator
	patterns   *PatternEngine
}

// NewManager constructs the configured engines.
func NewManager(cfg ManagerConfig, logger *log.Logger) *Manager {
	m := &Manager{
		cfg:     cfg,
		logger:  logger,
		indexer: NewIndexer(cfg.Indexer, logger),
		basic:   NewBasicEngine(cfg.Engine, logger),
	}
	if cfg.NLPEnabled {
		m.nlp = NewNLPEngine(m.basic, logger)
	}
	if cfg.Correlation {
		m.correlator = NewCorrelator(cfg.Correlator, logger)
	}
	if cfg.PatternRecognition {
		m.patterns = NewPatternEngine(cfg.Patterns, logger)
	}

	logger.Info("msg", "Search manager created",
		"component", "search_manager",
		"nlp", cfg.NLPEnabled,
		"patterns", cfg.PatternRecognition,
		"correlation", cfg.Correlation)

	return m
}

// Ingest indexes a batch and adds it to the search engine's collection.
func (m *Manager) Ingest(entries []*core.LogEntry) {
	m.indexer.IndexBatch(entries)
	m.basic.AddLogs(entries)
}

// Search runs a structured search over the ingested collection.
func (m *Manager) Search(query string, filters *SearchFilters, opts *SearchOptions) []SearchResult {
	return m.basic.Search(query, filters, opts)
}

// NaturalLanguageSearch routes through the NLP engine when enabled,
// falling back to the basic engine's lightweight parser otherwise.
func (m *Manager) NaturalLanguageSearch(query string) []SearchResult {
	if m.nlp != nil {
		return m.nlp.NaturalLanguageSearch(query)
	}
	return m.basic.NaturalLanguageSearch(query)
}

// ParseQuery exposes the active engine's query interpretation.
func (m *Manager) ParseQuery(query string) ParsedQuery {
	if m.nlp != nil {
		return m.nlp.ParseNaturalLanguageQuery(query)
	}
	return m.basic.ParseNaturalLanguageQuery(query)
}

// CorrelateByTraceID groups entries sharing a trace ID chronologically.
func (m *Manager) CorrelateByTraceID(traceID string) *CorrelatedLogs {
	return m.basic.CorrelateByTraceID(traceID)
}

// FindSimilarLogs ranks entries similar to the given one.
func (m *Manager) FindSimilarLogs(entry *core.LogEntry, limit int) []SimilarLog {
	return m.basic.FindSimilarLogs(entry, limit)
}

// GetSuggestions returns autocomplete candidates for a partial query.
func (m *Manager) GetSuggestions(partial string, limit int) []SearchSuggestion {
	return m.basic.GetSuggestions(partial, limit)
}

// SavePreset stores a named search preset.
func (m *Manager) SavePreset(preset SearchPreset) *SearchPreset {
	return m.basic.SavePreset(preset)
}

// GetPreset returns a preset by ID.
func (m *Manager) GetPreset(id string) (*SearchPreset, bool) {
	return m.basic.GetPreset(id)
}

// Presets lists saved presets.
func (m *Manager) Presets() []*SearchPreset {
	return m.basic.Presets()
}

// DeletePreset removes a preset.
func (m *Manager) DeletePreset(id string) bool {
	return m.basic.DeletePreset(id)
}

// AnalyzePatterns discovers recurring patterns across the collection.
func (m *Manager) AnalyzePatterns() ([]*LogPattern, error) {
	if m.patterns == nil {
		return nil, ErrPatternDisabled
	}
	return m.patterns.AnalyzePatterns(m.basic.Logs()), nil
}

// DetectAnomalies flags unusual entries against the known patterns.
func (m *Manager) DetectAnomalies() ([]AnomalyDetection, error) {
	if m.patterns == nil {
		return nil, ErrPatternDisabled
	}
	return m.patterns.DetectAnomalies(m.basic.Logs()), nil
}

// FindRelatedLogs scores relationships between the entry and the rest of
// the collection.
func (m *Manager) FindRelatedLogs(entry *core.LogEntry, limit int) ([]RelatedLog, error) {
	if m.correlator == nil {
		return nil, ErrCorrelationDisabled
	}
	return m.correlator.FindRelatedLogs(entry, m.basic.Logs(), limit), nil
}

// CorrelateByCriteria groups the collection along the selected
// dimensions.
func (m *Manager) CorrelateByCriteria(criteria CorrelationCriteria) (map[string]*CorrelatedLogs, error) {
	if m.correlator == nil {
		return nil, ErrCorrelationDisabled
	}
	return m.correlator.CorrelateByCriteria(m.basic.Logs(), criteria), nil
}

// AnalyzeErrorCascade finds the root cause and impact of the collection's
// earliest error.
func (m *Manager) AnalyzeErrorCascade() (*CascadeAnalysis, error) {
	if m.correlator == nil {
		return nil, ErrCorrelationDisabled
	}
	return m.correlator.AnalyzeErrorCascade(m.basic.Logs()), nil
}

// BuildSemanticIndex clusters the collection by (level, appName).
func (m *Manager) BuildSemanticIndex() []*SemanticCluster {
	return m.indexer.BuildSemanticIndex(m.basic.Logs())
}

// RemoveOldLogs prunes entries older than cutoff from the indexer and
// the search collection together, returning the count removed from the
// index.
func (m *Manager) RemoveOldLogs(cutoff time.Time) int {
	removed := m.indexer.RemoveOldLogs(cutoff)
	m.basic.RemoveOldLogs(cutoff)
	return removed
}

// ClearIndex drops the indexer tables and the search collection.
func (m *Manager) ClearIndex() {
	m.indexer.Clear()
	m.basic.ClearLogs()
}

// ExportResults serializes results in the requested format.
func (m *Manager) ExportResults(results []SearchResult, opts ExportOptions) ([]byte, error) {
	return ExportResults(results, opts)
}

// GetStats aggregates component statistics.
func (m *Manager) GetStats() SearchStats {
	stats := m.basic.GetStats()
	stats.IndexedLogs = m.indexer.Size()
	if m.patterns != nil {
		stats.PatternCount = m.patterns.PatternCount()
	}
	return stats
}
