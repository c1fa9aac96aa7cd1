package search

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
)

// Normalization masks, applied in order. Quoted strings go first so
// their contents don't leak into later masks; UUIDs and emails before
// plain numbers so digits inside them don't get masked piecewise.
var (
	maskQuoted = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	maskUUID   = regexp.MustCompile(`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)
	maskEmail  = regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+\b`)
	maskHash   = regexp.MustCompile(`\b[0-9a-fA-F]{32,}\b`)
	maskNumber = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
)

// normalizeMessage replaces variable substrings with placeholder tokens
// so structurally identical messages collapse to one template.
func normalizeMessage(message string) string {
	s := maskQuoted.ReplaceAllString(message, "<str>")
	s = maskUUID.ReplaceAllString(s, "<uuid>")
	s = maskEmail.ReplaceAllString(s, "<email>")
	s = maskHash.ReplaceAllString(s, "<hash>")
	s = maskNumber.ReplaceAllString(s, "<num>")
	return s
}

// PatternEngineOptions tunes pattern retention and anomaly scoring.
type PatternEngineOptions struct {
	MinFrequency     int     // patterns below this count are discarded, default 3
	MaxPatterns      int     // retained pattern cap, default 1000
	AnomalyThreshold float64 // minimum anomaly score to report, default 0.3
}

// PatternEngine discovers recurring message, error and timing patterns
// and flags entries that deviate from them. It is stateful: each
// AnalyzePatterns call regenerates IDs from array position and merges
// into the persistent pattern map by ID, so IDs are not stable across
// calls when the input set changes.
type PatternEngine struct {
	opts   PatternEngineOptions
	logger *log.Logger

	mu        sync.RWMutex
	patterns  map[string]*LogPattern
	errorFreq map[string]int // normalized error key -> observed count
}

// NewPatternEngine creates a pattern engine with defaults applied.
func NewPatternEngine(opts PatternEngineOptions, logger *log.Logger) *PatternEngine {
	if opts.MinFrequency <= 0 {
		opts.MinFrequency = 3
	}
	if opts.MaxPatterns <= 0 {
		opts.MaxPatterns = 1000
	}
	if opts.AnomalyThreshold <= 0 {
		opts.AnomalyThreshold = 0.3
	}
	return &PatternEngine{
		opts:      opts,
		logger:    logger,
		patterns:  make(map[string]*LogPattern),
		errorFreq: make(map[string]int),
	}
}

// AnalyzePatterns runs the message, error and timing extractors over the
// given logs, filters by minimum frequency, ranks by descending
// frequency, truncates to the cap and merges into the persistent map.
func (p *PatternEngine) AnalyzePatterns(logs []*core.LogEntry) []*LogPattern {
	found := p.extractMessagePatterns(logs)
	found = append(found, p.extractErrorPatterns(logs)...)
	if timing := p.extractTimingPattern(logs); timing != nil {
		found = append(found, timing)
	}

	kept := make([]*LogPattern, 0, len(found))
	for _, pattern := range found {
		if pattern.Frequency >= p.opts.MinFrequency {
			kept = append(kept, pattern)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Frequency > kept[j].Frequency
	})
	if len(kept) > p.opts.MaxPatterns {
		kept = kept[:p.opts.MaxPatterns]
	}

	p.mu.Lock()
	for i, pattern := range kept {
		pattern.ID = fmt.Sprintf("pattern_%d", i)
		p.patterns[pattern.ID] = pattern
	}
	p.mu.Unlock()

	p.logger.Debug("msg", "Pattern analysis completed",
		"component", "pattern_engine",
		"analyzed", len(logs),
		"patterns", len(kept))

	return kept
}

func (p *PatternEngine) extractMessagePatterns(logs []*core.LogEntry) []*LogPattern {
	byTemplate := make(map[string]*LogPattern)
	order := make([]string, 0)

	for _, entry := range logs {
		template := normalizeMessage(entry.Message)
		pattern, ok := byTemplate[template]
		if !ok {
			pattern = &LogPattern{
				Template: template,
				Category: PatternMessage,
			}
			byTemplate[template] = pattern
			order = append(order, template)
		}
		pattern.Frequency++
		if entry.Time.After(pattern.LastSeen) {
			pattern.LastSeen = entry.Time
		}
		if len(pattern.Examples) < 3 {
			pattern.Examples = append(pattern.Examples, entry)
		}
	}

	patterns := make([]*LogPattern, 0, len(order))
	for _, template := range order {
		patterns = append(patterns, byTemplate[template])
	}
	return patterns
}

// errorKey formats an error-bearing entry as "<ErrorName>: <template>".
func errorKey(entry *core.LogEntry) string {
	name := "Error"
	message := entry.Message
	if entry.Err != nil {
		if entry.Err.Name != "" {
			name = entry.Err.Name
		}
		if entry.Err.Message != "" {
			message = entry.Err.Message
		}
	}
	return fmt.Sprintf("%s: %s", name, normalizeMessage(message))
}

// extractErrorPatterns applies the normalization to error-level or
// error-bearing entries only. It also feeds the error-frequency table
// the anomaly detector consults.
func (p *PatternEngine) extractErrorPatterns(logs []*core.LogEntry) []*LogPattern {
	byTemplate := make(map[string]*LogPattern)
	order := make([]string, 0)

	for _, entry := range logs {
		if !core.IsErrorLevel(entry.Level) && !entry.HasError() {
			continue
		}
		template := errorKey(entry)

		p.mu.Lock()
		p.errorFreq[template]++
		p.mu.Unlock()

		pattern, ok := byTemplate[template]
		if !ok {
			pattern = &LogPattern{
				Template: template,
				Category: PatternError,
			}
			byTemplate[template] = pattern
			order = append(order, template)
		}
		pattern.Frequency++
		if entry.Time.After(pattern.LastSeen) {
			pattern.LastSeen = entry.Time
		}
		if len(pattern.Examples) < 3 {
			pattern.Examples = append(pattern.Examples, entry)
		}
	}

	patterns := make([]*LogPattern, 0, len(order))
	for _, template := range order {
		patterns = append(patterns, byTemplate[template])
	}
	return patterns
}

// extractTimingPattern reports the hour of day with the highest volume
// as a single timing pattern.
func (p *PatternEngine) extractTimingPattern(logs []*core.LogEntry) *LogPattern {
	if len(logs) == 0 {
		return nil
	}

	var counts [24]int
	var lastSeen time.Time
	for _, entry := range logs {
		counts[entry.Time.Hour()]++
		if entry.Time.After(lastSeen) {
			lastSeen = entry.Time
		}
	}

	peakHour, peakCount := 0, 0
	for hour, count := range counts {
		if count > peakCount {
			peakHour, peakCount = hour, count
		}
	}

	return &LogPattern{
		Template:  fmt.Sprintf("peak activity at %02d:00-%02d:59", peakHour, peakHour),
		Frequency: peakCount,
		LastSeen:  lastSeen,
		Category:  PatternTiming,
	}
}

// Anomaly score weights.
const (
	anomalyNoPatternWeight = 0.3
	anomalyRareErrorWeight = 0.3
	anomalyOffHoursWeight  = 0.2
)

// DetectAnomalies scores each entry against the known patterns, the
// error-frequency table and typical operating hours, keeping entries at
// or above the threshold in descending score order. Deviations are computed
// independently of the score and attached regardless.
func (p *PatternEngine) DetectAnomalies(logs []*core.LogEntry) []AnomalyDetection {
	p.mu.RLock()
	knownTemplates := make(map[string]bool, len(p.patterns))
	for _, pattern := range p.patterns {
		if pattern.Category == PatternMessage {
			knownTemplates[pattern.Template] = true
		}
	}
	errorFreq := make(map[string]int, len(p.errorFreq))
	for k, v := range p.errorFreq {
		errorFreq[k] = v
	}
	p.mu.RUnlock()

	anomalies := make([]AnomalyDetection, 0)
	for _, entry := range logs {
		score := 0.0
		reasons := make([]string, 0, 3)

		if !knownTemplates[normalizeMessage(entry.Message)] {
			score += anomalyNoPatternWeight
			reasons = append(reasons, "matches no known pattern")
		}
		if core.IsErrorLevel(entry.Level) && errorFreq[errorKey(entry)] < 2 {
			score += anomalyRareErrorWeight
			reasons = append(reasons, "rare error signature")
		}
		if hour := entry.Time.Hour(); hour < 6 || hour > 22 {
			score += anomalyOffHoursWeight
			reasons = append(reasons, "off-hours activity")
		}
		if score > 1.0 {
			score = 1.0
		}
		if score < p.opts.AnomalyThreshold {
			continue
		}

		anomalies = append(anomalies, AnomalyDetection{
			Entry:      entry,
			Score:      score,
			Reason:     strings.Join(reasons, "; "),
			Deviations: detectDeviations(entry),
		})
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Score > anomalies[j].Score
	})
	return anomalies
}

var stackTraceRe = regexp.MustCompile(`\bat\s+\S+\(|goroutine \d+|\.go:\d+`)

// detectDeviations lists structural oddities of an entry independent of
// the anomaly score.
func detectDeviations(entry *core.LogEntry) []string {
	deviations := make([]string, 0, 4)
	if entry.TraceID == "" {
		deviations = append(deviations, "missing trace ID")
	}
	if entry.Context == "" {
		deviations = append(deviations, "missing context")
	}
	if len(entry.Payload) > 50 {
		deviations = append(deviations, "oversized payload")
	}
	if !core.IsErrorLevel(entry.Level) && stackTraceRe.MatchString(entry.Message) {
		deviations = append(deviations, "stack trace in non-error entry")
	}
	return deviations
}

// PatternCount returns the number of retained patterns.
func (p *PatternEngine) PatternCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.patterns)
}

// Patterns returns the retained patterns sorted by descending frequency.
func (p *PatternEngine) Patterns() []*LogPattern {
	p.mu.RLock()
	defer p.mu.RUnlock()
	patterns := make([]*LogPattern, 0, len(p.patterns))
	for _, pattern := range p.patterns {
		patterns = append(patterns, pattern)
	}
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Frequency > patterns[j].Frequency
	})
	return patterns
}

// GetStats returns pattern engine counters.
func (p *PatternEngine) GetStats() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return map[string]any{
		"pattern_count":     len(p.patterns),
		"error_signatures":  len(p.errorFreq),
		"min_frequency":     p.opts.MinFrequency,
		"max_patterns":      p.opts.MaxPatterns,
		"anomaly_threshold": p.opts.AnomalyThreshold,
	}
}
