package search

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
)

// Relationship weight table. A same-service bonus of 0.1 applies on top,
// capped at 1.0.
var relationshipWeights = map[string]float64{
	RelSameTrace:         0.9,
	RelSameSession:       0.8,
	RelErrorCascade:      0.8,
	RelSameUser:          0.7,
	RelSimilarPattern:    0.5,
	RelTemporalProximity: 0.4,
}

// Relationship evaluation order: strongest first, so deduplication keeps
// the strongest relationship when an entry relates in several ways.
var relationshipOrder = []string{
	RelSameTrace,
	RelSameSession,
	RelErrorCascade,
	RelSameUser,
	RelSimilarPattern,
	RelTemporalProximity,
}

// CorrelatorOptions tunes grouping windows and score cutoffs.
type CorrelatorOptions struct {
	TemporalWindow     time.Duration // default 5 minutes
	MinSimilarityScore float64       // default 0.3
	MaxRelated         int           // default 50
}

// CorrelationCriteria selects which grouping strategies to run.
type CorrelationCriteria struct {
	Trace        bool
	User         bool
	Session      bool
	Temporal     bool
	ErrorCascade bool
}

// Correlator groups log entries across trace, user, session, temporal
// and error-cascade dimensions. It holds no collection state; every
// method operates on the collection passed in.
type Correlator struct {
	opts   CorrelatorOptions
	logger *log.Logger

	totalCorrelations atomic.Uint64
}

// NewCorrelator creates a correlator with defaults applied.
func NewCorrelator(opts CorrelatorOptions, logger *log.Logger) *Correlator {
	if opts.TemporalWindow <= 0 {
		opts.TemporalWindow = 5 * time.Minute
	}
	if opts.MinSimilarityScore <= 0 {
		opts.MinSimilarityScore = 0.3
	}
	if opts.MaxRelated <= 0 {
		opts.MaxRelated = 50
	}
	return &Correlator{opts: opts, logger: logger}
}

// FindRelatedLogs scores every other entry's relationships to the
// reference, keeps those above the minimum score, deduplicates so each
// entry appears once under its strongest relationship, and returns the
// top entries by descending score.
func (c *Correlator) FindRelatedLogs(entry *core.LogEntry, all []*core.LogEntry, limit int) []RelatedLog {
	c.totalCorrelations.Add(1)
	if limit <= 0 {
		limit = c.opts.MaxRelated
	}

	related := make([]RelatedLog, 0)
	seen := make(map[*core.LogEntry]bool)

	for _, candidate := range all {
		if candidate == entry || seen[candidate] {
			continue
		}
		for _, rel := range relationshipOrder {
			if !c.related(rel, entry, candidate) {
				continue
			}
			score := relationshipWeights[rel]
			if entry.AppName != "" && entry.AppName == candidate.AppName {
				score += 0.1
			}
			if score > 1.0 {
				score = 1.0
			}
			if score <= c.opts.MinSimilarityScore {
				continue
			}
			related = append(related, RelatedLog{
				Entry:        candidate,
				Relationship: rel,
				Score:        score,
			})
			seen[candidate] = true
			break
		}
	}

	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Score > related[j].Score
	})
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

func (c *Correlator) related(rel string, a, b *core.LogEntry) bool {
	switch rel {
	case RelSameTrace:
		return a.TraceID != "" && a.TraceID == b.TraceID
	case RelSameUser:
		return a.UserID() != "" && a.UserID() == b.UserID()
	case RelSameSession:
		return a.SessionID() != "" && a.SessionID() == b.SessionID()
	case RelTemporalProximity:
		return absDuration(a.Time.Sub(b.Time)) <= c.opts.TemporalWindow
	case RelErrorCascade:
		earlier, later := a, b
		if b.Time.Before(a.Time) {
			earlier, later = b, a
		}
		if !core.IsErrorLevel(a.Level) && !core.IsErrorLevel(b.Level) {
			return false
		}
		return later.Time.Sub(earlier.Time) <= c.opts.TemporalWindow
	case RelSimilarPattern:
		return normalizeMessage(a.Message) == normalizeMessage(b.Message)
	}
	return false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// CorrelateByCriteria runs each selected grouping strategy independently
// and merges the results keyed "<type>_<key>". An entry may appear in
// multiple groups under different keys; there is no cross-criterion
// deduplication.
func (c *Correlator) CorrelateByCriteria(logs []*core.LogEntry, criteria CorrelationCriteria) map[string]*CorrelatedLogs {
	c.totalCorrelations.Add(1)
	groups := make(map[string]*CorrelatedLogs)

	if criteria.Trace {
		c.mergeFieldGroups(groups, logs, "trace", func(e *core.LogEntry) string { return e.TraceID })
	}
	if criteria.User {
		c.mergeFieldGroups(groups, logs, "user", func(e *core.LogEntry) string { return e.UserID() })
	}
	if criteria.Session {
		c.mergeFieldGroups(groups, logs, "session", func(e *core.LogEntry) string { return e.SessionID() })
	}
	if criteria.Temporal {
		for i, group := range c.temporalGroups(logs) {
			key := fmt.Sprintf("temporal_window_%d", i)
			groups[key] = c.newGroup(key, group)
		}
	}
	if criteria.ErrorCascade {
		for i, cascade := range c.errorCascades(logs) {
			key := fmt.Sprintf("error_cascade_%d", i)
			groups[key] = c.newGroup(key, cascade)
		}
	}

	return groups
}

// mergeFieldGroups groups by a key extractor, keeping groups of size >=2.
func (c *Correlator) mergeFieldGroups(groups map[string]*CorrelatedLogs, logs []*core.LogEntry, prefix string, keyOf func(*core.LogEntry) string) {
	byKey := make(map[string][]*core.LogEntry)
	for _, entry := range logs {
		key := keyOf(entry)
		if key == "" {
			continue
		}
		byKey[key] = append(byKey[key], entry)
	}
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		groupKey := fmt.Sprintf("%s_%s", prefix, key)
		groups[groupKey] = c.newGroup(groupKey, members)
	}
}

func (c *Correlator) newGroup(key string, members []*core.LogEntry) *CorrelatedLogs {
	sorted := make([]*core.LogEntry, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return &CorrelatedLogs{
		CorrelationKey: key,
		Logs:           sorted,
		Timeline:       buildTimeline(sorted),
		Summary:        summarize(sorted),
	}
}

// temporalGroups accumulates chronologically sorted entries into a group
// while each entry's gap from the group's FIRST member stays within the
// window; the entry that breaks the window anchors the next group. The
// gap is measured from group start, not from the previous entry — that
// is the intended semantics, so long windows can absorb late entries.
func (c *Correlator) temporalGroups(logs []*core.LogEntry) [][]*core.LogEntry {
	if len(logs) == 0 {
		return nil
	}
	sorted := make([]*core.LogEntry, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	groups := make([][]*core.LogEntry, 0)
	current := []*core.LogEntry{sorted[0]}
	anchor := sorted[0].Time

	for _, entry := range sorted[1:] {
		if entry.Time.Sub(anchor) <= c.opts.TemporalWindow {
			current = append(current, entry)
			continue
		}
		if len(current) >= 2 {
			groups = append(groups, current)
		}
		current = []*core.LogEntry{entry}
		anchor = entry.Time
	}
	if len(current) >= 2 {
		groups = append(groups, current)
	}
	return groups
}

// errorCascades builds one potential cascade per seed error: the seed
// plus error/warn entries within the window AFTER it that share its
// trace ID or service. Cascades with fewer than two members are dropped;
// cascades from different seeds may overlap.
func (c *Correlator) errorCascades(logs []*core.LogEntry) [][]*core.LogEntry {
	sorted := make([]*core.LogEntry, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	cascades := make([][]*core.LogEntry, 0)
	for i, seed := range sorted {
		if !core.IsErrorLevel(seed.Level) {
			continue
		}
		cascade := []*core.LogEntry{seed}
		for _, candidate := range sorted[i+1:] {
			if candidate.Time.Sub(seed.Time) > c.opts.TemporalWindow {
				break
			}
			if !isErrorOrWarn(candidate.Level) {
				continue
			}
			if sharesTraceOrService(seed, candidate) {
				cascade = append(cascade, candidate)
			}
		}
		if len(cascade) >= 2 {
			cascades = append(cascades, cascade)
		}
	}
	return cascades
}

func isErrorOrWarn(level string) bool {
	p, ok := core.LevelPriority(level)
	return ok && p >= core.PriorityWarn
}

func sharesTraceOrService(a, b *core.LogEntry) bool {
	if a.TraceID != "" && a.TraceID == b.TraceID {
		return true
	}
	return a.AppName != "" && a.AppName == b.AppName
}

// AnalyzeErrorCascade finds the earliest error as root cause, builds its
// cascade and lists the impacted services.
func (c *Correlator) AnalyzeErrorCascade(logs []*core.LogEntry) *CascadeAnalysis {
	var root *core.LogEntry
	for _, entry := range logs {
		if !core.IsErrorLevel(entry.Level) {
			continue
		}
		if root == nil || entry.Time.Before(root.Time) {
			root = entry
		}
	}
	if root == nil {
		return &CascadeAnalysis{}
	}

	cascade := []*core.LogEntry{root}
	sorted := make([]*core.LogEntry, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	for _, candidate := range sorted {
		if candidate == root || candidate.Time.Before(root.Time) {
			continue
		}
		if candidate.Time.Sub(root.Time) > c.opts.TemporalWindow {
			break
		}
		if isErrorOrWarn(candidate.Level) && sharesTraceOrService(root, candidate) {
			cascade = append(cascade, candidate)
		}
	}

	services := make([]string, 0)
	seen := make(map[string]bool)
	for _, entry := range cascade {
		if entry.AppName != "" && !seen[entry.AppName] {
			seen[entry.AppName] = true
			services = append(services, entry.AppName)
		}
	}

	return &CascadeAnalysis{
		RootCause:        root,
		Cascade:          cascade,
		ImpactedServices: services,
	}
}

// GetStats returns correlator counters.
func (c *Correlator) GetStats() map[string]any {
	return map[string]any{
		"temporal_window_ms": c.opts.TemporalWindow.Milliseconds(),
		"min_similarity":     c.opts.MinSimilarityScore,
		"total_correlations": c.totalCorrelations.Load(),
	}
}
