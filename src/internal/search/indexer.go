package search

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/google/uuid"
	"github.com/lixenwraith/log"
)

// Secondary index field names.
const (
	indexFieldLevel       = "level"
	indexFieldAppName     = "appName"
	indexFieldTraceID     = "traceId"
	indexFieldContext     = "context"
	indexFieldEnvironment = "environment"
)

// IndexerOptions tunes the indexer's capacity and rebuild cadence.
type IndexerOptions struct {
	// MaxIndexSize caps the primary table. Exceeding it evicts the
	// oldest 10% of entries by timestamp.
	MaxIndexSize int

	// OptimizeThreshold is the number of single-entry insertions between
	// full secondary-index rebuilds. Batch insertion always rebuilds.
	OptimizeThreshold int
}

// Indexer maintains the primary table of ingested entries keyed by
// generated ID, plus per-field secondary indexes for equality lookup.
//
// Generated IDs are timestamp+level+random, not content-addressed, so
// resubmitting an identical entry creates a duplicate record.
type Indexer struct {
	opts   IndexerOptions
	logger *log.Logger

	mu            sync.RWMutex
	primary       map[string]*core.LogEntry
	secondary     map[string]map[string][]string // field -> value -> ids
	sinceOptimize int

	totalIndexed  atomic.Uint64
	totalEvicted  atomic.Uint64
	totalRebuilds atomic.Uint64
}

// NewIndexer creates an indexer with defaults applied.
func NewIndexer(opts IndexerOptions, logger *log.Logger) *Indexer {
	if opts.MaxIndexSize <= 0 {
		opts.MaxIndexSize = 1_000_000
	}
	if opts.OptimizeThreshold <= 0 {
		opts.OptimizeThreshold = 10_000
	}

	idx := &Indexer{
		opts:      opts,
		logger:    logger,
		primary:   make(map[string]*core.LogEntry),
		secondary: make(map[string]map[string][]string),
	}

	logger.Debug("msg", "Indexer created",
		"component", "indexer",
		"max_index_size", opts.MaxIndexSize,
		"optimize_threshold", opts.OptimizeThreshold)

	return idx
}

// IndexLog inserts a single entry and returns its generated ID.
func (ix *Indexer) IndexLog(entry *core.LogEntry) string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	id := ix.insertLocked(entry)

	ix.sinceOptimize++
	if ix.sinceOptimize >= ix.opts.OptimizeThreshold {
		ix.rebuildLocked()
	}
	ix.enforceCapacityLocked()

	return id
}

// IndexBatch inserts entries sequentially and rebuilds the secondary
// indexes afterwards. Returns the generated IDs in input order.
func (ix *Indexer) IndexBatch(entries []*core.LogEntry) []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, ix.insertLocked(entry))
	}

	ix.rebuildLocked()
	ix.enforceCapacityLocked()

	return ids
}

func (ix *Indexer) insertLocked(entry *core.LogEntry) string {
	id := generateEntryID(entry)
	ix.primary[id] = entry
	for field, value := range indexableFields(entry) {
		ix.addSecondaryLocked(field, value, id)
	}
	ix.totalIndexed.Add(1)
	return id
}

// indexableFields returns the entry's secondary-index keys. Missing
// optional fields are skipped; no validation is applied beyond that, so
// garbage values are indexed verbatim.
func indexableFields(entry *core.LogEntry) map[string]string {
	fields := make(map[string]string, 5)
	if entry.Level != "" {
		fields[indexFieldLevel] = entry.Level
	}
	if entry.AppName != "" {
		fields[indexFieldAppName] = entry.AppName
	}
	if entry.TraceID != "" {
		fields[indexFieldTraceID] = entry.TraceID
	}
	if entry.Context != "" {
		fields[indexFieldContext] = entry.Context
	}
	if entry.Environment != "" {
		fields[indexFieldEnvironment] = entry.Environment
	}
	return fields
}

func (ix *Indexer) addSecondaryLocked(field, value, id string) {
	values, ok := ix.secondary[field]
	if !ok {
		values = make(map[string][]string)
		ix.secondary[field] = values
	}
	values[value] = append(values[value], id)
}

// rebuildLocked reconstructs every secondary index from the primary table.
// A full rebuild trades an O(n) pass for immunity to incremental-index
// drift.
func (ix *Indexer) rebuildLocked() {
	ix.secondary = make(map[string]map[string][]string)
	for id, entry := range ix.primary {
		for field, value := range indexableFields(entry) {
			ix.addSecondaryLocked(field, value, id)
		}
	}
	ix.sinceOptimize = 0
	ix.totalRebuilds.Add(1)
}

func (ix *Indexer) enforceCapacityLocked() {
	if len(ix.primary) <= ix.opts.MaxIndexSize {
		return
	}

	ids := make([]string, 0, len(ix.primary))
	for id := range ix.primary {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ix.primary[ids[i]].Time.Before(ix.primary[ids[j]].Time)
	})

	evict := len(ids) / 10
	if evict < 1 {
		evict = 1
	}
	for _, id := range ids[:evict] {
		delete(ix.primary, id)
	}
	ix.rebuildLocked()
	ix.totalEvicted.Add(uint64(evict))

	ix.logger.Info("msg", "Index capacity exceeded, oldest entries evicted",
		"component", "indexer",
		"evicted", evict,
		"remaining", len(ix.primary))
}

// Lookup returns all entries whose indexed field equals value.
func (ix *Indexer) Lookup(field, value string) []*core.LogEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	values, ok := ix.secondary[field]
	if !ok {
		return nil
	}
	ids := values[value]
	entries := make([]*core.LogEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := ix.primary[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Get returns the entry for a generated ID.
func (ix *Indexer) Get(id string) (*core.LogEntry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entry, ok := ix.primary[id]
	return entry, ok
}

// RemoveOldLogs deletes entries older than cutoff from the primary table
// and all secondary indexes, returning the number removed.
func (ix *Indexer) RemoveOldLogs(cutoff time.Time) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := 0
	for id, entry := range ix.primary {
		if entry.Time.Before(cutoff) {
			delete(ix.primary, id)
			removed++
		}
	}
	if removed > 0 {
		ix.rebuildLocked()
		ix.logger.Info("msg", "Old entries pruned from index",
			"component", "indexer",
			"removed", removed,
			"cutoff", cutoff)
	}
	return removed
}

// Clear drops the primary table and all secondary indexes.
func (ix *Indexer) Clear() {
	ix.mu.Lock()
	ix.primary = make(map[string]*core.LogEntry)
	ix.secondary = make(map[string]map[string][]string)
	ix.sinceOptimize = 0
	ix.mu.Unlock()
}

// Size returns the number of entries in the primary table.
func (ix *Indexer) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.primary)
}

// BuildSemanticIndex groups entries into clusters keyed by
// (level, appName). This is a placeholder clustering strategy, not an
// embedding-based index.
func (ix *Indexer) BuildSemanticIndex(entries []*core.LogEntry) []*SemanticCluster {
	grouped := make(map[string]*SemanticCluster)
	order := make([]string, 0)

	for _, entry := range entries {
		label := fmt.Sprintf("%s|%s", entry.Level, entry.AppName)
		cluster, ok := grouped[label]
		if !ok {
			cluster = &SemanticCluster{Label: label}
			grouped[label] = cluster
			order = append(order, label)
		}
		cluster.Entries = append(cluster.Entries, entry)
	}

	clusters := make([]*SemanticCluster, 0, len(order))
	for _, label := range order {
		clusters = append(clusters, grouped[label])
	}
	return clusters
}

// GetStats returns indexer counters.
func (ix *Indexer) GetStats() map[string]any {
	ix.mu.RLock()
	size := len(ix.primary)
	fields := len(ix.secondary)
	ix.mu.RUnlock()

	return map[string]any{
		"size":           size,
		"indexed_fields": fields,
		"total_indexed":  ix.totalIndexed.Load(),
		"total_evicted":  ix.totalEvicted.Load(),
		"total_rebuilds": ix.totalRebuilds.Load(),
	}
}

// generateEntryID derives an ID from timestamp, level and a random
// suffix. Not content-addressed: duplicates of the same entry get
// distinct IDs.
func generateEntryID(entry *core.LogEntry) string {
	return fmt.Sprintf("%d_%s_%s", entry.Time.UnixMilli(), entry.Level, uuid.NewString()[:8])
}
