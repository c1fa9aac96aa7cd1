package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/config"
	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
	_ "modernc.org/sqlite"
)

// DatabaseSink persists log entries to a sqlite table in batched
// transactions.
type DatabaseSink struct {
	cfg config.DatabaseConfig
	db  *sql.DB

	input     chan core.LogEntry
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time
	logger    *log.Logger

	batch   []core.LogEntry
	batchMu sync.Mutex

	totalProcessed atomic.Uint64
	totalBatches   atomic.Uint64
	failedBatches  atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewDatabaseSink opens (or creates) the sqlite database and bootstraps
// the log table.
func NewDatabaseSink(cfg config.DatabaseConfig, logger *log.Logger) (*DatabaseSink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database sink requires a path")
	}
	if cfg.Table == "" {
		cfg.Table = "log_entries"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchDelayMS <= 0 {
		cfg.BatchDelayMS = 1000
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			level TEXT NOT NULL,
			app_name TEXT NOT NULL,
			trace_id TEXT,
			context TEXT,
			environment TEXT,
			message TEXT NOT NULL,
			payload TEXT,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s(timestamp);
		CREATE INDEX IF NOT EXISTS idx_%s_trace ON %s(trace_id);
	`, cfg.Table, cfg.Table, cfg.Table, cfg.Table, cfg.Table)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create log table: %w", err)
	}

	ds := &DatabaseSink{
		cfg:       cfg,
		db:        db,
		input:     make(chan core.LogEntry, cfg.BufferSize),
		batch:     make([]core.LogEntry, 0, cfg.BatchSize),
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
	}
	ds.lastProcessed.Store(time.Time{})

	return ds, nil
}

func (ds *DatabaseSink) Input() chan<- core.LogEntry {
	return ds.input
}

func (ds *DatabaseSink) Start(ctx context.Context) error {
	ds.wg.Add(2)
	go ds.processLoop(ctx)
	go ds.batchTimer(ctx)

	ds.logger.Info("msg", "Database sink started",
		"component", "database_sink",
		"path", ds.cfg.Path,
		"table", ds.cfg.Table,
		"batch_size", ds.cfg.BatchSize)
	return nil
}

func (ds *DatabaseSink) Stop() {
	close(ds.done)
	ds.wg.Wait()

	// Flush whatever is still batched.
	ds.batchMu.Lock()
	remaining := ds.batch
	ds.batch = nil
	ds.batchMu.Unlock()
	if len(remaining) > 0 {
		ds.writeBatch(remaining)
	}

	if err := ds.db.Close(); err != nil {
		ds.logger.Error("msg", "Error closing database",
			"component", "database_sink",
			"error", err)
	}
	ds.logger.Info("msg", "Database sink stopped",
		"total_processed", ds.totalProcessed.Load(),
		"total_batches", ds.totalBatches.Load())
}

func (ds *DatabaseSink) GetStats() SinkStats {
	lastProc, _ := ds.lastProcessed.Load().(time.Time)

	ds.batchMu.Lock()
	pending := len(ds.batch)
	ds.batchMu.Unlock()

	return SinkStats{
		Type:           "database",
		TotalProcessed: ds.totalProcessed.Load(),
		StartTime:      ds.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"path":            ds.cfg.Path,
			"table":           ds.cfg.Table,
			"pending_entries": pending,
			"total_batches":   ds.totalBatches.Load(),
			"failed_batches":  ds.failedBatches.Load(),
		},
	}
}

func (ds *DatabaseSink) processLoop(ctx context.Context) {
	defer ds.wg.Done()

	for {
		select {
		case entry, ok := <-ds.input:
			if !ok {
				return
			}

			ds.totalProcessed.Add(1)
			ds.lastProcessed.Store(time.Now())

			ds.batchMu.Lock()
			ds.batch = append(ds.batch, entry)
			if len(ds.batch) >= ds.cfg.BatchSize {
				batch := ds.batch
				ds.batch = make([]core.LogEntry, 0, ds.cfg.BatchSize)
				ds.batchMu.Unlock()
				ds.writeBatch(batch)
			} else {
				ds.batchMu.Unlock()
			}

		case <-ctx.Done():
			return
		case <-ds.done:
			return
		}
	}
}

func (ds *DatabaseSink) batchTimer(ctx context.Context) {
	defer ds.wg.Done()

	ticker := time.NewTicker(time.Duration(ds.cfg.BatchDelayMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ds.batchMu.Lock()
			if len(ds.batch) > 0 {
				batch := ds.batch
				ds.batch = make([]core.LogEntry, 0, ds.cfg.BatchSize)
				ds.batchMu.Unlock()
				ds.writeBatch(batch)
			} else {
				ds.batchMu.Unlock()
			}

		case <-ctx.Done():
			return
		case <-ds.done:
			return
		}
	}
}

func (ds *DatabaseSink) writeBatch(batch []core.LogEntry) {
	ds.totalBatches.Add(1)

	tx, err := ds.db.Begin()
	if err != nil {
		ds.failedBatches.Add(1)
		ds.logger.Error("msg", "Failed to begin transaction",
			"component", "database_sink",
			"error", err)
		return
	}

	insert := fmt.Sprintf(`INSERT INTO %s
		(timestamp, level, app_name, trace_id, context, environment, message, payload, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, ds.cfg.Table)
	stmt, err := tx.Prepare(insert)
	if err != nil {
		tx.Rollback()
		ds.failedBatches.Add(1)
		ds.logger.Error("msg", "Failed to prepare insert",
			"component", "database_sink",
			"error", err)
		return
	}
	defer stmt.Close()

	for _, entry := range batch {
		var payload, errInfo []byte
		if len(entry.Payload) > 0 {
			payload, _ = json.Marshal(entry.Payload)
		}
		if entry.Err != nil {
			errInfo, _ = json.Marshal(entry.Err)
		}

		if _, err := stmt.Exec(
			entry.Time.Format(time.RFC3339Nano),
			entry.Level,
			entry.AppName,
			entry.TraceID,
			entry.Context,
			entry.Environment,
			entry.Message,
			string(payload),
			string(errInfo),
		); err != nil {
			tx.Rollback()
			ds.failedBatches.Add(1)
			ds.logger.Error("msg", "Failed to insert log entry",
				"component", "database_sink",
				"error", err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		ds.failedBatches.Add(1)
		ds.logger.Error("msg", "Failed to commit batch",
			"component", "database_sink",
			"error", err,
			"batch_size", len(batch))
	}
}
