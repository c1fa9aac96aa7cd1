package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/config"
	"github.com/MasterAffan/logixia-sub000/src/internal/core"
	"github.com/MasterAffan/logixia-sub000/src/internal/format"

	"github.com/lixenwraith/log"
)

// FileSink writes log entries to files. Rotation, total-size capping and
// retention are delegated to a dedicated log writer instance.
type FileSink struct {
	input     chan core.LogEntry
	writer    *log.Logger // internal writer instance for file output
	done      chan struct{}
	startTime time.Time
	logger    *log.Logger // application diagnostics
	formatter format.Formatter

	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewFileSink creates a file sink.
func NewFileSink(cfg config.FileConfig, logger *log.Logger, formatter format.Formatter) (*FileSink, error) {
	if cfg.Directory == "" {
		cfg.Directory = "./"
	}
	if cfg.Name == "" {
		cfg.Name = "logixia.output"
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}

	writerConfig := log.DefaultConfig()
	writerConfig.Directory = cfg.Directory
	writerConfig.Name = cfg.Name
	writerConfig.EnableConsole = false
	writerConfig.ShowTimestamp = false // entries carry their own timestamps
	writerConfig.ShowLevel = false

	if cfg.MaxSizeMB > 0 {
		writerConfig.MaxSizeKB = cfg.MaxSizeMB * 1000
	}
	if cfg.MaxTotalSizeMB > 0 {
		writerConfig.MaxTotalSizeKB = cfg.MaxTotalSizeMB * 1000
	}
	if cfg.RetentionHours > 0 {
		writerConfig.RetentionPeriodHrs = float64(cfg.RetentionHours)
	}

	writer := log.NewLogger()
	if err := writer.ApplyConfig(writerConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize file writer: %w", err)
	}
	if err := writer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start file writer: %w", err)
	}

	fs := &FileSink{
		input:     make(chan core.LogEntry, cfg.BufferSize),
		writer:    writer,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	fs.lastProcessed.Store(time.Time{})

	return fs, nil
}

func (fs *FileSink) Input() chan<- core.LogEntry {
	return fs.input
}

func (fs *FileSink) Start(ctx context.Context) error {
	go fs.processLoop(ctx)
	fs.logger.Info("msg", "File sink started", "component", "file_sink")
	return nil
}

func (fs *FileSink) Stop() {
	close(fs.done)
	if err := fs.writer.Shutdown(2 * time.Second); err != nil {
		fs.logger.Error("msg", "Error shutting down file writer",
			"component", "file_sink",
			"error", err)
	}
	fs.logger.Info("msg", "File sink stopped")
}

func (fs *FileSink) GetStats() SinkStats {
	lastProc, _ := fs.lastProcessed.Load().(time.Time)
	return SinkStats{
		Type:           "file",
		TotalProcessed: fs.totalProcessed.Load(),
		StartTime:      fs.startTime,
		LastProcessed:  lastProc,
		Details:        map[string]any{},
	}
}

func (fs *FileSink) processLoop(ctx context.Context) {
	for {
		select {
		case entry, ok := <-fs.input:
			if !ok {
				return
			}

			fs.totalProcessed.Add(1)
			fs.lastProcessed.Store(time.Now())

			formatted, err := fs.formatter.Format(entry)
			if err != nil {
				fs.logger.Error("msg", "Failed to format log entry",
					"component", "file_sink",
					"error", err)
				continue
			}

			// Strip the trailing newline, the writer adds its own.
			fs.writer.Message(string(bytes.TrimSuffix(formatted, []byte{'\n'})))

		case <-ctx.Done():
			return
		case <-fs.done:
			return
		}
	}
}
