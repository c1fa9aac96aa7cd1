package sink

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/config"
	"github.com/MasterAffan/logixia-sub000/src/internal/core"
	"github.com/MasterAffan/logixia-sub000/src/internal/format"

	"github.com/lixenwraith/log"
)

// ConsoleSink writes log entries to stdout, stderr or both ("split"
// routes error-severity entries to stderr and everything else to
// stdout).
type ConsoleSink struct {
	cfg       config.ConsoleConfig
	stdout    io.Writer
	stderr    io.Writer
	input     chan core.LogEntry
	done      chan struct{}
	startTime time.Time
	logger    *log.Logger
	formatter format.Formatter

	totalProcessed atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewConsoleSink creates a console sink.
func NewConsoleSink(cfg config.ConsoleConfig, logger *log.Logger, formatter format.Formatter) (*ConsoleSink, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	s := &ConsoleSink{
		cfg:       cfg,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		input:     make(chan core.LogEntry, cfg.BufferSize),
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
		formatter: formatter,
	}
	s.lastProcessed.Store(time.Time{})
	return s, nil
}

func (s *ConsoleSink) Input() chan<- core.LogEntry {
	return s.input
}

func (s *ConsoleSink) Start(ctx context.Context) error {
	go s.processLoop(ctx)
	s.logger.Info("msg", "Console sink started",
		"component", "console_sink",
		"target", s.cfg.Target)
	return nil
}

func (s *ConsoleSink) Stop() {
	close(s.done)
	s.logger.Info("msg", "Console sink stopped")
}

func (s *ConsoleSink) GetStats() SinkStats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)
	return SinkStats{
		Type:           "console",
		TotalProcessed: s.totalProcessed.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"target": s.cfg.Target,
		},
	}
}

func (s *ConsoleSink) processLoop(ctx context.Context) {
	for {
		select {
		case entry, ok := <-s.input:
			if !ok {
				return
			}

			s.totalProcessed.Add(1)
			s.lastProcessed.Store(time.Now())

			formatted, err := s.formatter.Format(entry)
			if err != nil {
				s.logger.Error("msg", "Failed to format log entry for console",
					"component", "console_sink",
					"error", err)
				continue
			}
			s.writerFor(entry).Write(formatted)

		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *ConsoleSink) writerFor(entry core.LogEntry) io.Writer {
	switch s.cfg.Target {
	case "stderr":
		return s.stderr
	case "split":
		if core.IsErrorLevel(entry.Level) {
			return s.stderr
		}
		return s.stdout
	default:
		return s.stdout
	}
}
