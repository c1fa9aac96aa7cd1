package logger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/config"
	"github.com/MasterAffan/logixia-sub000/src/internal/core"
	"github.com/MasterAffan/logixia-sub000/src/internal/format"
	"github.com/MasterAffan/logixia-sub000/src/internal/sink"

	"github.com/lixenwraith/log"
)

// Logger is the structured-logging facade. It builds LogEntry records,
// stamps them with the trace ID carried on the context, and fans them
// out to every configured sink. Entries below the configured minimum
// level are dropped.
//
// Levels dispatch through the static registry in core: custom levels go
// through LogAt with a registered name, never dynamically generated
// methods.
type Logger struct {
	appName     string
	environment string
	minPriority int
	sinks       []sink.Sink
	ops         *log.Logger
	cancel      context.CancelFunc

	totalEmitted atomic.Uint64
	totalDropped atomic.Uint64
}

// New builds a logger and its configured sinks, and starts them.
func New(cfg *config.Config, ops *log.Logger) (*Logger, error) {
	minPriority, ok := core.LevelPriority(cfg.Logger.MinLevel)
	if !ok {
		return nil, fmt.Errorf("unknown min level: %s", cfg.Logger.MinLevel)
	}

	l := &Logger{
		appName:     cfg.Logger.AppName,
		environment: cfg.Logger.Environment,
		minPriority: minPriority,
		ops:         ops,
	}

	if cfg.Console.Enabled {
		formatter, err := format.New(cfg.Console.Format, nil, ops)
		if err != nil {
			return nil, fmt.Errorf("console formatter: %w", err)
		}
		s, err := sink.NewConsoleSink(cfg.Console, ops, formatter)
		if err != nil {
			return nil, fmt.Errorf("console sink: %w", err)
		}
		l.sinks = append(l.sinks, s)
	}

	if cfg.File.Enabled {
		formatter, err := format.New(cfg.File.Format, nil, ops)
		if err != nil {
			return nil, fmt.Errorf("file formatter: %w", err)
		}
		s, err := sink.NewFileSink(cfg.File, ops, formatter)
		if err != nil {
			return nil, fmt.Errorf("file sink: %w", err)
		}
		l.sinks = append(l.sinks, s)
	}

	if cfg.Database.Enabled {
		s, err := sink.NewDatabaseSink(cfg.Database, ops)
		if err != nil {
			return nil, fmt.Errorf("database sink: %w", err)
		}
		l.sinks = append(l.sinks, s)
	}

	if cfg.Analytics.Enabled {
		formatter, err := format.NewJSONFormatter(nil, ops)
		if err != nil {
			return nil, fmt.Errorf("analytics formatter: %w", err)
		}
		s, err := sink.NewAnalyticsSink(cfg.Analytics, ops, formatter)
		if err != nil {
			return nil, fmt.Errorf("analytics sink: %w", err)
		}
		l.sinks = append(l.sinks, s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	for _, s := range l.sinks {
		if err := s.Start(ctx); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to start sink: %w", err)
		}
	}

	ops.Info("msg", "Logger started",
		"component", "logger",
		"app", l.appName,
		"environment", l.environment,
		"sinks", len(l.sinks))

	return l, nil
}

// LogAt emits a log entry at a named level. Unregistered level names are
// dropped. The "error" field, when present and an error or *ErrorInfo,
// becomes the entry's structured error instead of a payload value.
func (l *Logger) LogAt(ctx context.Context, level, message string, fields map[string]any) *core.LogEntry {
	priority, ok := core.LevelPriority(level)
	if !ok || priority < l.minPriority {
		l.totalDropped.Add(1)
		return nil
	}

	entry := core.LogEntry{
		Time:        time.Now(),
		Level:       level,
		AppName:     l.appName,
		Environment: l.environment,
		TraceID:     core.TraceIDFrom(ctx),
		Message:     message,
	}

	if len(fields) > 0 {
		payload := make(map[string]any, len(fields))
		for k, v := range fields {
			if k == "error" {
				if info := toErrorInfo(v); info != nil {
					entry.Err = info
					continue
				}
			}
			if k == "context" {
				if name, ok := v.(string); ok {
					entry.Context = name
					continue
				}
			}
			payload[k] = v
		}
		if len(payload) > 0 {
			entry.Payload = payload
		}
	}

	l.dispatch(entry)
	l.totalEmitted.Add(1)
	return &entry
}

func toErrorInfo(v any) *core.ErrorInfo {
	switch val := v.(type) {
	case *core.ErrorInfo:
		return val
	case core.ErrorInfo:
		return &val
	case error:
		return &core.ErrorInfo{
			Name:    fmt.Sprintf("%T", val),
			Message: val.Error(),
		}
	}
	return nil
}

// dispatch fans an entry out to every sink without blocking; a full sink
// buffer drops the entry for that sink.
func (l *Logger) dispatch(entry core.LogEntry) {
	for _, s := range l.sinks {
		select {
		case s.Input() <- entry:
		default:
			l.totalDropped.Add(1)
			l.ops.Warn("msg", "Sink buffer full, entry dropped",
				"component", "logger",
				"sink", s.GetStats().Type)
		}
	}
}

// Debug emits at debug level.
func (l *Logger) Debug(ctx context.Context, message string, fields map[string]any) *core.LogEntry {
	return l.LogAt(ctx, "debug", message, fields)
}

// Info emits at info level.
func (l *Logger) Info(ctx context.Context, message string, fields map[string]any) *core.LogEntry {
	return l.LogAt(ctx, "info", message, fields)
}

// Warn emits at warn level.
func (l *Logger) Warn(ctx context.Context, message string, fields map[string]any) *core.LogEntry {
	return l.LogAt(ctx, "warn", message, fields)
}

// Error emits at error level.
func (l *Logger) Error(ctx context.Context, message string, fields map[string]any) *core.LogEntry {
	return l.LogAt(ctx, "error", message, fields)
}

// GetStats returns facade counters plus per-sink statistics.
func (l *Logger) GetStats() map[string]any {
	sinkStats := make([]sink.SinkStats, 0, len(l.sinks))
	for _, s := range l.sinks {
		sinkStats = append(sinkStats, s.GetStats())
	}
	return map[string]any{
		"app":           l.appName,
		"environment":   l.environment,
		"total_emitted": l.totalEmitted.Load(),
		"total_dropped": l.totalDropped.Load(),
		"sinks":         sinkStats,
	}
}

// Close stops every sink gracefully.
func (l *Logger) Close() {
	for _, s := range l.sinks {
		s.Stop()
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.ops.Info("msg", "Logger stopped",
		"component", "logger",
		"total_emitted", l.totalEmitted.Load())
}
