package format

import (
	"fmt"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter transforms a LogEntry into the byte form a sink writes.
type Formatter interface {
	// Format returns the formatted log record, newline-terminated.
	Format(entry core.LogEntry) ([]byte, error)

	// Name returns the formatter type name.
	Name() string
}

// New creates a Formatter by type name. Unknown names are an error.
func New(name string, options map[string]any, logger *log.Logger) (Formatter, error) {
	if name == "" {
		name = "text"
	}

	switch name {
	case "json":
		return NewJSONFormatter(options, logger)
	case "text":
		return NewTextFormatter(options, logger)
	case "raw":
		return NewRawFormatter(options, logger)
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}
