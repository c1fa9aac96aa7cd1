package format

import (
	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
)

// RawFormatter emits the bare message, newline-terminated.
type RawFormatter struct {
	logger *log.Logger
}

// NewRawFormatter creates a raw formatter. It takes no options.
func NewRawFormatter(options map[string]any, logger *log.Logger) (*RawFormatter, error) {
	return &RawFormatter{logger: logger}, nil
}

// Format returns the message unchanged plus a trailing newline.
func (f *RawFormatter) Format(entry core.LogEntry) ([]byte, error) {
	return append([]byte(entry.Message), '\n'), nil
}

// Name returns the formatter's type name.
func (f *RawFormatter) Name() string {
	return "raw"
}
