package format

import (
	"encoding/json"
	"fmt"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
)

// JSONFormatter renders entries as one JSON object per line.
type JSONFormatter struct {
	pretty bool
	logger *log.Logger
}

// NewJSONFormatter creates a JSON formatter. Recognized options:
// "pretty" (bool).
func NewJSONFormatter(options map[string]any, logger *log.Logger) (*JSONFormatter, error) {
	f := &JSONFormatter{logger: logger}
	if pretty, ok := options["pretty"].(bool); ok {
		f.pretty = pretty
	}
	return f, nil
}

// Format marshals the entry's canonical JSON shape.
func (f *JSONFormatter) Format(entry core.LogEntry) ([]byte, error) {
	var result []byte
	var err error
	if f.pretty {
		result, err = json.MarshalIndent(entry, "", "  ")
	} else {
		result, err = json.Marshal(entry)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(result, '\n'), nil
}

// Name returns the formatter's type name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatBatch marshals entries as a single JSON array, the shape the
// analytics sink posts.
func (f *JSONFormatter) FormatBatch(entries []core.LogEntry) ([]byte, error) {
	if f.pretty {
		return json.MarshalIndent(entries, "", "  ")
	}
	return json.Marshal(entries)
}
