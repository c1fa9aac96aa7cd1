package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"

	"github.com/lixenwraith/log"
)

// TextFormatter renders entries as human-readable lines:
// [timestamp] [LEVEL] appName: message key=value ...
type TextFormatter struct {
	timestampFormat string
	includePayload  bool
	logger          *log.Logger
}

// NewTextFormatter creates a text formatter. Recognized options:
// "timestamp_format" (string) and "include_payload" (bool, default true).
func NewTextFormatter(options map[string]any, logger *log.Logger) (*TextFormatter, error) {
	f := &TextFormatter{
		timestampFormat: time.RFC3339,
		includePayload:  true,
		logger:          logger,
	}
	if tsFormat, ok := options["timestamp_format"].(string); ok && tsFormat != "" {
		f.timestampFormat = tsFormat
	}
	if include, ok := options["include_payload"].(bool); ok {
		f.includePayload = include
	}
	return f, nil
}

// Format renders the entry as a single line.
func (f *TextFormatter) Format(entry core.LogEntry) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] [%s] %s: %s",
		entry.Time.Format(f.timestampFormat),
		strings.ToUpper(entry.Level),
		entry.AppName,
		entry.Message)

	if entry.TraceID != "" {
		fmt.Fprintf(&b, " trace=%s", entry.TraceID)
	}
	if f.includePayload && len(entry.Payload) > 0 {
		keys := make([]string, 0, len(entry.Payload))
		for k := range entry.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Payload[k])
		}
	}
	if entry.Err != nil {
		fmt.Fprintf(&b, " error=%s: %s", entry.Err.Name, entry.Err.Message)
	}
	b.WriteByte('\n')

	return []byte(b.String()), nil
}

// Name returns the formatter's type name.
func (f *TextFormatter) Name() string {
	return "text"
}
