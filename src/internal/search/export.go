package search

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

var defaultExportFields = []string{"timestamp", "level", "appName", "message"}

// ExportOptions controls result serialization.
type ExportOptions struct {
	Format          string   // json, csv or text
	IncludeMetadata bool     // json: wrap entries with score/highlights; text: append metadata lines
	Fields          []string // projection allow-list, dotted paths supported
}

// ExportResults serializes search results. Unknown formats are a fatal
// error.
func ExportResults(results []SearchResult, opts ExportOptions) ([]byte, error) {
	switch opts.Format {
	case FormatJSON:
		return exportJSON(results, opts)
	case FormatCSV:
		return exportCSV(results, opts)
	case FormatText:
		return exportText(results, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
}

func exportJSON(results []SearchResult, opts ExportOptions) ([]byte, error) {
	if len(opts.Fields) > 0 {
		projected := make([]map[string]any, 0, len(results))
		for _, result := range results {
			row := make(map[string]any, len(opts.Fields))
			for _, field := range opts.Fields {
				row[field] = fieldValue(result, field)
			}
			projected = append(projected, row)
		}
		return json.MarshalIndent(projected, "", "  ")
	}

	if opts.IncludeMetadata {
		return json.MarshalIndent(results, "", "  ")
	}

	entries := make([]*core.LogEntry, 0, len(results))
	for _, result := range results {
		entries = append(entries, result.Entry)
	}
	return json.MarshalIndent(entries, "", "  ")
}

func exportCSV(results []SearchResult, opts ExportOptions) ([]byte, error) {
	fields := opts.Fields
	if len(fields) == 0 {
		fields = defaultExportFields
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(fields); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		row := make([]string, 0, len(fields))
		for _, field := range fields {
			row = append(row, stringifyValue(fieldValue(result, field)))
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func exportText(results []SearchResult, opts ExportOptions) ([]byte, error) {
	var b strings.Builder
	for _, result := range results {
		entry := result.Entry
		fmt.Fprintf(&b, "[%s] [%s] %s: %s\n",
			entry.Time.Format(time.RFC3339),
			strings.ToUpper(entry.Level),
			entry.AppName,
			entry.Message)
		if opts.IncludeMetadata {
			fmt.Fprintf(&b, "  score: %.2f\n", result.Score)
			if len(result.Highlights) > 0 {
				fmt.Fprintf(&b, "  matches: %d\n", len(result.Highlights))
			}
		}
	}
	return []byte(b.String()), nil
}

// fieldValue resolves a dotted field path against a result. Top-level
// names address the entry's own fields plus "score"; "payload.x.y"
// descends into nested payload maps.
func fieldValue(result SearchResult, path string) any {
	entry := result.Entry
	parts := strings.Split(path, ".")

	switch parts[0] {
	case "timestamp":
		return entry.Time.Format(time.RFC3339Nano)
	case "level":
		return entry.Level
	case "appName":
		return entry.AppName
	case "traceId":
		return entry.TraceID
	case "message":
		return entry.Message
	case "context":
		return entry.Context
	case "environment":
		return entry.Environment
	case "score":
		return result.Score
	case "error":
		if entry.Err == nil {
			return nil
		}
		if len(parts) == 1 {
			return entry.Err
		}
		switch parts[1] {
		case "name":
			return entry.Err.Name
		case "message":
			return entry.Err.Message
		case "stack":
			return entry.Err.Stack
		}
		return nil
	case "payload":
		if len(parts) == 1 {
			return entry.Payload
		}
		return nestedLookup(entry.Payload, parts[1:])
	}
	return nil
}

func nestedLookup(m map[string]any, path []string) any {
	var current any = m
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = node[key]
		if !ok {
			return nil
		}
	}
	return current
}

// stringifyValue renders a value for CSV: objects and slices are
// JSON-stringified, scalars printed plainly.
func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}
