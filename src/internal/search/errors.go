package search

import "errors"

// Fatal error categories. Disabled-engine calls fail immediately rather
// than silently returning empty results, so misconfiguration surfaces at
// the first use.
var (
	ErrPatternDisabled     = errors.New("pattern recognition engine is disabled")
	ErrCorrelationDisabled = errors.New("correlation engine is disabled")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
)
