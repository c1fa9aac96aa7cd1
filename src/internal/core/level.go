package core

import (
	"strings"
	"sync"
)

// Default level ladder. Custom levels register through RegisterLevel
// rather than dynamically generated methods.
const (
	PriorityTrace = 10
	PriorityDebug = 20
	PriorityInfo  = 30
	PriorityWarn  = 40
	PriorityError = 50
	PriorityFatal = 60
)

var (
	levelMu       sync.RWMutex
	levelPriority = map[string]int{
		"trace":   PriorityTrace,
		"debug":   PriorityDebug,
		"info":    PriorityInfo,
		"warn":    PriorityWarn,
		"warning": PriorityWarn,
		"error":   PriorityError,
		"fatal":   PriorityFatal,
	}
)

// RegisterLevel adds or replaces a named level with the given priority.
// Names are case-insensitive.
func RegisterLevel(name string, priority int) {
	levelMu.Lock()
	levelPriority[strings.ToLower(name)] = priority
	levelMu.Unlock()
}

// LevelPriority returns the numeric priority for a level name.
// Unknown names report ok=false.
func LevelPriority(name string) (int, bool) {
	levelMu.RLock()
	p, ok := levelPriority[strings.ToLower(name)]
	levelMu.RUnlock()
	return p, ok
}

// IsErrorLevel reports whether a level name ranks at error severity or above.
func IsErrorLevel(name string) bool {
	p, ok := LevelPriority(name)
	return ok && p >= PriorityError
}
