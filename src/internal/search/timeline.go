package search

import (
	"sort"
	"strings"

	"github.com/MasterAffan/logixia-sub000/src/internal/core"
)

var (
	startKeywords     = []string{"start", "starting", "begin", "incoming", "received", "initiat"}
	endKeywords       = []string{"complete", "completed", "finished", "done", "end", "response sent", "closed"}
	milestoneKeywords = []string{"milestone", "checkpoint", "processed", "saved", "committed", "published"}
)

// classifyEvent infers a timeline event type from level and message
// keywords. Error level or an attached error always wins.
func classifyEvent(entry *core.LogEntry) string {
	if core.IsErrorLevel(entry.Level) || entry.HasError() {
		return EventError
	}

	message := strings.ToLower(entry.Message)
	for _, kw := range startKeywords {
		if strings.Contains(message, kw) {
			return EventStart
		}
	}
	for _, kw := range endKeywords {
		if strings.Contains(message, kw) {
			return EventEnd
		}
	}
	for _, kw := range milestoneKeywords {
		if strings.Contains(message, kw) {
			return EventMilestone
		}
	}
	return EventInfo
}

// buildTimeline produces a chronologically ordered, typed event list.
func buildTimeline(logs []*core.LogEntry) []TimelineEvent {
	sorted := make([]*core.LogEntry, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	timeline := make([]TimelineEvent, 0, len(sorted))
	for _, entry := range sorted {
		timeline = append(timeline, TimelineEvent{
			Time:      entry.Time,
			EventType: classifyEvent(entry),
			Entry:     entry,
		})
	}
	return timeline
}

// summarize computes per-level counts, the first-to-last duration span
// and the distinct services of a correlated group.
func summarize(logs []*core.LogEntry) CorrelationSummary {
	summary := CorrelationSummary{
		LevelCounts: make(map[string]int),
	}
	if len(logs) == 0 {
		return summary
	}

	first, last := logs[0].Time, logs[0].Time
	seen := make(map[string]bool)
	for _, entry := range logs {
		summary.LevelCounts[entry.Level]++
		if core.IsErrorLevel(entry.Level) || entry.HasError() {
			summary.ErrorCount++
		}
		if entry.Time.Before(first) {
			first = entry.Time
		}
		if entry.Time.After(last) {
			last = entry.Time
		}
		if entry.AppName != "" && !seen[entry.AppName] {
			seen[entry.AppName] = true
			summary.Services = append(summary.Services, entry.AppName)
		}
	}
	summary.Duration = last.Sub(first)
	return summary
}
