package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lixenwraith/log"
)

// Entity types produced by the NLP engine.
const (
	EntityLevel     = "level"
	EntityService   = "service"
	EntityUserID    = "user_id"
	EntityTraceID   = "trace_id"
	EntityTime      = "time"
	EntityErrorType = "error_type"
)

const entityConfidence = 0.8

type intentPattern struct {
	name     string
	patterns []*regexp.Regexp
}

type entityPattern struct {
	entityType string
	re         *regexp.Regexp
	group      int
}

// NLPEngine layers heuristic intent classification and entity extraction
// over the basic engine. There is no language model behind it: intents
// and entities are plain ordered regex tables, and ties on intent hit
// counts resolve to the earliest registered intent.
type NLPEngine struct {
	*BasicEngine

	intents  []intentPattern
	entities []entityPattern
}

// NewNLPEngine wraps an existing basic engine with the NLP layer. The
// two share one collection.
func NewNLPEngine(basic *BasicEngine, logger *log.Logger) *NLPEngine {
	engine := &NLPEngine{BasicEngine: basic}
	engine.registerIntents()
	engine.registerEntities()

	logger.Debug("msg", "NLP engine created",
		"component", "nlp_engine",
		"intents", len(engine.intents),
		"entity_types", len(engine.entities))

	return engine
}

func (n *NLPEngine) registerIntents() {
	n.intents = []intentPattern{
		{
			name: IntentFindErrors,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(errors?|fail(ed|ure|ures)?|exceptions?|crash(ed|es)?|broken)\b`),
				regexp.MustCompile(`(?i)what\s+went\s+wrong`),
				regexp.MustCompile(`(?i)\bfatal\b`),
			},
		},
		{
			name: IntentTraceRequest,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\btraces?\b`),
				regexp.MustCompile(`(?i)\brequest\s+(id|flow|path)\b`),
				regexp.MustCompile(`(?i)\bfollow\b.*\brequest\b`),
				regexp.MustCompile(`(?i)\breq-[\w-]+`),
			},
		},
		{
			name: IntentFindUserActivity,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\busers?\b`),
				regexp.MustCompile(`(?i)\bactivity\b`),
				regexp.MustCompile(`(?i)\bsessions?\b`),
			},
		},
		{
			name: IntentPerformance,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(slow|latency|performance|duration|timeout)\b`),
				regexp.MustCompile(`(?i)\btook\s+\d+`),
				regexp.MustCompile(`(?i)\bresponse\s+time\b`),
			},
		},
		{
			name: IntentTimeRange,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(last|past)\s+\d+`),
				regexp.MustCompile(`(?i)\b(today|yesterday|this\s+week)\b`),
			},
		},
		{
			name: IntentCorrelation,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(related|correlate[d]?|correlation|connected|together)\b`),
			},
		},
	}
}

func (n *NLPEngine) registerEntities() {
	n.entities = []entityPattern{
		{EntityLevel, regexp.MustCompile(`(?i)\b(trace|debug|info|warn|warning|error|fatal|critical)\b`), 1},
		{EntityService, regexp.MustCompile(`(?i)\b([\w-]+)\s+service\b`), 1},
		{EntityService, regexp.MustCompile(`(?i)\bfrom\s+([\w-]+)\b`), 1},
		{EntityUserID, regexp.MustCompile(`(?i)\buser\s+([\w-]+)\b`), 1},
		{EntityTraceID, regexp.MustCompile(`(?i)\b(req-[\w-]+)\b`), 1},
		{EntityTraceID, regexp.MustCompile(`(?i)\btrace\s*(?:id)?\s*[:=]?\s*([0-9a-f-]{8,})\b`), 1},
		{EntityTime, regexp.MustCompile(`(?i)\b(?:last|past)\s+\d+\s*(?:seconds?|minutes?|hours?|days?)\b|\btoday\b|\byesterday\b|\bthis\s+week\b`), 0},
		{EntityErrorType, regexp.MustCompile(`\b([A-Z][A-Za-z]*(?:Error|Exception))\b`), 1},
	}
}

// ParseNaturalLanguageQuery classifies intent, extracts entities, folds
// them into structured filters and scores its own confidence.
func (n *NLPEngine) ParseNaturalLanguageQuery(query string) ParsedQuery {
	parsed := ParsedQuery{
		Intent:   n.detectIntent(query),
		Entities: n.extractEntities(query),
	}

	for _, entity := range parsed.Entities {
		switch entity.Type {
		case EntityLevel:
			parsed.Filters.Levels = append(parsed.Filters.Levels, strings.ToLower(entity.Value))
		case EntityService:
			parsed.Filters.Services = append(parsed.Filters.Services, entity.Value)
		case EntityUserID:
			parsed.Filters.UserIDs = append(parsed.Filters.UserIDs, entity.Value)
		case EntityTraceID:
			parsed.Filters.TraceIDs = append(parsed.Filters.TraceIDs, entity.Value)
		case EntityTime:
			if parsed.Filters.TimeRange == nil {
				parsed.Filters.TimeRange = extractTimeRange(entity.Value)
			}
		}
	}

	parsed.CleanQuery = n.cleanQuery(query, parsed.Entities)
	parsed.Confidence = confidence(query, parsed)
	return parsed
}

// detectIntent counts regex hits per intent; the most hits wins and ties
// resolve to the first registered intent.
func (n *NLPEngine) detectIntent(query string) string {
	best := IntentGeneralSearch
	bestHits := 0
	for _, intent := range n.intents {
		hits := 0
		for _, re := range intent.patterns {
			if re.MatchString(query) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = intent.name
		}
	}
	return best
}

// extractEntities runs every entity regex globally over the query,
// producing one entity per match at a flat confidence.
func (n *NLPEngine) extractEntities(query string) []QueryEntity {
	entities := make([]QueryEntity, 0)
	for _, pattern := range n.entities {
		for _, match := range pattern.re.FindAllStringSubmatch(query, -1) {
			value := match[pattern.group]
			if value == "" {
				continue
			}
			entities = append(entities, QueryEntity{
				Type:       pattern.entityType,
				Value:      value,
				Confidence: entityConfidence,
			})
		}
	}
	return entities
}

var nlpTimeRe = regexp.MustCompile(`(?i)\b(?:last|past)\s+(\d+)\s*(seconds?|minutes?|hours?|days?)\b`)

// extractTimeRange converts a recognized time phrase into an absolute
// range anchored at the current clock.
func extractTimeRange(phrase string) *TimeRange {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	lower := strings.ToLower(phrase)

	switch {
	case strings.Contains(lower, "today"):
		return &TimeRange{Start: midnight, End: now}
	case strings.Contains(lower, "yesterday"):
		return &TimeRange{Start: midnight.Add(-24 * time.Hour), End: midnight}
	case strings.Contains(lower, "this week"):
		weekday := int(now.Weekday())
		return &TimeRange{Start: midnight.Add(-time.Duration(weekday) * 24 * time.Hour), End: now}
	}

	if m := nlpTimeRe.FindStringSubmatch(phrase); m != nil {
		amount, _ := strconv.Atoi(m[1])
		d := time.Duration(amount) * unitDuration(m[2])
		return &TimeRange{Start: now.Add(-d), End: now}
	}
	return nil
}

// Stop words stripped from the executable query alongside recognized
// entity text.
var queryStopWords = map[string]bool{
	"show": true, "me": true, "find": true, "get": true, "all": true,
	"the": true, "logs": true, "log": true, "from": true, "with": true,
	"for": true, "in": true, "of": true, "a": true, "an": true,
	"service": true, "user": true, "last": true, "past": true,
}

func (n *NLPEngine) cleanQuery(query string, entities []QueryEntity) string {
	cleaned := query
	for _, entity := range entities {
		cleaned = strings.ReplaceAll(cleaned, entity.Value, " ")
	}

	words := strings.Fields(cleaned)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if queryStopWords[strings.ToLower(word)] {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// confidence: base 0.5, +0.2 for a non-general intent, +0.1 per entity
// up to 0.3, -0.1 for very short or very long queries, clamped to [0,1].
func confidence(query string, parsed ParsedQuery) float64 {
	score := 0.5
	if parsed.Intent != IntentGeneralSearch {
		score += 0.2
	}
	entityBonus := 0.1 * float64(len(parsed.Entities))
	if entityBonus > 0.3 {
		entityBonus = 0.3
	}
	score += entityBonus

	words := len(strings.Fields(query))
	if words < 3 || words > 20 {
		score -= 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// NaturalLanguageSearch derives intent-specific options, strips entity
// and filler text from the query, then delegates to the shared search.
func (n *NLPEngine) NaturalLanguageSearch(query string) []SearchResult {
	parsed := n.ParseNaturalLanguageQuery(query)
	opts := n.optionsForIntent(parsed.Intent)
	return n.Search(parsed.CleanQuery, &parsed.Filters, opts)
}

func (n *NLPEngine) optionsForIntent(intent string) *SearchOptions {
	opts := &SearchOptions{
		IncludeContext: true,
		Highlight:      true,
	}
	switch intent {
	case IntentTraceRequest:
		opts.SortBy = SortByTimestamp
		opts.SortOrder = SortAsc
		opts.Correlate = true
		opts.ContextSize = 10
	case IntentFindErrors:
		opts.FindSimilar = true
		opts.ContextSize = 3
	case IntentPerformance:
		opts.SortBy = SortByTimestamp
		opts.SortOrder = SortDesc
	case IntentCorrelation:
		opts.Correlate = true
	}
	return opts
}
