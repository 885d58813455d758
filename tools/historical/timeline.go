package historical

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// TimelineEvent is one dated occurrence extracted from the corpus.
type TimelineEvent struct {
	Date       string  `json:"date"`
	Event      string  `json:"event"`
	Document   string  `json:"source_document"`
	Page       int     `json:"page_number"`
	Confidence float64 `json:"confidence"`
	DateType   string  `json:"date_type"`
}

// datePatterns pair an extraction regex with the date-type label that
// drives the confidence score.
var datePatterns = []struct {
	re       *regexp.Regexp
	dateType string
}{
	{regexp.MustCompile(`(?i)\b\d{1,4}\s*-\s*\d{1,4}\s*(?:BC|BCE|AD|CE)\b`), "range"},
	{regexp.MustCompile(`(?i)\b(?:in|during|around|about|circa)\s+\d{1,4}\s*(?:BC|BCE|AD|CE)\b`), "approximate"},
	{regexp.MustCompile(`(?i)\b\d{1,4}\s*(?:BC|BCE|AD|CE)\b`), "exact"},
	{regexp.MustCompile(`(?i)\b\w+\s+century\s*(?:BC|BCE|AD|CE)?\b`), "century"},
}

var dateConfidence = map[string]float64{
	"exact":       0.9,
	"range":       0.8,
	"century":     0.7,
	"approximate": 0.6,
}

const contextRadius = 100

// BuildTimeline extracts dated events from the corpus, orders them
// chronologically and groups them by historical period.
func (t *Toolset) BuildTimeline(ctx context.Context, documentIDs []string) (map[string]any, error) {
	docs, err := t.provider.Documents(ctx, documentIDs)
	if err != nil {
		return nil, err
	}

	var events []TimelineEvent
	for _, doc := range docs {
		for _, chunk := range doc.Chunks {
			events = append(events, extractEvents(chunk, doc.Name)...)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return eventYear(events[i].Date) < eventYear(events[j].Date)
	})

	grouped := map[string][]map[string]any{}
	eventMaps := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		m := map[string]any{
			"date":            ev.Date,
			"event":           ev.Event,
			"source_document": ev.Document,
			"page_number":     ev.Page,
			"confidence":      ev.Confidence,
			"date_type":       ev.DateType,
		}
		eventMaps = append(eventMaps, m)
		period := historicalPeriod(ev.Date)
		grouped[period] = append(grouped[period], m)
	}

	return map[string]any{
		"total_events":      len(events),
		"timeline_events":   eventMaps,
		"grouped_by_period": toAnyMap(grouped),
		"timeline_summary":  timelineSummary(events),
		"date_range":        dateRange(events),
	}, nil
}

// extractEvents finds dated passages in a chunk. Overlapping matches of
// different pattern kinds are kept; duplicates at the same offset for
// the same kind cannot occur since each pattern scans independently.
func extractEvents(chunk Chunk, documentName string) []TimelineEvent {
	var events []TimelineEvent
	claimed := map[int]bool{}
	for _, p := range datePatterns {
		for _, loc := range p.re.FindAllStringIndex(chunk.Content, -1) {
			// The exact-year pattern is a substring of the range and
			// approximate patterns; first claim wins per offset.
			if claimed[loc[0]] {
				continue
			}
			claimed[loc[0]] = true
			date := chunk.Content[loc[0]:loc[1]]
			start := loc[0] - contextRadius
			if start < 0 {
				start = 0
			}
			end := loc[1] + contextRadius
			if end > len(chunk.Content) {
				end = len(chunk.Content)
			}
			events = append(events, TimelineEvent{
				Date:       date,
				Event:      strings.TrimSpace(chunk.Content[start:end]),
				Document:   documentName,
				Page:       chunk.Page,
				Confidence: confidenceFor(date, p.dateType),
				DateType:   p.dateType,
			})
		}
	}
	return events
}

var exactYearRe = regexp.MustCompile(`(?i)\b\d{1,4}\s*(?:BC|AD|BCE|CE)\b`)

func confidenceFor(date, dateType string) float64 {
	conf := dateConfidence[dateType]
	if conf == 0 {
		conf = 0.5
	}
	if exactYearRe.MatchString(date) {
		conf += 0.1
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

var yearRe = regexp.MustCompile(`\b(\d{1,4})\b`)

// eventYear maps a date string to a sortable year; BC dates sort
// negative and undated events sort first.
func eventYear(date string) int {
	lower := strings.ToLower(date)
	m := yearRe.FindStringSubmatch(lower)
	if m == nil {
		return 0
	}
	year, _ := strconv.Atoi(m[1])
	if strings.Contains(lower, "bc") {
		return -year
	}
	return year
}

// historicalPeriod classifies a date into a named era. BC years count
// backwards: larger numbers are earlier.
func historicalPeriod(date string) string {
	lower := strings.ToLower(date)
	m := yearRe.FindStringSubmatch(lower)
	if m == nil {
		return "Unknown Period"
	}
	year, _ := strconv.Atoi(m[1])
	if strings.Contains(lower, "bc") {
		switch {
		case year > 800:
			return "Archaic Period (800+ BC)"
		case year > 323:
			return "Classical Period (480-323 BC)"
		case year > 146:
			return "Hellenistic Period (323-146 BC)"
		case year > 27:
			return "Roman Republic (146-27 BC)"
		default:
			return "Early Roman Empire"
		}
	}
	switch {
	case year <= 476:
		return "Roman Empire (27 BC - 476 AD)"
	case year <= 1000:
		return "Early Medieval (476-1000 AD)"
	default:
		return "Medieval Period (1000+ AD)"
	}
}

func timelineSummary(events []TimelineEvent) string {
	if len(events) == 0 {
		return "No temporal events found in the documents."
	}
	periods := map[string]bool{}
	for _, ev := range events {
		periods[historicalPeriod(ev.Date)] = true
	}
	return fmt.Sprintf("Timeline contains %d events from %s to %s across %d historical periods.",
		len(events), events[0].Date, events[len(events)-1].Date, len(periods))
}

func dateRange(events []TimelineEvent) map[string]any {
	if len(events) == 0 {
		return map[string]any{"start": "Unknown", "end": "Unknown"}
	}
	return map[string]any{
		"start": events[0].Date,
		"end":   events[len(events)-1].Date,
	}
}

func toAnyMap[V any](m map[string]V) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
