// Package freshness drops stale timestamped log entries from a freshly fetched report.
package freshness

import (
	"regexp"
	"time"

	"github.com/kromedia/neo/internal/domain"
)

// DefaultWindow is the retention window applied at ingestion.
const DefaultWindow = 30 * 24 * time.Hour

var absoluteDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Filter returns a copy of report whose system events and patch log keep only
// entries that are recent relative to now. The input is never modified.
func Filter(report *domain.Report, now time.Time, window time.Duration) *domain.Report {
	if report == nil {
		return nil
	}
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := now.Add(-window)

	out := report.Clone()
	out.SystemEvents = keep(out.SystemEvents, cutoff, func(e domain.SystemEvent) string { return e.Timestamp })
	out.PatchworkProtocol.PatchLog = keep(out.PatchworkProtocol.PatchLog, cutoff, func(e domain.PatchLogEntry) string { return e.Timestamp })
	return out
}

// IsRecent reports whether a log timestamp should survive the cutoff.
// Relative labels and unparsable dates are treated as recent.
func IsRecent(timestamp string, cutoff time.Time) bool {
	if !absoluteDate.MatchString(timestamp) {
		return true
	}
	ts, ok := parse(timestamp)
	if !ok {
		return true
	}
	return !ts.Before(cutoff)
}

func parse(value string) (time.Time, bool) {
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func keep[T any](entries []T, cutoff time.Time, timestamp func(T) string) []T {
	if entries == nil {
		return nil
	}
	out := make([]T, 0, len(entries))
	for _, entry := range entries {
		if IsRecent(timestamp(entry), cutoff) {
			out = append(out, entry)
		}
	}
	return out
}
