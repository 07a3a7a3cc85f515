// Package period builds the calendar buckets a forecast is aggregated
// into.
package period

import (
	"time"

	"github.com/buildflow/cashcast/internal/domain/model"
)

// Granularity selects the bucket size.
type Granularity string

const (
	Monthly Granularity = "monthly"
	Weekly  Granularity = "weekly"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	return g == Monthly || g == Weekly
}

const daysPerWeek = 7

// Span is one half-open [Start, End) bucket.
type Span struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls in the span. A date exactly on Start
// belongs to the span; one on End does not.
func (s Span) Contains(d time.Time) bool {
	return !d.Before(s.Start) && d.Before(s.End)
}

// Generate returns ordered, contiguous spans covering [start, end]
// inclusive. Monthly spans align to calendar month boundaries; weekly
// spans are fixed 7-day windows from start. The first and last spans
// are clipped so the union is exactly [start, end+1d). An end before
// start yields an empty slice, not an error.
func Generate(start, end time.Time, g Granularity) []Span {
	start = model.Day(start)
	end = model.Day(end)
	if end.Before(start) || !g.Valid() {
		return nil
	}

	// Half-open cover of an inclusive date range.
	limit := end.AddDate(0, 0, 1)

	var spans []Span
	cur := start
	for cur.Before(limit) {
		var next time.Time
		switch g {
		case Monthly:
			next = firstOfNextMonth(cur)
		case Weekly:
			next = cur.AddDate(0, 0, daysPerWeek)
		}
		if next.After(limit) {
			next = limit
		}
		spans = append(spans, Span{Start: cur, End: next})
		cur = next
	}
	return spans
}

// Index returns the position of the span containing d, or -1 when d
// falls outside every span. Spans are contiguous and ordered, so a
// linear boundary walk suffices.
func Index(spans []Span, d time.Time) int {
	d = model.Day(d)
	for i, s := range spans {
		if s.Contains(d) {
			return i
		}
	}
	return -1
}

func firstOfNextMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}
