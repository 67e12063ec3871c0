// Package interval holds half-open time interval arithmetic shared by desk
// booking and calendar availability.
package interval

import (
	"sort"
	"time"
)

// Span is the half-open interval [Start, End).
type Span struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Valid reports whether the span is non-empty.
func (s Span) Valid() bool {
	return s.Start.Before(s.End)
}

// Truncate rounds both bounds down to a multiple of d, so a span matches
// what a store with precision d will keep.
func (s Span) Truncate(d time.Duration) Span {
	s.Start = s.Start.Truncate(d)
	s.End = s.End.Truncate(d)
	return s
}

// NextFree returns the earliest instant at or after now not covered by busy.
// It walks the spans in start order and advances a cursor through every span
// that starts at or before the cursor and ends after it, stopping at the
// first gap. busy is not modified.
func NextFree(now time.Time, busy []Span) time.Time {
	sorted := make([]Span, len(busy))
	copy(sorted, busy)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	cursor := now
	for _, span := range sorted {
		if span.Start.After(cursor) {
			break
		}
		if span.End.After(cursor) {
			cursor = span.End
		}
	}
	return cursor
}
