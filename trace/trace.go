package trace

import (
	"math"
	"sort"
)

type TimeRange struct {
	Start  Time
	Finish Time
}

var InvalidRange = TimeRange{
	Start:  math.MaxInt64,
	Finish: math.MinInt64,
}

// Valid reports whether the range covers at least one instant.
func (a TimeRange) Valid() bool {
	return a.Start <= a.Finish
}

func (a TimeRange) Duration() Time {
	return a.Finish - a.Start
}

// Contains reports whether t falls inside the range, boundaries included.
func (a TimeRange) Contains(t Time) bool {
	return a.Start <= t && t <= a.Finish
}

func (a TimeRange) Less(b TimeRange) bool {
	if a.Start == b.Start {
		return a.Finish < b.Finish
	}
	return a.Start < b.Start
}

func (a TimeRange) Expand(b TimeRange) TimeRange {
	return TimeRange{
		Start:  a.Start.Min(b.Start),
		Finish: a.Finish.Max(b.Finish),
	}
}

// SortByTimestamp sorts events ascending by timestamp, keeping the relative
// order of events with equal timestamps.
func SortByTimestamp(events []Event) {
	sort.SliceStable(events, func(i, k int) bool {
		return events[i].Timestamp < events[k].Timestamp
	})
}
