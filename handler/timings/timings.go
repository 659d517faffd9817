// Package timings analyzes user-facing timing instrumentation: performance
// marks and measures, console.time intervals and TimeStamp annotations.
package timings

import (
	"sort"

	"loov.dev/tracemodel/handler"
	"loov.dev/tracemodel/handler/meta"
	"loov.dev/tracemodel/trace"
)

// Name is the handler's registry name.
const Name = "timings"

const (
	userTimingCategory = "blink.user_timing"
	consoleCategory    = "blink.console"
	timelineCategory   = "devtools.timeline"
)

// The renderer reports navigation milestones through the user timing
// category as well; they are not user marks.
var ignoredMarks = map[string]struct{}{
	"navigationStart":                {},
	"commitNavigationEnd":            {},
	"fetchStart":                     {},
	"requestStart":                   {},
	"responseEnd":                    {},
	"domLoading":                     {},
	"firstPaint":                     {},
	"firstContentfulPaint":           {},
	"firstMeaningfulPaint":           {},
	"firstMeaningfulPaintCandidate":  {},
	"paintNonDefaultBackgroundColor": {},
}

// Interval is one paired begin/end measurement.
type Interval struct {
	Name string
	trace.TimeRange
	Begin *trace.Event
	End   *trace.Event
}

func (iv Interval) Duration() trace.Time { return iv.TimeRange.Duration() }

type Data struct {
	// Measures are performance.measure intervals, ascending by start.
	Measures []Interval
	// Marks are performance.mark events, ascending by timestamp.
	Marks []*trace.Event
	// ConsoleTimings are console.time/timeEnd intervals.
	ConsoleTimings []Interval
	// TimestampEvents are console.timeStamp annotations.
	TimestampEvents []*trace.Event
}

type pendingKey struct {
	id   string
	name string
}

type Handler struct {
	measureCandidates []*trace.Event
	consoleCandidates []*trace.Event

	marks      []*trace.Event
	timestamps []*trace.Event

	data      Data
	finalized bool
}

func New() *Handler {
	h := &Handler{}
	h.Reset()
	return h
}

func (h *Handler) Reset() {
	h.measureCandidates = nil
	h.consoleCandidates = nil
	h.marks = nil
	h.timestamps = nil
	h.data = Data{}
	h.finalized = false
}

func (h *Handler) Handle(ev *trace.Event) {
	switch {
	case ev.Name == "TimeStamp" && ev.HasCategory(timelineCategory):
		h.timestamps = append(h.timestamps, ev)
	case ev.HasCategory(userTimingCategory):
		h.handleUserTiming(ev)
	case ev.HasCategory(consoleCategory):
		if ev.Phase.IsAsyncStart() || ev.Phase.IsAsyncEnd() {
			h.consoleCandidates = append(h.consoleCandidates, ev)
		}
	}
}

func (h *Handler) handleUserTiming(ev *trace.Event) {
	switch {
	case ev.Phase.IsMark() || ev.Phase.IsInstant():
		if _, skip := ignoredMarks[ev.Name]; skip {
			return
		}
		h.marks = append(h.marks, ev)
	case ev.Phase.IsAsyncStart() || ev.Phase.IsAsyncEnd():
		h.measureCandidates = append(h.measureCandidates, ev)
	}
}

// matchIntervals pairs async begin/end candidates sharing an id and name.
// Candidates are sorted by timestamp first, so matching does not depend on
// the input array order. Nested same-key intervals pair innermost first.
// Unmatched halves are dropped.
func matchIntervals(candidates []*trace.Event) []Interval {
	sorted := make([]*trace.Event, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, k int) bool {
		a, b := sorted[i], sorted[k]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		// zero-duration intervals: the begin goes first
		return a.Phase.IsAsyncStart() && b.Phase.IsAsyncEnd()
	})

	pending := map[pendingKey][]*trace.Event{}
	var out []Interval
	for _, ev := range sorted {
		key := pendingKey{id: ev.ID, name: ev.Name}
		switch {
		case ev.Phase.IsAsyncStart():
			pending[key] = append(pending[key], ev)
		case ev.Phase.IsAsyncEnd():
			stack := pending[key]
			if len(stack) == 0 {
				continue
			}
			begin := stack[len(stack)-1]
			pending[key] = stack[:len(stack)-1]
			out = append(out, Interval{
				Name:      ev.Name,
				TimeRange: trace.TimeRange{Start: begin.Timestamp, Finish: ev.Timestamp},
				Begin:     begin,
				End:       ev,
			})
		}
	}
	return out
}

// Finalize drops unmatched halves and anything outside the recording window,
// then sorts every collection by time. The input array order never leaks into
// the result.
func (h *Handler) Finalize(deps handler.Deps) error {
	bounds := trace.InvalidRange
	if raw, ok := deps.Data(meta.Name); ok {
		if md, ok := raw.(meta.Data); ok {
			bounds = md.Bounds
		}
	}

	h.data = Data{
		Measures:        finalizeIntervals(matchIntervals(h.measureCandidates), bounds),
		ConsoleTimings:  finalizeIntervals(matchIntervals(h.consoleCandidates), bounds),
		Marks:           finalizeEvents(h.marks, bounds),
		TimestampEvents: finalizeEvents(h.timestamps, bounds),
	}
	h.measureCandidates = nil
	h.consoleCandidates = nil
	h.finalized = true
	return nil
}

func (h *Handler) Data() any {
	if !h.finalized {
		return Data{}
	}
	return h.data
}

func inBounds(bounds trace.TimeRange, t trace.Time) bool {
	if !bounds.Valid() {
		return true
	}
	return bounds.Contains(t)
}

func finalizeIntervals(intervals []Interval, bounds trace.TimeRange) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if inBounds(bounds, iv.Start) {
			out = append(out, iv)
		}
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].TimeRange.Less(out[k].TimeRange)
	})
	return out
}

func finalizeEvents(events []*trace.Event, bounds trace.TimeRange) []*trace.Event {
	out := make([]*trace.Event, 0, len(events))
	for _, ev := range events {
		if inBounds(bounds, ev.Timestamp) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Timestamp < out[k].Timestamp
	})
	return out
}
