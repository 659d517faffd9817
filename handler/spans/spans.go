// Package spans pairs every async nestable start/end in the stream into named
// intervals, regardless of category. Imported span formats (jaeger, monkit)
// surface here.
package spans

import (
	"sort"

	"loov.dev/tracemodel/handler"
	"loov.dev/tracemodel/trace"
)

// Name is the handler's registry name.
const Name = "spans"

type Span struct {
	Name     string
	Category string
	ID       string
	trace.TimeRange
	Begin *trace.Event
	End   *trace.Event
}

func (s Span) Duration() trace.Time { return s.TimeRange.Duration() }

type Data struct {
	// Spans holds every paired interval, ascending by start time.
	Spans []Span
}

type pendingKey struct {
	category string
	id       string
	name     string
}

type Handler struct {
	candidates []*trace.Event
	data       Data
	finalized  bool
}

func New() *Handler {
	h := &Handler{}
	h.Reset()
	return h
}

func (h *Handler) Reset() {
	h.candidates = nil
	h.data = Data{}
	h.finalized = false
}

func (h *Handler) Handle(ev *trace.Event) {
	if ev.Phase.IsAsyncStart() || ev.Phase.IsAsyncEnd() {
		h.candidates = append(h.candidates, ev)
	}
}

// Finalize sorts the candidates by timestamp and then pairs begin/end events
// sharing a category, id and name, so the input array order never decides
// which pairs survive. Nested same-key spans pair innermost first; unmatched
// halves are dropped.
func (h *Handler) Finalize(_ handler.Deps) error {
	sorted := make([]*trace.Event, len(h.candidates))
	copy(sorted, h.candidates)
	sort.SliceStable(sorted, func(i, k int) bool {
		a, b := sorted[i], sorted[k]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		// zero-duration spans: the begin goes first
		return a.Phase.IsAsyncStart() && b.Phase.IsAsyncEnd()
	})

	pending := map[pendingKey][]*trace.Event{}
	var spans []Span
	for _, ev := range sorted {
		key := pendingKey{category: ev.Category, id: ev.ID, name: ev.Name}
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
			spans = append(spans, Span{
				Name:      ev.Name,
				Category:  ev.Category,
				ID:        ev.ID,
				TimeRange: trace.TimeRange{Start: begin.Timestamp, Finish: ev.Timestamp},
				Begin:     begin,
				End:       ev,
			})
		}
	}

	sort.SliceStable(spans, func(i, k int) bool {
		return spans[i].TimeRange.Less(spans[k].TimeRange)
	})
	h.data = Data{Spans: spans}
	h.candidates = nil
	h.finalized = true
	return nil
}

func (h *Handler) Data() any {
	if !h.finalized {
		return Data{}
	}
	return h.data
}
