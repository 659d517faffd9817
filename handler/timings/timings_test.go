package timings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loov.dev/tracemodel/handler/meta"
	"loov.dev/tracemodel/trace"
)

type depsMap map[string]any

func (d depsMap) Data(name string) (any, bool) {
	v, ok := d[name]
	return v, ok
}

func userTiming(name string, ph trace.Phase, ts trace.Time, id string) trace.Event {
	return trace.Event{Name: name, Category: "blink.user_timing", Phase: ph, Timestamp: ts, ID: id}
}

// Three well-formed measures plus two marks, interleaved with unrelated
// events.
func fixture() []trace.Event {
	return []trace.Event{
		userTiming("mark-start", trace.Mark, 1000, ""),
		userTiming("alpha", trace.AsyncStart, 1100, "0x1"),
		{Name: "Layout", Category: "devtools.timeline", Phase: trace.Complete, Timestamp: 1200, Duration: 40},
		userTiming("beta", trace.AsyncStart, 1500, "0x2"),
		userTiming("gamma", trace.AsyncStart, 2000, "0x3"),
		userTiming("alpha", trace.AsyncEnd, 2100, "0x1"),
		userTiming("gamma", trace.AsyncEnd, 2500, "0x3"),
		userTiming("beta", trace.AsyncEnd, 3000, "0x2"),
		userTiming("mark-end", trace.Mark, 5000, ""),
	}
}

func feed(h *Handler, events []trace.Event) {
	for i := range events {
		h.Handle(&events[i])
	}
}

func measureNames(data Data) []string {
	names := []string{}
	for _, iv := range data.Measures {
		names = append(names, iv.Name)
	}
	return names
}

func TestMeasuresAndMarks(t *testing.T) {
	h := New()
	feed(h, fixture())
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	require.Len(t, data.Measures, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, measureNames(data))
	assert.Equal(t, trace.Time(1000), data.Measures[0].Duration())
	assert.Equal(t, trace.Time(1500), data.Measures[1].Duration())
	assert.Equal(t, trace.Time(500), data.Measures[2].Duration())

	require.Len(t, data.Marks, 2)
	assert.Equal(t, "mark-start", data.Marks[0].Name)
	assert.Equal(t, "mark-end", data.Marks[1].Name)
}

// Feeding the same events in reverse array order yields an identical result:
// the pipeline guarantees "all events", not their order.
func TestOrderIndependence(t *testing.T) {
	events := fixture()
	reversed := make([]trace.Event, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		reversed = append(reversed, events[i])
	}

	h := New()
	feed(h, reversed)
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	require.Len(t, data.Measures, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, measureNames(data))
	for _, iv := range data.Measures {
		assert.Equal(t, iv.End.Timestamp-iv.Begin.Timestamp, iv.Duration())
		assert.GreaterOrEqual(t, iv.Duration(), trace.Time(0))
	}

	require.Len(t, data.Marks, 2)
	assert.Equal(t, "mark-start", data.Marks[0].Name)
}

// An end arriving before its begin in the array still forms a measure:
// pairing goes by timestamp, not arrival order.
func TestEndBeforeStartInArrayOrder(t *testing.T) {
	h := New()
	feed(h, []trace.Event{
		userTiming("alpha", trace.AsyncEnd, 2100, "0x1"),
		userTiming("alpha", trace.AsyncStart, 1100, "0x1"),
	})
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	require.Len(t, data.Measures, 1)
	assert.Equal(t, trace.TimeRange{Start: 1100, Finish: 2100}, data.Measures[0].TimeRange)
}

func TestShuffledPairsMatchByTimestamp(t *testing.T) {
	h := New()
	feed(h, []trace.Event{
		userTiming("gamma", trace.AsyncEnd, 2500, "0x3"),
		userTiming("alpha", trace.AsyncStart, 1100, "0x1"),
		userTiming("beta", trace.AsyncEnd, 3000, "0x2"),
		userTiming("gamma", trace.AsyncStart, 2000, "0x3"),
		userTiming("alpha", trace.AsyncEnd, 2100, "0x1"),
		userTiming("beta", trace.AsyncStart, 1500, "0x2"),
	})
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	require.Len(t, data.Measures, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, measureNames(data))
	assert.Equal(t, trace.Time(1000), data.Measures[0].Duration())
	assert.Equal(t, trace.Time(1500), data.Measures[1].Duration())
	assert.Equal(t, trace.Time(500), data.Measures[2].Duration())
}

func TestUnmatchedHalvesDropped(t *testing.T) {
	h := New()
	feed(h, []trace.Event{
		userTiming("open", trace.AsyncStart, 1000, "0x1"),
		userTiming("stray", trace.AsyncEnd, 2000, "0x9"),
	})
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	assert.Empty(t, data.Measures)
}

func TestNestedSameKeyPairsInnermostFirst(t *testing.T) {
	h := New()
	feed(h, []trace.Event{
		userTiming("load", trace.AsyncStart, 1000, "0x1"),
		userTiming("load", trace.AsyncStart, 1200, "0x1"),
		userTiming("load", trace.AsyncEnd, 1300, "0x1"),
		userTiming("load", trace.AsyncEnd, 2000, "0x1"),
	})
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	require.Len(t, data.Measures, 2)
	assert.Equal(t, trace.TimeRange{Start: 1000, Finish: 2000}, data.Measures[0].TimeRange)
	assert.Equal(t, trace.TimeRange{Start: 1200, Finish: 1300}, data.Measures[1].TimeRange)
}

func TestBrowserMilestoneMarksIgnored(t *testing.T) {
	h := New()
	feed(h, []trace.Event{
		userTiming("navigationStart", trace.Mark, 900, ""),
		userTiming("firstContentfulPaint", trace.Mark, 950, ""),
		userTiming("user-mark", trace.Mark, 1000, ""),
	})
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	require.Len(t, data.Marks, 1)
	assert.Equal(t, "user-mark", data.Marks[0].Name)
}

func TestEventsOutsideTraceBoundsDropped(t *testing.T) {
	h := New()
	feed(h, []trace.Event{
		userTiming("early", trace.Mark, 100, ""),
		userTiming("inside", trace.Mark, 1500, ""),
		userTiming("late", trace.AsyncStart, 9000, "0x1"),
		userTiming("late", trace.AsyncEnd, 9500, "0x1"),
	})
	deps := depsMap{meta.Name: meta.Data{Bounds: trace.TimeRange{Start: 1000, Finish: 2000}}}
	require.NoError(t, h.Finalize(deps))

	data := h.Data().(Data)
	require.Len(t, data.Marks, 1)
	assert.Equal(t, "inside", data.Marks[0].Name)
	assert.Empty(t, data.Measures)
}

func TestConsoleTimingsAndTimestamps(t *testing.T) {
	h := New()
	feed(h, []trace.Event{
		{Name: "fetch-data", Category: "blink.console", Phase: trace.AsyncStart, Timestamp: 1000, ID: "0x1"},
		{Name: "TimeStamp", Category: "devtools.timeline", Phase: trace.Instant, Timestamp: 1200},
		{Name: "fetch-data", Category: "blink.console", Phase: trace.AsyncEnd, Timestamp: 1700, ID: "0x1"},
	})
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	require.Len(t, data.ConsoleTimings, 1)
	assert.Equal(t, "fetch-data", data.ConsoleTimings[0].Name)
	assert.Equal(t, trace.Time(700), data.ConsoleTimings[0].Duration())
	require.Len(t, data.TimestampEvents, 1)
}

func TestResetClearsAccumulators(t *testing.T) {
	h := New()
	feed(h, fixture())
	require.NoError(t, h.Finalize(depsMap{}))
	require.Len(t, h.Data().(Data).Measures, 3)

	h.Reset()
	feed(h, []trace.Event{userTiming("solo", trace.Mark, 1000, "")})
	require.NoError(t, h.Finalize(depsMap{}))

	data := h.Data().(Data)
	assert.Empty(t, data.Measures)
	require.Len(t, data.Marks, 1)
	assert.Equal(t, "solo", data.Marks[0].Name)
}

func TestDataBeforeFinalize(t *testing.T) {
	h := New()
	feed(h, fixture())
	assert.Equal(t, Data{}, h.Data())
}
