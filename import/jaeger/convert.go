package jaeger

import (
	"encoding/json"
	"io"

	"github.com/zeebo/errs/v2"

	"loov.dev/tracemodel/trace"
)

// Category tags every converted event so the spans handler can tell imported
// intervals apart from native ones.
const Category = "jaeger"

// Decode reads a Jaeger UI export.
func Decode(r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, errs.Wrap(err)
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return File{}, errs.Errorf("not a jaeger trace file: %w", err)
	}
	return file, nil
}

// Convert flattens every span into an async begin/end pair so jaeger data
// runs through the same pipeline as native trace events. Jaeger timestamps
// are already microseconds.
func Convert(file File) []trace.Event {
	var events []trace.Event
	for i := range file.Data {
		tr := &file.Data[i]
		for k := range tr.Spans {
			span := &tr.Spans[k]

			name := span.OperationName
			if proc, ok := tr.Processes[span.ProcessID]; ok && proc.ServiceName != "" {
				name = proc.ServiceName + " " + name
			}

			// Span ids repeat across traces, qualify with the trace id.
			id := string(span.TraceID) + ":" + string(span.SpanID)
			start := trace.Time(span.StartTime)
			finish := start + trace.Time(span.Duration)

			events = append(events,
				trace.Event{
					ID:        id,
					Name:      name,
					Category:  Category,
					Phase:     trace.AsyncStart,
					Timestamp: start,
				},
				trace.Event{
					ID:        id,
					Name:      name,
					Category:  Category,
					Phase:     trace.AsyncEnd,
					Timestamp: finish,
				})
		}
	}
	trace.SortByTimestamp(events)
	return events
}
