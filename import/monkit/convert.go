package monkit

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/zeebo/errs/v2"

	"loov.dev/tracemodel/trace"
)

// Category tags every converted event.
const Category = "monkit"

// Decode reads a monkit span dump.
func Decode(r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, errs.Wrap(err)
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return File{}, errs.Errorf("not a monkit span dump: %w", err)
	}
	return file, nil
}

// Convert flattens every span into an async begin/end pair. Monkit records
// nanoseconds; timestamps are rebased to the trace clock's microseconds.
func Convert(file File) []trace.Event {
	var events []trace.Event
	for i := range file {
		span := &file[i]

		name := span.Func.Package + " " + span.Func.Name
		id := strconv.FormatInt(int64(span.Trace.ID), 10) + ":" +
			strconv.FormatInt(int64(span.ID), 10)

		var endArgs map[string]any
		if span.Err != "" || span.Panicked {
			endArgs = map[string]any{}
			if span.Err != "" {
				endArgs["err"] = span.Err
			}
			if span.Panicked {
				endArgs["panicked"] = true
			}
		}

		events = append(events,
			trace.Event{
				ID:        id,
				Name:      name,
				Category:  Category,
				Phase:     trace.AsyncStart,
				Timestamp: span.Start.Time(),
			},
			trace.Event{
				ID:        id,
				Name:      name,
				Category:  Category,
				Phase:     trace.AsyncEnd,
				Timestamp: span.Finish.Time(),
				Args:      endArgs,
			})
	}
	trace.SortByTimestamp(events)
	return events
}
