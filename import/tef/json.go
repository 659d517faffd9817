package tef

// This package implements
// https://docs.google.com/document/d/1CvAClvFfyA5R-PhYUmn5OOQtYMH4h6I0nSsKchNAySU/preview?tab=t.0#heading=h.yr4qxyxotyw

/*
{
  "traceEvents": [
    {"name": "Asub", "cat": "PERF", "ph": "B", "pid": 22630, "tid": 22630, "ts": 829},
    {"name": "Asub", "cat": "PERF", "ph": "E", "pid": 22630, "tid": 22630, "ts": 833}
  ],
  "displayTimeUnit": "ns",
  "metadata": {
    "source": "DevTools",
    "networkThrottling": "Slow 3G",
    "cpuThrottling": 4
  },
  "otherData": {
    "version": "My Application v1.0"
  },
  "stackFrames": {...}
  "samples": [...],
}
*/

type File struct {
	TraceEvents []Event `json:"traceEvents"`
	// If provided displayTimeUnit is a string that specifies in which unit timestamps should be displayed.
	// This supports values of “ms” or “ns”. By default this is value is “ms”.
	DisplayTimeUnit string `json:"displayTimeUnit,omitempty"`
	// Metadata is the header DevTools writes into saved recordings.
	Metadata *Metadata `json:"metadata,omitempty"`
	// If provided, the stackFrames field is a dictionary of stack frames, their ids,
	// and their parents that allows compact representation of stack traces throughout
	// the rest of the trace file. It is optional but sometimes very useful in shrinking file sizes.
	StackFrames map[string]StackFrame `json:"stackFrames,omitempty"`
	// The samples array is used to store sampling profiler data from a OS level profiler.
	Samples []Sample `json:"samples,omitempty"`
	// Any other properties seen in the object are assumed to be metadata for the trace.
	OtherData map[string]any `json:"otherData,omitempty"`
}

// Metadata mirrors the saved-recording header. Unknown fields are dropped.
type Metadata struct {
	Source            string  `json:"source,omitempty"`
	StartTime         string  `json:"startTime,omitempty"`
	DataOrigin        string  `json:"dataOrigin,omitempty"`
	NetworkThrottling string  `json:"networkThrottling,omitempty"`
	CPUThrottling     float64 `json:"cpuThrottling,omitempty"`
}

/*
{
  "name": "myName",
  "cat": "category,list",
  "ph": "B",
  "ts": 12345,
  "pid": 123,
  "tid": 456,
  "args": {
    "someArg": 1,
    "anotherArg": {
      "value": "my value"
    }
  }
}
*/

type Event struct {
	// ID is a unique identifier for async events. Writers disagree on the
	// type: Chrome emits hex strings, other tools emit numbers.
	ID any `json:"id,omitempty"`
	// The name of the event, as displayed in Trace Viewer
	Name string `json:"name"`
	// The event categories. This is a comma separated list of categories for the event.
	Category string `json:"cat"`
	// The event type. This is a single character which changes depending on the type of
	// event being output.
	Phase string `json:"ph"`
	// The tracing clock timestamp of the event. The timestamps are provided at microsecond
	// granularity; some writers emit fractional values.
	Timestamp float64 `json:"ts"`
	// Optional. The thread clock timestamp of the event.
	ThreadTimestamp float64 `json:"tts,omitempty"`
	// The process ID for the process that output this event.
	ProcessID int64 `json:"pid"`
	// The thread ID for the thread that output this event.
	ThreadID int64 `json:"tid"`
	// Scope of an instant event.
	Scope string `json:"s,omitempty"`

	// Any arguments provided for the event. Some of the event types have required argument
	// fields, otherwise anything goes.
	Args map[string]any `json:"args,omitempty"`

	// Duration specifies the duration for Complete events.
	Duration float64 `json:"dur,omitempty"`
}

type StackFrame struct {
	Parent   string `json:"parent"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

/*
 {
   'cpu': 0, 'tid': 1, 'ts': 1000.0,
   'name': 'cycles:HG', 'sf': 3, 'weight': 1
 }
*/

type Sample struct {
	CPU        int64  `json:"cpu"`
	ThreadID   int64  `json:"tid"`
	Timestamp  int64  `json:"ts"`
	Name       string `json:"name"`
	StackFrame string `json:"sf"`
	Weight     int64  `json:"weight"`
}
