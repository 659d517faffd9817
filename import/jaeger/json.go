// Package jaeger reads Jaeger's UI trace JSON and flattens the spans into
// async event pairs for the pipeline.
package jaeger

type File struct {
	Data []Trace `json:"data"`
}

type TraceID string
type SpanID string
type ProcessID string

type TraceSpanID struct {
	TraceID TraceID `json:"traceID"`
	SpanID  SpanID  `json:"spanID"`
}

// Duration in microseconds, same granularity as the trace clock.
type Duration int64

type Flags int32

const (
	SampledFlag = Flags(0b01)
	DebugFlag   = Flags(0b10)
)

type Trace struct {
	TraceID   TraceID               `json:"traceID"`
	Spans     []Span                `json:"spans"`
	Processes map[ProcessID]Process `json:"processes"`
}

type Span struct {
	TraceSpanID
	Flags         Flags     `json:"flags"`
	OperationName string    `json:"operationName"`
	References    []SpanRef `json:"references"`
	StartTime     Duration  `json:"startTime"`
	Duration      Duration  `json:"duration"`
	Tags          []Tag     `json:"tags"`
	Logs          []Log     `json:"logs"`
	ProcessID     ProcessID `json:"processID"`
	Warnings      []string  `json:"warnings,omitempty"`
}

type Log struct {
	Timestamp Duration
	Fields    []Tag
}

type SpanRef struct {
	RefType SpanRefType `json:"refType"`
	TraceSpanID
}

type SpanRefType string

const (
	ChildOf     = SpanRefType("CHILD_OF")
	FollowsFrom = SpanRefType("FOLLOWS_FROM")
)

type Process struct {
	ServiceName string `json:"serviceName"`
	Tags        []Tag  `json:"tags"`
}

type Tag struct {
	Type  TagType     `json:"type"`
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

type TagType string

const (
	StringTag = TagType("string")
)
