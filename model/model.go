// Package model owns the list of parsed recordings and bridges the
// processor's progress to external listeners.
package model

import (
	"fmt"

	"github.com/zeebo/errs/v2"

	"loov.dev/tracemodel/handler/meta"
	"loov.dev/tracemodel/processor"
	"loov.dev/tracemodel/trace"
)

// Metadata is the caller-supplied free-form description of a recording.
type Metadata struct {
	Source            string  `json:"source,omitempty" yaml:"source,omitempty"`
	NetworkThrottling string  `json:"networkThrottling,omitempty" yaml:"network_throttling,omitempty"`
	CPUThrottling     float64 `json:"cpuThrottling,omitempty" yaml:"cpu_throttling,omitempty"`
}

// ParsedTrace is one complete recording: the original immutable event
// sequence, its metadata and the aggregated handler results. It enters the
// model only after the whole pipeline succeeded.
type ParsedTrace struct {
	Events   []trace.Event
	Metadata Metadata
	// Fresh marks a recording captured in this session rather than loaded
	// from a file.
	Fresh bool
	Data  map[string]any
}

type UpdateKind int

const (
	// UpdateProgress reports scan progress as (Done, Total).
	UpdateProgress UpdateKind = iota
	// UpdateComplete reports a recording appended at Index.
	UpdateComplete
	// UpdateDone terminates every Parse call, carrying its error if any.
	UpdateDone
)

type Update struct {
	Kind  UpdateKind
	Done  int
	Total int
	Index int
	Err   error
}

type Model struct {
	processor *processor.Processor
	traces    []*ParsedTrace
	names     []string
	originSeq map[string]int
	observers []func(Update)
}

func New() (*Model, error) {
	proc, err := processor.NewDefault()
	if err != nil {
		return nil, err
	}
	return NewWithProcessor(proc), nil
}

func NewWithProcessor(proc *processor.Processor) *Model {
	return &Model{processor: proc, originSeq: map[string]int{}}
}

// Observe registers a listener for lifecycle updates. Listeners are invoked
// synchronously, in registration order.
func (m *Model) Observe(fn func(Update)) {
	m.observers = append(m.observers, fn)
}

func (m *Model) notify(u Update) {
	for _, fn := range m.observers {
		fn(u)
	}
}

// Parse runs the full pipeline over events and, on success, appends the
// recording and its display name. A failing parse leaves the recordings list
// untouched. The terminal Done update is emitted whether the parse succeeded
// or not, so listeners waiting on it are never left hanging.
func (m *Model) Parse(events []trace.Event, md Metadata, fresh bool) (err error) {
	defer func() {
		m.notify(Update{Kind: UpdateDone, Err: err})
	}()

	// The model owns the processor, so reuse is safe to arrange here.
	if m.processor.Status() != processor.Idle {
		m.processor.Reset()
	}

	err = m.processor.Parse(events, func(done, total int) {
		m.notify(Update{Kind: UpdateProgress, Done: done, Total: total})
	})
	if err != nil {
		return err
	}

	data, ok := m.processor.Data()
	if !ok {
		return errs.Errorf("processor finished without data")
	}

	parsed := &ParsedTrace{Events: events, Metadata: md, Fresh: fresh, Data: data}
	m.traces = append(m.traces, parsed)
	m.names = append(m.names, m.displayName(parsed))
	m.notify(Update{Kind: UpdateComplete, Index: len(m.traces) - 1})
	return nil
}

// displayName derives a human readable name for the newly appended
// recording: the main frame origin with a per-origin sequence number, or a
// positional fallback. Names are cosmetic, never identity.
func (m *Model) displayName(parsed *ParsedTrace) string {
	if md, ok := parsed.Data[meta.Name].(meta.Data); ok && md.MainFrameURL != "" {
		if origin, ok := trace.Origin(md.MainFrameURL); ok {
			m.originSeq[origin]++
			return fmt.Sprintf("%s (%d)", origin, m.originSeq[origin])
		}
	}
	return fmt.Sprintf("Trace %d", len(m.traces))
}

// Size returns the number of parsed recordings.
func (m *Model) Size() int { return len(m.traces) }

func (m *Model) valid(index int) bool {
	return 0 <= index && index < len(m.traces)
}

func (m *Model) ParsedTrace(index int) (*ParsedTrace, bool) {
	if !m.valid(index) {
		return nil, false
	}
	return m.traces[index], true
}

// LastParsedTrace returns the most recent recording.
func (m *Model) LastParsedTrace() (*ParsedTrace, bool) {
	return m.ParsedTrace(len(m.traces) - 1)
}

func (m *Model) Metadata(index int) (Metadata, bool) {
	if !m.valid(index) {
		return Metadata{}, false
	}
	return m.traces[index].Metadata, true
}

func (m *Model) TraceEvents(index int) ([]trace.Event, bool) {
	if !m.valid(index) {
		return nil, false
	}
	return m.traces[index].Events, true
}

func (m *Model) Name(index int) (string, bool) {
	if !m.valid(index) {
		return "", false
	}
	return m.names[index], true
}

// DeleteTraceByIndex removes the recording and its cached display name,
// shifting later indices down by one.
func (m *Model) DeleteTraceByIndex(index int) bool {
	if !m.valid(index) {
		return false
	}
	m.traces = append(m.traces[:index], m.traces[index+1:]...)
	m.names = append(m.names[:index], m.names[index+1:]...)
	return true
}

// Reset clears the processor's handler state. Stored recordings are
// independent of the processor lifecycle and stay put.
func (m *Model) Reset() {
	m.processor.Reset()
}
