// Package processor runs a registered set of handlers over one recording's
// event array as a single coherent pipeline.
package processor

import (
	"github.com/zeebo/errs/v2"

	"loov.dev/tracemodel/handler"
	"loov.dev/tracemodel/handler/meta"
	"loov.dev/tracemodel/handler/spans"
	"loov.dev/tracemodel/handler/timings"
	"loov.dev/tracemodel/trace"
)

type Status int

const (
	Idle Status = iota
	Parsing
	Finished
	Errored
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Parsing:
		return "parsing"
	case Finished:
		return "finished"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// ErrNotIdle is returned by Parse when the processor still holds the previous
// recording's state. Handler accumulators are shared across calls, so parsing
// again without Reset would merge two unrelated recordings.
var ErrNotIdle = errs.Tag("processor not idle")

// progressInterval throttles progress delivery so listeners are not flooded
// on very large event arrays.
const progressInterval = 10_000

type Processor struct {
	registry *Registry
	order    []string
	handlers []handler.Handler
	status   Status
	data     map[string]any
}

type Registry = handler.Registry

// New freezes the registry's dependency order and returns a processor over
// it. Cycles and unknown dependencies fail here, before any event is
// processed.
func New(registry *Registry) (*Processor, error) {
	order, err := registry.Order()
	if err != nil {
		return nil, err
	}
	handlers := make([]handler.Handler, len(order))
	for i, name := range order {
		handlers[i], _ = registry.Handler(name)
	}
	p := &Processor{registry: registry, order: order, handlers: handlers}
	p.Reset()
	return p, nil
}

// NewDefault wires the built-in handler set.
func NewDefault() (*Processor, error) {
	reg := handler.NewRegistry()
	if err := reg.Register(meta.Name, meta.New()); err != nil {
		return nil, err
	}
	if err := reg.Register(spans.Name, spans.New()); err != nil {
		return nil, err
	}
	if err := reg.Register(timings.Name, timings.New(), meta.Name); err != nil {
		return nil, err
	}
	return New(reg)
}

func (p *Processor) Status() Status { return p.status }

// Order returns the frozen finalization order.
func (p *Processor) Order() []string {
	order := make([]string, len(p.order))
	copy(order, p.order)
	return order
}

// Reset clears every handler's accumulator state and re-arms the processor
// for the next recording.
func (p *Processor) Reset() {
	for _, h := range p.handlers {
		h.Reset()
	}
	p.data = nil
	p.status = Idle
}

// Parse feeds every event to every handler in array order, then finalizes in
// dependency order and aggregates the results. progress, when non-nil, is
// called at a throttled cadence with (done, total) plus a terminal
// (total, total) tick. Any finalize error aborts the whole parse; partial
// results are never exposed.
func (p *Processor) Parse(events []trace.Event, progress func(done, total int)) error {
	if p.status != Idle {
		return ErrNotIdle.Errorf("parse while %v; call Reset between recordings", p.status)
	}
	p.status = Parsing

	total := len(events)
	for i := range events {
		if progress != nil && i%progressInterval == 0 {
			progress(i, total)
		}
		ev := &events[i]
		for _, h := range p.handlers {
			h.Handle(ev)
		}
	}
	if progress != nil {
		progress(total, total)
	}

	data := make(map[string]any, len(p.order))
	deps := depView{data: data}
	for i, name := range p.order {
		if err := p.handlers[i].Finalize(&deps); err != nil {
			p.status = Errored
			return errs.Errorf("finalize %q: %w", name, err)
		}
		data[name] = p.handlers[i].Data()
	}
	p.data = data
	p.status = Finished
	return nil
}

// Data returns the aggregated handler results. It is only populated after a
// successful Parse.
func (p *Processor) Data() (map[string]any, bool) {
	if p.status != Finished {
		return nil, false
	}
	return p.data, true
}

// depView resolves only handlers that already finalized, which makes the
// declared ordering observable at runtime: reading a dependency that has not
// finalized yet reports a miss instead of half-built state.
type depView struct {
	data map[string]any
}

func (d *depView) Data(name string) (any, bool) {
	v, ok := d.data[name]
	return v, ok
}
