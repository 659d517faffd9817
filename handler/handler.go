// Package handler defines the analyzer contract of the trace pipeline: a
// handler consumes events one at a time, accumulates private state, and on
// finalize freezes one structured result that other handlers may depend on.
package handler

import (
	"loov.dev/tracemodel/trace"
)

type Handler interface {
	// Reset clears all accumulator state. It is called before every parse
	// pass, including the first one.
	Reset()

	// Handle consumes one event in array order. Events the handler does
	// not understand are ignored.
	Handle(ev *trace.Event)

	// Finalize freezes accumulated state into the handler's result. It
	// runs after every event has been handled, in dependency order, so
	// deps resolves only handlers that finalized before this one.
	Finalize(deps Deps) error

	// Data returns the frozen result. Before Finalize it returns the
	// result type's zero value.
	Data() any
}

// Deps gives a finalizing handler access to the results of the handlers it
// declared a dependency on.
type Deps interface {
	Data(name string) (any, bool)
}
