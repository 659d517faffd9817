// Package meta extracts recording-wide facts out of the event stream: the
// time window the trace covers, process and thread names, and the URL of the
// main frame when the trace carries one.
package meta

import (
	"loov.dev/tracemodel/handler"
	"loov.dev/tracemodel/trace"
)

// Name is the handler's registry name.
const Name = "meta"

type ThreadID struct {
	Process int64
	Thread  int64
}

type Data struct {
	// Bounds is the window covered by non-metadata events. Check Valid
	// before using it: a trace of only metadata events has no bounds.
	Bounds       trace.TimeRange
	ProcessNames map[int64]string
	ThreadNames  map[ThreadID]string
	MainFrameURL string
}

type Handler struct {
	data      Data
	finalized bool
}

func New() *Handler {
	h := &Handler{}
	h.Reset()
	return h
}

func (h *Handler) Reset() {
	h.data = Data{
		Bounds:       trace.InvalidRange,
		ProcessNames: map[int64]string{},
		ThreadNames:  map[ThreadID]string{},
	}
	h.finalized = false
}

func (h *Handler) Handle(ev *trace.Event) {
	if ev.Phase.IsMetadata() {
		name, ok := ev.Args["name"].(string)
		if !ok {
			return
		}
		switch ev.Name {
		case "process_name":
			h.data.ProcessNames[ev.ProcessID] = name
		case "thread_name":
			h.data.ThreadNames[ThreadID{Process: ev.ProcessID, Thread: ev.ThreadID}] = name
		}
		return
	}

	h.data.Bounds = h.data.Bounds.Expand(ev.Range())

	if ev.Name == "TracingStartedInBrowser" {
		h.captureMainFrame(ev)
	}
}

// captureMainFrame digs the main frame URL out of the frame tree snapshot.
// Frames with a parent are subframes and are skipped.
func (h *Handler) captureMainFrame(ev *trace.Event) {
	data, ok := ev.Args["data"].(map[string]any)
	if !ok {
		return
	}
	frames, ok := data["frames"].([]any)
	if !ok {
		return
	}
	for _, raw := range frames {
		frame, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if _, nested := frame["parent"]; nested {
			continue
		}
		if url, ok := frame["url"].(string); ok && url != "" {
			h.data.MainFrameURL = url
			return
		}
	}
}

func (h *Handler) Finalize(_ handler.Deps) error {
	h.finalized = true
	return nil
}

func (h *Handler) Data() any {
	if !h.finalized {
		return Data{}
	}
	return h.data
}
