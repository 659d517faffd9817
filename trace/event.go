package trace

import (
	"net/url"
	"strings"
)

// Event is one timestamped record of runtime activity. Events are not
// mutated after ingestion; handlers derive their own structures instead.
type Event struct {
	// ID is a pairing key for async events.
	ID string `json:"id,omitempty"`
	// The name of the event.
	Name string `json:"name"`
	// The event categories, as a comma separated list.
	Category string `json:"cat"`
	// The event type, a single character tag.
	Phase Phase `json:"ph"`
	// The tracing clock timestamp of the event, in microseconds.
	Timestamp Time `json:"ts"`
	// Duration, for complete events.
	Duration Time `json:"dur,omitempty"`
	// The process that output this event.
	ProcessID int64 `json:"pid"`
	// The thread that output this event.
	ThreadID int64 `json:"tid"`
	// Scope of an instant event: g, p or t.
	Scope string `json:"s,omitempty"`
	// Free-form arguments attached by the writer.
	Args map[string]any `json:"args,omitempty"`
}

// HasCategory reports whether cat appears in the event's category list.
func (ev *Event) HasCategory(cat string) bool {
	if ev.Category == cat {
		return true
	}
	for _, c := range strings.Split(ev.Category, ",") {
		if c == cat {
			return true
		}
	}
	return false
}

// Range converts the event into the interval it covers. Events without a
// duration cover a single instant.
func (ev *Event) Range() TimeRange {
	return TimeRange{Start: ev.Timestamp, Finish: ev.Timestamp + ev.Duration}
}

type Phase string

const (
	DurationBegin Phase = "B"
	DurationEnd   Phase = "E"
	Complete      Phase = "X"
	Instant       Phase = "i"
	LegacyInstant Phase = "I"
	Counter       Phase = "C"

	AsyncStart   Phase = "b"
	AsyncInstant Phase = "n"
	AsyncEnd     Phase = "e"

	DeprecatedAsyncStart    Phase = "S"
	DeprecatedAsyncStepInto Phase = "T"
	DeprecatedAsyncPast     Phase = "p"
	DeprecatedAsyncEnd      Phase = "F"

	FlowStart Phase = "s"
	FlowStep  Phase = "t"
	FlowEnd   Phase = "f"

	ObjectCreated   Phase = "N"
	ObjectSnapshot  Phase = "O"
	ObjectDestroyed Phase = "D"

	Metadata Phase = "M"

	MemoryDumpGlobal  Phase = "V"
	MemoryDumpProcess Phase = "v"

	Mark Phase = "R"

	ClockSync    Phase = "c"
	ContextEnter Phase = "("
	ContextLeave Phase = ")"
)

func (p Phase) IsAsyncStart() bool {
	return p == AsyncStart || p == DeprecatedAsyncStart
}

func (p Phase) IsAsyncEnd() bool {
	return p == AsyncEnd || p == DeprecatedAsyncEnd
}

func (p Phase) IsInstant() bool {
	return p == Instant || p == LegacyInstant
}

func (p Phase) IsMark() bool { return p == Mark }

func (p Phase) IsMetadata() bool { return p == Metadata }

// Origin derives the scheme://host origin of a URL. Opaque and invalid URLs
// have no origin.
func Origin(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}
