package trace

import "time"

// Time in microseconds, the granularity of the trace clock
type Time int64

func NewTime(t time.Duration) Time { return Time(t.Microseconds()) }

func (t Time) Std() time.Duration {
	return time.Duration(int64(t) * int64(time.Microsecond))
}

func (t Time) Min(b Time) Time {
	if t < b {
		return t
	}
	return b
}

func (t Time) Max(b Time) Time {
	if t > b {
		return t
	}
	return b
}
