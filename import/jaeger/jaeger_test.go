package jaeger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loov.dev/tracemodel/trace"
)

func TestDecode(t *testing.T) {
	file, err := Decode(strings.NewReader(`{
		"data": [{
			"traceID": "abc",
			"spans": [{
				"traceID": "abc", "spanID": "01",
				"operationName": "GET /users",
				"startTime": 2000, "duration": 500,
				"processID": "p1"
			}],
			"processes": {"p1": {"serviceName": "api"}}
		}]
	}`))
	require.NoError(t, err)
	require.Len(t, file.Data, 1)
	require.Len(t, file.Data[0].Spans, 1)
	assert.Equal(t, "GET /users", file.Data[0].Spans[0].OperationName)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(strings.NewReader(`[1, 2, 3]`))
	require.Error(t, err)
}

func TestConvert(t *testing.T) {
	file := File{Data: []Trace{{
		TraceID: "abc",
		Spans: []Span{
			{
				TraceSpanID:   TraceSpanID{TraceID: "abc", SpanID: "02"},
				OperationName: "SELECT users",
				StartTime:     3000,
				Duration:      200,
				ProcessID:     "db",
			},
			{
				TraceSpanID:   TraceSpanID{TraceID: "abc", SpanID: "01"},
				OperationName: "GET /users",
				StartTime:     2000,
				Duration:      1500,
				ProcessID:     "p1",
			},
		},
		Processes: map[ProcessID]Process{
			"p1": {ServiceName: "api"},
			"db": {ServiceName: "postgres"},
		},
	}}}

	events := Convert(file)
	require.Len(t, events, 4)

	// sorted by timestamp: outer begin, inner begin, inner end, outer end
	assert.Equal(t, "api GET /users", events[0].Name)
	assert.Equal(t, trace.AsyncStart, events[0].Phase)
	assert.Equal(t, trace.Time(2000), events[0].Timestamp)
	assert.Equal(t, "abc:01", events[0].ID)

	assert.Equal(t, "postgres SELECT users", events[1].Name)
	assert.Equal(t, trace.Time(3000), events[1].Timestamp)
	assert.Equal(t, trace.AsyncEnd, events[2].Phase)
	assert.Equal(t, trace.Time(3200), events[2].Timestamp)
	assert.Equal(t, trace.Time(3500), events[3].Timestamp)

	for _, ev := range events {
		assert.Equal(t, Category, ev.Category)
	}
}
