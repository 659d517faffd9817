package tef

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loov.dev/tracemodel/trace"
)

const wrapperJSON = `{
	"traceEvents": [
		{"name": "measure", "cat": "blink.user_timing", "ph": "b", "ts": 1100.5, "pid": 7, "tid": 12, "id": "0xaf"},
		{"name": "measure", "cat": "blink.user_timing", "ph": "e", "ts": 2100,   "pid": 7, "tid": 12, "id": "0xaf"},
		{"name": "Layout",  "cat": "devtools.timeline", "ph": "X", "ts": 1200, "dur": 400, "pid": 7, "tid": 12, "id": 42}
	],
	"displayTimeUnit": "ms",
	"metadata": {
		"source": "DevTools",
		"networkThrottling": "Slow 3G",
		"cpuThrottling": 4
	}
}`

func TestDecodeWrapperObject(t *testing.T) {
	file, err := Decode(strings.NewReader(wrapperJSON))
	require.NoError(t, err)
	require.Len(t, file.TraceEvents, 3)
	assert.Equal(t, "ms", file.DisplayTimeUnit)
	require.NotNil(t, file.Metadata)
	assert.Equal(t, "DevTools", file.Metadata.Source)
}

func TestDecodeBareArray(t *testing.T) {
	file, err := Decode(strings.NewReader(
		`[{"name": "tick", "cat": "test", "ph": "i", "ts": 100, "pid": 1, "tid": 1}]`))
	require.NoError(t, err)
	require.Len(t, file.TraceEvents, 1)
	assert.Equal(t, "tick", file.TraceEvents[0].Name)
	assert.Nil(t, file.Metadata)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(strings.NewReader(`"not a trace"`))
	require.Error(t, err)
}

// A malformed wrapper surfaces the wrapper's own unmarshal error rather than
// a complaint about the array shape it never was.
func TestDecodeMalformedWrapperReportsField(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"traceEvents": 42}`))
	require.Error(t, err)
	assert.ErrorContains(t, err, "traceEvents")
}

func TestConvert(t *testing.T) {
	file, err := Decode(strings.NewReader(wrapperJSON))
	require.NoError(t, err)

	events, md := Convert(file)
	require.Len(t, events, 3)

	assert.Equal(t, trace.Event{
		ID:        "0xaf",
		Name:      "measure",
		Category:  "blink.user_timing",
		Phase:     trace.AsyncStart,
		Timestamp: 1100,
		ProcessID: 7,
		ThreadID:  12,
	}, events[0])

	// numeric ids are normalized to strings
	assert.Equal(t, "42", events[2].ID)
	assert.Equal(t, trace.Time(400), events[2].Duration)

	assert.Equal(t, "DevTools", md.Source)
	assert.Equal(t, "Slow 3G", md.NetworkThrottling)
	assert.Equal(t, 4.0, md.CPUThrottling)
}

func TestConvertWithoutMetadata(t *testing.T) {
	events, md := Convert(File{TraceEvents: []Event{{Name: "tick", Phase: "i"}}})
	require.Len(t, events, 1)
	assert.Zero(t, md)
}

func TestLoadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json.gz")

	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(wrapperJSON))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	file, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, file.TraceEvents, 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
