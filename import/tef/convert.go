package tef

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/zeebo/errs/v2"

	"loov.dev/tracemodel/model"
	"loov.dev/tracemodel/trace"
)

// Load reads a trace file from disk, transparently decompressing .gz files.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, errs.Wrap(err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return File{}, errs.Wrap(err)
		}
		defer gz.Close()
		r = gz
	}
	return Decode(r)
}

// Decode accepts both container shapes found in the wild: the wrapper object
// with a traceEvents field and the bare event array. The first non-space byte
// decides the shape, so a malformed wrapper reports its own unmarshal error
// instead of the array fallback's.
func Decode(r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, errs.Wrap(err)
	}

	switch firstByte(data) {
	case '{':
		var file File
		if err := json.Unmarshal(data, &file); err != nil {
			return File{}, errs.Errorf("not a trace event file: %w", err)
		}
		return file, nil
	case '[':
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			return File{}, errs.Errorf("not a trace event file: %w", err)
		}
		return File{TraceEvents: events}, nil
	default:
		return File{}, errs.Errorf("not a trace event file: expected object or array")
	}
}

func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}

// Convert normalizes raw trace events and the saved metadata header into the
// model schema.
func Convert(file File) ([]trace.Event, model.Metadata) {
	events := make([]trace.Event, 0, len(file.TraceEvents))
	for _, raw := range file.TraceEvents {
		events = append(events, trace.Event{
			ID:        formatID(raw.ID),
			Name:      raw.Name,
			Category:  raw.Category,
			Phase:     trace.Phase(raw.Phase),
			Timestamp: trace.Time(raw.Timestamp),
			Duration:  trace.Time(raw.Duration),
			ProcessID: raw.ProcessID,
			ThreadID:  raw.ThreadID,
			Scope:     raw.Scope,
			Args:      raw.Args,
		})
	}

	var md model.Metadata
	if file.Metadata != nil {
		md = model.Metadata{
			Source:            file.Metadata.Source,
			NetworkThrottling: file.Metadata.NetworkThrottling,
			CPUThrottling:     file.Metadata.CPUThrottling,
		}
	}
	return events, md
}

func formatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
