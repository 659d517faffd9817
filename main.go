package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeebo/clingy"
	"github.com/zeebo/errs/v2"
	"gopkg.in/yaml.v3"

	"loov.dev/tracemodel/handler/meta"
	"loov.dev/tracemodel/handler/spans"
	"loov.dev/tracemodel/handler/timings"
	"loov.dev/tracemodel/import/jaeger"
	"loov.dev/tracemodel/import/monkit"
	"loov.dev/tracemodel/import/tef"
	"loov.dev/tracemodel/model"
	"loov.dev/tracemodel/trace"
)

func main() {
	env := clingy.Environment{
		Name: "tracemodel",
		Args: os.Args[1:],
	}
	ok, err := env.Run(context.Background(), func(cmds clingy.Commands) {
		cmds.New("parse", "parse trace files and print a summary", new(cmdParse))
		cmds.New("serve", "serve recordings and live parse progress", new(cmdServe))
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if !ok || err != nil {
		os.Exit(1)
	}
}

type cmdParse struct {
	format   string
	metadata string
	verbose  bool
	files    []string
}

func (cmd *cmdParse) Setup(params clingy.Parameters) {
	cmd.format = params.Flag("format", "input format: tef, jaeger or monkit (default: by extension)", "").(string)
	cmd.metadata = params.Flag("metadata", "yaml file with recording metadata", "").(string)
	cmd.verbose = params.Flag("verbose", "log parse progress", false,
		clingy.Short('v'), clingy.Transform(strconv.ParseBool), clingy.Boolean).(bool)
	cmd.files = params.Arg("file", "trace files to parse", clingy.Repeated).([]string)
}

func (cmd *cmdParse) Execute(ctx clingy.Context) error {
	stdout := ctx.Stdout()

	var sidecar *model.Metadata
	if cmd.metadata != "" {
		md, err := loadMetadata(cmd.metadata)
		if err != nil {
			return err
		}
		sidecar = &md
	}

	m, err := model.New()
	if err != nil {
		return err
	}
	if cmd.verbose {
		m.Observe(func(u model.Update) {
			if u.Kind == model.UpdateProgress {
				log.Printf("scanned %d/%d events", u.Done, u.Total)
			}
		})
	}

	for _, path := range cmd.files {
		events, md, err := loadEvents(path, cmd.format)
		if err != nil {
			return errs.Errorf("load %q: %w", path, err)
		}
		if sidecar != nil {
			md = *sidecar
		}
		if err := m.Parse(events, md, false); err != nil {
			return errs.Errorf("parse %q: %w", path, err)
		}

		index := m.Size() - 1
		name, _ := m.Name(index)
		parsed, _ := m.ParsedTrace(index)
		printSummary(stdout, path, name, parsed)
	}
	return nil
}

func loadMetadata(path string) (model.Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return model.Metadata{}, errs.Wrap(err)
	}
	var md model.Metadata
	if err := yaml.Unmarshal(content, &md); err != nil {
		return model.Metadata{}, errs.Errorf("parse metadata %q: %w", path, err)
	}
	return md, nil
}

func loadEvents(path, format string) ([]trace.Event, model.Metadata, error) {
	if format == "" {
		switch filepath.Ext(strings.TrimSuffix(path, ".gz")) {
		case ".jaeger":
			format = "jaeger"
		case ".monkit":
			format = "monkit"
		default:
			format = "tef"
		}
	}

	switch format {
	case "tef":
		file, err := tef.Load(path)
		if err != nil {
			return nil, model.Metadata{}, err
		}
		events, md := tef.Convert(file)
		return events, md, nil
	case "jaeger":
		file, err := decodeFile(path, jaeger.Decode)
		if err != nil {
			return nil, model.Metadata{}, err
		}
		return jaeger.Convert(file), model.Metadata{}, nil
	case "monkit":
		file, err := decodeFile(path, monkit.Decode)
		if err != nil {
			return nil, model.Metadata{}, err
		}
		return monkit.Convert(file), model.Metadata{}, nil
	default:
		return nil, model.Metadata{}, errs.Errorf("unknown format %q", format)
	}
}

func decodeFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, errs.Wrap(err)
	}
	defer f.Close()
	return decode(f)
}

func printSummary(w io.Writer, path, name string, parsed *model.ParsedTrace) {
	fmt.Fprintf(w, "%s: %s, %d events\n", path, name, len(parsed.Events))

	if md, ok := parsed.Data[meta.Name].(meta.Data); ok && md.Bounds.Valid() {
		fmt.Fprintf(w, "  window   %v .. %v (%v)\n",
			md.Bounds.Start, md.Bounds.Finish, md.Bounds.Duration().Std())
	}
	if td, ok := parsed.Data[timings.Name].(timings.Data); ok {
		if len(td.Measures) > 0 || len(td.Marks) > 0 {
			fmt.Fprintf(w, "  timings  %d measures, %d marks\n", len(td.Measures), len(td.Marks))
		}
		for _, iv := range td.Measures {
			fmt.Fprintf(w, "    %-32s %v\n", iv.Name, iv.Duration().Std())
		}
	}
	if sd, ok := parsed.Data[spans.Name].(spans.Data); ok && len(sd.Spans) > 0 {
		fmt.Fprintf(w, "  spans    %d paired\n", len(sd.Spans))
	}
}
