package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/goliatone/go-formset/pkg/calendar"
	"github.com/goliatone/go-formset/pkg/config"
	"github.com/goliatone/go-formset/pkg/formset"
	"github.com/goliatone/go-formset/pkg/page"
	"github.com/goliatone/go-formset/pkg/prompt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, prompt.NewSurveyDriver(os.Stderr)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("formset-cli: %v", err)
	}
}

// orderedOps keeps add and delete flags in command-line order.
type orderedOps struct {
	raw []rawOp
}

type rawOp struct {
	kind  page.OpKind
	value string
}

type opFlag struct {
	kind page.OpKind
	ops  *orderedOps
}

func (f opFlag) String() string { return "" }

func (f opFlag) Set(v string) error {
	f.ops.raw = append(f.ops.raw, rawOp{kind: f.kind, value: v})
	return nil
}

type options struct {
	input       string
	prefix      string
	container   string
	configPath  string
	interactive bool
	controls    bool
	output      string
	jsonPath    string
	events      bool
	logLevel    string
	logFormat   string
	httpTimeout time.Duration
	ops         orderedOps
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("formset-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "input", "", "HTML page: file path, http(s) URL or - for stdin")
	fs.StringVar(&opts.prefix, "prefix", "", "formset prefix to edit (required when the page has several)")
	fs.StringVar(&opts.container, "container", "", "id of the formset element, for pages without class=\"formset\"")
	fs.StringVar(&opts.configPath, "config", "", "formset configuration file or directory (JSON/YAML)")
	fs.Var(opFlag{kind: page.OpAdd, ops: &opts.ops}, "add", "add a row with key=value,key=value (repeatable)")
	fs.Var(opFlag{kind: page.OpDelete, ops: &opts.ops}, "delete", "delete the row with this line id (repeatable)")
	fs.Var(opFlag{kind: page.OpDeletePosition, ops: &opts.ops}, "delete-position", "delete the row at this position (repeatable)")
	fs.BoolVar(&opts.interactive, "interactive", false, "prompt for rows to add and delete")
	fs.BoolVar(&opts.controls, "controls", false, "insert add/delete buttons into the page")
	fs.StringVar(&opts.output, "output", "", "write the patched page here (- for stdout)")
	fs.StringVar(&opts.jsonPath, "json", "", "write rows and outcomes as JSON here (- for stdout)")
	fs.BoolVar(&opts.events, "events", false, "print calendar events of the formset as JSON")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	fs.DurationVar(&opts.httpTimeout, "http-timeout", 30*time.Second, "timeout when -input is a URL")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if strings.TrimSpace(opts.input) == "" {
		return options{}, errors.New("-input is required")
	}
	if opts.output == "" && opts.jsonPath == "" && !opts.events {
		opts.output = "-"
	}
	return opts, nil
}

func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}

func loadConfig(path, container, prefix string) (*config.Store, error) {
	var (
		store *config.Store
		err   error
	)
	switch {
	case path == "":
		store, err = config.LoadFS(nil)
	default:
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("config: %w", statErr)
		}
		if info.IsDir() {
			store, err = config.LoadFS(os.DirFS(path))
		} else {
			store, err = config.LoadFile(path)
		}
	}
	if err != nil || container == "" {
		return store, err
	}
	if prefix == "" {
		return nil, errors.New("-container needs -prefix")
	}
	// -container describes one more formset on top of the file.
	return store.With(config.Formset{Name: "cli", Prefix: prefix, Container: container})
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, driver prompt.Driver) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(opts.logLevel, opts.logFormat, stderr)

	store, err := loadConfig(opts.configPath, opts.container, opts.prefix)
	if err != nil {
		return err
	}
	editor := page.New(
		page.WithConfig(store),
		page.WithLogger(logger),
		page.WithControls(opts.controls),
		page.WithLoader(page.NewLoader(page.WithHTTPFallback(opts.httpTimeout))),
	)

	p, err := openPage(ctx, editor, opts.input, stdin)
	if err != nil {
		return err
	}
	ops, err := buildOps(opts)
	if err != nil {
		return err
	}
	outcomes, err := p.Apply(ops)
	if err != nil {
		return err
	}

	if opts.interactive {
		reg, err := p.Registry(opts.prefix)
		if err != nil {
			return err
		}
		session := prompt.Session{
			Driver: driver,
			Fields: fieldsFor(p.Mapping(reg.Prefix())),
			Logger: logger,
		}
		if err := session.Run(ctx, reg); err != nil {
			return err
		}
	}

	if err := writeTo(opts.output, stdout, p.Render); err != nil {
		return err
	}
	if opts.jsonPath != "" {
		report := struct {
			Source   string                   `json:"source"`
			Outcomes []page.Outcome           `json:"outcomes"`
			Formsets map[string][]formset.Row `json:"formsets"`
		}{p.Location, outcomes, p.Rows()}
		if err := writeTo(opts.jsonPath, stdout, jsonWriter(report)); err != nil {
			return err
		}
	}
	if opts.events {
		events, err := p.Events(opts.prefix)
		if err != nil {
			return err
		}
		if err := jsonWriter(events)(stdout); err != nil {
			return err
		}
	}
	return nil
}

func openPage(ctx context.Context, editor *page.Editor, input string, stdin io.Reader) (*page.Page, error) {
	switch {
	case input == "-":
		return editor.Parse(stdin, "stdin")
	case strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"):
		src, err := page.SourceFromURL(input)
		if err != nil {
			return nil, err
		}
		return editor.Load(ctx, src)
	default:
		return editor.Load(ctx, page.SourceFromFile(input))
	}
}

func buildOps(opts options) ([]page.Operation, error) {
	ops := make([]page.Operation, 0, len(opts.ops.raw))
	for _, raw := range opts.ops.raw {
		switch raw.kind {
		case page.OpAdd:
			values, err := page.ParseValues(raw.value)
			if err != nil {
				return nil, fmt.Errorf("-add %q: %w", raw.value, err)
			}
			ops = append(ops, page.Add(opts.prefix, values))
		case page.OpDelete:
			ops = append(ops, page.Delete(opts.prefix, formset.RowID(strings.TrimSpace(raw.value))))
		case page.OpDeletePosition:
			pos, err := strconv.Atoi(strings.TrimSpace(raw.value))
			if err != nil || pos < 0 {
				return nil, fmt.Errorf("-delete-position %q: not a position", raw.value)
			}
			ops = append(ops, page.DeleteAt(opts.prefix, pos))
		}
	}
	return ops, nil
}

// fieldsFor validates date and duration answers against the calendar
// mapping.
func fieldsFor(m calendar.Mapping) prompt.Fields {
	validTime := func(v string) error {
		_, err := calendar.ParseTime(v, m.Location)
		return err
	}
	validDuration := func(v string) error {
		_, err := calendar.ParseDuration(v)
		return err
	}
	return prompt.Fields{
		Validators: map[string]func(string) error{
			m.Start:           validTime,
			m.End:             validTime,
			m.Duration:        validDuration,
			m.StudentDuration: validDuration,
		},
		Help: map[string]string{
			m.Start:    "RFC 3339 or YYYY-MM-DD HH:MM",
			m.Duration: "ISO-8601 duration, e.g. PT1H",
		},
	}
}

func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	if path == "-" {
		return write(stdout)
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func jsonWriter(v any) func(io.Writer) error {
	return func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
