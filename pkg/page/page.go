package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/net/html"

	"github.com/goliatone/go-formset/pkg/calendar"
	"github.com/goliatone/go-formset/pkg/config"
	"github.com/goliatone/go-formset/pkg/formset"
)

// Option customises an Editor.
type Option func(*Editor)

// WithLoader injects the loader used by Load.
func WithLoader(loader *Loader) Option {
	return func(e *Editor) {
		e.loader = loader
	}
}

// WithConfig supplies formset definitions. Configured formsets take
// precedence over discovered ones with the same prefix.
func WithConfig(store *config.Store) Option {
	return func(e *Editor) {
		e.store = store
	}
}

// WithLogger routes editor and registry logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFormsetOptions appends registry options applied to every formset.
func WithFormsetOptions(opts ...formset.Option) Option {
	return func(e *Editor) {
		e.formsetOpts = append(e.formsetOpts, opts...)
	}
}

// WithControls installs add/delete buttons on every registry.
func WithControls(enabled bool) Option {
	return func(e *Editor) {
		e.controls = enabled
	}
}

// Editor builds Pages. The zero configuration discovers formsets by class
// and reads files only.
type Editor struct {
	loader      *Loader
	store       *config.Store
	logger      *slog.Logger
	formsetOpts []formset.Option
	controls    bool
}

// New constructs an Editor.
func New(options ...Option) *Editor {
	e := &Editor{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(e)
	}
	if e.loader == nil {
		e.loader = NewLoader()
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// Load reads and parses the page behind src.
func (e *Editor) Load(ctx context.Context, src Source) (*Page, error) {
	data, err := e.loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("page: load %s: %w", src.Location(), err)
	}
	return e.Parse(bytes.NewReader(data), src.Location())
}

// Parse reads a page from r. location only labels errors and logs.
func (e *Editor) Parse(r io.Reader, location string) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse %s: %w", location, err)
	}
	return e.FromDocument(doc, location)
}

// FromDocument builds the registries of an already parsed page.
func (e *Editor) FromDocument(doc *html.Node, location string) (*Page, error) {
	p := &Page{
		Location:   location,
		Document:   doc,
		registries: make(map[string]*formset.Registry),
		mappings:   make(map[string]calendar.Mapping),
		logger:     e.logger.With("page", location),
	}
	base := append([]formset.Option{formset.WithLogger(e.logger)}, e.formsetOpts...)
	discovered := make(map[string]*formset.Registry)

	for _, name := range e.store.Names() {
		cfg, _ := e.store.Formset(name)
		if !present(doc, cfg) {
			// Configuration may cover several pages.
			p.logger.Debug("configured formset absent", "formset", name, "prefix", cfg.Prefix)
			continue
		}
		if _, dup := p.registries[cfg.Prefix]; dup {
			return nil, fmt.Errorf("page: %s: %w: prefix %q configured twice", location, formset.ErrInvalidConfig, cfg.Prefix)
		}
		reg, err := cfg.Build(doc, e.logger, e.formsetOpts...)
		if err != nil {
			return nil, fmt.Errorf("page: %s: formset %s: %w", location, name, err)
		}
		mapping, err := cfg.Mapping()
		if err != nil {
			return nil, err
		}
		p.registries[cfg.Prefix] = reg
		p.mappings[cfg.Prefix] = mapping
	}

	for _, el := range formset.FindFormsets(doc) {
		prefix, ok := formset.GuessPrefix(el)
		if !ok {
			return nil, fmt.Errorf("page: %s: %w: cannot infer prefix of <%s> formset", location, formset.ErrMissingManagementForm, el.Data)
		}
		if _, configured := p.registries[prefix]; configured {
			continue
		}
		if _, dup := discovered[prefix]; dup {
			return nil, fmt.Errorf("page: %s: %w: duplicate formset prefix %q", location, formset.ErrInvalidConfig, prefix)
		}
		reg, err := formset.NewFromDocument(doc, el, prefix, base...)
		if err != nil {
			return nil, fmt.Errorf("page: %s: formset %s: %w", location, prefix, err)
		}
		discovered[prefix] = reg
	}
	for prefix, reg := range discovered {
		p.registries[prefix] = reg
	}

	if len(p.registries) == 0 {
		return nil, fmt.Errorf("page: %s: %w: no formset found", location, formset.ErrInvalidConfig)
	}
	if e.controls {
		for _, reg := range p.registries {
			reg.InstallControls()
		}
	}
	p.logger.Debug("page loaded", "formsets", p.Prefixes())
	return p, nil
}

// present reports whether the container of cfg is on the page. A configured
// container id is authoritative; without one the prefix selects a formset.
func present(doc *html.Node, cfg config.Formset) bool {
	if cfg.Container != "" {
		return formset.FindByID(doc, cfg.Container) != nil
	}
	return formset.FindFormset(doc, cfg.Prefix) != nil
}

// Page is a parsed document and the registries of its formsets.
type Page struct {
	Location string
	Document *html.Node

	registries map[string]*formset.Registry
	mappings   map[string]calendar.Mapping
	logger     *slog.Logger
}

// Prefixes lists the formset prefixes of the page in lexical order.
func (p *Page) Prefixes() []string {
	out := make([]string, 0, len(p.registries))
	for prefix := range p.registries {
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}

// Registry returns the registry of prefix. An empty prefix selects the only
// formset of the page.
func (p *Page) Registry(prefix string) (*formset.Registry, error) {
	if prefix == "" {
		if len(p.registries) == 1 {
			for _, reg := range p.registries {
				return reg, nil
			}
		}
		return nil, fmt.Errorf("page: %w: %d formsets on the page, choose a prefix among %v",
			formset.ErrInvalidConfig, len(p.registries), p.Prefixes())
	}
	reg, ok := p.registries[prefix]
	if !ok {
		return nil, fmt.Errorf("page: %w: no formset with prefix %q", formset.ErrInvalidConfig, prefix)
	}
	return reg, nil
}

// Mapping returns the calendar mapping of prefix, defaults when the formset
// was discovered rather than configured.
func (p *Page) Mapping(prefix string) calendar.Mapping {
	if m, ok := p.mappings[prefix]; ok {
		return m
	}
	return calendar.DefaultMapping()
}

// Rows returns the rows of every formset keyed by prefix.
func (p *Page) Rows() map[string][]formset.Row {
	out := make(map[string][]formset.Row, len(p.registries))
	for prefix, reg := range p.registries {
		out[prefix] = reg.ReadAll()
	}
	return out
}

// Events projects the rows of prefix onto calendar events.
func (p *Page) Events(prefix string) ([]calendar.Event, error) {
	reg, err := p.Registry(prefix)
	if err != nil {
		return nil, err
	}
	return calendar.Events(reg, p.Mapping(reg.Prefix()))
}

// Render writes the page markup.
func (p *Page) Render(w io.Writer) error {
	if err := html.Render(w, p.Document); err != nil {
		return fmt.Errorf("page: render %s: %w", p.Location, err)
	}
	return nil
}
