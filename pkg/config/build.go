package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/goliatone/go-formset/pkg/calendar"
	"github.com/goliatone/go-formset/pkg/formset"
)

// Accepted values of Formset.OriginalRows.
const (
	OriginalAll       = "all"
	OriginalPersisted = "persisted"
)

// Options translates the configuration into registry options.
func (f Formset) Options(logger *slog.Logger) ([]formset.Option, error) {
	var opts []formset.Option
	if logger != nil {
		opts = append(opts, formset.WithLogger(logger.With("formset", f.Name)))
	}
	if f.EnforceMin != nil {
		opts = append(opts, formset.WithFloorEnforcement(*f.EnforceMin))
	}
	if f.OriginalRows == OriginalPersisted {
		opts = append(opts, formset.WithOriginalRows(formset.PersistedRows))
	}
	if f.AddLabel != "" || f.DeleteLabel != "" {
		opts = append(opts, formset.WithControlLabels(f.AddLabel, f.DeleteLabel))
	}

	markup, err := f.RenderTemplate()
	if err != nil {
		return nil, err
	}
	if markup != "" {
		tpl, err := formset.TemplateFromMarkup(markup)
		if err != nil {
			return nil, fmt.Errorf("config: formset %q: %w", f.Name, err)
		}
		opts = append(opts, formset.WithTemplate(tpl))
	}
	return opts, nil
}

// Build creates the registry described by f over doc. Bounds left unset
// are read from the management form.
func (f Formset) Build(doc *html.Node, logger *slog.Logger, extra ...formset.Option) (*formset.Registry, error) {
	opts, err := f.Options(logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	el, err := f.element(doc)
	if err != nil {
		return nil, err
	}
	if f.Min == nil && f.Max == nil {
		return formset.NewFromDocument(doc, el, f.Prefix, opts...)
	}

	all := []formset.Option{formset.WithDocument(doc)}
	minForms, maxForms := 0, formset.DefaultMaxForms
	if mf, err := formset.LocateManagementForm(doc, f.Prefix); err == nil {
		all = append(all, formset.WithManagementForm(mf))
		if minForms, err = mf.MinForms(); err != nil {
			return nil, err
		}
		if maxForms, err = mf.MaxForms(); err != nil {
			return nil, err
		}
	}
	if f.Min != nil {
		minForms = *f.Min
	}
	if f.Max != nil {
		maxForms = *f.Max
	}
	return formset.New(formset.ResolveContainer(el), f.Prefix, maxForms, minForms, append(all, opts...)...)
}

func (f Formset) element(doc *html.Node) (*html.Node, error) {
	if f.Container != "" {
		if el := formset.FindByID(doc, f.Container); el != nil {
			return el, nil
		}
		return nil, fmt.Errorf("config: formset %q: %w: no element #%s", f.Name, formset.ErrInvalidConfig, f.Container)
	}
	found := formset.FindFormset(doc, f.Prefix)
	if found == nil {
		return nil, fmt.Errorf("config: formset %q: %w: no container for prefix %q", f.Name, formset.ErrInvalidConfig, f.Prefix)
	}
	return found, nil
}

// Mapping returns the calendar field mapping, defaults filled in.
func (f Formset) Mapping() (calendar.Mapping, error) {
	m := calendar.DefaultMapping()
	if f.Calendar == nil {
		return m, nil
	}
	c := f.Calendar
	for dst, src := range map[*string]string{
		&m.Start:           c.Start,
		&m.End:             c.End,
		&m.Duration:        c.Duration,
		&m.StudentDuration: c.StudentDuration,
		&m.Title:           c.Title,
		&m.NewTitle:        c.NewTitle,
	} {
		if v := strings.TrimSpace(src); v != "" {
			*dst = v
		}
	}
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return calendar.Mapping{}, fmt.Errorf("config: formset %q timezone: %w", f.Name, err)
		}
		m.Location = loc
	}
	return m, nil
}
