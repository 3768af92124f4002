// Package submission reads a submitted formset back out of form values. It is
// the server half of the naming convention the formset package maintains in
// the page: TOTAL_FORMS bounds the rows considered, INITIAL_FORMS marks the
// rows backed by persisted records, and the DELETE marker flags the rows the
// user removed.
package submission

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-formset/pkg/formset"
)

var (
	// ErrManagementForm reports missing or tampered management counters.
	ErrManagementForm = errors.New("submission: management form data is missing or has been tampered with")
	// ErrTooManyForms reports more kept rows than MAX_NUM_FORMS allows.
	ErrTooManyForms = errors.New("submission: too many forms")
	// ErrTooFewForms reports fewer kept rows than MIN_NUM_FORMS requires.
	ErrTooFewForms = errors.New("submission: too few forms")
)

// AbsoluteMaxSlack is added to MAX_NUM_FORMS to bound how many rows a
// request may claim regardless of validation.
const AbsoluteMaxSlack = 1000

// Options tunes Parse.
type Options struct {
	// Validate checks the kept rows against MIN_NUM_FORMS and MAX_NUM_FORMS.
	Validate bool
	// AbsoluteMax overrides MAX_NUM_FORMS + AbsoluteMaxSlack.
	AbsoluteMax int
}

// Row is one submitted row.
type Row struct {
	Position int               `json:"position"`
	Values   map[string]string `json:"values"`
	Original bool              `json:"original"`
	Deleted  bool              `json:"deleted"`
	// Empty is set for extra rows the user left blank.
	Empty bool `json:"empty"`
}

// Result is a parsed formset submission.
type Result struct {
	Prefix  string `json:"prefix"`
	Total   int    `json:"total"`
	Initial int    `json:"initial"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Rows    []Row  `json:"rows"`
}

// Kept returns the rows that are neither deleted nor blank extras.
func (r Result) Kept() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Deleted || row.Empty {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Deleted returns the original rows flagged for deletion.
func (r Result) Deleted() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Deleted && row.Original {
			out = append(out, row)
		}
	}
	return out
}

// Parse extracts the rows of the formset named prefix from values.
func Parse(prefix string, values url.Values, opts Options) (Result, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return Result{}, fmt.Errorf("%w: prefix is required", ErrManagementForm)
	}

	total, ok, err := counter(values, prefix, formset.TotalFormsField)
	if err != nil || !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrManagementForm, formset.ManagementName(prefix, formset.TotalFormsField))
	}
	initial, _, err := counter(values, prefix, formset.InitialFormsField)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrManagementForm, err)
	}
	minForms, _, err := counter(values, prefix, formset.MinNumFormsField)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrManagementForm, err)
	}
	maxForms, hasMax, err := counter(values, prefix, formset.MaxNumFormsField)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrManagementForm, err)
	}
	if !hasMax {
		maxForms = formset.DefaultMaxForms
	}
	if initial > total {
		return Result{}, fmt.Errorf("%w: %d initial forms for %d total", ErrManagementForm, initial, total)
	}

	absolute := opts.AbsoluteMax
	if absolute <= 0 {
		absolute = maxForms + AbsoluteMaxSlack
	}
	if total > absolute {
		return Result{}, fmt.Errorf("%w: %d submitted, at most %d accepted", ErrTooManyForms, total, absolute)
	}

	rows := make([]Row, total)
	for i := range rows {
		rows[i] = Row{
			Position: i,
			Values:   make(map[string]string),
			Original: i < initial,
		}
	}
	head := prefix + "-"
	for name, vals := range values {
		rest, ok := strings.CutPrefix(name, head)
		if !ok || len(vals) == 0 {
			continue
		}
		idx, key, ok := strings.Cut(rest, "-")
		if !ok || key == "" {
			continue
		}
		position, err := strconv.Atoi(idx)
		if err != nil || position < 0 || position >= total {
			continue
		}
		rows[position].Values[key] = vals[0]
	}

	for i := range rows {
		row := &rows[i]
		row.Deleted = isOn(row.Values[formset.FieldDelete])
		if !row.Original {
			row.Empty = blank(row.Values)
		}
	}

	result := Result{
		Prefix:  prefix,
		Total:   total,
		Initial: initial,
		Min:     minForms,
		Max:     maxForms,
		Rows:    rows,
	}
	if opts.Validate {
		if err := validate(result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func validate(r Result) error {
	kept := len(r.Kept())
	if kept > r.Max {
		return fmt.Errorf("%w: %d kept, at most %d", ErrTooManyForms, kept, r.Max)
	}
	if kept < r.Min {
		return fmt.Errorf("%w: %d kept, at least %d", ErrTooFewForms, kept, r.Min)
	}
	return nil
}

func counter(values url.Values, prefix, field string) (int, bool, error) {
	name := formset.ManagementName(prefix, field)
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("%s: invalid value %q", name, raw)
	}
	return n, true, nil
}

func isOn(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "checked", "yes":
		return true
	default:
		return false
	}
}

func blank(values map[string]string) bool {
	for key, v := range values {
		if key == formset.FieldDelete || key == formset.FieldID {
			continue
		}
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
