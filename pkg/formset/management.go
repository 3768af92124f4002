package formset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ManagementForm holds the counter inputs rendered next to a formset. Only
// Total is required; Min and Max fall back to 0 and DefaultMaxForms when the
// inputs are absent or blank.
type ManagementForm struct {
	Prefix  string
	Total   *html.Node
	Initial *html.Node
	Min     *html.Node
	Max     *html.Node
}

// LocateManagementForm finds the management inputs for prefix below root by
// their "id_{prefix}-{COUNTER}" ids, falling back to their names.
func LocateManagementForm(root *html.Node, prefix string) (*ManagementForm, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil root", ErrMissingManagementForm)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: prefix is required", ErrInvalidConfig)
	}
	lookup := func(field string) *html.Node {
		name := ManagementName(prefix, field)
		if n := FindByID(root, InputID(name)); n != nil {
			return n
		}
		return FindByName(root, name)
	}
	mf := &ManagementForm{
		Prefix:  prefix,
		Total:   lookup(TotalFormsField),
		Initial: lookup(InitialFormsField),
		Min:     lookup(MinNumFormsField),
		Max:     lookup(MaxNumFormsField),
	}
	if mf.Total == nil {
		return nil, fmt.Errorf("%w: %s not found", ErrMissingManagementForm, ManagementName(prefix, TotalFormsField))
	}
	return mf, nil
}

// TotalForms parses the TOTAL_FORMS value.
func (m *ManagementForm) TotalForms() (int, error) {
	n, ok, err := counterValue(m.Total)
	if err != nil {
		return 0, fmt.Errorf("formset: %s: %w", ManagementName(m.Prefix, TotalFormsField), err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s is blank", ErrMissingManagementForm, ManagementName(m.Prefix, TotalFormsField))
	}
	return n, nil
}

// SetTotalForms writes the TOTAL_FORMS value.
func (m *ManagementForm) SetTotalForms(total int) {
	if m == nil || m.Total == nil {
		return
	}
	setAttr(m.Total, "value", strconv.Itoa(total))
}

// InitialForms parses INITIAL_FORMS; a missing input counts as zero.
func (m *ManagementForm) InitialForms() (int, error) {
	n, _, err := counterValue(m.Initial)
	if err != nil {
		return 0, fmt.Errorf("formset: %s: %w", ManagementName(m.Prefix, InitialFormsField), err)
	}
	return n, nil
}

// MinForms parses MIN_NUM_FORMS; missing or blank means zero.
func (m *ManagementForm) MinForms() (int, error) {
	n, _, err := counterValue(m.Min)
	if err != nil {
		return 0, fmt.Errorf("formset: %s: %w", ManagementName(m.Prefix, MinNumFormsField), err)
	}
	return n, nil
}

// MaxForms parses MAX_NUM_FORMS; missing or blank means DefaultMaxForms.
func (m *ManagementForm) MaxForms() (int, error) {
	n, ok, err := counterValue(m.Max)
	if err != nil {
		return 0, fmt.Errorf("formset: %s: %w", ManagementName(m.Prefix, MaxNumFormsField), err)
	}
	if !ok {
		return DefaultMaxForms, nil
	}
	return n, nil
}

// isManagementInput reports whether n is one of the counters of any formset.
func isManagementInput(n *html.Node) bool {
	name, ok := getAttr(n, "name")
	if !ok {
		return false
	}
	for _, field := range []string{TotalFormsField, InitialFormsField, MinNumFormsField, MaxNumFormsField} {
		if strings.HasSuffix(name, "-"+field) {
			return true
		}
	}
	return false
}

func counterValue(n *html.Node) (int, bool, error) {
	if n == nil {
		return 0, false, nil
	}
	raw, _ := getAttr(n, "value")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid counter %q", raw)
	}
	if v < 0 {
		return 0, false, fmt.Errorf("negative counter %d", v)
	}
	return v, true, nil
}

// HiddenField is a name/value pair for a hidden input.
type HiddenField struct {
	Name  string
	Value string
}

// ManagementFields returns the four management counters for prefix, sorted
// by name, for callers emitting the management form themselves.
func ManagementFields(prefix string, total, initial, minForms, maxForms int) []HiddenField {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	fields := []HiddenField{
		{Name: ManagementName(prefix, TotalFormsField), Value: strconv.Itoa(total)},
		{Name: ManagementName(prefix, InitialFormsField), Value: strconv.Itoa(initial)},
		{Name: ManagementName(prefix, MinNumFormsField), Value: strconv.Itoa(minForms)},
		{Name: ManagementName(prefix, MaxNumFormsField), Value: strconv.Itoa(maxForms)},
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].Name < fields[j].Name
	})
	return fields
}
