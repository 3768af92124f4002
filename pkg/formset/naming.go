package formset

import (
	"regexp"
	"strconv"
	"strings"
)

// Reserved segments of the form-array naming convention.
const (
	PrefixPlaceholder = "__prefix__"

	FieldDelete       = "DELETE"
	FieldID           = "id"
	FieldDeleteButton = "DELETEBUTTON"

	TotalFormsField   = "TOTAL_FORMS"
	InitialFormsField = "INITIAL_FORMS"
	MinNumFormsField  = "MIN_NUM_FORMS"
	MaxNumFormsField  = "MAX_NUM_FORMS"

	// DefaultMaxForms mirrors the server default used when MAX_NUM_FORMS is
	// rendered blank.
	DefaultMaxForms = 1000
)

// InputName builds the field name expected by the server for the row at the
// given position: "{prefix}-{position}-{key}".
func InputName(prefix string, position int, key string) string {
	return RowPrefix(prefix, position) + key
}

// RowPrefix returns "{prefix}-{position}-", the shared head of every field
// name in a row.
func RowPrefix(prefix string, position int) string {
	return prefix + "-" + strconv.Itoa(position) + "-"
}

// InputID derives the element id companion of a field name.
func InputID(name string) string {
	return "id_" + name
}

// ManagementName returns the name of a management form counter, for example
// "form-TOTAL_FORMS".
func ManagementName(prefix, field string) string {
	return prefix + "-" + field
}

// FieldKey strips the row prefix for the given position from a field name.
func FieldKey(prefix string, position int, name string) (string, bool) {
	key, ok := strings.CutPrefix(name, RowPrefix(prefix, position))
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// indexRewriter rewrites the position segment of name, id and for attributes.
// Only a leading "{prefix}-N-" (optionally preceded by "id_") is touched, so
// a "subform-0-x" field never matches the "form" prefix.
type indexRewriter struct {
	pattern *regexp.Regexp
}

func newIndexRewriter(prefix string) indexRewriter {
	quoted := regexp.QuoteMeta(prefix)
	return indexRewriter{
		pattern: regexp.MustCompile(`^((?:id_)?` + quoted + `-)(\d+|` + PrefixPlaceholder + `)(-)`),
	}
}

// rewrite replaces the position segment of value. It reports false when the
// value does not carry the prefix.
func (w indexRewriter) rewrite(value string, position int) (string, bool) {
	loc := w.pattern.FindStringSubmatchIndex(value)
	if loc == nil {
		return value, false
	}
	var b strings.Builder
	b.Grow(len(value) + 4)
	b.WriteString(value[loc[2]:loc[3]])
	b.WriteString(strconv.Itoa(position))
	b.WriteString(value[loc[6]:])
	return b.String(), true
}

// index extracts the position segment of a name. Placeholders report -1.
func (w indexRewriter) index(value string) (int, bool) {
	match := w.pattern.FindStringSubmatch(value)
	if match == nil {
		return 0, false
	}
	if match[2] == PrefixPlaceholder {
		return -1, true
	}
	n, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	return n, true
}
