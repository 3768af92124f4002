package page

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formset/pkg/formset"
)

// OpKind enumerates the edits Apply understands.
type OpKind string

const (
	OpAdd            OpKind = "add"
	OpDelete         OpKind = "delete"
	OpDeletePosition OpKind = "delete-position"
)

// Operation is one edit of a formset. An empty Prefix targets the only
// formset of the page.
type Operation struct {
	Kind     OpKind
	Prefix   string
	Values   map[string]string
	RowID    formset.RowID
	Position int
}

// Add builds an add operation.
func Add(prefix string, values map[string]string) Operation {
	return Operation{Kind: OpAdd, Prefix: prefix, Values: values}
}

// Delete builds a delete operation on a row id.
func Delete(prefix string, id formset.RowID) Operation {
	return Operation{Kind: OpDelete, Prefix: prefix, RowID: id}
}

// DeleteAt builds a delete operation on the row at position, resolved when
// the operation runs.
func DeleteAt(prefix string, position int) Operation {
	return Operation{Kind: OpDeletePosition, Prefix: prefix, Position: position}
}

// Outcome reports what one operation did.
type Outcome struct {
	Kind    OpKind                `json:"kind"`
	Prefix  string                `json:"prefix"`
	RowID   formset.RowID         `json:"rowId,omitempty"`
	Added   bool                  `json:"added,omitempty"`
	Deleted formset.DeleteOutcome `json:"-"`
	Result  string                `json:"result"`
}

// Apply runs ops in order and stops at the first error. A refused add or a
// skipped delete is an outcome, not an error.
func (p *Page) Apply(ops []Operation) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(ops))
	for i, op := range ops {
		reg, err := p.Registry(op.Prefix)
		if err != nil {
			return outcomes, fmt.Errorf("page: operation %d: %w", i, err)
		}
		out := Outcome{Kind: op.Kind, Prefix: reg.Prefix()}

		switch op.Kind {
		case OpAdd:
			id, ok := reg.AddRow(op.Values)
			out.RowID, out.Added = id, ok
			out.Result = "added"
			if !ok {
				out.Result = "refused"
			}
		case OpDelete, OpDeletePosition:
			id := op.RowID
			if op.Kind == OpDeletePosition {
				var ok bool
				if id, ok = reg.IDAt(op.Position); !ok {
					return outcomes, fmt.Errorf("page: operation %d: %w: no row at position %d", i, formset.ErrUnknownRow, op.Position)
				}
			}
			res, err := reg.DeleteRow(id)
			if err != nil {
				return outcomes, fmt.Errorf("page: operation %d: %w", i, err)
			}
			out.RowID, out.Deleted, out.Result = id, res, res.String()
		default:
			return outcomes, fmt.Errorf("page: operation %d: unknown kind %q", i, op.Kind)
		}

		p.logger.Info("operation applied", "kind", op.Kind, "prefix", out.Prefix, "row", out.RowID, "result", out.Result)
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// ErrInvalidValues reports a malformed key=value list.
var ErrInvalidValues = errors.New("page: invalid values")

// ParseValues reads "key=value,key=value". A backslash escapes a comma or
// an equals sign inside a value.
func ParseValues(raw string) (map[string]string, error) {
	values := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return values, nil
	}
	for _, pair := range splitEscaped(raw, ',') {
		key, value, ok := cutEscaped(pair, '=')
		key = strings.TrimSpace(unescape(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrInvalidValues, pair)
		}
		values[key] = unescape(value)
	}
	return values, nil
}

func splitEscaped(s string, sep byte) []string {
	var (
		parts   []string
		current strings.Builder
	)
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			current.WriteByte(s[i])
			current.WriteByte(s[i+1])
			i++
		case s[i] == sep:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(s[i])
		}
	}
	return append(parts, current.String())
}

func cutEscaped(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
