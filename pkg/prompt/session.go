package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/goliatone/go-formset/pkg/formset"
)

// Editor is the registry surface a session drives. *formset.Registry
// satisfies it.
type Editor interface {
	Prefix() string
	TemplateKeys() []string
	AddRow(values map[string]string) (formset.RowID, bool)
	DeleteRow(id formset.RowID) (formset.DeleteOutcome, error)
	ReadAll() []formset.Row
	CanAdd() bool
}

// Fields tunes how row values are asked for.
type Fields struct {
	Defaults   map[string]string
	Validators map[string]func(string) error
	Help       map[string]string
}

// CollectValues asks for one value per key, in order. Blank answers are
// kept so the template default is overwritten only when the user typed
// something.
func CollectValues(ctx context.Context, d Driver, keys []string, fields Fields) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := d.Input(ctx, InputConfig{
			Message:   key,
			Default:   fields.Defaults[key],
			Help:      fields.Help[key],
			Validator: optional(fields.Validators[key]),
		})
		if err != nil {
			return nil, err
		}
		if v = strings.TrimSpace(v); v != "" {
			values[key] = v
		}
	}
	return values, nil
}

func optional(validate func(string) error) func(string) error {
	if validate == nil {
		return nil
	}
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return validate(strings.TrimSpace(v))
	}
}

// ChooseRow asks the user to pick one of rows. Rows marked for deletion are
// not offered. It returns false when nothing is left to choose from.
func ChooseRow(ctx context.Context, d Driver, message string, rows []formset.Row) (formset.RowID, bool, error) {
	live := make([]formset.Row, 0, len(rows))
	for _, row := range rows {
		if !row.Deleted {
			live = append(live, row)
		}
	}
	if len(live) == 0 {
		return "", false, nil
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].Position < live[j].Position })

	labels := make([]string, len(live))
	for i, row := range live {
		labels[i] = RowLabel(row)
	}
	idx, err := d.Select(ctx, SelectConfig{Message: message, Options: labels})
	if err != nil {
		return "", false, err
	}
	if idx < 0 || idx >= len(live) {
		return "", false, fmt.Errorf("prompt: invalid row selection %d", idx)
	}
	return live[idx].ID, true, nil
}

// RowLabel summarises a row on one line: position, id and its values
// sorted by key.
func RowLabel(row formset.Row) string {
	keys := make([]string, 0, len(row.Values))
	for key, v := range row.Values {
		if key == formset.FieldDelete || v == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+row.Values[key])
	}
	label := fmt.Sprintf("#%d %s", row.Position, row.ID)
	if len(parts) > 0 {
		label += " " + strings.Join(parts, " ")
	}
	return label
}

const (
	actionAdd    = "Add a row"
	actionDelete = "Delete a row"
	actionDone   = "Done"
)

// Session runs an add/delete loop over one registry.
type Session struct {
	Driver Driver
	Fields Fields
	Logger *slog.Logger
}

// Run loops until the user picks Done. Aborting returns ErrAborted with the
// registry left as it was after the last completed action.
func (s Session) Run(ctx context.Context, ed Editor) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for {
		actions := []string{actionDelete, actionDone}
		if ed.CanAdd() {
			actions = append([]string{actionAdd}, actions...)
		}
		idx, err := s.Driver.Select(ctx, SelectConfig{
			Message: fmt.Sprintf("Formset %s", ed.Prefix()),
			Options: actions,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(actions) {
			return fmt.Errorf("prompt: invalid action %d", idx)
		}

		switch actions[idx] {
		case actionAdd:
			if err := s.add(ctx, ed, logger); err != nil {
				return err
			}
		case actionDelete:
			if err := s.delete(ctx, ed, logger); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (s Session) add(ctx context.Context, ed Editor, logger *slog.Logger) error {
	values, err := CollectValues(ctx, s.Driver, ed.TemplateKeys(), s.Fields)
	if err != nil {
		return err
	}
	id, ok := ed.AddRow(values)
	if !ok {
		return s.Driver.Info(ctx, "The formset is full.")
	}
	logger.Info("row added", "prefix", ed.Prefix(), "id", id)
	return s.Driver.Info(ctx, fmt.Sprintf("Added %s.", id))
}

func (s Session) delete(ctx context.Context, ed Editor, logger *slog.Logger) error {
	id, ok, err := ChooseRow(ctx, s.Driver, "Row to delete", ed.ReadAll())
	if err != nil {
		return err
	}
	if !ok {
		return s.Driver.Info(ctx, "No row to delete.")
	}
	confirmed, err := s.Driver.Confirm(ctx, ConfirmConfig{Message: fmt.Sprintf("Delete %s?", id)})
	if err != nil {
		return err
	}
	if !confirmed {
		return nil
	}
	outcome, err := ed.DeleteRow(id)
	if err != nil {
		if errors.Is(err, formset.ErrMissingDeleteMarker) {
			return s.Driver.Info(ctx, fmt.Sprintf("%s cannot be deleted: %v", id, err))
		}
		return err
	}
	logger.Info("row deleted", "prefix", ed.Prefix(), "id", id, "outcome", outcome.String())
	switch outcome {
	case formset.DeleteSkipped:
		return s.Driver.Info(ctx, fmt.Sprintf("%s kept: the formset is at its minimum.", id))
	case formset.DeleteMarked:
		return s.Driver.Info(ctx, fmt.Sprintf("%s marked for deletion.", id))
	default:
		return s.Driver.Info(ctx, fmt.Sprintf("%s removed.", id))
	}
}
