package calendar_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formset/pkg/calendar"
	"github.com/goliatone/go-formset/pkg/formset"
	"github.com/goliatone/go-formset/pkg/testsupport"
)

const colleurPage = `<!DOCTYPE html><html><body><form>
<input type="hidden" name="form-TOTAL_FORMS" id="id_form-TOTAL_FORMS" value="3">
<input type="hidden" name="form-INITIAL_FORMS" id="id_form-INITIAL_FORMS" value="3">
<input type="hidden" name="form-MIN_NUM_FORMS" id="id_form-MIN_NUM_FORMS" value="0">
<input type="hidden" name="form-MAX_NUM_FORMS" id="id_form-MAX_NUM_FORMS" value="4">
<table id="calendrier_colleur_formset" class="formset"><tbody>
<tr><td><input type="hidden" name="form-0-id" value="41"><input name="form-0-debut" value="2024-09-03T10:00:00Z"><input name="form-0-duree" value="PT1H30M"><input type="checkbox" name="form-0-DELETE"></td></tr>
<tr><td><input type="hidden" name="form-1-id" value="42"><input name="form-1-debut" value="2024-09-02 08:00"><input name="form-1-fin" value="2024-09-02 09:00"><input type="checkbox" name="form-1-DELETE"></td></tr>
<tr><td><input type="hidden" name="form-2-id" value="43"><input name="form-2-debut" value="2024-09-04T14:00:00Z"><input type="checkbox" name="form-2-DELETE" checked></td></tr>
</tbody></table>
<template id="template_calendrier_colleur_formset"><tr><td><input type="hidden" name="form-__prefix__-id"><input name="form-__prefix__-debut"><input name="form-__prefix__-duree"><input name="form-__prefix__-duree_etudiant"><input type="checkbox" name="form-__prefix__-DELETE"></td></tr></template>
</form></body></html>`

func newColleurRegistry(t *testing.T) *formset.Registry {
	t.Helper()

	doc := testsupport.ParseDocument(t, colleurPage)
	table := testsupport.MustFindID(t, doc, "calendrier_colleur_formset")
	reg, err := formset.NewFromDocument(doc, table, "form")
	if err != nil {
		t.Fatalf("NewFromDocument: %v", err)
	}
	return reg
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEvents(t *testing.T) {
	reg := newColleurRegistry(t)

	got, err := calendar.Events(reg, calendar.DefaultMapping())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	want := []calendar.Event{
		{ID: "lineid-form-0", Title: "Colle", Start: at("2024-09-03T10:00:00Z"), End: at("2024-09-03T11:30:00Z"), Position: 0, Original: true},
		{ID: "lineid-form-1", Title: "Colle", Start: at("2024-09-02T08:00:00Z"), End: at("2024-09-02T09:00:00Z"), Position: 1, Original: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestEvents_DeleteHidesEvent(t *testing.T) {
	reg := newColleurRegistry(t)

	id, ok := reg.IDAt(0)
	if !ok {
		t.Fatalf("no row at position 0")
	}
	if _, err := reg.DeleteRow(id); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}
	got, err := calendar.Events(reg, calendar.Mapping{})
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 1 || got[0].Position != 1 {
		t.Fatalf("expected only the row at position 1, got %+v", got)
	}
}

func TestAddSlot(t *testing.T) {
	reg := newColleurRegistry(t)
	start := time.Date(2024, 9, 5, 16, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	ev, err := calendar.AddSlot(reg, calendar.DefaultMapping(), start, 0, 20*time.Minute)
	if err != nil {
		t.Fatalf("AddSlot: %v", err)
	}
	if ev.Title != "Nouvelle colle" || ev.Position != 3 || !ev.End.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected event %+v", ev)
	}

	values, err := reg.ReadRow(ev.ID)
	if err != nil {
		t.Fatalf("ReadRow: %v", err)
	}
	want := map[string]string{
		"id":             "",
		"debut":          "2024-09-05T14:00:00Z",
		"duree":          "PT1H",
		"duree_etudiant": "PT20M",
		"DELETE":         "",
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("slot values mismatch (-want +got):\n%s", diff)
	}

	events, err := calendar.Events(reg, calendar.DefaultMapping())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	last := events[len(events)-1]
	if last.ID != ev.ID || !last.Start.Equal(start) || !last.End.Equal(ev.End) {
		t.Fatalf("added slot not projected back: %+v", last)
	}

	if _, err := calendar.AddSlot(reg, calendar.DefaultMapping(), start, time.Hour, 0); !errors.Is(err, formset.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded at MAX_NUM_FORMS, got %v", err)
	}
}

type staticRows []formset.Row

func (s staticRows) ReadAll() []formset.Row { return s }

func TestEvents_Errors(t *testing.T) {
	cases := []struct {
		name string
		row  formset.Row
		want error
	}{
		{"bad start", formset.Row{ID: "a", Values: map[string]string{"debut": "tomorrow"}}, calendar.ErrInvalidTime},
		{"bad duration", formset.Row{ID: "b", Values: map[string]string{"debut": "2024-09-02T08:00:00Z", "duree": "1h"}}, calendar.ErrInvalidDuration},
		{"bad end", formset.Row{ID: "c", Values: map[string]string{"debut": "2024-09-02T08:00:00Z", "fin": "soon"}}, calendar.ErrInvalidTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := calendar.Events(staticRows{tc.row}, calendar.DefaultMapping()); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEvents_SkipsBlankAndSortsByPosition(t *testing.T) {
	rows := staticRows{
		{ID: "late", Position: 2, Values: map[string]string{"debut": "2024-09-02T10:00:00Z"}},
		{ID: "blank", Position: 0, Values: map[string]string{"debut": ""}},
		{ID: "early", Position: 1, Values: map[string]string{"debut": "2024-09-02T08:00:00Z"}},
	}
	got, err := calendar.Events(rows, calendar.DefaultMapping())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	var ids []formset.RowID
	for _, ev := range got {
		ids = append(ids, ev.ID)
	}
	if diff := cmp.Diff([]formset.RowID{"early", "late"}, ids); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if !got[0].End.Equal(got[0].Start.Add(calendar.DefaultSlotDuration)) {
		t.Fatalf("expected default slot duration, got %s", got[0].End.Sub(got[0].Start))
	}
}
