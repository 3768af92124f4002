package formset_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-formset/pkg/formset"
	"github.com/goliatone/go-formset/pkg/testsupport"
)

const twoFormsetsPage = `<!DOCTYPE html><html><body><form>
<input type="hidden" name="notes-TOTAL_FORMS" value="1" id="id_notes-TOTAL_FORMS">
<input type="hidden" name="notes-MIN_NUM_FORMS" value="" id="id_notes-MIN_NUM_FORMS">
<input type="hidden" name="notes-MAX_NUM_FORMS" value="" id="id_notes-MAX_NUM_FORMS">
<table class="formset" id="notes"><tbody>
<tr><td><input name="notes-0-eleve" value="Ada"></td></tr>
</tbody><template><tr><td><input name="notes-__prefix__-eleve"></td></tr></template></table>
<div class="formset" data-prefix="creneau">
<input type="hidden" name="creneau-TOTAL_FORMS" value="0" id="id_creneau-TOTAL_FORMS">
<input type="hidden" name="creneau-MIN_NUM_FORMS" value="0" id="id_creneau-MIN_NUM_FORMS">
<input type="hidden" name="creneau-MAX_NUM_FORMS" value="2" id="id_creneau-MAX_NUM_FORMS">
<template><div><input name="creneau-__prefix__-jour"></div></template>
</div>
</form></body></html>`

func TestDiscover(t *testing.T) {
	doc := testsupport.ParseDocument(t, twoFormsetsPage)

	registries, err := formset.Discover(doc)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(registries) != 2 {
		t.Fatalf("want 2 registries, got %d", len(registries))
	}

	notes := registries["notes"]
	if notes == nil {
		t.Fatal("notes formset missing")
	}
	if notes.TotalCount() != 1 || notes.MinCount() != 0 || notes.MaxCount() != formset.DefaultMaxForms {
		t.Fatalf("notes counters: total=%d min=%d max=%d", notes.TotalCount(), notes.MinCount(), notes.MaxCount())
	}
	if notes.Container().Data != "tbody" {
		t.Fatalf("table formset should resolve to tbody, got %s", notes.Container().Data)
	}

	creneau := registries["creneau"]
	if creneau == nil {
		t.Fatal("creneau formset missing")
	}
	if creneau.TotalCount() != 0 {
		t.Fatalf("management inputs must not count as rows, got %d", creneau.TotalCount())
	}
	if _, ok := creneau.AddRow(map[string]string{"jour": "mardi"}); !ok {
		t.Fatal("add refused")
	}
	total := testsupport.MustFindID(t, doc, "id_creneau-TOTAL_FORMS")
	if got := testsupport.Attr(total, "value"); got != "1" {
		t.Fatalf("creneau TOTAL_FORMS: want 1, got %q", got)
	}
}

func TestGuessPrefix(t *testing.T) {
	doc := testsupport.ParseDocument(t, twoFormsetsPage)

	table := testsupport.MustFindID(t, doc, "notes")
	if prefix, ok := formset.GuessPrefix(table); !ok || prefix != "notes" {
		t.Fatalf("table prefix: got %q (ok=%v)", prefix, ok)
	}
	if _, ok := formset.GuessPrefix(nil); ok {
		t.Fatal("nil element has no prefix")
	}
	if el := formset.FindFormset(doc, "creneau"); el == nil || testsupport.Attr(el, "data-prefix") != "creneau" {
		t.Fatalf("FindFormset(creneau) returned %v", el)
	}
	if el := formset.FindFormset(doc, "absent"); el != nil {
		t.Fatalf("FindFormset(absent) should be nil")
	}
}

func TestDiscover_Errors(t *testing.T) {
	cases := []struct {
		name   string
		markup string
		want   error
	}{
		{
			name:   "no prefix",
			markup: `<div class="formset"><template><div><input name="x-__prefix__-a"></div></template></div>`,
			want:   formset.ErrMissingManagementForm,
		},
		{
			name: "duplicate prefix",
			markup: `<input name="p-TOTAL_FORMS" id="id_p-TOTAL_FORMS" value="0">
				<div class="formset" data-prefix="p"><template><div><input name="p-__prefix__-a"></div></template></div>
				<div class="formset" data-prefix="p"><template><div><input name="p-__prefix__-a"></div></template></div>`,
			want: formset.ErrInvalidConfig,
		},
		{
			name:   "bad counter",
			markup: `<div class="formset" data-prefix="p"><input name="p-TOTAL_FORMS" value="two"><template><div><input name="p-__prefix__-a"></div></template></div>`,
			want:   nil,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := formset.Discover(testsupport.ParseDocument(t, tc.markup))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}
