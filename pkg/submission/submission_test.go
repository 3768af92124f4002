package submission_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formset/pkg/submission"
)

func colleValues() url.Values {
	return url.Values{
		"form-TOTAL_FORMS":   {"3"},
		"form-INITIAL_FORMS": {"2"},
		"form-MIN_NUM_FORMS": {"1"},
		"form-MAX_NUM_FORMS": {"3"},
		"form-0-id":          {"11"},
		"form-0-debut":       {"2024-09-02T08:00:00Z"},
		"form-1-id":          {"12"},
		"form-1-debut":       {"2024-09-03T08:00:00Z"},
		"form-1-DELETE":      {"on"},
		"form-2-id":          {""},
		"form-2-debut":       {"2024-09-04T08:00:00Z"},
		"form-3-debut":       {"ignored, beyond TOTAL_FORMS"},
		"other-0-debut":      {"ignored, other prefix"},
	}
}

func TestParse(t *testing.T) {
	got, err := submission.Parse("form", colleValues(), submission.Options{Validate: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := submission.Result{
		Prefix:  "form",
		Total:   3,
		Initial: 2,
		Min:     1,
		Max:     3,
		Rows: []submission.Row{
			{Position: 0, Original: true, Values: map[string]string{"id": "11", "debut": "2024-09-02T08:00:00Z"}},
			{Position: 1, Original: true, Deleted: true, Values: map[string]string{"id": "12", "debut": "2024-09-03T08:00:00Z", "DELETE": "on"}},
			{Position: 2, Values: map[string]string{"id": "", "debut": "2024-09-04T08:00:00Z"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	var kept []int
	for _, row := range got.Kept() {
		kept = append(kept, row.Position)
	}
	if diff := cmp.Diff([]int{0, 2}, kept); diff != "" {
		t.Fatalf("kept positions mismatch (-want +got):\n%s", diff)
	}
	if deleted := got.Deleted(); len(deleted) != 1 || deleted[0].Values["id"] != "12" {
		t.Fatalf("expected row 12 to be deleted, got %+v", deleted)
	}
}

func TestParse_BlankExtraRow(t *testing.T) {
	values := url.Values{
		"f-TOTAL_FORMS":   {"2"},
		"f-INITIAL_FORMS": {"1"},
		"f-0-note":        {"12"},
		"f-1-note":        {"  "},
		"f-1-id":          {""},
	}
	got, err := submission.Parse("f", values, submission.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Max != 1000 {
		t.Fatalf("expected default max 1000, got %d", got.Max)
	}
	if !got.Rows[1].Empty {
		t.Fatalf("expected blank extra row to be empty")
	}
	if got.Rows[0].Empty {
		t.Fatalf("original rows are never empty")
	}
	if len(got.Kept()) != 1 {
		t.Fatalf("expected one kept row, got %d", len(got.Kept()))
	}
}

func TestParse_BlankExtraRowsDoNotCountTowardsMax(t *testing.T) {
	values := url.Values{
		"form-TOTAL_FORMS":   {"3"},
		"form-INITIAL_FORMS": {"0"},
		"form-MAX_NUM_FORMS": {"2"},
		"form-0-x":           {"a"},
		"form-1-x":           {"b"},
		"form-2-x":           {""},
	}
	got, err := submission.Parse("form", values, submission.Options{Validate: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if kept := len(got.Kept()); kept != 2 {
		t.Fatalf("expected two kept rows, got %d", kept)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name   string
		values url.Values
		opts   submission.Options
		want   error
	}{
		{
			name:   "missing total",
			values: url.Values{"form-0-x": {"1"}},
			want:   submission.ErrManagementForm,
		},
		{
			name:   "non numeric total",
			values: url.Values{"form-TOTAL_FORMS": {"three"}},
			want:   submission.ErrManagementForm,
		},
		{
			name: "initial above total",
			values: url.Values{
				"form-TOTAL_FORMS":   {"1"},
				"form-INITIAL_FORMS": {"2"},
			},
			want: submission.ErrManagementForm,
		},
		{
			name: "beyond absolute max",
			values: url.Values{
				"form-TOTAL_FORMS":   {"5"},
				"form-MAX_NUM_FORMS": {"1"},
			},
			opts: submission.Options{AbsoluteMax: 4},
			want: submission.ErrTooManyForms,
		},
		{
			name: "too many kept",
			values: url.Values{
				"form-TOTAL_FORMS":   {"3"},
				"form-MAX_NUM_FORMS": {"2"},
				"form-0-x":           {"a"},
				"form-1-x":           {"b"},
				"form-2-x":           {"c"},
			},
			opts: submission.Options{Validate: true},
			want: submission.ErrTooManyForms,
		},
		{
			name: "too few kept",
			values: url.Values{
				"form-TOTAL_FORMS":   {"2"},
				"form-INITIAL_FORMS": {"1"},
				"form-MIN_NUM_FORMS": {"1"},
				"form-0-x":           {"a"},
				"form-0-DELETE":      {"on"},
				"form-1-x":           {""},
			},
			opts: submission.Options{Validate: true},
			want: submission.ErrTooFewForms,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := submission.Parse("form", tc.values, tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParse_DeletedWithoutValidation(t *testing.T) {
	values := url.Values{
		"form-TOTAL_FORMS":   {"1"},
		"form-INITIAL_FORMS": {"1"},
		"form-MIN_NUM_FORMS": {"1"},
		"form-0-DELETE":      {"on"},
	}
	got, err := submission.Parse("form", values, submission.Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Kept()) != 0 || len(got.Deleted()) != 1 {
		t.Fatalf("unexpected partition: kept=%d deleted=%d", len(got.Kept()), len(got.Deleted()))
	}
}
