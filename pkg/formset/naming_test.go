package formset

import "testing"

func TestIndexRewriter(t *testing.T) {
	rw := newIndexRewriter("form")

	cases := []struct {
		name     string
		value    string
		position int
		want     string
		ok       bool
	}{
		{name: "field name", value: "form-3-debut", position: 1, want: "form-1-debut", ok: true},
		{name: "element id", value: "id_form-3-debut", position: 2, want: "id_form-2-debut", ok: true},
		{name: "placeholder", value: "form-__prefix__-DELETE", position: 0, want: "form-0-DELETE", ok: true},
		{name: "nested dashes kept", value: "form-10-a-b-c", position: 9, want: "form-9-a-b-c", ok: true},
		{name: "other prefix", value: "subform-0-x", position: 4, want: "subform-0-x"},
		{name: "management counter", value: "form-TOTAL_FORMS", position: 4, want: "form-TOTAL_FORMS"},
		{name: "not anchored inside", value: "x-form-0-y", position: 4, want: "x-form-0-y"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := rw.rewrite(tc.value, tc.position)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("rewrite(%q, %d): want %q (ok=%v), got %q (ok=%v)", tc.value, tc.position, tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestIndexRewriter_QuotesPrefix(t *testing.T) {
	rw := newIndexRewriter("a.b")
	if _, ok := rw.rewrite("axb-0-x", 1); ok {
		t.Fatal("prefix must be matched literally")
	}
	if got, ok := rw.rewrite("a.b-0-x", 1); !ok || got != "a.b-1-x" {
		t.Fatalf("literal prefix: got %q (ok=%v)", got, ok)
	}
}

func TestIndexRewriter_Index(t *testing.T) {
	rw := newIndexRewriter("form")
	if idx, ok := rw.index("form-12-x"); !ok || idx != 12 {
		t.Fatalf("index: want 12, got %d (ok=%v)", idx, ok)
	}
	if idx, ok := rw.index("form-__prefix__-x"); !ok || idx != -1 {
		t.Fatalf("placeholder index: want -1, got %d (ok=%v)", idx, ok)
	}
	if _, ok := rw.index("other-1-x"); ok {
		t.Fatal("foreign prefix must not match")
	}
}

func TestNamingHelpers(t *testing.T) {
	if got := InputName("form", 2, "x"); got != "form-2-x" {
		t.Fatalf("InputName: got %q", got)
	}
	if got := InputID(InputName("form", 2, "x")); got != "id_form-2-x" {
		t.Fatalf("InputID: got %q", got)
	}
	if got := ManagementName("form", TotalFormsField); got != "form-TOTAL_FORMS" {
		t.Fatalf("ManagementName: got %q", got)
	}
	if key, ok := FieldKey("form", 2, "form-2-debut"); !ok || key != "debut" {
		t.Fatalf("FieldKey: got %q (ok=%v)", key, ok)
	}
	if _, ok := FieldKey("form", 2, "form-3-debut"); ok {
		t.Fatal("FieldKey must reject another position")
	}
	if _, ok := FieldKey("form", 2, "form-2-"); ok {
		t.Fatal("FieldKey must reject an empty key")
	}
}
