package formset

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseBody(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><body>" + markup + "</body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	body := find(doc, func(n *html.Node) bool { return n.Data == "body" })
	if body == nil {
		t.Fatal("body not found")
	}
	return body
}

func TestFieldValues(t *testing.T) {
	body := parseBody(t, `
		<input name="text" value="hello">
		<input name="bare">
		<input type="checkbox" name="box" checked>
		<input type="checkbox" name="valued" value="yes" checked>
		<input type="checkbox" name="off">
		<select name="sel"><option value="a">A</option><option value="b" selected>B</option></select>
		<select name="first"><option>Plain</option></select>
		<select name="multi" multiple><option value="a">A</option></select>
		<textarea name="area">line one</textarea>`)

	want := map[string]string{
		"text":   "hello",
		"bare":   "",
		"box":    "on",
		"valued": "yes",
		"off":    "",
		"sel":    "b",
		"first":  "Plain",
		"multi":  "",
		"area":   "line one",
	}
	for name, expected := range want {
		n := FindByName(body, name)
		if n == nil {
			t.Fatalf("field %q not found", name)
		}
		if got := fieldValue(n); got != expected {
			t.Fatalf("fieldValue(%s): want %q, got %q", name, expected, got)
		}
	}
}

func TestSetFieldValue(t *testing.T) {
	body := parseBody(t, `
		<input name="text">
		<input type="checkbox" name="box">
		<select name="sel"><option value="a" selected>A</option><option value="b">B</option></select>
		<textarea name="area">old</textarea>`)

	writes := map[string]string{
		"text": "PT1H",
		"box":  "true",
		"sel":  "b",
		"area": "new text",
	}
	for name, value := range writes {
		setFieldValue(FindByName(body, name), value)
	}

	reads := map[string]string{
		"text": "PT1H",
		"box":  "on",
		"sel":  "b",
		"area": "new text",
	}
	for name, expected := range reads {
		if got := fieldValue(FindByName(body, name)); got != expected {
			t.Fatalf("%s after write: want %q, got %q", name, expected, got)
		}
	}

	box := FindByName(body, "box")
	setFieldValue(box, "")
	if _, checked := getAttr(box, "checked"); checked {
		t.Fatal("empty value must clear checked")
	}
}

func TestCloneTreeIsDetachedDeepCopy(t *testing.T) {
	body := parseBody(t, `<div id="src"><input name="a" value="1"></div>`)
	src := FindByID(body, "src")

	dup := cloneTree(src)
	if dup.Parent != nil {
		t.Fatal("clone must be detached")
	}
	setAttr(FindByName(dup, "a"), "value", "2")
	if got := fieldValue(FindByName(src, "a")); got != "1" {
		t.Fatalf("source mutated through clone: %q", got)
	}
}
