package testsupport

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseDocument parses a full HTML document. Testing helpers fail the test
// on error to keep table tests concise.
func ParseDocument(t *testing.T, markup string) *html.Node {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

// MustFindID returns the element with the given id or fails the test.
func MustFindID(t *testing.T, root *html.Node, id string) *html.Node {
	t.Helper()

	if n := FindFirst(root, func(n *html.Node) bool { return Attr(n, "id") == id }); n != nil {
		return n
	}
	t.Fatalf("element #%s not found", id)
	return nil
}

// MustFindName returns the first element with the given name or fails the
// test.
func MustFindName(t *testing.T, root *html.Node, name string) *html.Node {
	t.Helper()

	if n := FindFirst(root, func(n *html.Node) bool { return Attr(n, "name") == name }); n != nil {
		return n
	}
	t.Fatalf("element named %q not found", name)
	return nil
}

// FindFirst walks root depth-first and returns the first element matching pred.
func FindFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && pred(c) {
			return c
		}
		if found := FindFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// Names lists the name attributes found below root in document order,
// skipping inert <template> content.
func Names(root *html.Node) []string {
	var out []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || c.DataAtom == atom.Template {
				continue
			}
			if name := Attr(c, "name"); name != "" {
				out = append(out, name)
			}
			visit(c)
		}
	}
	if root != nil {
		visit(root)
	}
	return out
}

// Attr returns the value of an attribute, or "" when absent.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute is present, whatever its value.
func HasAttr(n *html.Node, key string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// Render serialises a node and its subtree.
func Render(t *testing.T, n *html.Node) string {
	t.Helper()

	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		t.Fatalf("render node: %v", err)
	}
	return buf.String()
}

// Diff returns a cmp diff string if the values differ.
func Diff(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
