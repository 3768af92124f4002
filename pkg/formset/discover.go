package formset

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FormsetClass marks the elements Discover turns into registries.
const FormsetClass = "formset"

// ResolveContainer returns the element holding the rows of a formset
// element: the first <tbody> of a table, the element itself otherwise.
func ResolveContainer(n *html.Node) *html.Node {
	if n == nil || n.DataAtom != atom.Table {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Tbody {
			return c
		}
	}
	return n
}

// GuessPrefix infers the prefix of a formset element from its data-prefix
// attribute or from the name of a TOTAL_FORMS input inside it or next to it.
func GuessPrefix(n *html.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	if v, ok := getAttr(n, "data-prefix"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	suffix := "-" + TotalFormsField
	isTotal := func(c *html.Node) bool {
		name, ok := getAttr(c, "name")
		return ok && c.DataAtom == atom.Input && strings.HasSuffix(name, suffix) && len(name) > len(suffix)
	}
	scopes := []*html.Node{n}
	if n.Parent != nil {
		scopes = append(scopes, n.Parent)
	}
	for _, scope := range scopes {
		if total := find(scope, isTotal); total != nil {
			name, _ := getAttr(total, "name")
			return strings.TrimSuffix(name, suffix), true
		}
	}
	return "", false
}

// NewFromDocument builds a registry whose bounds come from the management
// form found in root. container may be the formset element itself; tables
// are resolved to their body.
func NewFromDocument(root, container *html.Node, prefix string, opts ...Option) (*Registry, error) {
	mf, err := LocateManagementForm(root, prefix)
	if err != nil {
		return nil, err
	}
	minForms, err := mf.MinForms()
	if err != nil {
		return nil, err
	}
	maxForms, err := mf.MaxForms()
	if err != nil {
		return nil, err
	}
	if maxForms < minForms {
		return nil, fmt.Errorf("%w: %s=%d below %s=%d", ErrInvalidConfig,
			ManagementName(prefix, MaxNumFormsField), maxForms,
			ManagementName(prefix, MinNumFormsField), minForms)
	}
	all := make([]Option, 0, len(opts)+2)
	all = append(all, WithDocument(root), WithManagementForm(mf))
	all = append(all, opts...)
	return New(ResolveContainer(container), prefix, maxForms, minForms, all...)
}

// Discover builds one registry per element of class "formset" below root,
// keyed by prefix. Options apply to every registry.
func Discover(root *html.Node, opts ...Option) (map[string]*Registry, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidConfig)
	}
	elements := FindFormsets(root)
	out := make(map[string]*Registry, len(elements))
	for _, el := range elements {
		prefix, ok := GuessPrefix(el)
		if !ok {
			return nil, fmt.Errorf("%w: cannot infer prefix of <%s> formset", ErrMissingManagementForm, el.Data)
		}
		if _, dup := out[prefix]; dup {
			return nil, fmt.Errorf("%w: duplicate formset prefix %q", ErrInvalidConfig, prefix)
		}
		reg, err := NewFromDocument(root, el, prefix, opts...)
		if err != nil {
			return nil, fmt.Errorf("formset: %s: %w", prefix, err)
		}
		out[prefix] = reg
	}
	return out, nil
}

// FindFormset returns the first element of class "formset" whose prefix is
// prefix, or nil.
func FindFormset(root *html.Node, prefix string) *html.Node {
	for _, el := range FindFormsets(root) {
		if p, ok := GuessPrefix(el); ok && p == prefix {
			return el
		}
	}
	return nil
}

// FindFormsets lists the elements of class "formset" below root in document
// order. Nested formsets are not searched.
func FindFormsets(root *html.Node) []*html.Node {
	var elements []*html.Node
	walk(root, func(n *html.Node) bool {
		if hasClass(n, FormsetClass) {
			elements = append(elements, n)
			return false
		}
		return true
	})
	return elements
}
