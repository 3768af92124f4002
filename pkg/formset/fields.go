package formset

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func getAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func hasClass(n *html.Node, class string) bool {
	raw, ok := getAttr(n, "class")
	if !ok {
		return false
	}
	for _, token := range strings.Fields(raw) {
		if token == class {
			return true
		}
	}
	return false
}

func removeClass(n *html.Node, class string) {
	raw, ok := getAttr(n, "class")
	if !ok {
		return
	}
	var kept []string
	for _, token := range strings.Fields(raw) {
		if token != class {
			kept = append(kept, token)
		}
	}
	if len(kept) == 0 {
		removeAttr(n, "class")
		return
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

// walk visits the descendants of n depth-first in document order. Returning
// false from fn skips the children of the visited node. Template contents are
// inert and never visited.
func walk(n *html.Node, fn func(*html.Node) bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if !fn(c) {
			continue
		}
		if c.DataAtom == atom.Template {
			continue
		}
		walk(c, fn)
	}
}

// find returns the first descendant matching pred.
func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if found != nil {
			return false
		}
		if pred(c) {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindByID returns the element with the given id attribute below root.
func FindByID(root *html.Node, id string) *html.Node {
	if root == nil || id == "" {
		return nil
	}
	return find(root, func(n *html.Node) bool {
		v, ok := getAttr(n, "id")
		return ok && v == id
	})
}

// FindByName returns the first element with the given name attribute below root.
func FindByName(root *html.Node, name string) *html.Node {
	if root == nil || name == "" {
		return nil
	}
	return find(root, func(n *html.Node) bool {
		v, ok := getAttr(n, "name")
		return ok && v == name
	})
}

// namedElements lists every element carrying a name attribute, in document
// order.
func namedElements(n *html.Node) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) bool {
		if _, ok := getAttr(c, "name"); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// isValueField reports whether a named element contributes a value to the
// row data. Buttons are named for renumbering but carry no data.
func isValueField(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Input, atom.Select, atom.Textarea, atom.Output:
		return true
	default:
		return false
	}
}

func inputType(n *html.Node) string {
	t, _ := getAttr(n, "type")
	return strings.ToLower(strings.TrimSpace(t))
}

func isCheckable(n *html.Node) bool {
	if n.DataAtom != atom.Input {
		return false
	}
	switch inputType(n) {
	case "checkbox", "radio":
		return true
	default:
		return false
	}
}

// truthy follows what a browser submits for a ticked box and what the server
// accepts as a boolean.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "checked", "yes":
		return true
	default:
		return false
	}
}

// fieldValue reads the current value of a form control.
func fieldValue(n *html.Node) string {
	switch n.DataAtom {
	case atom.Textarea:
		return textContent(n)
	case atom.Select:
		if opt := selectedOption(n); opt != nil {
			return optionValue(opt)
		}
		return ""
	}
	if isCheckable(n) {
		if _, checked := getAttr(n, "checked"); !checked {
			return ""
		}
		if v, ok := getAttr(n, "value"); ok && v != "" {
			return v
		}
		return "on"
	}
	v, _ := getAttr(n, "value")
	return v
}

// setFieldValue writes a value into a form control.
func setFieldValue(n *html.Node, value string) {
	switch n.DataAtom {
	case atom.Textarea:
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		if value != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		}
		return
	case atom.Select:
		for _, opt := range options(n) {
			if optionValue(opt) == value {
				setAttr(opt, "selected", "")
			} else {
				removeAttr(opt, "selected")
			}
		}
		return
	}
	if isCheckable(n) {
		if truthy(value) {
			setAttr(n, "checked", "")
		} else {
			removeAttr(n, "checked")
		}
		return
	}
	setAttr(n, "value", value)
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	walk(sel, func(c *html.Node) bool {
		if c.DataAtom == atom.Option {
			out = append(out, c)
			return false
		}
		return true
	})
	return out
}

func selectedOption(sel *html.Node) *html.Node {
	opts := options(sel)
	for _, opt := range opts {
		if _, ok := getAttr(opt, "selected"); ok {
			return opt
		}
	}
	if _, multiple := getAttr(sel, "multiple"); !multiple && len(opts) > 0 {
		return opts[0]
	}
	return nil
}

func optionValue(opt *html.Node) string {
	if v, ok := getAttr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(opt))
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	return b.String()
}

// cloneTree deep-copies n without attaching the copy anywhere.
func cloneTree(n *html.Node) *html.Node {
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(cloneTree(c))
	}
	return out
}

func newElement(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
		Attr:     attrs,
	}
}
