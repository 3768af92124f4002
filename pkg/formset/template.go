package formset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EmptyFormClass marks a hidden child of the container holding the formset's
// empty form. It is a template, never a row.
const EmptyFormClass = "empty-form"

// lookupTemplate resolves the clone source for new rows. An explicit template
// wins; otherwise a <template> inside the container, then an empty-form child
// of the container, then a <template> inside the enclosing table, then an
// element with id "template_{formset id}" in the document.
func lookupTemplate(container *html.Node, cfg config) *html.Node {
	if cfg.template != nil {
		return templateRow(cfg.template)
	}
	isTemplate := func(n *html.Node) bool { return n.DataAtom == atom.Template }
	if tpl := find(container, isTemplate); tpl != nil {
		return templateRow(tpl)
	}
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && hasClass(c, EmptyFormClass) {
			return c
		}
	}
	table := enclosingTable(container)
	if table != nil {
		if tpl := find(table, isTemplate); tpl != nil {
			return templateRow(tpl)
		}
	}
	if cfg.document != nil {
		for _, owner := range []*html.Node{container, table} {
			id, ok := getAttr(owner, "id")
			if !ok || id == "" {
				continue
			}
			if tpl := FindByID(cfg.document, "template_"+id); tpl != nil {
				return templateRow(tpl)
			}
		}
	}
	return nil
}

// templateRow unwraps a <template> element to its first element child.
func templateRow(n *html.Node) *html.Node {
	if n == nil || n.DataAtom != atom.Template {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func enclosingTable(container *html.Node) *html.Node {
	if container == nil {
		return nil
	}
	if container.DataAtom == atom.Table {
		return container
	}
	if p := container.Parent; p != nil && p.DataAtom == atom.Table {
		return p
	}
	return nil
}

func validateTemplate(tpl *html.Node, rw indexRewriter) error {
	if tpl == nil {
		return ErrMissingTemplate
	}
	for _, n := range namedElements(tpl) {
		name, _ := getAttr(n, "name")
		if idx, ok := rw.index(name); ok && idx == -1 {
			return nil
		}
	}
	return fmt.Errorf("%w: no field named with %q", ErrMissingTemplate, PrefixPlaceholder)
}

var (
	templatePolicyOnce sync.Once
	templatePolicy     *bluemonday.Policy
)

// TemplateFromMarkup parses a row template from untrusted markup. Scripts,
// event handlers and anything outside basic layout and form controls are
// stripped before parsing. The returned node is the first element of the
// sanitised markup.
func TemplateFromMarkup(markup string) (*html.Node, error) {
	trimmed := strings.TrimSpace(markup)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty markup", ErrMissingTemplate)
	}
	cleaned := templateSanitizer().Sanitize(trimmed)
	parent := newElement(atom.Template)
	nodes, err := html.ParseFragment(strings.NewReader(cleaned), parent)
	if err != nil {
		return nil, fmt.Errorf("formset: parse template: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: markup has no element", ErrMissingTemplate)
}

func templateSanitizer() *bluemonday.Policy {
	templatePolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements(
			"tr", "td", "th", "div", "span", "p", "ul", "ol", "li", "fieldset",
			"legend", "label", "input", "select", "option", "optgroup",
			"textarea", "button",
		)
		policy.AllowAttrs(
			"name", "id", "class", "type", "value", "for", "checked",
			"selected", "multiple", "placeholder", "disabled", "readonly",
			"required", "colspan", "rowspan", "title", "hidden",
		).Globally()
		policy.AllowDataAttributes()
		templatePolicy = policy
	})
	return templatePolicy
}
