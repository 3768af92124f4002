package config

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	gotemplate "github.com/goliatone/go-template"

	"github.com/goliatone/go-formset/pkg/formset"
)

// noTemplates serves formsets that were not loaded from a file, so their
// templates cannot include anything.
var noTemplates embed.FS

// RenderTemplate renders the row template markup with go-template. The
// template sees prefix, placeholder ("__prefix__") and row
// ("{prefix}-__prefix__"). Includes are looked up next to the configuration
// file the formset came from.
func (f Formset) RenderTemplate() (string, error) {
	if strings.TrimSpace(f.Template) == "" {
		return "", nil
	}
	var files fs.FS = noTemplates
	if f.templates != nil {
		files = f.templates
	}
	engine, err := gotemplate.NewRenderer(gotemplate.WithFS(files))
	if err != nil {
		return "", fmt.Errorf("config: formset %q template engine: %w", f.Name, err)
	}
	out, err := engine.RenderString(f.Template, map[string]any{
		"prefix":      f.Prefix,
		"placeholder": formset.PrefixPlaceholder,
		"row":         f.Prefix + "-" + formset.PrefixPlaceholder,
	})
	if err != nil {
		return "", fmt.Errorf("config: formset %q template: %w", f.Name, err)
	}
	return out, nil
}
