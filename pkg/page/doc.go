// Package page coordinates formset editing on a whole HTML page: it loads the
// markup, builds one registry per formset (from configuration or by
// discovery), applies add and delete operations and renders the result.
//
//	ed := page.New(page.WithConfig(store))
//	p, err := ed.Load(ctx, page.SourceFromFile("colloscope.html"))
//	if err != nil { ... }
//	outcomes, err := p.Apply([]page.Operation{page.Add("form", values)})
//	err = p.Render(os.Stdout)
package page
