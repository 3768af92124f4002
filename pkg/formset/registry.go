package formset

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RowID is the stable client-side identifier of a row. It survives
// renumbering and is never reused within a registry.
type RowID string

// DeleteOutcome reports what DeleteRow did.
type DeleteOutcome int

const (
	// DeleteSkipped means the row was left untouched because removing it
	// would drop below MIN_NUM_FORMS.
	DeleteSkipped DeleteOutcome = iota
	// DeleteMarked means an original row had its DELETE marker set.
	DeleteMarked
	// DeleteRemoved means a client-side row was detached and the rows after
	// it renumbered.
	DeleteRemoved
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeleteMarked:
		return "marked"
	case DeleteRemoved:
		return "removed"
	default:
		return "skipped"
	}
}

// Row is a snapshot of one registered row.
type Row struct {
	ID       RowID             `json:"id"`
	Position int               `json:"position"`
	Original bool              `json:"original"`
	Deleted  bool              `json:"deleted"`
	Values   map[string]string `json:"values"`
}

type entry struct {
	id           RowID
	node         *html.Node
	position     int
	original     bool
	deleteButton *html.Node
}

// Registry tracks the rows of one formset container.
type Registry struct {
	container *html.Node
	prefix    string
	maxCount  int
	minCount  int
	template  *html.Node
	rewriter  indexRewriter
	cfg       config
	logger    *slog.Logger

	entries   map[RowID]*entry
	order     []RowID // registration order
	positions []RowID // attached rows, indexed by position
	nextID    int

	addButton *html.Node
}

// New builds a registry over the rows already present in container. The
// caller resolves any table/tbody indirection first (see ResolveContainer).
// Every element child of container except <template> and management inputs
// is a row, in document order. Construction fails rather than returning a
// partially usable registry when the configuration or the existing markup is
// inconsistent.
func New(container *html.Node, prefix string, maxCount, minCount int, opts ...Option) (*Registry, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if container == nil || container.Type != html.ElementNode {
		return nil, fmt.Errorf("%w: container must be an element", ErrInvalidConfig)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || strings.IndexFunc(prefix, unicode.IsSpace) >= 0 {
		return nil, fmt.Errorf("%w: prefix %q", ErrInvalidConfig, prefix)
	}
	if minCount < 0 || maxCount < 0 || minCount > maxCount {
		return nil, fmt.Errorf("%w: bounds min=%d max=%d", ErrInvalidConfig, minCount, maxCount)
	}

	r := &Registry{
		container: container,
		prefix:    prefix,
		maxCount:  maxCount,
		minCount:  minCount,
		rewriter:  newIndexRewriter(prefix),
		cfg:       cfg,
		logger:    cfg.logger.With("prefix", prefix),
		entries:   make(map[RowID]*entry),
	}

	r.template = lookupTemplate(container, cfg)
	if err := validateTemplate(r.template, r.rewriter); err != nil {
		return nil, err
	}

	// The server may render more rows than max; they are kept and AddRow stays
	// refused until deletions bring the count below max.
	rows := rowElements(container)
	for position, node := range rows {
		if err := r.checkRowNames(node, position); err != nil {
			return nil, err
		}
	}
	if cfg.management != nil {
		total, err := cfg.management.TotalForms()
		if err != nil {
			return nil, err
		}
		if total != len(rows) {
			return nil, fmt.Errorf("%w: %s is %d but %d rows are present",
				ErrMalformedRow, ManagementName(prefix, TotalFormsField), total, len(rows))
		}
	}

	for position, node := range rows {
		original := cfg.isOriginal(node, r.readNode(node, position))
		id := r.register(node, position, original)
		r.logger.Debug("formset: row registered", "id", id, "position", position, "original", original)
	}
	return r, nil
}

// rowElements lists the row fragments of a container in document order.
func rowElements(container *html.Node) []*html.Node {
	var rows []*html.Node
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if isRowElement(c) {
			rows = append(rows, c)
		}
	}
	return rows
}

func isRowElement(n *html.Node) bool {
	if n.Type != html.ElementNode || hasClass(n, EmptyFormClass) {
		return false
	}
	switch n.DataAtom {
	case atom.Template, atom.Script, atom.Style:
		return false
	case atom.Input:
		return !isManagementInput(n)
	}
	return true
}

func (r *Registry) checkRowNames(node *html.Node, position int) error {
	for _, field := range namedElements(node) {
		name, _ := getAttr(field, "name")
		idx, ok := r.rewriter.index(name)
		if !ok {
			continue
		}
		if idx != position {
			return fmt.Errorf("%w: field %q found in row %d", ErrMalformedRow, name, position)
		}
	}
	return nil
}

func (r *Registry) newID() RowID {
	id := RowID("lineid-" + r.prefix + "-" + strconv.Itoa(r.nextID))
	r.nextID++
	return id
}

func (r *Registry) register(node *html.Node, position int, original bool) RowID {
	id := r.newID()
	r.entries[id] = &entry{
		id:       id,
		node:     node,
		position: position,
		original: original,
	}
	r.order = append(r.order, id)
	r.positions = append(r.positions, id)
	return id
}

// Prefix returns the naming prefix.
func (r *Registry) Prefix() string { return r.prefix }

// Container returns the element holding the rows.
func (r *Registry) Container() *html.Node { return r.container }

// TotalCount returns the number of attached rows, soft-deleted ones included.
func (r *Registry) TotalCount() int { return len(r.positions) }

// MaxCount returns the fixed upper bound on attached rows.
func (r *Registry) MaxCount() int { return r.maxCount }

// MinCount returns the fixed lower bound enforced on physical removal.
func (r *Registry) MinCount() int { return r.minCount }

// CanAdd reports whether AddRow would succeed.
func (r *Registry) CanAdd() bool { return r.TotalCount() < r.maxCount }

// CanDelete reports whether a row can be physically removed without
// crossing MIN_NUM_FORMS.
func (r *Registry) CanDelete() bool {
	return !r.cfg.enforceFloor || r.TotalCount() > r.minCount
}

// AddRow clones the template, numbers it at the next free position, applies
// values to the fields whose key matches and appends it to the container.
// Keys without a matching field are ignored. It returns false, without
// touching the tree, when MAX_NUM_FORMS rows are already attached.
func (r *Registry) AddRow(values map[string]string) (RowID, bool) {
	if !r.CanAdd() {
		r.logger.Debug("formset: add refused at capacity", "total", r.TotalCount(), "max", r.maxCount)
		return "", false
	}

	position := r.TotalCount()
	node := cloneTree(r.template)
	if hasClass(node, EmptyFormClass) {
		removeClass(node, EmptyFormClass)
		removeAttr(node, "hidden")
	}
	r.rewriteIndexes(node, position)
	for _, field := range namedElements(node) {
		name, _ := getAttr(field, "name")
		if _, ok := r.rewriter.index(name); ok {
			setAttr(field, "id", InputID(name))
		}
	}
	for _, field := range namedElements(node) {
		if !isValueField(field) {
			continue
		}
		name, _ := getAttr(field, "name")
		key, ok := FieldKey(r.prefix, position, name)
		if !ok {
			continue
		}
		if v, ok := values[key]; ok {
			setFieldValue(field, v)
		}
	}

	r.container.AppendChild(node)
	id := r.register(node, position, false)
	r.logger.Debug("formset: row added", "id", id, "position", position)
	if r.addButton != nil {
		r.installDeleteButton(r.entries[id])
	}
	r.sync()
	return id, true
}

// ReadRow returns the values of a row keyed by field name without the row
// prefix.
func (r *Registry) ReadRow(id RowID) (map[string]string, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return r.readNode(e.node, e.position), nil
}

func (r *Registry) readNode(node *html.Node, position int) map[string]string {
	values := make(map[string]string)
	for _, field := range namedElements(node) {
		if !isValueField(field) {
			continue
		}
		name, _ := getAttr(field, "name")
		key, ok := FieldKey(r.prefix, position, name)
		if !ok {
			continue
		}
		if isCheckable(field) && inputType(field) == "radio" {
			if v := fieldValue(field); v != "" {
				values[key] = v
			} else if _, seen := values[key]; !seen {
				values[key] = ""
			}
			continue
		}
		values[key] = fieldValue(field)
	}
	return values
}

// Get returns the snapshot of one row.
func (r *Registry) Get(id RowID) (Row, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Row{}, err
	}
	return r.snapshot(e), nil
}

// ReadAll returns one snapshot per registered row in registration order.
// That order can differ from position order once rows have been removed and
// re-added; callers needing positional order sort on Position.
func (r *Registry) ReadAll() []Row {
	rows := make([]Row, 0, len(r.order))
	for _, id := range r.order {
		rows = append(rows, r.snapshot(r.entries[id]))
	}
	return rows
}

func (r *Registry) snapshot(e *entry) Row {
	values := r.readNode(e.node, e.position)
	return Row{
		ID:       e.id,
		Position: e.position,
		Original: e.original,
		Deleted:  truthy(values[FieldDelete]),
		Values:   values,
	}
}

// DeleteRow removes a row. Original rows stay attached and counted with
// their DELETE marker set. Client-side rows are detached and every later row
// is renumbered, unless removing one would cross MIN_NUM_FORMS, in which
// case nothing changes and DeleteSkipped is returned.
func (r *Registry) DeleteRow(id RowID) (DeleteOutcome, error) {
	e, err := r.lookup(id)
	if err != nil {
		return DeleteSkipped, err
	}

	if e.original {
		marker := FindByName(e.node, InputName(r.prefix, e.position, FieldDelete))
		if marker == nil {
			return DeleteSkipped, fmt.Errorf("%w: row %s", ErrMissingDeleteMarker, id)
		}
		if isCheckable(marker) {
			setAttr(marker, "checked", "")
		} else {
			setAttr(marker, "value", "on")
		}
		r.logger.Debug("formset: row marked deleted", "id", id, "position", e.position)
		r.sync()
		return DeleteMarked, nil
	}

	if !r.CanDelete() {
		r.logger.Debug("formset: delete skipped at floor", "id", id, "total", r.TotalCount(), "min", r.minCount)
		return DeleteSkipped, nil
	}

	removed := e.position
	if e.node.Parent != nil {
		e.node.Parent.RemoveChild(e.node)
	}
	delete(r.entries, id)
	r.order = removeID(r.order, id)
	r.positions = append(r.positions[:removed], r.positions[removed+1:]...)

	// Strictly increasing positions: row p+1 takes name p only after row p
	// has vacated it.
	for position := removed; position < len(r.positions); position++ {
		next := r.entries[r.positions[position]]
		r.renumber(next, position)
	}
	r.logger.Debug("formset: row removed", "id", id, "position", removed, "total", r.TotalCount())
	r.sync()
	return DeleteRemoved, nil
}

func (r *Registry) renumber(e *entry, position int) {
	r.rewriteIndexes(e.node, position)
	r.logger.Debug("formset: row renumbered", "id", e.id, "from", e.position, "to", position)
	e.position = position
}

// rewriteIndexes moves every name, id and for attribute of a row fragment to
// position.
func (r *Registry) rewriteIndexes(node *html.Node, position int) {
	rewrite := func(n *html.Node) {
		for _, key := range []string{"name", "id", "for"} {
			v, ok := getAttr(n, key)
			if !ok {
				continue
			}
			if renamed, ok := r.rewriter.rewrite(v, position); ok {
				setAttr(n, key, renamed)
			}
		}
	}
	rewrite(node)
	walk(node, func(n *html.Node) bool {
		rewrite(n)
		return true
	})
}

// PositionOf scans the attached rows for node and returns its position.
func (r *Registry) PositionOf(node *html.Node) (int, bool) {
	if node == nil {
		return 0, false
	}
	position := 0
	for c := r.container.FirstChild; c != nil && position < r.TotalCount(); c = c.NextSibling {
		if !isRowElement(c) {
			continue
		}
		if c == node {
			return position, true
		}
		position++
	}
	return 0, false
}

// IDAt returns the identifier of the row at position.
func (r *Registry) IDAt(position int) (RowID, bool) {
	if position < 0 || position >= len(r.positions) {
		return "", false
	}
	return r.positions[position], true
}

// Node returns the fragment of a row, for collaborators that decorate it.
func (r *Registry) Node(id RowID) (*html.Node, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.node, nil
}

// TemplateKeys lists the field keys a new row accepts, in template order.
// The DELETE marker and the persisted id are left out.
func (r *Registry) TemplateKeys() []string {
	var keys []string
	seen := make(map[string]struct{})
	placeholder := r.prefix + "-" + PrefixPlaceholder + "-"
	for _, field := range namedElements(r.template) {
		if !isValueField(field) {
			continue
		}
		name, _ := getAttr(field, "name")
		key, ok := strings.CutPrefix(name, placeholder)
		if !ok || key == "" || key == FieldDelete || key == FieldID {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func (r *Registry) lookup(id RowID) (*entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRow, id)
	}
	return e, nil
}

// sync pushes the row count to TOTAL_FORMS and refreshes control state.
func (r *Registry) sync() {
	r.cfg.management.SetTotalForms(r.TotalCount())
	r.refreshControls()
}

func removeID(ids []RowID, id RowID) []RowID {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
