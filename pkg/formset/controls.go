package formset

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ControlState is the enabled state of the add and delete buttons.
type ControlState struct {
	AddDisabled    bool `json:"addDisabled"`
	DeleteDisabled bool `json:"deleteDisabled"`
}

// Controls reports whether the add and delete buttons should be disabled.
func (r *Registry) Controls() ControlState {
	return ControlState{
		AddDisabled:    !r.CanAdd(),
		DeleteDisabled: !r.CanDelete(),
	}
}

// InstallControls inserts a delete button in every row and an add button
// after the formset. DELETE checkboxes are replaced by hidden inputs so the
// marker is only driven through the button. Calling it twice is a no-op.
// The buttons carry names and ids only; event wiring belongs to the page.
func (r *Registry) InstallControls() {
	if r.addButton != nil {
		return
	}
	for _, id := range r.positions {
		r.installDeleteButton(r.entries[id])
	}

	name := ManagementName(r.prefix, "ADDBUTTON")
	r.addButton = newButton(name, "add-row", r.cfg.addLabel)
	anchor := r.container
	if table := enclosingTable(r.container); table != nil {
		anchor = table
	}
	// A detached formset keeps its add button detached too; callers reach it
	// through AddButton.
	if anchor.Parent != nil {
		anchor.Parent.InsertBefore(r.addButton, anchor.NextSibling)
	}
	r.refreshControls()
}

// AddButton returns the add button inserted by InstallControls.
func (r *Registry) AddButton() *html.Node { return r.addButton }

// DeleteButton returns the delete button of a row once controls are installed.
func (r *Registry) DeleteButton(id RowID) (*html.Node, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.deleteButton, nil
}

func (r *Registry) installDeleteButton(e *entry) {
	if e.deleteButton != nil {
		return
	}
	name := InputName(r.prefix, e.position, FieldDeleteButton)
	button := newButton(name, "delete-row", r.cfg.deleteLabel)

	marker := FindByName(e.node, InputName(r.prefix, e.position, FieldDelete))
	if marker != nil && marker.Parent != nil {
		if isCheckable(marker) {
			marker = hideMarker(marker)
		}
		marker.Parent.InsertBefore(button, marker)
	} else {
		host := e.node
		if e.node.DataAtom == atom.Tr && e.node.LastChild != nil {
			for c := e.node.LastChild; c != nil; c = c.PrevSibling {
				if c.Type == html.ElementNode {
					host = c
					break
				}
			}
		}
		host.AppendChild(button)
	}
	e.deleteButton = button
}

// hideMarker swaps a DELETE checkbox for a hidden input keeping its state,
// and hides the label pointing at it.
func hideMarker(box *html.Node) *html.Node {
	name, _ := getAttr(box, "name")
	id, hasID := getAttr(box, "id")
	hidden := newElement(atom.Input,
		html.Attribute{Key: "type", Val: "hidden"},
		html.Attribute{Key: "name", Val: name},
	)
	if hasID {
		setAttr(hidden, "id", id)
	}
	if _, checked := getAttr(box, "checked"); checked {
		setAttr(hidden, "value", "on")
	} else {
		setAttr(hidden, "value", "")
	}
	parent := box.Parent
	parent.InsertBefore(hidden, box)
	parent.RemoveChild(box)

	if hasID {
		root := parent
		for root.Parent != nil {
			root = root.Parent
		}
		walk(root, func(n *html.Node) bool {
			if n.DataAtom == atom.Label {
				if v, ok := getAttr(n, "for"); ok && v == id {
					setAttr(n, "hidden", "")
				}
			}
			return true
		})
	}
	return hidden
}

func (r *Registry) refreshControls() {
	if r.addButton == nil {
		return
	}
	state := r.Controls()
	setDisabled(r.addButton, state.AddDisabled)
	for _, e := range r.entries {
		if e.deleteButton == nil {
			continue
		}
		disabled := state.DeleteDisabled && !e.original
		if e.original {
			disabled = truthy(r.readNode(e.node, e.position)[FieldDelete])
		}
		setDisabled(e.deleteButton, disabled)
	}
}

func newButton(name, class, label string) *html.Node {
	button := newElement(atom.Button,
		html.Attribute{Key: "type", Val: "button"},
		html.Attribute{Key: "name", Val: name},
		html.Attribute{Key: "id", Val: InputID(name)},
		html.Attribute{Key: "class", Val: class},
	)
	button.AppendChild(&html.Node{Type: html.TextNode, Data: label})
	return button
}

func setDisabled(n *html.Node, disabled bool) {
	if disabled {
		setAttr(n, "disabled", "")
		return
	}
	removeAttr(n, "disabled")
}
