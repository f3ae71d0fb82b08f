package display

import (
	"piso/pisoos/action"
	"piso/pisoos/bitmap"
	"piso/pisoos/controller"
)

// Widget is a unit of UI state owning exactly one window.
//
// Render and OnEvent must not perform external effects; OnEvent may only
// change the widget's own fields. DoAction is the one place where children are
// created (through the manager) and collaborators are called.
type Widget interface {
	WindowID() WindowID

	Render(win Window) (*bitmap.Bitmap, error)

	OnEvent(ev controller.Event) (handled bool, actions []action.Action, err error)

	DoAction(m *Manager, a action.Action) (handled bool, actions []action.Action, err error)

	// Children returns the nested widgets active in the current state, in
	// render order.
	Children() []Widget
}

// Walk returns root and all of its descendants in preorder.
func Walk(root Widget) []Widget {
	if root == nil {
		return nil
	}
	out := []Widget{root}
	for _, c := range root.Children() {
		out = append(out, Walk(c)...)
	}
	return out
}

func index(root Widget) map[WindowID]Widget {
	idx := make(map[WindowID]Widget)
	for _, w := range Walk(root) {
		idx[w.WindowID()] = w
	}
	return idx
}
