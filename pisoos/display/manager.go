// Package display owns the window tree: identities, focus, event dispatch,
// the action queue and frame compositing.
//
// Widgets hold only their WindowID. Parent, child and focus links live here
// and nowhere else.
package display

import (
	"context"
	"math"

	"piso/pisoos/errs"
)

// Manager is not safe for concurrent use; callers serialize access.
type Manager struct {
	width  int
	height int

	nodes map[WindowID]*node
	root  WindowID
	next  WindowID
	limit WindowID
	focus WindowID

	// construction context: windows whose DoAction is running
	building []WindowID

	// number of leading queue entries that already went unhandled once
	retained int

	logf func(format string, args ...any)
	ctx  context.Context
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogf routes diagnostics (dropped actions, focus fallbacks) to logf.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(m *Manager) { m.logf = logf }
}

// WithContext sets the context handed to widgets for backend calls made
// while handling actions.
func WithContext(ctx context.Context) Option {
	return func(m *Manager) { m.ctx = ctx }
}

// WithIDLimit caps the identity space. Intended for tests.
func WithIDLimit(n uint32) Option {
	return func(m *Manager) { m.limit = WindowID(n) }
}

// New creates a manager for a width x height panel. The root window exists
// from the start and holds focus until something else is focused.
func New(width, height int, opts ...Option) *Manager {
	m := &Manager{
		width:  width,
		height: height,
		nodes:  make(map[WindowID]*node),
		limit:  math.MaxUint32,
		logf:   func(string, ...any) {},
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.next = 1
	m.root = m.next
	m.next++
	m.nodes[m.root] = &node{win: Window{ID: m.root, Position: Normal(), Focus: true}}
	m.focus = m.root
	return m
}

func (m *Manager) Root() WindowID   { return m.root }
func (m *Manager) Size() (int, int) { return m.width, m.height }

// Context is the lifetime context of the event loop driving this manager.
func (m *Manager) Context() context.Context { return m.ctx }

// Len returns the number of live windows, root included.
func (m *Manager) Len() int { return len(m.nodes) }

// Window returns a copy of a window's state.
func (m *Manager) Window(id WindowID) (Window, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return Window{}, false
	}
	return n.win, true
}

// Parent returns the parent of id; the root has none.
func (m *Manager) Parent(id WindowID) (WindowID, bool) {
	n, ok := m.nodes[id]
	if !ok || id == m.root {
		return 0, false
	}
	return n.parent, true
}

// AddChild creates a window under the current construction context: the
// window of the widget whose DoAction is running, or the root otherwise.
func (m *Manager) AddChild(pos Position) (WindowID, error) {
	parent := m.root
	if n := len(m.building); n > 0 {
		parent = m.building[n-1]
	}
	return m.AddChildTo(parent, pos)
}

// AddChildTo creates a window under an explicit parent.
func (m *Manager) AddChildTo(parent WindowID, pos Position) (WindowID, error) {
	p, ok := m.nodes[parent]
	if !ok {
		return 0, errs.Structural("add_child", "unknown parent window %d", parent)
	}
	if m.next == 0 || m.next > m.limit {
		return 0, errs.Structural("add_child", "window identity space exhausted")
	}
	id := m.next
	m.next++
	m.nodes[id] = &node{win: Window{ID: id, Position: pos}, parent: parent}
	p.children = append(p.children, id)
	return id, nil
}

// ShiftFocus moves focus to w's window. Focusing the current holder is a no-op.
func (m *Manager) ShiftFocus(w Widget) error {
	if w == nil {
		return errs.Structural("shift_focus", "nil widget")
	}
	return m.ShiftFocusTo(w.WindowID())
}

// ShiftFocusTo moves focus to id.
func (m *Manager) ShiftFocusTo(id WindowID) error {
	n, ok := m.nodes[id]
	if !ok {
		return errs.Structural("shift_focus", "unknown window %d", id)
	}
	if old, ok := m.nodes[m.focus]; ok {
		old.win.Focus = false
	}
	n.win.Focus = true
	m.focus = id
	return nil
}

// Focused returns the window holding focus.
func (m *Manager) Focused() WindowID { return m.focus }

// FocusPath returns the chain of windows from the root to the focused window.
func (m *Manager) FocusPath() []WindowID {
	var rev []WindowID
	for id := m.focus; ; {
		rev = append(rev, id)
		if id == m.root {
			break
		}
		n, ok := m.nodes[id]
		if !ok {
			break
		}
		id = n.parent
	}
	path := make([]WindowID, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = id
	}
	return path
}

// Sync detaches every window that no widget under root owns any more. When
// the focused window goes away focus falls back to its closest surviving
// ancestor.
func (m *Manager) Sync(root Widget) {
	live := map[WindowID]bool{m.root: true}
	for _, w := range Walk(root) {
		live[w.WindowID()] = true
	}

	if !live[m.focus] {
		id := m.focus
		for !live[id] {
			n, ok := m.nodes[id]
			if !ok {
				id = m.root
				break
			}
			id = n.parent
		}
		m.logf("display: focus %d detached, falling back to %d", m.focus, id)
		// id is live, so this cannot fail
		_ = m.ShiftFocusTo(id)
	}

	for id, n := range m.nodes {
		if live[id] {
			continue
		}
		if p, ok := m.nodes[n.parent]; ok {
			p.removeChild(id)
		}
		delete(m.nodes, id)
	}
}

func (m *Manager) pushBuilding(id WindowID) { m.building = append(m.building, id) }
func (m *Manager) popBuilding()            { m.building = m.building[:len(m.building)-1] }
