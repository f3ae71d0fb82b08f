package display

import (
	"fmt"

	"piso/pisoos/action"
	"piso/pisoos/controller"
)

// OnEvent delivers ev along the focus path and returns the actions of the
// widget that handled it. An empty result with a nil error means nobody did.
func (m *Manager) OnEvent(root Widget, ev controller.Event) ([]action.Action, error) {
	_, actions, err := m.Dispatch(root, ev)
	return actions, err
}

// Dispatch is OnEvent that also reports whether any widget handled ev.
//
// The focused widget sees the event first; if it declines, each ancestor on
// the focus path gets a turn, ending at root.
func (m *Manager) Dispatch(root Widget, ev controller.Event) (bool, []action.Action, error) {
	// a new event starts a new queue
	m.retained = 0

	idx := index(root)
	path := m.FocusPath()
	for i := len(path) - 1; i >= 0; i-- {
		w, ok := idx[path[i]]
		if !ok {
			continue
		}
		handled, actions, err := w.OnEvent(ev)
		if err != nil {
			return false, nil, fmt.Errorf("event %s at window %d: %w", ev, path[i], err)
		}
		if handled {
			return true, actions, nil
		}
	}
	return false, nil, nil
}

// DoActions runs one pass over the actions queued at entry.
//
// Each action is offered to a fresh preorder snapshot of the whole widget tree
// until a widget consumes it, so widgets created while handling one action
// only see the actions after it. Emitted actions join the tail of the queue.
// An action nobody consumed stays queued for one more pass, ahead of newly
// emitted ones; if it goes unconsumed again it is dropped. Callers loop until
// the queue is empty, rendering between passes.
func (m *Manager) DoActions(root Widget, queue *[]action.Action) error {
	pending := *queue
	again := m.retained
	if again > len(pending) {
		again = len(pending)
	}

	var retained, emitted []action.Action
	defer func() { m.Sync(root) }()

	for i, a := range pending {
		consumed := false
		for _, w := range Walk(root) {
			m.pushBuilding(w.WindowID())
			handled, more, err := w.DoAction(m, a)
			m.popBuilding()
			if err != nil {
				rest := append(append(retained, pending[i+1:]...), emitted...)
				*queue = rest
				m.retained = len(retained)
				return fmt.Errorf("action %s at window %d: %w", a, w.WindowID(), err)
			}
			if handled {
				emitted = append(emitted, more...)
				consumed = true
				break
			}
		}
		if consumed {
			continue
		}
		if i < again {
			m.logf("display: dropping unhandled action %s", a)
			continue
		}
		retained = append(retained, a)
	}

	m.retained = len(retained)
	*queue = append(retained, emitted...)
	return nil
}
