package display

import "fmt"

// WindowID identifies a window. Zero is never issued.
type WindowID uint32

// Position is fixed when a window is created.
type Position struct {
	fixed bool
	x, y  int
}

// Normal stacks a window below its earlier siblings.
func Normal() Position { return Position{} }

// Fixed places a window at absolute panel coordinates as a modal overlay.
func Fixed(x, y int) Position { return Position{fixed: true, x: x, y: y} }

func (p Position) IsFixed() bool { return p.fixed }

// XY returns the absolute coordinates of a Fixed position.
func (p Position) XY() (int, int) { return p.x, p.y }

func (p Position) String() string {
	if p.fixed {
		return fmt.Sprintf("Fixed(%d,%d)", p.x, p.y)
	}
	return "Normal"
}

// Window is the per-node state a widget sees while rendering.
type Window struct {
	ID       WindowID
	Position Position
	Focus    bool
}

type node struct {
	win      Window
	parent   WindowID
	children []WindowID
}

func (n *node) removeChild(id WindowID) {
	for i, c := range n.children {
		if c == id {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}
