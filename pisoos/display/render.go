package display

import (
	"fmt"

	"piso/pisoos/bitmap"
	"piso/pisoos/errs"
	"piso/pisoos/font"
)

// Gutter is the left margin reserved for the focus marker in Normal windows.
const Gutter = 12

type overlay struct {
	x, y int
	bmp  *bitmap.Bitmap
}

// Render composites the widget tree into a panel-sized frame. It does not
// modify the tree.
//
// Normal children are stacked under their parent's own content in child
// order. Fixed windows are modal: they are drawn after the normal flow, in
// tree order, and blank everything from their origin to the panel's
// bottom-right corner.
func (m *Manager) Render(root Widget) (*bitmap.Bitmap, error) {
	var overlays []overlay
	body, err := m.compose(root, &overlays)
	if err != nil {
		return nil, err
	}

	frame := bitmap.New(m.width, m.height)
	if w, ok := m.nodes[root.WindowID()]; ok && w.win.Position.IsFixed() {
		x, y := w.win.Position.XY()
		overlays = append([]overlay{{x: x, y: y, bmp: body}}, overlays...)
	} else {
		frame.Blit(body, 0, 0)
	}
	for _, o := range overlays {
		modal := bitmap.New(max(m.width-o.x, 0), max(m.height-o.y, 0))
		modal.Blit(o.bmp, 0, 0)
		frame.Blit(modal, o.x, o.y)
	}
	frame.Resize(m.width, m.height)
	return frame, nil
}

func (m *Manager) compose(w Widget, overlays *[]overlay) (*bitmap.Bitmap, error) {
	n, ok := m.nodes[w.WindowID()]
	if !ok {
		return nil, errs.Structural("render", "widget owns unknown window %d", w.WindowID())
	}
	own, err := w.Render(n.win)
	if err != nil {
		return nil, fmt.Errorf("render window %d: %w", n.win.ID, err)
	}
	canvas := bitmap.New(0, 0)
	if own != nil {
		canvas = own.Clone()
	}

	y := canvas.Height()
	for _, c := range w.Children() {
		cn, ok := m.nodes[c.WindowID()]
		if !ok {
			return nil, errs.Structural("render", "child owns unknown window %d", c.WindowID())
		}
		if cn.win.Position.IsFixed() {
			slot := len(*overlays)
			*overlays = append(*overlays, overlay{})
			bmp, err := m.compose(c, overlays)
			if err != nil {
				return nil, err
			}
			x, oy := cn.win.Position.XY()
			(*overlays)[slot] = overlay{x: x, y: oy, bmp: bmp}
			continue
		}

		bmp, err := m.compose(c, overlays)
		if err != nil {
			return nil, err
		}
		canvas.Blit(bmp, 0, y)
		if cn.win.Focus {
			mark := max((min(bmp.Height(), font.LineHeight)-font.Arrow.Height())/2, 0)
			canvas.Blit(font.Arrow, 0, y+mark)
		}
		y += bmp.Height()
	}
	return canvas, nil
}
