package display

import (
	"testing"

	"piso/pisoos/bitmap"
	"piso/pisoos/font"
)

func solid(w, h int) *bitmap.Bitmap {
	b := bitmap.New(w, h)
	b.Fill(0, 0, w, h, 1)
	return b
}

func TestRenderStacksNormalChildren(t *testing.T) {
	m := New(32, 32)
	root := &fakeWidget{bmp: bitmap.New(32, 4)}
	root.id = mustAdd(t, m, m.Root(), Normal())
	a := &fakeWidget{bmp: solid(20, 3)}
	a.id = mustAdd(t, m, root.id, Normal())
	b := &fakeWidget{bmp: solid(20, 5)}
	b.id = mustAdd(t, m, root.id, Normal())
	root.children = []Widget{a, b}

	frame, err := m.Render(root)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if frame.Width() != 32 || frame.Height() != 32 {
		t.Fatalf("expected panel-sized frame, got %dx%d", frame.Width(), frame.Height())
	}
	if frame.Get(19, 3) != 0 || frame.Get(19, 4) == 0 || frame.Get(19, 6) == 0 {
		t.Fatalf("expected first child at rows 4..6:\n%s", frame)
	}
	if frame.Get(19, 7) == 0 || frame.Get(19, 11) == 0 || frame.Get(19, 12) != 0 {
		t.Fatalf("expected second child at rows 7..11:\n%s", frame)
	}
}

func TestRenderFixedOverlayOccludes(t *testing.T) {
	m := New(16, 16)
	root := &fakeWidget{bmp: solid(16, 16)}
	root.id = mustAdd(t, m, m.Root(), Normal())
	modal := &fakeWidget{bmp: solid(2, 2)}
	modal.id = mustAdd(t, m, root.id, Fixed(4, 4))
	root.children = []Widget{modal}

	frame, err := m.Render(root)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if frame.Get(3, 3) == 0 {
		t.Fatal("expected content outside the overlay untouched")
	}
	if frame.Get(4, 4) == 0 || frame.Get(5, 5) == 0 {
		t.Fatal("expected overlay pixels")
	}
	if frame.Get(10, 10) != 0 {
		t.Fatalf("expected overlay to blank the area below it:\n%s", frame)
	}
}

func TestRenderNestedOverlaysInTreeOrder(t *testing.T) {
	m := New(16, 16)
	root := &fakeWidget{}
	root.id = mustAdd(t, m, m.Root(), Normal())
	outer := &fakeWidget{bmp: solid(16, 16)}
	outer.id = mustAdd(t, m, root.id, Fixed(0, 0))
	inner := &fakeWidget{bmp: bitmap.New(1, 1)}
	inner.id = mustAdd(t, m, outer.id, Fixed(8, 0))
	root.children = []Widget{outer}
	outer.children = []Widget{inner}

	frame, err := m.Render(root)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if frame.Get(2, 2) == 0 {
		t.Fatal("expected outer overlay drawn")
	}
	if frame.Get(9, 2) != 0 {
		t.Fatalf("expected inner overlay on top of outer:\n%s", frame)
	}
}

func TestRenderFocusMarker(t *testing.T) {
	m := New(64, 32)
	root := &fakeWidget{}
	root.id = mustAdd(t, m, m.Root(), Normal())
	item := &fakeWidget{bmp: bitmap.New(64, font.LineHeight)}
	item.id = mustAdd(t, m, root.id, Normal())
	root.children = []Widget{item}

	frame, err := m.Render(root)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Lit() != 0 {
		t.Fatal("expected no marker without focus")
	}

	if err := m.ShiftFocus(item); err != nil {
		t.Fatal(err)
	}
	frame, err = m.Render(root)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Lit() != font.Arrow.Lit() {
		t.Fatalf("expected only the arrow lit, got %d pixels:\n%s", frame.Lit(), frame)
	}
	for y := 0; y < frame.Height(); y++ {
		for x := Gutter; x < frame.Width(); x++ {
			if frame.Get(x, y) != 0 {
				t.Fatalf("marker escaped the gutter at (%d,%d)", x, y)
			}
		}
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	m := New(32, 16)
	root := &fakeWidget{bmp: solid(10, 3)}
	root.id = mustAdd(t, m, m.Root(), Normal())
	child := &fakeWidget{bmp: solid(5, 5)}
	child.id = mustAdd(t, m, root.id, Normal())
	root.children = []Widget{child}
	if err := m.ShiftFocus(child); err != nil {
		t.Fatal(err)
	}

	first, err := m.Render(root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Render(root)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Equal(second) {
		t.Fatalf("expected identical frames:\n%s\n%s", first, second)
	}
	if root.bmp.Height() != 3 {
		t.Fatal("render must not mutate widget bitmaps")
	}
}

func TestRenderUnknownWindowIsStructural(t *testing.T) {
	m := New(8, 8)
	w := &fakeWidget{id: 42}
	if _, err := m.Render(w); err == nil {
		t.Fatal("expected error for a widget without a window")
	}
}
