package font

import "testing"

func TestRenderTextSizes(t *testing.T) {
	short := RenderText("Hi")
	long := RenderText("Hello world")

	if short.Height() != TextHeight() || long.Height() != TextHeight() {
		t.Fatalf("expected uniform height %d, got %d and %d", TextHeight(), short.Height(), long.Height())
	}
	if long.Width() <= short.Width() {
		t.Fatalf("expected longer text to be wider: %d <= %d", long.Width(), short.Width())
	}
	if long.Lit() == 0 {
		t.Fatal("expected glyph pixels")
	}
}

func TestRenderTextEmpty(t *testing.T) {
	b := RenderText("")
	if b.Width() != 0 || b.Lit() != 0 {
		t.Fatalf("expected empty bitmap, got %dx%d", b.Width(), b.Height())
	}
}

func TestRenderTextDeterministic(t *testing.T) {
	if !RenderText("Drive0").Equal(RenderText("Drive0")) {
		t.Fatal("expected identical bitmaps for identical text")
	}
}

func TestArrowFitsLine(t *testing.T) {
	if Arrow.Height() > LineHeight {
		t.Fatalf("arrow taller than a line: %d", Arrow.Height())
	}
}
