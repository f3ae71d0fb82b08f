package app

import (
	"image/color"

	"piso/hal"
	"piso/pisoos/bitmap"
)

var (
	lit  = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	dark = color.RGBA{A: 0xFF}
)

// Panel pushes monochrome frames to the HAL framebuffer.
type Panel struct {
	d *hal.FramebufferDisplay
}

func NewPanel(fb hal.Framebuffer) *Panel {
	return &Panel{d: hal.NewFramebufferDisplay(fb)}
}

// Size is the panel resolution.
func (p *Panel) Size() (int, int) {
	w, h := p.d.Size()
	return int(w), int(h)
}

// Present draws frame at the top-left corner, clipped to the panel.
func (p *Panel) Present(frame *bitmap.Bitmap) error {
	w, h := p.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := dark
			if frame.Get(x, y) != 0 {
				c = lit
			}
			p.d.SetPixel(int16(x), int16(y), c)
		}
	}
	return p.d.Display()
}
