package hal

import (
	"image/color"

	"tinygo.org/x/drivers"
)

// FrameWriter is implemented by framebuffers that another goroutine reads,
// such as the host window. WriteFrame replaces the whole buffer under the
// framebuffer's own lock.
type FrameWriter interface {
	WriteFrame(src []byte) error
}

// FramebufferDisplay draws on an RGB565 Framebuffer through the tinygo
// Displayer interface. Pixels go to a back buffer; Display copies it to the
// framebuffer and presents it.
type FramebufferDisplay struct {
	fb   Framebuffer
	back []byte
}

var _ drivers.Displayer = (*FramebufferDisplay)(nil)

func NewFramebufferDisplay(fb Framebuffer) *FramebufferDisplay {
	d := &FramebufferDisplay{fb: fb}
	if fb != nil {
		d.back = make([]byte, fb.StrideBytes()*fb.Height())
	}
	return d
}

func (d *FramebufferDisplay) Size() (x, y int16) {
	if d.fb == nil {
		return 0, 0
	}
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *FramebufferDisplay) SetPixel(x, y int16, c color.RGBA) {
	if d.fb == nil || d.fb.Format() != PixelFormatRGB565 {
		return
	}
	ix, iy := int(x), int(y)
	if ix < 0 || ix >= d.fb.Width() || iy < 0 || iy >= d.fb.Height() {
		return
	}
	off := iy*d.fb.StrideBytes() + ix*2
	if off < 0 || off+1 >= len(d.back) {
		return
	}
	pixel := rgb565(c.R, c.G, c.B)
	d.back[off] = byte(pixel)
	d.back[off+1] = byte(pixel >> 8)
}

func (d *FramebufferDisplay) Display() error {
	if d.fb == nil {
		return nil
	}
	if w, ok := d.fb.(FrameWriter); ok {
		if err := w.WriteFrame(d.back); err != nil {
			return err
		}
	} else {
		copy(d.fb.Buffer(), d.back)
	}
	return d.fb.Present()
}

// Clear blanks the back buffer; the panel changes on the next Display.
func (d *FramebufferDisplay) Clear() {
	clear(d.back)
}
