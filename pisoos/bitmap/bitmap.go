// Package bitmap is the monochrome canvas every widget renders into.
package bitmap

import (
	"image/color"
	"strings"

	"tinygo.org/x/drivers"
)

// Bitmap is a row-major grid of pixels. A zero pixel is off.
//
// Blit grows the destination to fit the source, so an empty bitmap is a valid
// starting canvas.
type Bitmap struct {
	width  int
	height int
	pix    []uint8
}

var _ drivers.Displayer = (*Bitmap)(nil)

// New returns a blank bitmap.
func New(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Bitmap{width: width, height: height, pix: make([]uint8, width*height)}
}

// FromRows builds a sprite from text rows; '#' and 'X' are lit pixels.
func FromRows(rows []string) *Bitmap {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	b := New(w, len(rows))
	for y, r := range rows {
		for x := 0; x < len(r); x++ {
			if r[x] == '#' || r[x] == 'X' {
				b.pix[y*w+x] = 1
			}
		}
	}
	return b
}

func (b *Bitmap) Width() int  { return b.width }
func (b *Bitmap) Height() int { return b.height }

// Get returns the pixel at (x, y); out of range reads are off.
func (b *Bitmap) Get(x, y int) uint8 {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return 0
	}
	return b.pix[y*b.width+x]
}

// Set writes a pixel, ignoring out of range coordinates.
func (b *Bitmap) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	b.pix[y*b.width+x] = v
}

// Resize grows or crops the bitmap, keeping the top-left content.
func (b *Bitmap) Resize(width, height int) {
	if width == b.width && height == b.height {
		return
	}
	nb := New(width, height)
	for y := 0; y < min(height, b.height); y++ {
		copy(nb.pix[y*width:y*width+min(width, b.width)], b.pix[y*b.width:])
	}
	*b = *nb
}

// Blit copies src over b with its top-left corner at (x, y).
// Negative offsets clip the source.
func (b *Bitmap) Blit(src *Bitmap, x, y int) {
	if src == nil || src.width == 0 || src.height == 0 {
		return
	}
	needW := max(b.width, x+src.width)
	needH := max(b.height, y+src.height)
	if needW > b.width || needH > b.height {
		b.Resize(needW, needH)
	}
	for sy := 0; sy < src.height; sy++ {
		dy := y + sy
		if dy < 0 {
			continue
		}
		for sx := 0; sx < src.width; sx++ {
			dx := x + sx
			if dx < 0 {
				continue
			}
			b.pix[dy*b.width+dx] = src.pix[sy*src.width+sx]
		}
	}
}

// Fill sets a rectangle to v, clipped to the bitmap.
func (b *Bitmap) Fill(x, y, w, h int, v uint8) {
	for yy := max(y, 0); yy < min(y+h, b.height); yy++ {
		for xx := max(x, 0); xx < min(x+w, b.width); xx++ {
			b.pix[yy*b.width+xx] = v
		}
	}
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	nb := New(b.width, b.height)
	copy(nb.pix, b.pix)
	return nb
}

// Equal reports whether both bitmaps have the same size and pixels.
func (b *Bitmap) Equal(o *Bitmap) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.pix {
		if (b.pix[i] != 0) != (o.pix[i] != 0) {
			return false
		}
	}
	return true
}

// Lit counts the pixels that are on.
func (b *Bitmap) Lit() int {
	n := 0
	for _, p := range b.pix {
		if p != 0 {
			n++
		}
	}
	return n
}

// String renders the bitmap as rows of '#' and '.', handy in test failures.
func (b *Bitmap) String() string {
	var sb strings.Builder
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.pix[y*b.width+x] != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Size implements drivers.Displayer.
func (b *Bitmap) Size() (x, y int16) { return int16(b.width), int16(b.height) }

// SetPixel implements drivers.Displayer. Any non-black color lights the pixel.
func (b *Bitmap) SetPixel(x, y int16, c color.RGBA) {
	var v uint8
	if c.R|c.G|c.B != 0 {
		v = 1
	}
	b.Set(int(x), int(y), v)
}

// Display implements drivers.Displayer; bitmaps have nothing to flush.
func (b *Bitmap) Display() error { return nil }

// BorderStyle selects which edges WithBorder decorates.
type BorderStyle uint8

const (
	BorderTop BorderStyle = iota
	BorderBottom
	BorderBox
)

// WithBorder returns a new bitmap holding b surrounded by a one pixel border
// on the edges named by style, with pad blank pixels between content and line.
func WithBorder(b *Bitmap, style BorderStyle, pad int) *Bitmap {
	if pad < 0 {
		pad = 0
	}
	edge := pad + 1
	switch style {
	case BorderTop:
		out := New(b.width, b.height+edge)
		out.Blit(b, 0, edge)
		out.Fill(0, 0, b.width, 1, 1)
		return out
	case BorderBottom:
		out := New(b.width, b.height+edge)
		out.Blit(b, 0, 0)
		out.Fill(0, out.height-1, b.width, 1, 1)
		return out
	default:
		out := New(b.width+2*edge, b.height+2*edge)
		out.Blit(b, edge, edge)
		out.Fill(0, 0, out.width, 1, 1)
		out.Fill(0, out.height-1, out.width, 1, 1)
		out.Fill(0, 0, 1, out.height, 1)
		out.Fill(out.width-1, 0, 1, out.height, 1)
		return out
	}
}
