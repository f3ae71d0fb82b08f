//go:build cgo

package hal

import (
	"image"

	"piso/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// WindowScale is how many screen pixels one panel pixel covers.
const WindowScale = 4

// RunWindow starts a desktop window that displays the framebuffer and forwards
// arrow keys and Enter as buttons. It blocks until the window closes or the
// step function fails.
func RunWindow(width, height int, newApp func(HAL) func() error) error {
	h := newHost(width, height)
	step := newApp(h)

	g := &hostGame{h: h, step: step}
	ebiten.SetWindowTitle("pISO (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*WindowScale, h.fb.height*WindowScale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

// Panel colours in the window: the device is a white-on-black OLED.
var (
	windowLit  = [3]uint8{0xF0, 0xF4, 0xFF}
	windowDark = [3]uint8{0x08, 0x08, 0x10}
)

type hostGame struct {
	h       *hostHAL
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	step    func() error
}

func (g *hostGame) Update() error {
	g.h.keys.poll()
	if g.step == nil {
		return nil
	}
	return g.step()
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}
	fb.snapshotRGB565(g.scratch)

	for px := 0; px < fb.width*fb.height; px++ {
		c := windowDark
		if lit565(uint16(g.scratch[px*2]) | uint16(g.scratch[px*2+1])<<8) {
			c = windowLit
		}
		j := px * 4
		g.img.Pix[j], g.img.Pix[j+1], g.img.Pix[j+2], g.img.Pix[j+3] = c[0], c[1], c[2], 0xFF
	}
	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(int, int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
