// Package font turns strings into bitmaps for the panel.
package font

import (
	"image/color"
	"sync"

	"piso/pisoos/bitmap"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// LineHeight is the row pitch used by list-style widgets.
const LineHeight = 9

// Face is the panel font.
var Face tinyfont.Fonter = &proggy.TinySZ8pt7b

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

var (
	metricsOnce sync.Once
	ascent      int16
	descent     int16
)

// metrics scans a sample string for the tallest ascender and deepest descender
// so every rendered line has the same height and baseline.
func metrics() (int16, int16) {
	metricsOnce.Do(func() {
		for _, r := range "Agjpqy|()[]%" {
			info := Face.GetGlyph(r).Info()
			top := -int16(info.YOffset)
			bottom := int16(info.YOffset) + int16(info.Height)
			if top > ascent {
				ascent = top
			}
			if bottom > descent {
				descent = bottom
			}
		}
		if ascent <= 0 {
			ascent = int16(Face.GetYAdvance())
		}
	})
	return ascent, descent
}

// RenderText draws s on a fresh bitmap just large enough to hold it.
func RenderText(s string) *bitmap.Bitmap {
	asc, desc := metrics()
	_, w := tinyfont.LineWidth(Face, s)
	b := bitmap.New(int(w), int(asc+desc))
	if s != "" {
		tinyfont.WriteLine(b, Face, 0, asc, s, white)
	}
	return b
}

// TextHeight is the height of every bitmap returned by RenderText.
func TextHeight() int {
	asc, desc := metrics()
	return int(asc + desc)
}

// Arrow is the focus and cursor marker.
var Arrow = bitmap.FromRows([]string{
	"#.....",
	"##....",
	"###...",
	"####..",
	"###...",
	"##....",
	"#.....",
})
