package app

import (
	"strings"
	"unicode/utf8"

	"piso/pisoos/bitmap"
	"piso/pisoos/errs"
	"piso/pisoos/font"
)

// bootScreen shows progress while the backends come up; scanning the volume
// group can take seconds on first boot.
func bootScreen(p *Panel, msg string) {
	if p == nil {
		return
	}
	w, _ := p.Size()
	frame := bitmap.New(0, 0)
	frame.Blit(font.RenderText("pISO"), 0, 0)
	y := font.LineHeight * 2
	for _, line := range wrapText(msg, w) {
		frame.Blit(font.RenderText(line), 0, y)
		y += font.LineHeight
	}
	_ = p.Present(frame)
}

// fatalScreen replaces the UI with the error that stopped the event loop.
func fatalScreen(p *Panel, err error) {
	if p == nil || err == nil {
		return
	}
	w, h := p.Size()
	frame := bitmap.New(0, 0)
	frame.Blit(font.RenderText("pISO error: "+errs.Kind(err)), 0, 0)
	frame.Fill(0, font.LineHeight, w, 1, 1)

	y := font.LineHeight + 2
	for _, line := range wrapText(err.Error(), w) {
		if y+font.LineHeight > h {
			break
		}
		frame.Blit(font.RenderText(line), 0, y)
		y += font.LineHeight
	}
	_ = p.Present(frame)
}

// wrapText breaks s into lines that render no wider than width pixels,
// preferring to break at spaces.
func wrapText(s string, width int) []string {
	var out []string
	for _, para := range strings.Split(s, "\n") {
		para = strings.TrimSpace(para)
		for para != "" {
			n := fitRunes(para, width)
			if n < len(para) {
				if i := strings.LastIndexByte(para[:n], ' '); i > 0 {
					n = i
				}
			}
			out = append(out, strings.TrimRight(para[:n], " "))
			para = strings.TrimLeft(para[n:], " ")
		}
	}
	return out
}

// fitRunes returns the byte length of the longest prefix of s that fits in
// width pixels, at least one rune.
func fitRunes(s string, width int) int {
	end := 0
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		if end > 0 && font.RenderText(s[:i+size]).Width() > width {
			break
		}
		i += size
		end = i
	}
	return end
}
