package hal

// rgb565 packs 8-bit channels into the 16bpp panel format.
func rgb565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b>>3)
}

// lit565 reports whether a pixel is on for a monochrome panel: any channel
// at half intensity or more.
func lit565(p uint16) bool {
	return p&0x8410 != 0
}
