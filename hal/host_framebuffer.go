package hal

import "sync"

// hostFramebuffer is the simulated panel shared by the window and headless
// runners.
type hostFramebuffer struct {
	mu       sync.Mutex
	width    int
	height   int
	buf      []byte
	presents uint64
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	return &hostFramebuffer{width: width, height: height, buf: make([]byte, width*height*2)}
}

func (f *hostFramebuffer) Width() int          { return f.width }
func (f *hostFramebuffer) Height() int         { return f.height }
func (f *hostFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *hostFramebuffer) StrideBytes() int    { return f.width * 2 }
func (f *hostFramebuffer) Buffer() []byte      { return f.buf }

func (f *hostFramebuffer) Present() error {
	f.mu.Lock()
	f.presents++
	f.mu.Unlock()
	return nil
}

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := rgb565(r, g, b)
	for i := 0; i+1 < len(f.buf); i += 2 {
		f.buf[i], f.buf[i+1] = byte(p), byte(p>>8)
	}
}

func (f *hostFramebuffer) WriteFrame(src []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.buf, src)
	return nil
}

func (f *hostFramebuffer) snapshotRGB565(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf)
}

// litPixels counts pixels that are on, for headless checks.
func (f *hostFramebuffer) litPixels() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := 0; i+1 < len(f.buf); i += 2 {
		if lit565(uint16(f.buf[i]) | uint16(f.buf[i+1])<<8) {
			n++
		}
	}
	return n
}

// Presented is the number of frames pushed so far.
func (f *hostFramebuffer) Presented() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presents
}
