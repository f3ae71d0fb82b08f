//go:build linux

package hal

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	fbioGetVScreenInfo = 0x4600
	fbioGetFScreenInfo = 0x4602
)

type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

// fbVarScreenInfo mirrors struct fb_var_screeninfo.
type fbVarScreenInfo struct {
	XRes, YRes               uint32
	XResVirtual, YResVirtual uint32
	XOffset, YOffset         uint32
	BitsPerPixel             uint32
	Grayscale                uint32
	Red, Green, Blue, Transp fbBitfield
	NonStd, Activate         uint32
	Height, Width            uint32
	AccelFlags               uint32
	PixClock                 uint32
	LeftMargin, RightMargin  uint32
	UpperMargin, LowerMargin uint32
	HSyncLen, VSyncLen       uint32
	Sync, VMode, Rotate      uint32
	Colorspace               uint32
	Reserved                 [4]uint32
}

// fbFixScreenInfo mirrors struct fb_fix_screeninfo.
type fbFixScreenInfo struct {
	ID                            [16]byte
	SmemStart                     uintptr
	SmemLen                       uint32
	Type, TypeAux, Visual         uint32
	XPanStep, YPanStep, YWrapStep uint16
	LineLength                    uint32
	MmioStart                     uintptr
	MmioLen                       uint32
	Accel                         uint32
	Capabilities                  uint16
	Reserved                      [2]uint16
}

func fbIoctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

// linuxFramebuffer draws into a private buffer and copies it to the mapped
// device memory on Present, so the panel never shows a half drawn frame.
type linuxFramebuffer struct {
	mu     sync.Mutex
	f      *os.File
	mem    []byte
	buf    []byte
	width  int
	height int
	stride int
}

// OpenFramebuffer maps a 16bpp fbdev device such as /dev/fb1.
func OpenFramebuffer(path string) (*linuxFramebuffer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("fbdev: %w", err)
	}

	var vinfo fbVarScreenInfo
	if err := fbIoctl(f.Fd(), fbioGetVScreenInfo, unsafe.Pointer(&vinfo)); err != nil {
		f.Close()
		return nil, fmt.Errorf("fbdev: %s: get var screeninfo: %w", path, err)
	}
	var finfo fbFixScreenInfo
	if err := fbIoctl(f.Fd(), fbioGetFScreenInfo, unsafe.Pointer(&finfo)); err != nil {
		f.Close()
		return nil, fmt.Errorf("fbdev: %s: get fix screeninfo: %w", path, err)
	}
	if vinfo.BitsPerPixel != 16 {
		f.Close()
		return nil, fmt.Errorf("fbdev: %s: %d bpp unsupported, want 16", path, vinfo.BitsPerPixel)
	}

	stride := int(finfo.LineLength)
	if stride == 0 {
		stride = int(vinfo.XRes) * 2
	}
	size := stride * int(vinfo.YRes)
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fbdev: %s: mmap: %w", path, err)
	}
	return &linuxFramebuffer{
		f:      f,
		mem:    mem,
		buf:    make([]byte, size),
		width:  int(vinfo.XRes),
		height: int(vinfo.YRes),
		stride: stride,
	}, nil
}

func (f *linuxFramebuffer) Width() int          { return f.width }
func (f *linuxFramebuffer) Height() int         { return f.height }
func (f *linuxFramebuffer) Format() PixelFormat { return PixelFormatRGB565 }
func (f *linuxFramebuffer) StrideBytes() int    { return f.stride }
func (f *linuxFramebuffer) Buffer() []byte      { return f.buf }

func (f *linuxFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := rgb565(r, g, b)
	lo, hi := byte(pixel), byte(pixel>>8)
	for i := 0; i+1 < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
}

func (f *linuxFramebuffer) WriteFrame(src []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(f.buf, src)
	return nil
}

func (f *linuxFramebuffer) Present() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mem == nil {
		return fmt.Errorf("fbdev: closed")
	}
	copy(f.mem, f.buf)
	return nil
}

func (f *linuxFramebuffer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if f.mem != nil {
		err = unix.Munmap(f.mem)
		f.mem = nil
	}
	if cerr := f.f.Close(); err == nil {
		err = cerr
	}
	return err
}
