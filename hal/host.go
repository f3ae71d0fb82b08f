package hal

import (
	"fmt"
	"os"
	"sync"
)

// Host button lines, in GPIO index order.
const (
	HostPinSelect = iota
	HostPinUp
	HostPinDown
)

type hostHAL struct {
	logger *hostLogger
	gpio   *virtualGPIO
	fb     *hostFramebuffer
	keys   *hostKeyboard
	kbd    Keyboard
}

// New returns a host HAL with a width x height framebuffer and three virtual
// button lines.
func New(width, height int) HAL {
	return newHost(width, height)
}

func newHost(width, height int) *hostHAL {
	var pins []GPIOPin
	for _, name := range []string{"SELECT", "UP", "DOWN"} {
		pins = append(pins, newVirtualPin(name, GPIOCapInput|GPIOCapPullUp|GPIOCapPullDown))
	}
	keys := newHostKeyboard()
	return &hostHAL{
		logger: &hostLogger{w: os.Stdout},
		gpio:   &virtualGPIO{pins: pins},
		fb:     newHostFramebuffer(width, height),
		keys:   keys,
		kbd:    keys,
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) GPIO() GPIO       { return h.gpio }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd Keyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

// NewStderrLogger is the line sink used outside of a HAL by CLI subcommands
// whose stdout carries their output.
func NewStderrLogger() Logger { return &hostLogger{w: os.Stderr} }
