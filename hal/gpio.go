package hal

import (
	"errors"
	"fmt"
	"sync"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIOCaps declares what operations a pin supports.
type GPIOCaps uint8

const (
	GPIOCapInput GPIOCaps = 1 << iota
	GPIOCapOutput
	GPIOCapPullUp
	GPIOCapPullDown
)

// GPIO provides access to general-purpose IO pins, indexed from zero in the
// order the platform lists them. Pin returns nil for an unknown index.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
}

// GPIOPin is a single digital IO pin.
type GPIOPin interface {
	Name() string
	Caps() GPIOCaps
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
}

// ErrGPIOUnsupported is returned when a pin lacks the requested capability.
var ErrGPIOUnsupported = errors.New("gpio: unsupported")

// required maps a mode or pull setting to the capability it needs.
var (
	modeCaps = map[GPIOMode]GPIOCaps{GPIOModeInput: GPIOCapInput, GPIOModeOutput: GPIOCapOutput}
	pullCaps = map[GPIOPull]GPIOCaps{GPIOPullNone: 0, GPIOPullUp: GPIOCapPullUp, GPIOPullDown: GPIOCapPullDown}
)

func checkCaps(name string, have GPIOCaps, mode GPIOMode, pull GPIOPull) error {
	need, ok := modeCaps[mode]
	if !ok {
		return fmt.Errorf("gpio: pin %s: invalid mode %d", name, mode)
	}
	pc, ok := pullCaps[pull]
	if !ok {
		return fmt.Errorf("gpio: pin %s: invalid pull %d", name, pull)
	}
	if missing := (need | pc) &^ have; missing != 0 {
		return fmt.Errorf("pin %s caps %04b: %w", name, missing, ErrGPIOUnsupported)
	}
	return nil
}

// virtualGPIO is a fixed set of in-memory lines.
type virtualGPIO struct {
	pins []GPIOPin
}

func (g *virtualGPIO) PinCount() int { return len(g.pins) }

func (g *virtualGPIO) Pin(id int) GPIOPin {
	if id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

// virtualPin is a line whose input level is set by the host simulator.
type virtualPin struct {
	mu         sync.Mutex
	name       string
	caps       GPIOCaps
	mode       GPIOMode
	pull       GPIOPull
	configured bool
	level      bool
}

func newVirtualPin(name string, caps GPIOCaps) *virtualPin {
	return &virtualPin{name: name, caps: caps}
}

func (p *virtualPin) Name() string   { return p.name }
func (p *virtualPin) Caps() GPIOCaps { return p.caps }

func (p *virtualPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if err := checkCaps(p.name, p.caps, mode, pull); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode, p.pull, p.configured = mode, pull, true
	if mode == GPIOModeInput {
		// an undriven input settles at its pull level
		p.level = pull == GPIOPullUp
	}
	return nil
}

func (p *virtualPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return false, fmt.Errorf("gpio: pin %s: not configured", p.name)
	}
	return p.level, nil
}

func (p *virtualPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured || p.mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	p.level = level
	return nil
}

// drive sets the level an input pin reports, standing in for the outside
// world on hosts without real lines.
func (p *virtualPin) drive(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}
