//go:build linux

package hal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// SysfsGPIORoot is the legacy GPIO class directory.
const SysfsGPIORoot = "/sys/class/gpio"

// sysfsGPIO drives GPIO lines through the sysfs class interface. It waits
// for edges with poll(2) on the value files.
type sysfsGPIO struct {
	root string
	pins []*sysfsPin
}

// OpenSysfsGPIO prepares handles for the given line numbers. Lines are
// exported lazily by Configure.
func OpenSysfsGPIO(root string, lines ...int) *sysfsGPIO {
	if root == "" {
		root = SysfsGPIORoot
	}
	g := &sysfsGPIO{root: root}
	for _, line := range lines {
		g.pins = append(g.pins, &sysfsPin{root: root, line: line, name: "GPIO" + strconv.Itoa(line)})
	}
	return g
}

func (g *sysfsGPIO) PinCount() int { return len(g.pins) }

func (g *sysfsGPIO) Pin(id int) GPIOPin {
	if id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

// WaitEdge blocks until any configured input line changes or timeout passes.
func (g *sysfsGPIO) WaitEdge(timeout time.Duration) error {
	var fds []unix.PollFd
	for _, p := range g.pins {
		if fd := p.fd(); fd >= 0 {
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLPRI | unix.POLLERR})
		}
	}
	if len(fds) == 0 {
		time.Sleep(timeout)
		return nil
	}
	_, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if errors.Is(err, unix.EINTR) {
		return nil
	}
	return err
}

func (g *sysfsGPIO) Close() error {
	var errs []error
	for _, p := range g.pins {
		errs = append(errs, p.close())
	}
	return errors.Join(errs...)
}

type sysfsPin struct {
	mu    sync.Mutex
	root  string
	line  int
	name  string
	mode  GPIOMode
	value *os.File
}

func (p *sysfsPin) Name() string   { return p.name }
func (p *sysfsPin) Caps() GPIOCaps { return GPIOCapInput | GPIOCapOutput }

func (p *sysfsPin) dir() string { return filepath.Join(p.root, "gpio"+strconv.Itoa(p.line)) }

func (p *sysfsPin) Configure(mode GPIOMode, pull GPIOPull) error {
	// sysfs cannot set pull resistors; boards wire them externally
	if err := checkCaps(p.name, p.Caps(), mode, pull); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := os.Stat(p.dir()); os.IsNotExist(err) {
		err := os.WriteFile(filepath.Join(p.root, "export"), []byte(strconv.Itoa(p.line)), 0o644)
		if err != nil && !errors.Is(err, unix.EBUSY) {
			return fmt.Errorf("gpio: export %s: %w", p.name, err)
		}
		// udev fixes up permissions asynchronously after export
		for i := 0; i < 20; i++ {
			if _, err := os.Stat(filepath.Join(p.dir(), "value")); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	direction, edge := "in", "both"
	if mode == GPIOModeOutput {
		direction, edge = "out", "none"
	}
	if err := os.WriteFile(filepath.Join(p.dir(), "direction"), []byte(direction), 0o644); err != nil {
		return fmt.Errorf("gpio: %s direction: %w", p.name, err)
	}
	if err := os.WriteFile(filepath.Join(p.dir(), "edge"), []byte(edge), 0o644); err != nil {
		return fmt.Errorf("gpio: %s edge: %w", p.name, err)
	}

	if p.value == nil {
		f, err := os.OpenFile(filepath.Join(p.dir(), "value"), os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("gpio: %s value: %w", p.name, err)
		}
		p.value = f
	}
	p.mode = mode
	return nil
}

func (p *sysfsPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value == nil {
		return false, fmt.Errorf("gpio: pin %s: not configured", p.name)
	}
	var b [2]byte
	n, err := unix.Pread(int(p.value.Fd()), b[:], 0)
	if err != nil {
		return false, fmt.Errorf("gpio: read %s: %w", p.name, err)
	}
	return n > 0 && b[0] == '1', nil
}

func (p *sysfsPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value == nil || p.mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
	}
	v := []byte("0")
	if level {
		v = []byte("1")
	}
	if _, err := unix.Pwrite(int(p.value.Fd()), v, 0); err != nil {
		return fmt.Errorf("gpio: write %s: %w", p.name, err)
	}
	return nil
}

func (p *sysfsPin) fd() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value == nil || p.mode != GPIOModeInput {
		return -1
	}
	return int(p.value.Fd())
}

func (p *sysfsPin) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.value == nil {
		return nil
	}
	err := p.value.Close()
	p.value = nil
	return err
}
