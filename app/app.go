// Package app wires the backends, the widget tree and the event loop to a HAL.
package app

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"piso/hal"
	"piso/internal/config"
	"piso/internal/logging"
	"piso/pisoos/action"
	"piso/pisoos/controller"
	"piso/pisoos/display"
	"piso/pisoos/errs"
	"piso/pisoos/lvm"
	"piso/pisoos/sysutil"
	"piso/pisoos/usb"
	"piso/pisoos/widgets/newdrive"
	"piso/pisoos/widgets/root"
)

const (
	cpuinfoPath = "/proc/cpuinfo"
	udcClassDir = "/sys/class/udc"

	simVolumeGroupSize = 32 << 30
)

type Config struct {
	Settings *config.Config
	// Simulate swaps LVM, external tools and configfs for in-memory
	// stand-ins so the UI runs on a workstation.
	Simulate bool
	// Fs serves configfs, /proc and /sys. The OS filesystem when nil.
	Fs afero.Fs
	// Runner runs external tools. An ExecRunner when nil.
	Runner sysutil.Runner
}

// App is a running appliance.
type App struct {
	log    *logging.Logger
	panel  *Panel
	loop   *Loop
	gadget *usb.Gadget

	cancel context.CancelFunc
	done   chan struct{}

	// raised on the panel once the first frame is up
	startup []action.Action

	mu  sync.Mutex
	err error
}

// New starts the appliance on h and returns the HAL step function, which
// reports the error that stopped the event loop, if any.
func New(h hal.HAL, cfg Config) func() error {
	a, err := Start(context.Background(), h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return a.Step
}

// Start brings up the backends, builds the widget tree, draws the first
// frame and starts reading input.
func Start(ctx context.Context, h hal.HAL, cfg Config) (*App, error) {
	s := cfg.Settings
	if s == nil {
		var err error
		if s, err = config.LoadFs(afero.NewMemMapFs(), ""); err != nil {
			return nil, err
		}
	}
	a := &App{
		log:  logging.New(h.Logger(), s.LogLevel()),
		done: make(chan struct{}),
	}

	width, height := s.Display.Width, s.Display.Height
	if d := h.Display(); d != nil {
		if fb := d.Framebuffer(); fb != nil {
			a.panel = NewPanel(fb)
			width, height = a.panel.Size()
		}
	}

	bootScreen(a.panel, "Reading volumes")
	vg, gadget, formatter, err := a.backends(cfg, s)
	if err != nil {
		a.log.Errorf("app: %v", err)
		fatalScreen(a.panel, err)
		return nil, err
	}
	a.gadget = gadget

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	m := display.New(width, height, display.WithLogf(a.log.Warnf), display.WithContext(ctx))
	top, err := root.New(m, root.Config{
		VG:        vg,
		USB:       gadget,
		Formatter: formatter,
		Logf:      a.log.Infof,
	})
	if err != nil {
		cancel()
		a.log.Errorf("app: build widgets: %v", err)
		fatalScreen(a.panel, err)
		return nil, err
	}
	a.log.Infof("app: %d drives, %.0f%% of %s used", len(top.Drives()), top.Report().PercentUsed(), s.VolumeGroup)

	a.loop = NewLoop(m, top, a.panel, a.log)
	if err := a.loop.Render(); err != nil {
		cancel()
		fatalScreen(a.panel, err)
		return nil, err
	}
	if len(a.startup) > 0 {
		if err := a.loop.Inject(a.startup...); err != nil {
			cancel()
			fatalScreen(a.panel, err)
			return nil, err
		}
	}

	var kbd hal.Keyboard
	if in := h.Input(); in != nil {
		kbd = in.Keyboard()
	}
	ctrl, err := controller.New(kbd)
	if err != nil {
		cancel()
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.loop.Run(gctx, ctrl) })
	go func() {
		err := g.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Errorf("app: event loop stopped (%s error): %v", errs.Kind(err), err)
			fatalScreen(a.panel, err)
		} else {
			err = nil
		}
		a.mu.Lock()
		a.err = err
		a.mu.Unlock()
		close(a.done)
	}()
	return a, nil
}

// Step is polled by the HAL runners. It never blocks.
func (a *App) Step() error {
	select {
	case <-a.done:
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.err
	default:
		return nil
	}
}

// Stop cancels the event loop and waits for it to exit.
func (a *App) Stop() error {
	a.cancel()
	<-a.done
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Loop exposes the event loop, mainly for tests.
func (a *App) Loop() *Loop { return a.loop }

func (a *App) backends(cfg Config, s *config.Config) (root.VolumeGroup, *usb.Gadget, *newdrive.Formatter, error) {
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = sysutil.ExecRunner{Timeout: s.Format.ToolTimeout, Logf: a.log.Debugf}
	}

	var (
		vg       root.VolumeGroup
		gadgetFs = fs
		wait     func(context.Context, string, time.Duration) error
	)
	if cfg.Simulate {
		a.log.Infof("app: simulating %s", s.VolumeGroup)
		vg = newSimVolumeGroup(s.VolumeGroup, simVolumeGroupSize)
		if cfg.Runner == nil {
			runner = simRunner{logf: a.log.Infof, delay: 300 * time.Millisecond}
		}
		gadgetFs = afero.NewMemMapFs()
		wait = simWait
	} else {
		vg = lvm.Open(s.VolumeGroup, s.ThinPool, runner)
	}

	serial := s.Gadget.Serial
	if serial == "" {
		serial = boardSerial(fs)
	}
	gadget, err := usb.New(gadgetFs, s.Gadget.Path, usb.GadgetConfig{
		VendorID:  s.Gadget.VendorID,
		ProductID: s.Gadget.ProductID,
		Serial:    serial,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	udc := s.Gadget.UDC
	if udc == "" && !cfg.Simulate {
		udc = firstUDC(fs)
	}
	switch bound, ok := gadget.Enabled(); {
	case ok:
		a.log.Infof("app: gadget already bound to %s", bound)
	case udc == "":
		a.log.Warnf("app: no USB device controller, drives will not reach the host")
	default:
		if err := gadget.Enable(udc); err != nil {
			a.log.Warnf("app: bind %s: %v", udc, err)
			a.startup = append(a.startup, action.ShowError("USB bind failed"))
		}
	}

	formatter := &newdrive.Formatter{
		Runner:  runner,
		Wait:    wait,
		Timeout: s.Format.WaitTimeout,
		Logf:    a.log.Infof,
	}
	return vg, gadget, formatter, nil
}

// boardSerial reads the Raspberry Pi serial number from /proc/cpuinfo.
func boardSerial(fs afero.Fs) string {
	b, err := afero.ReadFile(fs, cpuinfoPath)
	if err != nil {
		return ""
	}
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if ok && strings.TrimSpace(key) == "Serial" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func firstUDC(fs afero.Fs) string {
	entries, err := afero.ReadDir(fs, udcClassDir)
	if err != nil || len(entries) == 0 {
		return ""
	}
	return entries[0].Name()
}
