//go:build linux

package hal

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// DeviceConfig selects the panel and button lines on the appliance.
type DeviceConfig struct {
	Framebuffer string // e.g. /dev/fb1
	GPIORoot    string // defaults to SysfsGPIORoot
	Select      int
	Up          int
	Down        int
	Debounce    time.Duration
	Hz          int
}

type deviceHAL struct {
	logger *hostLogger
	fb     *linuxFramebuffer
	gpio   *sysfsGPIO
	kbd    *ButtonKeyboard
}

func (h *deviceHAL) Logger() Logger   { return h.logger }
func (h *deviceHAL) GPIO() GPIO       { return h.gpio }
func (h *deviceHAL) Display() Display { return deviceDisplay{fb: h.fb} }
func (h *deviceHAL) Input() Input     { return hostInput{kbd: h.kbd} }

type deviceDisplay struct {
	fb *linuxFramebuffer
}

func (d deviceDisplay) Framebuffer() Framebuffer { return d.fb }

func openDevice(cfg DeviceConfig) (*deviceHAL, error) {
	fb, err := OpenFramebuffer(cfg.Framebuffer)
	if err != nil {
		return nil, err
	}
	gpio := OpenSysfsGPIO(cfg.GPIORoot, cfg.Select, cfg.Up, cfg.Down)
	kbd, err := NewButtonKeyboard([]Button{
		{Pin: gpio.Pin(0), Code: KeyEnter, ActiveLow: true},
		{Pin: gpio.Pin(1), Code: KeyUp, ActiveLow: true},
		{Pin: gpio.Pin(2), Code: KeyDown, ActiveLow: true},
	}, cfg.Debounce, gpio)
	if err != nil {
		fb.Close()
		gpio.Close()
		return nil, err
	}
	return &deviceHAL{logger: &hostLogger{w: os.Stdout}, fb: fb, gpio: gpio, kbd: kbd}, nil
}

func (h *deviceHAL) close() error {
	return errors.Join(h.fb.Close(), h.gpio.Close())
}

// RunDevice runs the appliance on the real panel and buttons until ctx is
// done or the step function fails.
func RunDevice(ctx context.Context, cfg DeviceConfig, newApp func(HAL) func() error) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 30
	}
	h, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer h.close()
	step := newApp(h)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.kbd.Run(ctx) })
	g.Go(func() error {
		t := time.NewTicker(time.Second / time.Duration(cfg.Hz))
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				if step == nil {
					continue
				}
				if err := step(); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}
