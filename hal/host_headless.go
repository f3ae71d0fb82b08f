package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Width  int
	Height int
	Hz     int
	Ticks  uint64
	// Keys is pressed and released in order on the virtual button lines,
	// one key every HoldTicks*2 ticks.
	Keys      []KeyCode
	HoldTicks int
}

var headlessPins = map[KeyCode]int{
	KeyEnter: HostPinSelect,
	KeyUp:    HostPinUp,
	KeyDown:  HostPinDown,
}

// RunHeadless runs the appliance without opening a window. Input comes from
// cfg.Keys through the virtual button lines.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.HoldTicks <= 0 {
		cfg.HoldTicks = 2
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := newHost(cfg.Width, cfg.Height)
	var buttons []Button
	for _, code := range []KeyCode{KeyEnter, KeyUp, KeyDown} {
		buttons = append(buttons, Button{Pin: h.gpio.Pin(headlessPins[code]), Code: code, ActiveLow: true})
	}
	kbd, err := NewButtonKeyboard(buttons, 0, nil)
	if err != nil {
		return err
	}
	h.kbd = kbd
	step := newApp(h)

	t := time.NewTicker(d)
	defer t.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			h.pressScripted(cfg.Keys, tick, cfg.HoldTicks)
			if err := kbd.Scan(); err != nil {
				return err
			}
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			tick++
			if cfg.Ticks > 0 && tick >= cfg.Ticks {
				return nil
			}
		}
	}
}

// pressScripted holds key i down for the first half of its slot.
func (h *hostHAL) pressScripted(keys []KeyCode, tick uint64, hold int) {
	slot := uint64(hold * 2)
	i := int(tick / slot)
	if i >= len(keys) {
		return
	}
	pin, ok := headlessPins[keys[i]]
	if !ok {
		return
	}
	down := tick%slot < uint64(hold)
	h.gpio.pins[pin].(*virtualPin).drive(!down)
}
