package hal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Button maps one GPIO line to a key.
type Button struct {
	Pin       GPIOPin
	Code      KeyCode
	ActiveLow bool // pressed pulls the line to ground
}

// EdgeWaiter is implemented by GPIO backends that can block until a line
// changes instead of being polled.
type EdgeWaiter interface {
	WaitEdge(timeout time.Duration) error
}

type buttonState struct {
	stable    bool
	candidate bool
	since     time.Time
}

// ButtonKeyboard turns debounced button lines into key events.
type ButtonKeyboard struct {
	buttons  []Button
	state    []buttonState
	debounce time.Duration
	interval time.Duration
	waiter   EdgeWaiter
	now      func() time.Time
	ch       chan KeyEvent
}

// NewButtonKeyboard configures every pin as an input, pulled up for
// active-low buttons when the pin supports it. waiter may be nil.
func NewButtonKeyboard(buttons []Button, debounce time.Duration, waiter EdgeWaiter) (*ButtonKeyboard, error) {
	if len(buttons) == 0 {
		return nil, errors.New("buttons: none configured")
	}
	for _, b := range buttons {
		if b.Pin == nil {
			return nil, fmt.Errorf("buttons: %s has no pin", b.Code)
		}
		pull := GPIOPullNone
		if b.ActiveLow && b.Pin.Caps()&GPIOCapPullUp != 0 {
			pull = GPIOPullUp
		} else if !b.ActiveLow && b.Pin.Caps()&GPIOCapPullDown != 0 {
			pull = GPIOPullDown
		}
		if err := b.Pin.Configure(GPIOModeInput, pull); err != nil {
			return nil, err
		}
	}
	return &ButtonKeyboard{
		buttons:  buttons,
		state:    make([]buttonState, len(buttons)),
		debounce: max(debounce, 0),
		interval: 10 * time.Millisecond,
		waiter:   waiter,
		now:      time.Now,
		ch:       make(chan KeyEvent, 64),
	}, nil
}

func (k *ButtonKeyboard) Events() <-chan KeyEvent { return k.ch }

// Scan samples every button once and emits the presses and releases that
// have been stable for the debounce period.
func (k *ButtonKeyboard) Scan() error {
	now := k.now()
	for i, b := range k.buttons {
		level, err := b.Pin.Read()
		if err != nil {
			return fmt.Errorf("buttons: read %s: %w", b.Pin.Name(), err)
		}
		pressed := level != b.ActiveLow
		st := &k.state[i]
		if pressed != st.candidate {
			st.candidate = pressed
			st.since = now
		}
		if st.candidate != st.stable && now.Sub(st.since) >= k.debounce {
			st.stable = st.candidate
			select {
			case k.ch <- KeyEvent{Code: b.Code, Press: st.stable}:
			default:
			}
		}
	}
	return nil
}

// Run scans until ctx is done, sleeping on line edges when the backend
// supports it.
func (k *ButtonKeyboard) Run(ctx context.Context) error {
	t := time.NewTicker(k.interval)
	defer t.Stop()
	for {
		if err := k.Scan(); err != nil {
			return err
		}
		if k.waiter != nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := k.waiter.WaitEdge(k.interval); err != nil {
				return fmt.Errorf("buttons: %w", err)
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
