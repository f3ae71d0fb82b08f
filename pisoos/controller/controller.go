// Package controller turns raw key activity into the three abstract inputs
// the menu understands.
package controller

import (
	"context"
	"errors"

	"piso/hal"
)

// Event is one abstract controller input.
type Event uint8

const (
	Select Event = iota + 1
	Up
	Down
)

func (e Event) String() string {
	switch e {
	case Select:
		return "Select"
	case Up:
		return "Up"
	case Down:
		return "Down"
	default:
		return "Invalid"
	}
}

// ErrClosed is returned once the underlying key stream ends.
var ErrClosed = errors.New("controller: input closed")

// Controller yields Events from a key stream. It is not restartable: once the
// stream closes every Next call fails with ErrClosed.
type Controller struct {
	events <-chan hal.KeyEvent
}

// New wraps a keyboard. Buttons on the device and arrow keys on the host
// window both arrive as hal.KeyEvents.
func New(kbd hal.Keyboard) (*Controller, error) {
	if kbd == nil {
		return nil, errors.New("controller: no keyboard")
	}
	ch := kbd.Events()
	if ch == nil {
		return nil, errors.New("controller: keyboard has no event stream")
	}
	return &Controller{events: ch}, nil
}

// Translate maps a key event to an Event. Releases and unmapped keys are ignored.
func Translate(ev hal.KeyEvent) (Event, bool) {
	if !ev.Press {
		return 0, false
	}
	switch ev.Code {
	case hal.KeyEnter, hal.KeyRight:
		return Select, true
	case hal.KeyUp:
		return Up, true
	case hal.KeyDown:
		return Down, true
	}
	return 0, false
}

// Next blocks until the next Event or until ctx is done.
func (c *Controller) Next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case kev, ok := <-c.events:
			if !ok {
				return 0, ErrClosed
			}
			if ev, ok := Translate(kev); ok {
				return ev, nil
			}
		}
	}
}
