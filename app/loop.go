package app

import (
	"context"
	"errors"
	"sync"

	"piso/internal/logging"
	"piso/pisoos/action"
	"piso/pisoos/controller"
	"piso/pisoos/display"
)

// Loop owns the display manager and widget tree. One event is handled to a
// settled frame before the next is read.
type Loop struct {
	mu    sync.Mutex
	m     *display.Manager
	root  display.Widget
	panel *Panel
	log   *logging.Logger
}

func NewLoop(m *display.Manager, root display.Widget, panel *Panel, log *logging.Logger) *Loop {
	return &Loop{m: m, root: root, panel: panel, log: log}
}

// Render draws the current tree and pushes it to the panel.
func (l *Loop) Render() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.render()
}

func (l *Loop) render() error {
	frame, err := l.m.Render(l.root)
	if err != nil {
		return err
	}
	if l.panel == nil {
		return nil
	}
	return l.panel.Present(frame)
}

// Handle dispatches ev, then alternates action passes and renders until no
// actions remain. At least one frame is drawn per event.
func (l *Loop) Handle(ev controller.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log.Debugf("loop: handling event %s", ev)
	actions, err := l.m.OnEvent(l.root, ev)
	if err != nil {
		return err
	}
	for {
		if len(actions) > 0 {
			l.log.Debugf("loop: doing actions %v", actions)
		}
		if err := l.m.DoActions(l.root, &actions); err != nil {
			return err
		}
		if err := l.render(); err != nil {
			return err
		}
		if len(actions) == 0 {
			return nil
		}
	}
}

// Run reads events until ctx is done or the input closes.
func (l *Loop) Run(ctx context.Context, ctrl *controller.Controller) error {
	for {
		ev, err := ctrl.Next(ctx)
		if errors.Is(err, controller.ErrClosed) {
			l.log.Infof("loop: input closed")
			return nil
		}
		if err != nil {
			return err
		}
		if err := l.Handle(ev); err != nil {
			return err
		}
	}
}

// Inject queues actions as if a widget had emitted them, e.g. to surface an
// error found outside the tree.
func (l *Loop) Inject(actions ...action.Action) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(actions) > 0 {
		if err := l.m.DoActions(l.root, &actions); err != nil {
			return err
		}
		if err := l.render(); err != nil {
			return err
		}
	}
	return nil
}
