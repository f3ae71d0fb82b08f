//go:build !cgo

package hal

// hostKeyboard without cgo has no window to read from; the headless runner
// replaces it with button lines.
type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard { return &hostKeyboard{ch: make(chan KeyEvent)} }

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

func (k *hostKeyboard) poll() {}
