package hal

import (
	"errors"
	"testing"
	"time"
)

func newTestButtons(t *testing.T, debounce time.Duration) (*ButtonKeyboard, *virtualPin, *time.Time) {
	t.Helper()
	pin := newVirtualPin("UP", GPIOCapInput|GPIOCapPullUp)
	kbd, err := NewButtonKeyboard([]Button{{Pin: pin, Code: KeyUp, ActiveLow: true}}, debounce, nil)
	if err != nil {
		t.Fatalf("NewButtonKeyboard: %v", err)
	}
	now := time.Unix(0, 0)
	kbd.now = func() time.Time { return now }
	return kbd, pin, &now
}

func drain(kbd *ButtonKeyboard) []KeyEvent {
	var out []KeyEvent
	for {
		select {
		case ev := <-kbd.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestButtonIdleHighIsReleased(t *testing.T) {
	kbd, _, _ := newTestButtons(t, 0)
	if err := kbd.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if evs := drain(kbd); len(evs) != 0 {
		t.Fatalf("expected no events from an idle pulled-up line, got %v", evs)
	}
}

func TestButtonDebounce(t *testing.T) {
	kbd, pin, now := newTestButtons(t, 20*time.Millisecond)

	pin.drive(false)
	_ = kbd.Scan()
	*now = now.Add(5 * time.Millisecond)
	pin.drive(true) // bounce
	_ = kbd.Scan()
	*now = now.Add(5 * time.Millisecond)
	pin.drive(false)
	_ = kbd.Scan()
	if evs := drain(kbd); len(evs) != 0 {
		t.Fatalf("bouncing line produced %v", evs)
	}

	*now = now.Add(25 * time.Millisecond)
	_ = kbd.Scan()
	evs := drain(kbd)
	if len(evs) != 1 || evs[0] != (KeyEvent{Code: KeyUp, Press: true}) {
		t.Fatalf("expected one press, got %v", evs)
	}

	pin.drive(true)
	_ = kbd.Scan()
	*now = now.Add(25 * time.Millisecond)
	_ = kbd.Scan()
	evs = drain(kbd)
	if len(evs) != 1 || evs[0].Press {
		t.Fatalf("expected one release, got %v", evs)
	}
}

func TestButtonConfigureRejectsOutputOnlyPin(t *testing.T) {
	pin := newVirtualPin("LED", GPIOCapOutput)
	if _, err := NewButtonKeyboard([]Button{{Pin: pin, Code: KeyEnter}}, 0, nil); err == nil {
		t.Fatal("expected error for an output-only pin")
	}
}

func TestConfigureReportsMissingCaps(t *testing.T) {
	pin := newVirtualPin("UP", GPIOCapInput)
	if err := pin.Configure(GPIOModeInput, GPIOPullDown); !errors.Is(err, ErrGPIOUnsupported) {
		t.Fatalf("Configure pull-down = %v, want ErrGPIOUnsupported", err)
	}
	if err := pin.Configure(GPIOMode(9), GPIOPullNone); err == nil || errors.Is(err, ErrGPIOUnsupported) {
		t.Fatalf("Configure bad mode = %v", err)
	}
	if _, err := pin.Read(); err == nil {
		t.Fatal("Read before Configure succeeded")
	}
	if err := pin.Configure(GPIOModeInput, GPIOPullNone); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := pin.Write(true); err == nil {
		t.Fatal("Write on an input succeeded")
	}
}
