package vdrive

import (
	"errors"
	"testing"

	"piso/pisoos/action"
	"piso/pisoos/controller"
	"piso/pisoos/display"
	"piso/pisoos/lvm"
)

type fakeGadget struct {
	luns map[string]int
	fail bool
}

func (g *fakeGadget) AddLUN(path string) (int, error) {
	if g.fail {
		return 0, errors.New("configfs busy")
	}
	if g.luns == nil {
		g.luns = map[string]int{}
	}
	g.luns[path] = len(g.luns)
	return g.luns[path], nil
}

func (g *fakeGadget) RemoveLUN(path string) error {
	if _, ok := g.luns[path]; !ok {
		return errors.New("not exported")
	}
	delete(g.luns, path)
	return nil
}

func (g *fakeGadget) Exported(path string) bool {
	_, ok := g.luns[path]
	return ok
}

var vol = lvm.LogicalVolume{Name: "Drive0", Path: "/dev/VolGroup00/Drive0", Size: 1 << 30}

// press dispatches ev and drains the resulting actions the way the event
// loop does.
func press(t *testing.T, m *display.Manager, root display.Widget, ev controller.Event) {
	t.Helper()
	out, err := m.OnEvent(root, ev)
	if err != nil {
		t.Fatalf("OnEvent(%s): %v", ev, err)
	}
	for len(out) > 0 {
		if err := m.DoActions(root, &out); err != nil {
			t.Fatalf("DoActions: %v", err)
		}
	}
}

func newFocused(t *testing.T, m *display.Manager, g Exporter) *VirtualDrive {
	t.Helper()
	d, err := New(m, m.Root(), g, vol, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.ShiftFocus(d); err != nil {
		t.Fatalf("ShiftFocus: %v", err)
	}
	return d
}

func TestToggleExport(t *testing.T) {
	m := display.New(128, 64)
	g := &fakeGadget{}
	d := newFocused(t, m, g)
	if d.Label() != "Drive0 1.0 GiB" {
		t.Fatalf("label = %q", d.Label())
	}

	handled, out, err := d.OnEvent(controller.Select)
	if err != nil || !handled || len(out) != 1 || out[0] != action.OpenDriveMenu("Drive0") {
		t.Fatalf("OnEvent(Select) = (%v, %v, %v)", handled, out, err)
	}

	press(t, m, d, controller.Select)
	if d.Menu() == nil || m.Focused() != d.Menu().WindowID() {
		t.Fatalf("menu not open and focused")
	}
	if got := d.Menu().Label(OptionExport); got != "Export to USB" {
		t.Fatalf("export label = %q", got)
	}

	press(t, m, d, controller.Select)
	if !d.Exported() || !g.Exported(vol.Path) {
		t.Fatalf("drive not exported")
	}
	if d.Menu() != nil || m.Focused() != d.WindowID() {
		t.Fatalf("menu still open after export")
	}
	if d.Label() != "Drive0 1.0 GiB [USB]" {
		t.Fatalf("label = %q", d.Label())
	}

	handled, _, err = d.DoAction(m, action.ToggleDriveExport("Drive0"))
	if err != nil || !handled || d.Exported() || g.Exported(vol.Path) {
		t.Fatalf("second toggle did not unexport")
	}
}

func TestMenuDeleteNeedsConfirmation(t *testing.T) {
	m := display.New(128, 64)
	d := newFocused(t, m, &fakeGadget{})
	press(t, m, d, controller.Select)
	menu := d.Menu()

	press(t, m, d, controller.Down)
	if menu.Cursor() != OptionDelete {
		t.Fatalf("cursor = %d, want delete", menu.Cursor())
	}
	handled, out, err := menu.OnEvent(controller.Select)
	if err != nil || !handled || len(out) != 0 || !menu.Confirming() {
		t.Fatalf("first Select = (%v, %v, %v), confirming = %v", handled, out, err, menu.Confirming())
	}

	// moving away cancels the confirmation
	press(t, m, d, controller.Down)
	press(t, m, d, controller.Up)
	if menu.Confirming() {
		t.Fatalf("confirmation survived cursor movement")
	}

	menu.OnEvent(controller.Select)
	_, out, _ = menu.OnEvent(controller.Select)
	want := []action.Action{action.CloseDriveMenu("Drive0"), action.RemoveDrive("Drive0")}
	if len(out) != 2 || out[0] != want[0] || out[1] != want[1] {
		t.Fatalf("actions = %v, want %v", out, want)
	}
}

func TestMenuBackRestoresFocus(t *testing.T) {
	m := display.New(128, 64)
	g := &fakeGadget{}
	d := newFocused(t, m, g)
	press(t, m, d, controller.Select)
	for i := 0; i < 5; i++ {
		press(t, m, d, controller.Down)
	}
	if d.Menu().Cursor() != OptionBack {
		t.Fatalf("cursor does not saturate at Back")
	}
	press(t, m, d, controller.Select)

	if d.Menu() != nil || m.Focused() != d.WindowID() {
		t.Fatalf("Back left the menu open")
	}
	if m.Len() != 2 {
		t.Fatalf("live windows = %d, want root and drive", m.Len())
	}
	if d.Exported() || len(g.luns) != 0 {
		t.Fatalf("Back changed the export state")
	}
}

func TestToggleIgnoresOtherDrives(t *testing.T) {
	m := display.New(128, 64)
	d, err := New(m, m.Root(), &fakeGadget{}, vol, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handled, _, err := d.DoAction(m, action.ToggleDriveExport("Drive1"))
	if err != nil || handled {
		t.Fatalf("toggle for another drive handled = %v, err = %v", handled, err)
	}
}

func TestExportFailureShowsError(t *testing.T) {
	m := display.New(128, 64)
	d, err := New(m, m.Root(), &fakeGadget{fail: true}, vol, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	handled, out, err := d.DoAction(m, action.ToggleDriveExport("Drive0"))
	if err != nil || !handled {
		t.Fatalf("DoAction = (%v, %v)", handled, err)
	}
	if len(out) != 1 || out[0].Kind != action.KindShowError {
		t.Fatalf("actions = %v, want ShowError", out)
	}
	if d.Exported() {
		t.Fatalf("drive marked exported after failure")
	}
}

func TestRenderLeavesGutter(t *testing.T) {
	m := display.New(128, 64)
	d, err := New(m, m.Root(), &fakeGadget{}, vol, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	win, _ := m.Window(d.WindowID())
	b, err := d.Render(win)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < display.Gutter; x++ {
			if b.Get(x, y) != 0 {
				t.Fatalf("pixel lit in gutter at %d,%d", x, y)
			}
		}
	}
}
