// Package vdrive shows one logical volume in the drive list. Selecting it
// opens a menu to toggle its USB export or delete it.
package vdrive

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"piso/pisoos/action"
	"piso/pisoos/bitmap"
	"piso/pisoos/controller"
	"piso/pisoos/display"
	"piso/pisoos/font"
	"piso/pisoos/lvm"
)

// Exporter is the USB gadget as seen by a drive.
type Exporter interface {
	AddLUN(path string) (int, error)
	RemoveLUN(path string) error
	Exported(path string) bool
}

// VirtualDrive is one volume in the list.
type VirtualDrive struct {
	window   display.WindowID
	volume   lvm.LogicalVolume
	usb      Exporter
	exported bool
	menu     *DriveMenu // non-nil while open
	logf     func(format string, args ...any)
}

// New creates the drive's window under parent. The export flag starts from
// the gadget's current state.
func New(m *display.Manager, parent display.WindowID, usb Exporter, vol lvm.LogicalVolume, logf func(string, ...any)) (*VirtualDrive, error) {
	id, err := m.AddChildTo(parent, display.Normal())
	if err != nil {
		return nil, err
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &VirtualDrive{
		window:   id,
		volume:   vol,
		usb:      usb,
		exported: usb != nil && usb.Exported(vol.Path),
		logf:     logf,
	}, nil
}

func (d *VirtualDrive) WindowID() display.WindowID { return d.window }
func (d *VirtualDrive) Volume() lvm.LogicalVolume   { return d.volume }
func (d *VirtualDrive) Exported() bool              { return d.exported }
func (d *VirtualDrive) Menu() *DriveMenu            { return d.menu }

// Label is the text drawn for the drive.
func (d *VirtualDrive) Label() string {
	s := fmt.Sprintf("%s %s", d.volume.Name, humanize.IBytes(d.volume.Size))
	if d.exported {
		s += " [USB]"
	}
	return s
}

func (d *VirtualDrive) Render(display.Window) (*bitmap.Bitmap, error) {
	base := bitmap.New(0, 0)
	base.Blit(font.RenderText(d.Label()), display.Gutter, 0)
	return base, nil
}

func (d *VirtualDrive) OnEvent(ev controller.Event) (bool, []action.Action, error) {
	if ev == controller.Select {
		return true, []action.Action{action.OpenDriveMenu(d.volume.Name)}, nil
	}
	return false, nil, nil
}

func (d *VirtualDrive) DoAction(m *display.Manager, a action.Action) (bool, []action.Action, error) {
	if a.Name != d.volume.Name {
		return false, nil, nil
	}
	switch a.Kind {
	case action.KindOpenDriveMenu:
		if d.menu != nil {
			return true, nil, nil
		}
		menu, err := newDriveMenu(m, d)
		if err != nil {
			return false, nil, err
		}
		if err := m.ShiftFocus(menu); err != nil {
			return false, nil, err
		}
		d.menu = menu
		return true, nil, nil
	case action.KindCloseDriveMenu:
		d.menu = nil
		return true, nil, m.ShiftFocus(d)
	case action.KindToggleDriveExport:
		return true, d.toggle(), nil
	}
	return false, nil, nil
}

func (d *VirtualDrive) toggle() []action.Action {
	if d.usb == nil {
		return []action.Action{action.ShowError("USB unavailable")}
	}

	if d.exported {
		if err := d.Eject(); err != nil {
			return []action.Action{action.ShowError("Eject failed")}
		}
		return nil
	}

	lun, err := d.usb.AddLUN(d.volume.Path)
	if err != nil {
		d.logf("vdrive: export %s: %v", d.volume.Name, err)
		return []action.Action{action.ShowError("Export failed")}
	}
	d.exported = true
	d.logf("vdrive: %s exported as lun %d", d.volume.Name, lun)
	return nil
}

// Eject detaches the drive from the USB host if it is exported.
func (d *VirtualDrive) Eject() error {
	if !d.exported || d.usb == nil {
		return nil
	}
	if err := d.usb.RemoveLUN(d.volume.Path); err != nil {
		d.logf("vdrive: unexport %s: %v", d.volume.Name, err)
		return err
	}
	d.exported = false
	d.logf("vdrive: %s unexported", d.volume.Name)
	return nil
}

func (d *VirtualDrive) Children() []display.Widget {
	if d.menu == nil {
		return nil
	}
	return []display.Widget{d.menu}
}
