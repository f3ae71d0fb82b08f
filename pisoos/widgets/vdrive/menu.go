package vdrive

import (
	"piso/pisoos/action"
	"piso/pisoos/bitmap"
	"piso/pisoos/controller"
	"piso/pisoos/display"
	"piso/pisoos/font"
)

// MenuOption is one row of a drive's menu.
type MenuOption uint8

const (
	OptionExport MenuOption = iota
	OptionDelete
	OptionBack
)

var menuOptions = []MenuOption{OptionExport, OptionDelete, OptionBack}

// DriveMenu is the modal menu opened by selecting a drive.
type DriveMenu struct {
	window display.WindowID
	drive  *VirtualDrive
	cursor MenuOption

	// Delete needs a second Select
	confirming bool
}

func newDriveMenu(m *display.Manager, d *VirtualDrive) (*DriveMenu, error) {
	id, err := m.AddChild(display.Fixed(0, 0))
	if err != nil {
		return nil, err
	}
	return &DriveMenu{window: id, drive: d}, nil
}

func (dm *DriveMenu) WindowID() display.WindowID { return dm.window }
func (dm *DriveMenu) Cursor() MenuOption          { return dm.cursor }
func (dm *DriveMenu) Confirming() bool            { return dm.confirming }

// Label is the text shown for o.
func (dm *DriveMenu) Label(o MenuOption) string {
	switch o {
	case OptionExport:
		if dm.drive.exported {
			return "Eject from USB"
		}
		return "Export to USB"
	case OptionDelete:
		if dm.confirming {
			return "Delete? Select again"
		}
		return "Delete drive"
	default:
		return "Back"
	}
}

func (dm *DriveMenu) Render(display.Window) (*bitmap.Bitmap, error) {
	base := bitmap.New(0, 0)
	base.Blit(font.RenderText(dm.drive.volume.Name+":"), 0, 0)
	for i, o := range menuOptions {
		y := font.LineHeight * (i + 1)
		base.Blit(font.RenderText(dm.Label(o)), 10, y)
		if o == dm.cursor {
			base.Blit(font.Arrow, 2, y)
		}
	}
	return base, nil
}

func (dm *DriveMenu) OnEvent(ev controller.Event) (bool, []action.Action, error) {
	name := dm.drive.volume.Name
	switch ev {
	case controller.Up:
		dm.confirming = false
		if dm.cursor > OptionExport {
			dm.cursor--
		}
	case controller.Down:
		dm.confirming = false
		if dm.cursor < OptionBack {
			dm.cursor++
		}
	case controller.Select:
		switch dm.cursor {
		case OptionExport:
			return true, []action.Action{action.CloseDriveMenu(name), action.ToggleDriveExport(name)}, nil
		case OptionDelete:
			if !dm.confirming {
				dm.confirming = true
				return true, nil, nil
			}
			return true, []action.Action{action.CloseDriveMenu(name), action.RemoveDrive(name)}, nil
		default:
			return true, []action.Action{action.CloseDriveMenu(name)}, nil
		}
	}
	// modal
	return true, nil, nil
}

func (dm *DriveMenu) DoAction(*display.Manager, action.Action) (bool, []action.Action, error) {
	return false, nil, nil
}

func (dm *DriveMenu) Children() []display.Widget { return nil }
