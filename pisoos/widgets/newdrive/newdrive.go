// Package newdrive implements the drive creation wizard: pick a size, pick a
// filesystem, then create and format the volume.
//
// Each step is a widget owned by the previous one and exists only while the
// wizard has advanced that far.
package newdrive

import (
	"context"

	"piso/pisoos/action"
	"piso/pisoos/bitmap"
	"piso/pisoos/controller"
	"piso/pisoos/display"
	"piso/pisoos/font"
	"piso/pisoos/lvm"
)

// VolumeGroup is the part of the logical volume backend the wizard uses.
type VolumeGroup interface {
	Volumes(ctx context.Context) ([]lvm.LogicalVolume, error)
	CreateVolume(ctx context.Context, name string, size uint64) (lvm.LogicalVolume, error)
	Report(ctx context.Context) (lvm.Report, error)
}

// Backend bundles the collaborators every wizard step shares.
type Backend struct {
	VG        VolumeGroup
	Formatter *Formatter
	Logf      func(format string, args ...any)
}

func (b Backend) logf(format string, args ...any) {
	if b.Logf != nil {
		b.Logf(format, args...)
	}
}

// NewDrive is the "New Drive" entry at the bottom of the drive list.
type NewDrive struct {
	window  display.WindowID
	backend Backend
	size    *DriveSize // non-nil while picking a size
}

// New creates the entry as a Normal child of parent.
func New(m *display.Manager, parent display.WindowID, b Backend) (*NewDrive, error) {
	id, err := m.AddChildTo(parent, display.Normal())
	if err != nil {
		return nil, err
	}
	return &NewDrive{window: id, backend: b}, nil
}

func (n *NewDrive) WindowID() display.WindowID { return n.window }

// Picking reports the size menu, if open.
func (n *NewDrive) Picking() *DriveSize { return n.size }

func (n *NewDrive) Render(display.Window) (*bitmap.Bitmap, error) {
	base := bitmap.New(0, 0)
	base.Blit(bitmap.WithBorder(font.RenderText("New Drive"), bitmap.BorderTop, 2), display.Gutter, 0)
	return base, nil
}

func (n *NewDrive) OnEvent(ev controller.Event) (bool, []action.Action, error) {
	if ev == controller.Select {
		return true, []action.Action{action.OpenSizeMenu}, nil
	}
	return false, nil, nil
}

func (n *NewDrive) DoAction(m *display.Manager, a action.Action) (bool, []action.Action, error) {
	switch a.Kind {
	case action.KindOpenSizeMenu:
		rep, err := n.backend.VG.Report(m.Context())
		if err != nil {
			return false, nil, err
		}
		menu, err := newDriveSize(m, n.backend, rep.VgSize)
		if err != nil {
			return false, nil, err
		}
		if err := m.ShiftFocus(menu); err != nil {
			return false, nil, err
		}
		n.size = menu
		return true, nil, nil
	case action.KindCloseFormatMenu:
		// closes the whole wizard; the steps below go with n.size
		if err := m.ShiftFocus(n); err != nil {
			return false, nil, err
		}
		n.size = nil
		return true, nil, nil
	}
	return false, nil, nil
}

func (n *NewDrive) Children() []display.Widget {
	if n.size == nil {
		return nil
	}
	return []display.Widget{n.size}
}

const (
	// InitialPercent is where the size menu opens.
	InitialPercent = 50
	// PercentStep is the change per Up or Down press.
	PercentStep = 5
)

// DriveSize lets the user choose what share of the volume group the new
// drive gets.
type DriveSize struct {
	window  display.WindowID
	backend Backend
	vgSize  uint64
	percent int
	format  *DriveFormat // non-nil once a size is chosen
}

func newDriveSize(m *display.Manager, b Backend, vgSize uint64) (*DriveSize, error) {
	id, err := m.AddChild(display.Fixed(0, 0))
	if err != nil {
		return nil, err
	}
	return &DriveSize{window: id, backend: b, vgSize: vgSize, percent: InitialPercent}, nil
}

func (s *DriveSize) WindowID() display.WindowID { return s.window }

// Percent is the currently selected share, 0 to 100.
func (s *DriveSize) Percent() int { return s.percent }

// Bytes is the selected size, rounded up to a whole 512 byte sector.
func (s *DriveSize) Bytes() uint64 { return SizeFor(s.vgSize, s.percent) }

// Choosing reports the format menu, if open.
func (s *DriveSize) Choosing() *DriveFormat { return s.format }

// SizeFor returns percent of total rounded up to a multiple of 512.
func SizeFor(total uint64, percent int) uint64 {
	percent = min(max(percent, 0), 100)
	p := uint64(percent)
	b := total/100*p + total%100*p/100
	return (b + 511) / 512 * 512
}

func (s *DriveSize) Render(display.Window) (*bitmap.Bitmap, error) {
	base := bitmap.New(0, 0)
	base.Blit(font.RenderText("New drive capacity:"), 0, 0)
	base.Blit(font.RenderText(sizeLabel(s.percent, s.Bytes())), 10, 30)
	return base, nil
}

func (s *DriveSize) OnEvent(ev controller.Event) (bool, []action.Action, error) {
	switch ev {
	case controller.Select:
		return true, []action.Action{action.OpenFormatMenu}, nil
	case controller.Up:
		return true, []action.Action{action.IncDriveSize}, nil
	case controller.Down:
		return true, []action.Action{action.DecDriveSize}, nil
	}
	return false, nil, nil
}

func (s *DriveSize) DoAction(m *display.Manager, a action.Action) (bool, []action.Action, error) {
	switch a.Kind {
	case action.KindIncDriveSize:
		s.percent = min(s.percent+PercentStep, 100)
		return true, nil, nil
	case action.KindDecDriveSize:
		s.percent = max(s.percent-PercentStep, 0)
		return true, nil, nil
	case action.KindOpenFormatMenu:
		menu, err := newDriveFormat(m, s.backend, s.Bytes())
		if err != nil {
			return false, nil, err
		}
		if err := m.ShiftFocus(menu); err != nil {
			return false, nil, err
		}
		s.format = menu
		return true, nil, nil
	}
	return false, nil, nil
}

func (s *DriveSize) Children() []display.Widget {
	if s.format == nil {
		return nil
	}
	return []display.Widget{s.format}
}
