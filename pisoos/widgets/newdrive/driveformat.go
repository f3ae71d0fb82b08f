package newdrive

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"piso/pisoos/action"
	"piso/pisoos/bitmap"
	"piso/pisoos/controller"
	"piso/pisoos/display"
	"piso/pisoos/errs"
	"piso/pisoos/font"
	"piso/pisoos/lvm"
)

// FormatState is the DriveFormat step's progress.
type FormatState uint8

const (
	Selecting FormatState = iota
	Formatting
	Done
	Failed
)

func (s FormatState) String() string {
	switch s {
	case Selecting:
		return "Selecting"
	case Formatting:
		return "Formatting"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("FormatState(%d)", uint8(s))
	}
}

// DriveFormat picks the filesystem, then creates and formats the volume.
type DriveFormat struct {
	window   display.WindowID
	backend  Backend
	size     uint64
	selected Format
	state    FormatState

	// set once the volume exists, so a retry formats it again instead of
	// allocating another one
	volume  *lvm.LogicalVolume
	failure string
}

func newDriveFormat(m *display.Manager, b Backend, size uint64) (*DriveFormat, error) {
	id, err := m.AddChild(display.Fixed(0, 0))
	if err != nil {
		return nil, err
	}
	return &DriveFormat{window: id, backend: b, size: size, selected: Windows, state: Selecting}, nil
}

func (f *DriveFormat) WindowID() display.WindowID { return f.window }
func (f *DriveFormat) Selected() Format            { return f.selected }
func (f *DriveFormat) State() FormatState          { return f.state }
func (f *DriveFormat) Size() uint64                { return f.size }

// Failure is the message shown in the Failed state.
func (f *DriveFormat) Failure() string { return f.failure }

func (f *DriveFormat) Render(display.Window) (*bitmap.Bitmap, error) {
	base := bitmap.New(0, 0)
	switch f.state {
	case Formatting, Done:
		base.Blit(font.RenderText("Formatting new drive"), 0, 0)
		return base, nil
	case Failed:
		base.Blit(font.RenderText("Format failed:"), 0, 0)
		base.Blit(font.RenderText(f.failure), 0, font.LineHeight)
		base.Blit(font.RenderText("Select: back"), 0, font.LineHeight*3)
		base.Blit(font.RenderText("Up/Down: retry"), 0, font.LineHeight*4)
		return base, nil
	}

	base.Blit(font.RenderText("Select Format:"), 0, 0)
	for i, choice := range Formats {
		y := font.LineHeight * (i + 1)
		base.Blit(font.RenderText(choice.String()), 10, y)
		if choice == f.selected {
			base.Blit(font.Arrow, 2, y)
		}
	}
	return base, nil
}

func (f *DriveFormat) OnEvent(ev controller.Event) (bool, []action.Action, error) {
	switch f.state {
	case Selecting:
		switch ev {
		case controller.Select:
			return true, []action.Action{action.FormatDrive}, nil
		case controller.Up:
			f.selected = f.selected.Prev()
		case controller.Down:
			f.selected = f.selected.Next()
		}
	case Failed:
		if ev == controller.Select {
			if f.volume != nil {
				// the volume outlives the wizard; let the list pick it up
				return true, []action.Action{action.CloseFormatMenu, action.RescanDrives}, nil
			}
			return true, []action.Action{action.CloseFormatMenu}, nil
		}
		f.state = Selecting
		f.failure = ""
	}
	// the menu is modal; nothing behind it sees input
	return true, nil, nil
}

func (f *DriveFormat) DoAction(m *display.Manager, a action.Action) (bool, []action.Action, error) {
	if a.Kind != action.KindFormatDrive {
		return false, nil, nil
	}
	switch f.state {
	case Selecting:
		// Decline the first delivery so a frame showing progress is drawn
		// before the blocking work below runs on the retry.
		f.state = Formatting
		return false, nil, nil
	case Formatting:
	default:
		return false, nil, nil
	}

	vol, err := f.create(m)
	if err == nil {
		err = f.backend.Formatter.Format(m.Context(), vol, f.selected)
	}
	if err != nil {
		if errs.IsStructural(err) {
			return false, nil, err
		}
		f.backend.logf("newdrive: %s failed: %v", errs.Kind(err), err)
		f.state = Failed
		f.failure = shortReason(err)
		return true, nil, nil
	}

	f.backend.logf("newdrive: created %s (%s, %s)", vol.Name, humanize.IBytes(vol.Size), f.selected)
	f.state = Done
	return true, []action.Action{action.CloseFormatMenu, action.CreateDrive(vol)}, nil
}

func (f *DriveFormat) create(m *display.Manager) (lvm.LogicalVolume, error) {
	if f.volume != nil {
		return *f.volume, nil
	}
	vols, err := f.backend.VG.Volumes(m.Context())
	if err != nil {
		return lvm.LogicalVolume{}, err
	}
	vol, err := f.backend.VG.CreateVolume(m.Context(), nextName(vols), f.size)
	if err != nil {
		return lvm.LogicalVolume{}, err
	}
	f.volume = &vol
	return vol, nil
}

func (f *DriveFormat) Children() []display.Widget { return nil }

// nextName is the lowest DriveN not already taken.
func nextName(vols []lvm.LogicalVolume) string {
	taken := make(map[string]bool, len(vols))
	for _, v := range vols {
		taken[v.Name] = true
	}
	for i := 0; ; i++ {
		name := fmt.Sprintf("Drive%d", i)
		if !taken[name] {
			return name
		}
	}
}

// shortReason names the failing tool when there is one; the panel fits
// about twenty characters per line.
func shortReason(err error) string {
	var tool *errs.ExternalToolError
	if errors.As(err, &tool) {
		return tool.Tool + " failed"
	}
	var be *errs.BackendError
	if errors.As(err, &be) {
		return be.Op + " failed"
	}
	return "error"
}

func sizeLabel(percent int, bytes uint64) string {
	return fmt.Sprintf("%d%% (%s)", percent, humanize.IBytes(bytes))
}
