// Package root holds the top-level widget: a header, the list of virtual
// drives and the new drive entry.
package root

import (
	"context"
	"fmt"
	"slices"

	"piso/pisoos/action"
	"piso/pisoos/bitmap"
	"piso/pisoos/controller"
	"piso/pisoos/display"
	"piso/pisoos/font"
	"piso/pisoos/lvm"
	"piso/pisoos/widgets/newdrive"
	"piso/pisoos/widgets/vdrive"
)

// VolumeGroup is the logical volume backend the drive list manages.
type VolumeGroup interface {
	newdrive.VolumeGroup
	RemoveVolume(ctx context.Context, name string) error
}

// Config wires the widget to its backends.
type Config struct {
	VG        VolumeGroup
	USB       vdrive.Exporter
	Formatter *newdrive.Formatter
	Logf      func(format string, args ...any)
}

// PIso owns the manager's root window.
type PIso struct {
	window display.WindowID
	cfg    Config

	drives []*vdrive.VirtualDrive
	entry  *newdrive.NewDrive
	notice *Notice
	report lvm.Report
}

// New builds one drive per existing volume and focuses the first drive, or
// the new drive entry when there are none.
func New(m *display.Manager, cfg Config) (*PIso, error) {
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}
	p := &PIso{window: m.Root(), cfg: cfg}

	ctx := m.Context()
	vols, err := cfg.VG.Volumes(ctx)
	if err != nil {
		return nil, err
	}
	if p.report, err = cfg.VG.Report(ctx); err != nil {
		return nil, err
	}
	for _, vol := range vols {
		d, err := vdrive.New(m, p.window, cfg.USB, vol, cfg.Logf)
		if err != nil {
			return nil, err
		}
		p.drives = append(p.drives, d)
	}

	p.entry, err = newdrive.New(m, p.window, newdrive.Backend{
		VG:        cfg.VG,
		Formatter: cfg.Formatter,
		Logf:      cfg.Logf,
	})
	if err != nil {
		return nil, err
	}

	first := display.Widget(p.entry)
	if len(p.drives) > 0 {
		first = p.drives[0]
	}
	if err := m.ShiftFocus(first); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PIso) WindowID() display.WindowID     { return p.window }
func (p *PIso) Drives() []*vdrive.VirtualDrive { return p.drives }
func (p *PIso) Entry() *newdrive.NewDrive      { return p.entry }
func (p *PIso) Notice() *Notice                { return p.notice }
func (p *PIso) Report() lvm.Report             { return p.report }

// Header is the title line text.
func (p *PIso) Header() string {
	return fmt.Sprintf("pISO  %.0f%% used", p.report.PercentUsed())
}

func (p *PIso) Render(display.Window) (*bitmap.Bitmap, error) {
	return bitmap.WithBorder(font.RenderText(p.Header()), bitmap.BorderBottom, 1), nil
}

// OnEvent moves through the list with Up and Down when the focused item
// does not use them itself.
func (p *PIso) OnEvent(ev controller.Event) (bool, []action.Action, error) {
	switch ev {
	case controller.Up:
		return true, []action.Action{action.FocusPrev}, nil
	case controller.Down:
		return true, []action.Action{action.FocusNext}, nil
	}
	return false, nil, nil
}

func (p *PIso) DoAction(m *display.Manager, a action.Action) (bool, []action.Action, error) {
	switch a.Kind {
	case action.KindCreateDrive:
		return p.addDrive(m, a.Volume)
	case action.KindFocusNext:
		return true, nil, p.moveFocus(m, 1)
	case action.KindFocusPrev:
		return true, nil, p.moveFocus(m, -1)
	case action.KindRemoveDrive:
		return p.removeDrive(m, a.Name)
	case action.KindRescanDrives:
		return true, nil, p.rescan(m)
	case action.KindShowError:
		return true, nil, p.showNotice(m, a.Message)
	case action.KindDismissError:
		if p.notice == nil {
			return false, nil, nil
		}
		back := p.notice.returnTo
		p.notice = nil
		if _, ok := m.Window(back); ok {
			return true, nil, m.ShiftFocusTo(back)
		}
		return true, nil, nil
	}
	return false, nil, nil
}

func (p *PIso) addDrive(m *display.Manager, vol lvm.LogicalVolume) (bool, []action.Action, error) {
	var out []action.Action
	if p.cfg.USB != nil {
		if _, err := p.cfg.USB.AddLUN(vol.Path); err != nil {
			p.cfg.Logf("piso: export %s: %v", vol.Name, err)
			out = append(out, action.ShowError("Export failed"))
		}
	}
	d, err := vdrive.New(m, p.window, p.cfg.USB, vol, p.cfg.Logf)
	if err != nil {
		return false, nil, err
	}
	p.drives = append(p.drives, d)

	p.refreshReport(m)

	if len(p.drives) == 1 {
		if err := m.ShiftFocus(d); err != nil {
			return false, nil, err
		}
	}
	return true, out, nil
}

// removeDrive ejects the drive, deletes its volume and hands focus to the
// item that takes its place in the list.
func (p *PIso) removeDrive(m *display.Manager, name string) (bool, []action.Action, error) {
	i := slices.IndexFunc(p.drives, func(d *vdrive.VirtualDrive) bool { return d.Volume().Name == name })
	if i < 0 {
		return false, nil, nil
	}
	d := p.drives[i]
	if err := d.Eject(); err != nil {
		return true, []action.Action{action.ShowError("Eject failed")}, nil
	}
	if err := p.cfg.VG.RemoveVolume(m.Context(), name); err != nil {
		p.cfg.Logf("piso: remove %s: %v", name, err)
		return true, []action.Action{action.ShowError("Delete failed")}, nil
	}
	p.cfg.Logf("piso: removed %s", name)

	p.drives = slices.Delete(p.drives, i, i+1)
	p.refreshReport(m)
	return true, nil, m.ShiftFocus(p.items()[i])
}

// rescan brings the list in line with the volume group: drives whose volume
// vanished are dropped, new volumes get a drive, and the rest keep their
// state.
func (p *PIso) rescan(m *display.Manager) error {
	vols, err := p.cfg.VG.Volumes(m.Context())
	if err != nil {
		p.cfg.Logf("piso: rescan: %v", err)
		return nil
	}

	path := m.FocusPath()
	before := p.items()
	focused := slices.IndexFunc(before, func(w display.Widget) bool { return slices.Contains(path, w.WindowID()) })
	have := make(map[string]*vdrive.VirtualDrive, len(p.drives))
	for _, d := range p.drives {
		have[d.Volume().Name] = d
	}

	drives := make([]*vdrive.VirtualDrive, 0, len(vols))
	for _, vol := range vols {
		if d, ok := have[vol.Name]; ok {
			drives = append(drives, d)
			continue
		}
		d, err := vdrive.New(m, p.window, p.cfg.USB, vol, p.cfg.Logf)
		if err != nil {
			return err
		}
		drives = append(drives, d)
	}
	p.drives = drives
	p.refreshReport(m)

	// keep focus on a list item when the one it was on went away
	items := p.items()
	if focused >= 0 && !slices.Contains(items, before[focused]) {
		return m.ShiftFocus(items[min(focused, len(items)-1)])
	}
	return nil
}

func (p *PIso) refreshReport(m *display.Manager) {
	rep, err := p.cfg.VG.Report(m.Context())
	if err != nil {
		p.cfg.Logf("piso: refresh report: %v", err)
		return
	}
	p.report = rep
}

// items are the focusable list entries in display order.
func (p *PIso) items() []display.Widget {
	out := make([]display.Widget, 0, len(p.drives)+1)
	for _, d := range p.drives {
		out = append(out, d)
	}
	return append(out, p.entry)
}

func (p *PIso) moveFocus(m *display.Manager, delta int) error {
	items := p.items()
	cur := -1
	for i, w := range items {
		if w.WindowID() == m.Focused() {
			cur = i
			break
		}
	}
	next := 0
	if cur >= 0 {
		next = min(max(cur+delta, 0), len(items)-1)
	}
	return m.ShiftFocus(items[next])
}

func (p *PIso) showNotice(m *display.Manager, msg string) error {
	if p.notice != nil {
		p.notice.message = msg
		return nil
	}
	n, err := newNotice(m, msg, m.Focused())
	if err != nil {
		return err
	}
	p.notice = n
	return m.ShiftFocus(n)
}

func (p *PIso) Children() []display.Widget {
	out := p.items()
	if p.notice != nil {
		out = append(out, p.notice)
	}
	return out
}
