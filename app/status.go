package app

import (
	"context"

	"github.com/spf13/afero"

	"piso/internal/config"
	"piso/pisoos/lvm"
	"piso/pisoos/sysutil"
	"piso/pisoos/usb"
)

// Status is a point-in-time summary of the volume group and the USB gadget.
type Status struct {
	VolumeGroup string        `yaml:"volume_group"`
	Size        uint64        `yaml:"size"`
	Free        uint64        `yaml:"free"`
	PercentUsed float64       `yaml:"percent_used"`
	Drives      []DriveStatus `yaml:"drives"`
	UDC         string        `yaml:"udc,omitempty"`
}

type DriveStatus struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Size     uint64 `yaml:"size"`
	Exported bool   `yaml:"exported"`
}

// ReadStatus queries LVM and the gadget without changing either.
func ReadStatus(ctx context.Context, s *config.Config, fs afero.Fs, r sysutil.Runner) (*Status, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if r == nil {
		r = sysutil.ExecRunner{Timeout: s.Format.ToolTimeout}
	}
	vg := lvm.Open(s.VolumeGroup, s.ThinPool, r)
	report, err := vg.Report(ctx)
	if err != nil {
		return nil, err
	}
	vols, err := vg.Volumes(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		VolumeGroup: report.Name,
		Size:        report.VgSize,
		Free:        report.VgFree,
		PercentUsed: report.PercentUsed(),
	}
	var gadget *usb.Gadget
	if ok, _ := afero.DirExists(fs, s.Gadget.Path); ok {
		if gadget, err = usb.Open(fs, s.Gadget.Path); err != nil {
			return nil, err
		}
		st.UDC, _ = gadget.Enabled()
	}
	for _, v := range vols {
		st.Drives = append(st.Drives, DriveStatus{
			Name:     v.Name,
			Path:     v.Path,
			Size:     v.Size,
			Exported: gadget != nil && gadget.Exported(v.Path),
		})
	}
	return st, nil
}
