// Package lvm talks to the LVM command line tools to enumerate and create the
// thin volumes that back each virtual drive.
package lvm

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"piso/pisoos/errs"
	"piso/pisoos/sysutil"
)

// LogicalVolume is one virtual drive's backing block device.
type LogicalVolume struct {
	Name string
	Path string
	Size uint64
}

// Report holds volume group capacity figures in bytes.
type Report struct {
	Name    string
	VgSize  uint64
	VgFree  uint64
	LvCount int
}

// PercentUsed is the share of the group allocated to volumes.
func (r Report) PercentUsed() float64 {
	if r.VgSize == 0 {
		return 0
	}
	return float64(r.VgSize-min(r.VgFree, r.VgSize)) * 100 / float64(r.VgSize)
}

// VolumeGroup is a handle on one LVM volume group. It is a plain value and
// may be copied into every widget that needs it.
type VolumeGroup struct {
	Name     string
	ThinPool string
	Runner   sysutil.Runner
}

// Open returns a handle for the group named by name or a /dev path.
func Open(name, thinPool string, r sysutil.Runner) VolumeGroup {
	if r == nil {
		r = sysutil.ExecRunner{}
	}
	return VolumeGroup{Name: path.Base(name), ThinPool: thinPool, Runner: r}
}

// Path is the group's directory under /dev.
func (vg VolumeGroup) Path() string { return "/dev/" + vg.Name }

type lvsOutput struct {
	Report []struct {
		LV []struct {
			Name string `json:"lv_name"`
			Path string `json:"lv_path"`
			Size string `json:"lv_size"`
		} `json:"lv"`
	} `json:"report"`
}

type vgsOutput struct {
	Report []struct {
		VG []struct {
			Name    string `json:"vg_name"`
			Size    string `json:"vg_size"`
			Free    string `json:"vg_free"`
			LvCount string `json:"lv_count"`
		} `json:"vg"`
	} `json:"report"`
}

// Volumes lists the user-visible volumes, skipping the thin pool itself and
// LVM's hidden internal volumes.
func (vg VolumeGroup) Volumes(ctx context.Context) ([]LogicalVolume, error) {
	out, err := vg.Runner.Run(ctx, "lvs",
		"--reportformat", "json", "--units", "b", "--nosuffix",
		"-o", "lv_name,lv_path,lv_size", vg.Name)
	if err != nil {
		return nil, errs.Backend("lvs", err)
	}

	var parsed lvsOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return nil, errs.Backend("lvs", fmt.Errorf("decode report: %w", err))
	}

	var vols []LogicalVolume
	for _, rep := range parsed.Report {
		for _, lv := range rep.LV {
			if lv.Name == vg.ThinPool || lv.Path == "" || strings.HasPrefix(lv.Name, "[") {
				continue
			}
			size, err := parseBytes(lv.Size)
			if err != nil {
				return nil, errs.Backend("lvs", fmt.Errorf("volume %s: %w", lv.Name, err))
			}
			vols = append(vols, LogicalVolume{Name: lv.Name, Path: lv.Path, Size: size})
		}
	}
	return vols, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/ ") {
		return fmt.Errorf("invalid volume name %q", name)
	}
	return nil
}

// CreateVolume allocates a thin volume of size bytes.
func (vg VolumeGroup) CreateVolume(ctx context.Context, name string, size uint64) (LogicalVolume, error) {
	if err := validName(name); err != nil {
		return LogicalVolume{}, errs.Backend("lvcreate", err)
	}
	if size == 0 {
		return LogicalVolume{}, errs.Backend("lvcreate", fmt.Errorf("volume %s: zero size", name))
	}
	_, err := vg.Runner.Run(ctx, "lvcreate",
		"-V", strconv.FormatUint(size, 10)+"B",
		"-T", vg.Name+"/"+vg.ThinPool,
		"-n", name)
	if err != nil {
		return LogicalVolume{}, errs.Backend("lvcreate", err)
	}
	return LogicalVolume{Name: name, Path: vg.Path() + "/" + name, Size: size}, nil
}

// RemoveVolume deletes a volume and returns its space to the thin pool. The
// pool itself cannot be removed this way.
func (vg VolumeGroup) RemoveVolume(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return errs.Backend("lvremove", err)
	}
	if name == vg.ThinPool {
		return errs.Backend("lvremove", fmt.Errorf("refusing to remove thin pool %s", name))
	}
	if _, err := vg.Runner.Run(ctx, "lvremove", "-f", vg.Name+"/"+name); err != nil {
		return errs.Backend("lvremove", err)
	}
	return nil
}

// Report queries group capacity.
func (vg VolumeGroup) Report(ctx context.Context) (Report, error) {
	out, err := vg.Runner.Run(ctx, "vgs",
		"--reportformat", "json", "--units", "b", "--nosuffix",
		"-o", "vg_name,vg_size,vg_free,lv_count", vg.Name)
	if err != nil {
		return Report{}, errs.Backend("vgs", err)
	}

	var parsed vgsOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		return Report{}, errs.Backend("vgs", fmt.Errorf("decode report: %w", err))
	}
	for _, rep := range parsed.Report {
		for _, g := range rep.VG {
			if g.Name != vg.Name {
				continue
			}
			r := Report{Name: g.Name}
			if r.VgSize, err = parseBytes(g.Size); err != nil {
				return Report{}, errs.Backend("vgs", err)
			}
			if r.VgFree, err = parseBytes(g.Free); err != nil {
				return Report{}, errs.Backend("vgs", err)
			}
			if r.LvCount, err = strconv.Atoi(strings.TrimSpace(g.LvCount)); err != nil {
				return Report{}, errs.Backend("vgs", fmt.Errorf("lv_count: %w", err))
			}
			return r, nil
		}
	}
	return Report{}, errs.Backend("vgs", fmt.Errorf("volume group %s not found", vg.Name))
}

// parseBytes accepts lvm's "--units b --nosuffix" numbers, which may carry a
// trailing "B" on older releases.
func parseBytes(s string) (uint64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "B")
	if s == "" {
		return 0, nil
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", s, err)
	}
	return n, nil
}
