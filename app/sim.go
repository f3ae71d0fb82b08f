package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"piso/pisoos/lvm"
	"piso/pisoos/sysutil"
)

// simVolumeGroup is an in-memory volume group for running the UI on a
// workstation without LVM.
type simVolumeGroup struct {
	mu   sync.Mutex
	name string
	size uint64
	vols []lvm.LogicalVolume
}

func newSimVolumeGroup(name string, size uint64) *simVolumeGroup {
	return &simVolumeGroup{name: name, size: size}
}

func (v *simVolumeGroup) Volumes(context.Context) ([]lvm.LogicalVolume, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]lvm.LogicalVolume(nil), v.vols...), nil
}

func (v *simVolumeGroup) CreateVolume(_ context.Context, name string, size uint64) (lvm.LogicalVolume, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, vol := range v.vols {
		if vol.Name == name {
			return lvm.LogicalVolume{}, fmt.Errorf("volume %s exists", name)
		}
	}
	vol := lvm.LogicalVolume{Name: name, Path: "/dev/" + v.name + "/" + name, Size: size}
	v.vols = append(v.vols, vol)
	return vol, nil
}

func (v *simVolumeGroup) RemoveVolume(_ context.Context, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, vol := range v.vols {
		if vol.Name == name {
			v.vols = append(v.vols[:i], v.vols[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("volume %s not found", name)
}

func (v *simVolumeGroup) Report(context.Context) (lvm.Report, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var used uint64
	for _, vol := range v.vols {
		used += vol.Size
	}
	return lvm.Report{Name: v.name, VgSize: v.size, VgFree: v.size - min(used, v.size), LvCount: len(v.vols)}, nil
}

// simRunner logs tool invocations instead of running them and answers the
// few whose output the formatter reads.
type simRunner struct {
	logf  func(format string, args ...any)
	delay time.Duration
}

var _ sysutil.Runner = simRunner{}

func (r simRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	r.logf("sim: %s %s", name, strings.Join(args, " "))
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if name == "losetup" && len(args) == 1 && args[0] == "-f" {
		return "/dev/loop0\n", nil
	}
	return "", nil
}

func simWait(context.Context, string, time.Duration) error { return nil }
