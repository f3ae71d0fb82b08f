package newdrive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"piso/pisoos/errs"
	"piso/pisoos/lvm"
	"piso/pisoos/sysutil"
)

// Format is the initial filesystem written to a new drive.
type Format uint8

const (
	Windows Format = iota
	MacOS
	Linux
	Universal
)

// Formats lists the choices in menu order.
var Formats = []Format{Windows, MacOS, Linux, Universal}

func (f Format) String() string {
	switch f {
	case Windows:
		return "Windows (NTFS)"
	case MacOS:
		return "MacOS (EXFAT)"
	case Linux:
		return "Linux (EXT3)"
	case Universal:
		return "Universal (FAT32)"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Prev and Next saturate at the ends of the menu.
func (f Format) Prev() Format {
	if f == Windows {
		return Windows
	}
	return f - 1
}

func (f Format) Next() Format {
	if f >= Universal {
		return Universal
	}
	return f + 1
}

func (f Format) partitionType() string {
	if f == Linux {
		return "ext3"
	}
	return "ntfs"
}

var mkfsTools = map[Format]sysutil.Template{
	Windows:   sysutil.MustParseTemplate(`mkfs.ntfs -f {part}`),
	MacOS:     sysutil.MustParseTemplate(`mkfs.exfat {part}`),
	Linux:     sysutil.MustParseTemplate(`mkfs.ext3 {part}`),
	Universal: sysutil.MustParseTemplate(`mkfs.vfat -F 32 {part}`),
}

var (
	partitionTool = sysutil.MustParseTemplate(`parted --script {device} "mklabel msdos" "mkpart primary {ptype} 0% 100%"`)
	findLoopTool  = sysutil.MustParseTemplate(`losetup -f`)
	bindLoopTool  = sysutil.MustParseTemplate(`losetup -fPL {device}`)
	partTableTool = sysutil.MustParseTemplate(`partprobe {loop}`)
	detachTool    = sysutil.MustParseTemplate(`losetup -d {loop}`)
)

// DefaultWait bounds each wait for a device node to appear.
const DefaultWait = time.Second

// Formatter partitions a logical volume and creates a filesystem on its
// first partition through a loop device.
type Formatter struct {
	Runner sysutil.Runner
	// Wait blocks until a device node exists; defaults to sysutil.WaitForPath.
	Wait    func(ctx context.Context, path string, timeout time.Duration) error
	Timeout time.Duration
	Logf    func(format string, args ...any)
}

func (f *Formatter) runner() sysutil.Runner {
	if f.Runner == nil {
		return sysutil.ExecRunner{}
	}
	return f.Runner
}

func (f *Formatter) wait(ctx context.Context, path string) error {
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultWait
	}
	if f.Wait != nil {
		return f.Wait(ctx, path, timeout)
	}
	return sysutil.WaitForPath(ctx, path, timeout)
}

func (f *Formatter) logf(format string, args ...any) {
	if f.Logf != nil {
		f.Logf(format, args...)
	}
}

// Format writes an msdos partition table with one partition spanning vol and
// creates the filesystem for fs on it. The loop device is detached again
// before returning.
func (f *Formatter) Format(ctx context.Context, vol lvm.LogicalVolume, fs Format) (err error) {
	r := f.runner()
	vars := map[string]string{"device": vol.Path, "ptype": fs.partitionType()}

	f.logf("format: partitioning %s for %s", vol.Path, fs)
	if _, err := partitionTool.Run(ctx, r, vars); err != nil {
		return err
	}

	out, err := findLoopTool.Run(ctx, r, vars)
	if err != nil {
		return err
	}
	loop := strings.TrimSpace(out)
	if loop == "" {
		return &errs.ExternalToolError{Tool: findLoopTool.Name, Args: findLoopTool.Args, Err: errors.New("no free loop device")}
	}
	vars["loop"] = loop
	vars["part"] = loop + "p1"

	if _, err := bindLoopTool.Run(ctx, r, vars); err != nil {
		return err
	}
	defer func() {
		if _, derr := detachTool.Run(context.WithoutCancel(ctx), r, vars); derr != nil {
			f.logf("format: detach %s: %v", loop, derr)
			if err == nil {
				err = derr
			}
		}
	}()

	if err := f.wait(ctx, loop); err != nil {
		return err
	}
	if _, err := partTableTool.Run(ctx, r, vars); err != nil {
		return err
	}
	if err := f.wait(ctx, vars["part"]); err != nil {
		return err
	}

	f.logf("format: creating filesystem on %s", vars["part"])
	if _, err := mkfsTools[fs].Run(ctx, r, vars); err != nil {
		return err
	}
	return nil
}
