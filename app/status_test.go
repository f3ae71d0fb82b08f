package app

import (
	"context"
	"os"
	"path"
	"syscall"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piso/internal/config"
	"piso/pisoos/usb"
)

// lvmRunner answers lvs and vgs for VolGroup00 with two volumes.
type lvmRunner struct{ calls []string }

func (r *lvmRunner) Run(_ context.Context, name string, _ ...string) (string, error) {
	r.calls = append(r.calls, name)
	switch name {
	case "lvs":
		return `{"report":[{"lv":[
			{"lv_name":"thinpool","lv_path":"","lv_size":"17179869184"},
			{"lv_name":"Drive0","lv_path":"/dev/VolGroup00/Drive0","lv_size":"4294967296"},
			{"lv_name":"Drive1","lv_path":"/dev/VolGroup00/Drive1","lv_size":"4294967296"}
		]}]}`, nil
	case "vgs":
		return `{"report":[{"vg":[
			{"vg_name":"VolGroup00","vg_size":"17179869184","vg_free":"8589934592","lv_count":"3"}
		]}]}`, nil
	}
	return "", nil
}

func TestReadStatusLeavesGadgetUntouched(t *testing.T) {
	s, err := config.LoadFs(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	s.Gadget.Path = "/cfg/usb_gadget/piso"

	mem := afero.NewMemMapFs()
	g, err := usb.New(mem, s.Gadget.Path, usb.GadgetConfig{Serial: "00000000deadbeef"})
	require.NoError(t, err)
	_, err = g.AddLUN("/dev/VolGroup00/Drive1")
	require.NoError(t, err)
	require.NoError(t, g.Enable("20980000.usb"))

	// a read-only view fails any write, as configfs does with EBUSY while
	// the gadget is bound
	st, err := ReadStatus(context.Background(), s, afero.NewReadOnlyFs(mem), &lvmRunner{})
	require.NoError(t, err)

	assert.Equal(t, "VolGroup00", st.VolumeGroup)
	assert.InDelta(t, 50, st.PercentUsed, 0.1)
	assert.Equal(t, "20980000.usb", st.UDC)
	assert.Equal(t, []DriveStatus{
		{Name: "Drive0", Path: "/dev/VolGroup00/Drive0", Size: 4 << 30},
		{Name: "Drive1", Path: "/dev/VolGroup00/Drive1", Size: 4 << 30, Exported: true},
	}, st.Drives)

	serial, err := afero.ReadFile(mem, path.Join(s.Gadget.Path, "strings/0x409/serialnumber"))
	require.NoError(t, err)
	assert.Equal(t, "00000000deadbeef\n", string(serial))
}

func TestReadStatusWithoutGadget(t *testing.T) {
	s, err := config.LoadFs(afero.NewMemMapFs(), "")
	require.NoError(t, err)

	st, err := ReadStatus(context.Background(), s, afero.NewMemMapFs(), &lvmRunner{})
	require.NoError(t, err)
	assert.Empty(t, st.UDC)
	require.Len(t, st.Drives, 2)
	assert.False(t, st.Drives[1].Exported)
}

// busyFs refuses writes to one file the way configfs refuses a UDC bind
// while the controller is held elsewhere.
type busyFs struct {
	afero.Fs
	busy string
}

func (f busyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if name == f.busy && flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: syscall.EBUSY}
	}
	return f.Fs.OpenFile(name, flag, perm)
}
