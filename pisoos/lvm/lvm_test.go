package lvm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piso/pisoos/errs"
)

type scriptedRunner struct {
	outputs map[string]string
	fail    map[string]error
	calls   [][]string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if err := r.fail[name]; err != nil {
		return "", err
	}
	return r.outputs[name], nil
}

const lvsJSON = `{
  "report": [
    {
      "lv": [
        {"lv_name":"thinpool", "lv_path":"", "lv_size":"8000000000"},
        {"lv_name":"Drive0", "lv_path":"/dev/VolGroup00/Drive0", "lv_size":"1073741824"},
        {"lv_name":"[lvol0_pmspare]", "lv_path":"", "lv_size":"4194304"},
        {"lv_name":"Drive1", "lv_path":"/dev/VolGroup00/Drive1", "lv_size":"2147483648B"}
      ]
    }
  ]
}`

const vgsJSON = `{"report":[{"vg":[{"vg_name":"VolGroup00","vg_size":"8589934592","vg_free":"2147483648","lv_count":"3"}]}]}`

func TestVolumesSkipsPoolAndHidden(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{"lvs": lvsJSON}}
	vg := Open("/dev/VolGroup00", "thinpool", r)

	vols, err := vg.Volumes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []LogicalVolume{
		{Name: "Drive0", Path: "/dev/VolGroup00/Drive0", Size: 1 << 30},
		{Name: "Drive1", Path: "/dev/VolGroup00/Drive1", Size: 2 << 30},
	}, vols)
	assert.Equal(t, "VolGroup00", r.calls[0][len(r.calls[0])-1])
}

func TestReport(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{"vgs": vgsJSON}}
	vg := Open("VolGroup00", "thinpool", r)

	rep, err := vg.Report(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(8<<30), rep.VgSize)
	assert.Equal(t, uint64(2<<30), rep.VgFree)
	assert.Equal(t, 3, rep.LvCount)
	assert.InDelta(t, 75.0, rep.PercentUsed(), 0.001)
}

func TestReportMissingGroup(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{"vgs": `{"report":[{"vg":[]}]}`}}
	_, err := Open("VolGroup00", "thinpool", r).Report(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsBackend(err))
}

func TestCreateVolume(t *testing.T) {
	r := &scriptedRunner{}
	vg := Open("VolGroup00", "thinpool", r)

	lv, err := vg.CreateVolume(context.Background(), "Drive2", 4096)
	require.NoError(t, err)
	assert.Equal(t, LogicalVolume{Name: "Drive2", Path: "/dev/VolGroup00/Drive2", Size: 4096}, lv)
	assert.Equal(t, "lvcreate -V 4096B -T VolGroup00/thinpool -n Drive2", strings.Join(r.calls[0], " "))
}

func TestCreateVolumeFailures(t *testing.T) {
	r := &scriptedRunner{fail: map[string]error{"lvcreate": errors.New("insufficient free space")}}
	vg := Open("VolGroup00", "thinpool", r)

	_, err := vg.CreateVolume(context.Background(), "Drive2", 4096)
	assert.True(t, errs.IsBackend(err))

	_, err = vg.CreateVolume(context.Background(), "bad name", 4096)
	assert.Error(t, err)

	_, err = vg.CreateVolume(context.Background(), "Drive3", 0)
	assert.Error(t, err)
}

func TestRemoveVolume(t *testing.T) {
	r := &scriptedRunner{}
	vg := Open("/dev/VolGroup00", "thinpool", r)

	require.NoError(t, vg.RemoveVolume(context.Background(), "Drive1"))
	require.Len(t, r.calls, 1)
	assert.Equal(t, "lvremove -f VolGroup00/Drive1", strings.Join(r.calls[0], " "))

	assert.True(t, errs.IsBackend(vg.RemoveVolume(context.Background(), "thinpool")))
	assert.True(t, errs.IsBackend(vg.RemoveVolume(context.Background(), "../x")))
	assert.Len(t, r.calls, 1, "rejected names never reach lvremove")

	r.fail = map[string]error{"lvremove": errors.New("Logical volume in use")}
	assert.True(t, errs.IsBackend(vg.RemoveVolume(context.Background(), "Drive1")))
}

func TestVolumesBadJSON(t *testing.T) {
	r := &scriptedRunner{outputs: map[string]string{"lvs": "not json"}}
	_, err := Open("VolGroup00", "thinpool", r).Volumes(context.Background())
	assert.True(t, errs.IsBackend(err))
}
