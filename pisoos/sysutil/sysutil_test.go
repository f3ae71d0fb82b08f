package sysutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piso/pisoos/errs"
)

func TestParseTemplateQuoting(t *testing.T) {
	tmpl, err := ParseTemplate(`parted --script {device} "mklabel msdos" 'mkpart primary ntfs 0% 100%'`)
	require.NoError(t, err)

	assert.Equal(t, "parted", tmpl.Name)
	assert.Equal(t, []string{
		"--script", "/dev/vg/Drive0", "mklabel msdos", "mkpart primary ntfs 0% 100%",
	}, tmpl.Expand(map[string]string{"device": "/dev/vg/Drive0"}))
}

func TestParseTemplateErrors(t *testing.T) {
	_, err := ParseTemplate("   ")
	assert.Error(t, err)

	_, err = ParseTemplate(`mkfs "unterminated`)
	assert.Error(t, err)
}

func TestExpandLeavesUnknownPlaceholders(t *testing.T) {
	tmpl := MustParseTemplate("mkfs.ext3 {part} {other}")
	assert.Equal(t, []string{"/dev/loop0p1", "{other}"}, tmpl.Expand(map[string]string{"part": "/dev/loop0p1"}))
}

func TestExecRunnerCapturesStdout(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo nope >&2; exit 3")
	require.Error(t, err)
	assert.True(t, errs.IsExternalTool(err))

	var te *errs.ExternalToolError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "nope", te.Output)
}

func TestExecRunnerTimeout(t *testing.T) {
	_, err := ExecRunner{Timeout: 20 * time.Millisecond}.Run(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestWaitForPathExisting(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "loop0")
	require.NoError(t, os.WriteFile(p, nil, 0o600))

	assert.NoError(t, WaitForPath(context.Background(), p, 10*time.Millisecond))
}

func TestWaitForPathAppears(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "loop0p1")

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(p, nil, 0o600)
	}()

	assert.NoError(t, WaitForPath(context.Background(), p, time.Second))
}

func TestWaitForPathTimeout(t *testing.T) {
	dir := t.TempDir()
	err := WaitForPath(context.Background(), filepath.Join(dir, "never"), 30*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrWaitTimeout))
	assert.True(t, errs.IsExternalTool(err))
}
