package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piso/internal/logging"
)

func TestDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadFs(afero.NewMemMapFs(), "/boot/piso.config")
	require.NoError(t, err)

	assert.Equal(t, "VolGroup00", cfg.VolumeGroup)
	assert.Equal(t, "thinpool", cfg.ThinPool)
	assert.Equal(t, uint16(0x1d6b), cfg.Gadget.VendorID)
	assert.Equal(t, uint16(0x0104), cfg.Gadget.ProductID)
	assert.Equal(t, 128, cfg.Display.Width)
	assert.Equal(t, 64, cfg.Display.Height)
	assert.Equal(t, 50*time.Millisecond, cfg.Buttons.Debounce)
	assert.Equal(t, time.Second, cfg.Format.WaitTimeout)
	assert.Equal(t, logging.Info, cfg.LogLevel())
}

func TestFileOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/boot/piso.config", []byte(`
volume_group = "vg1"

[gadget]
udc = "fe980000.usb"
serial = "00000000abcd"

[buttons]
up = 5
debounce = "20ms"

[log]
level = "debug"
`), 0o644))

	cfg, err := LoadFs(fs, "/boot/piso.config")
	require.NoError(t, err)
	assert.Equal(t, "vg1", cfg.VolumeGroup)
	assert.Equal(t, "fe980000.usb", cfg.Gadget.UDC)
	assert.Equal(t, "00000000abcd", cfg.Gadget.Serial)
	assert.Equal(t, 5, cfg.Buttons.Up)
	assert.Equal(t, 27, cfg.Buttons.Down)
	assert.Equal(t, 20*time.Millisecond, cfg.Buttons.Debounce)
	assert.Equal(t, logging.Debug, cfg.LogLevel())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PISO_LOG_LEVEL", "error")
	t.Setenv("PISO_DISPLAY_DEVICE", "/dev/fb0")

	cfg, err := LoadFs(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, logging.Error, cfg.LogLevel())
	assert.Equal(t, "/dev/fb0", cfg.Display.Device)
}

func TestInvalid(t *testing.T) {
	cases := map[string]string{
		"bad level":   "[log]\nlevel = \"loud\"\n",
		"zero width":  "[display]\nwidth = 0\n",
		"empty group": "volume_group = \"\"\n",
		"not toml":    "volume_group = [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/piso.config", []byte(body), 0o644))
			_, err := LoadFs(fs, "/piso.config")
			assert.Error(t, err)
		})
	}
}
