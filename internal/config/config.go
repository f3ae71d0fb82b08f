// Package config loads the appliance settings from /boot/piso.config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"piso/internal/logging"
)

// DefaultPath is where the boot partition keeps the settings file.
const DefaultPath = "/boot/piso.config"

// EnvPrefix namespaces environment overrides, e.g. PISO_LOG_LEVEL.
const EnvPrefix = "PISO"

type Config struct {
	VolumeGroup string `mapstructure:"volume_group"`
	ThinPool    string `mapstructure:"thin_pool"`

	Gadget  GadgetConfig  `mapstructure:"gadget"`
	Display DisplayConfig `mapstructure:"display"`
	Buttons ButtonConfig  `mapstructure:"buttons"`
	Log     LogConfig     `mapstructure:"log"`
	Format  FormatConfig  `mapstructure:"format"`
}

type GadgetConfig struct {
	Path      string `mapstructure:"path"`
	UDC       string `mapstructure:"udc"` // empty picks the first controller in /sys/class/udc
	VendorID  uint16 `mapstructure:"vendor_id"`
	ProductID uint16 `mapstructure:"product_id"`
	Serial    string `mapstructure:"serial"` // empty reads the board serial from /proc/cpuinfo
}

type DisplayConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Device string `mapstructure:"device"`
}

// ButtonConfig holds sysfs GPIO line numbers.
type ButtonConfig struct {
	Select   int           `mapstructure:"select"`
	Up       int           `mapstructure:"up"`
	Down     int           `mapstructure:"down"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type FormatConfig struct {
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("volume_group", "VolGroup00")
	v.SetDefault("thin_pool", "thinpool")

	v.SetDefault("gadget.path", "/sys/kernel/config/usb_gadget/g1")
	v.SetDefault("gadget.udc", "")
	v.SetDefault("gadget.vendor_id", 0x1d6b)
	v.SetDefault("gadget.product_id", 0x0104)
	v.SetDefault("gadget.serial", "")

	v.SetDefault("display.width", 128)
	v.SetDefault("display.height", 64)
	v.SetDefault("display.device", "/dev/fb1")

	v.SetDefault("buttons.select", 22)
	v.SetDefault("buttons.up", 17)
	v.SetDefault("buttons.down", 27)
	v.SetDefault("buttons.debounce", "50ms")

	v.SetDefault("log.level", "info")

	v.SetDefault("format.wait_timeout", "1s")
	v.SetDefault("format.tool_timeout", "5m")
}

// Load reads path from the OS filesystem. See LoadFs.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs reads a TOML settings file from fsys. A missing file is not an
// error; every key has a default and PISO_* environment variables override
// both.
func LoadFs(fsys afero.Fs, path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the hardware cannot work with.
func (c *Config) Validate() error {
	if c.VolumeGroup == "" {
		return errors.New("volume_group is empty")
	}
	if c.ThinPool == "" {
		return errors.New("thin_pool is empty")
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display size %dx%d", c.Display.Width, c.Display.Height)
	}
	if c.Buttons.Debounce < 0 {
		return fmt.Errorf("buttons.debounce %v is negative", c.Buttons.Debounce)
	}
	if c.Format.WaitTimeout <= 0 {
		return fmt.Errorf("format.wait_timeout %v must be positive", c.Format.WaitTimeout)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// LogLevel is the parsed log.level; Validate has already rejected bad values.
func (c *Config) LogLevel() logging.Level {
	l, _ := logging.ParseLevel(c.Log.Level)
	return l
}
