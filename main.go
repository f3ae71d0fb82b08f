package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"piso/app"
	"piso/hal"
	"piso/internal/buildinfo"
	"piso/internal/config"
	"piso/internal/logging"
	"piso/pisoos/sysutil"
)

type runFlags struct {
	configPath string
	headless   bool
	device     bool
	simulate   bool
	hz         int
	ticks      uint64
	keys       string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var f runFlags
	rootCmd := &cobra.Command{
		Use:           "piso",
		Short:         "pISO virtual USB drive appliance",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", config.DefaultPath, "Settings file (TOML).")
	rootCmd.Flags().BoolVar(&f.headless, "headless", false, "Run without a window.")
	rootCmd.Flags().BoolVar(&f.device, "device", false, "Drive the panel framebuffer and GPIO buttons.")
	rootCmd.Flags().BoolVar(&f.simulate, "simulate", false, "Use in-memory LVM, tools and USB gadget.")
	rootCmd.Flags().IntVar(&f.hz, "hz", 60, "Tick rate.")
	rootCmd.Flags().Uint64Var(&f.ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	rootCmd.Flags().StringVar(&f.keys, "keys", "", "Comma-separated keys pressed in headless mode: select, up, down.")

	rootCmd.AddCommand(createStatusCmd(&f))
	rootCmd.AddCommand(createVersionCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintln(os.Stderr, "piso:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f runFlags) error {
	settings, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	newApp := func(h hal.HAL) func() error {
		return app.New(h, app.Config{Settings: settings, Simulate: f.simulate})
	}

	switch {
	case f.device:
		return hal.RunDevice(ctx, hal.DeviceConfig{
			Framebuffer: settings.Display.Device,
			Select:      settings.Buttons.Select,
			Up:          settings.Buttons.Up,
			Down:        settings.Buttons.Down,
			Debounce:    settings.Buttons.Debounce,
			Hz:          f.hz,
		}, newApp)
	case f.headless:
		keys, err := parseKeys(f.keys)
		if err != nil {
			return err
		}
		return hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{
			Width:  settings.Display.Width,
			Height: settings.Display.Height,
			Hz:     f.hz,
			Ticks:  f.ticks,
			Keys:   keys,
		})
	default:
		return hal.RunWindow(settings.Display.Width, settings.Display.Height, newApp)
	}
}

func parseKeys(s string) ([]hal.KeyCode, error) {
	var keys []hal.KeyCode
	for _, name := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "":
		case "select", "enter":
			keys = append(keys, hal.KeyEnter)
		case "up":
			keys = append(keys, hal.KeyUp)
		case "down":
			keys = append(keys, hal.KeyDown)
		default:
			return nil, fmt.Errorf("unknown key %q", name)
		}
	}
	return keys, nil
}

func createStatusCmd(f *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print volume group usage, drives and USB exports as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			log := logging.New(hal.NewStderrLogger(), settings.LogLevel())
			runner := sysutil.ExecRunner{Timeout: settings.Format.ToolTimeout, Logf: log.Debugf}
			st, err := app.ReadStatus(cmd.Context(), settings, nil, runner)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(st)
		},
	}
}

func createVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "piso", buildinfo.String())
		},
	}
}
