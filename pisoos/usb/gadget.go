// Package usb drives the Linux USB gadget configfs tree that exposes virtual
// drives to the host as mass-storage LUNs.
package usb

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"piso/pisoos/errs"
)

const (
	DefaultRoot     = "/sys/kernel/config/usb_gadget/g1"
	DefaultVendor   = 0x1d6b
	DefaultProduct  = 0x0104
	storageFunction = "mass_storage.usb0"
	configName      = "c.1"
	langDir         = "0x409"
)

// GadgetConfig is written once when the gadget is created.
type GadgetConfig struct {
	VendorID     uint16
	ProductID    uint16
	Serial       string
	Manufacturer string
	Product      string
	MaxPower     int
}

func (c GadgetConfig) withDefaults() GadgetConfig {
	if c.VendorID == 0 {
		c.VendorID = DefaultVendor
	}
	if c.ProductID == 0 {
		c.ProductID = DefaultProduct
	}
	if c.Serial == "" {
		c.Serial = "fedcba9876543210"
	}
	if c.Manufacturer == "" {
		c.Manufacturer = "pISO"
	}
	if c.Product == "" {
		c.Product = "pISO USB Storage"
	}
	if c.MaxPower == 0 {
		c.MaxPower = 250
	}
	return c
}

// Gadget is a handle on one configfs gadget. It is shared between every
// drive widget, so all methods serialize on an internal mutex.
type Gadget struct {
	mu   sync.Mutex
	fs   afero.Fs
	root string
	udc  string
	luns []string // backing file per LUN index, "" when the slot is free
}

// Open attaches to an existing gadget under root without writing to it.
func Open(fs afero.Fs, root string) (*Gadget, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if root == "" {
		root = DefaultRoot
	}
	if ok, err := afero.DirExists(fs, root); err != nil || !ok {
		return nil, errs.Backend("usb gadget", fmt.Errorf("no gadget at %s", root))
	}
	g := &Gadget{fs: fs, root: root, luns: []string{""}}
	if err := g.scan(); err != nil {
		return nil, err
	}
	return g, nil
}

// New lays out the gadget descriptors, the mass-storage function and its
// configuration under root. A gadget still bound from a previous run is
// adopted as is: configfs refuses descriptor writes while it is bound.
func New(fs afero.Fs, root string, cfg GadgetConfig) (*Gadget, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if root == "" {
		root = DefaultRoot
	}
	cfg = cfg.withDefaults()
	g := &Gadget{fs: fs, root: root, luns: []string{""}}
	if err := g.scan(); err != nil {
		return nil, err
	}
	if g.udc != "" {
		return g, nil
	}

	dirs := []string{
		root,
		path.Join(root, "strings", langDir),
		path.Join(root, "configs", configName, "strings", langDir),
		g.lunDir(0),
	}
	for _, d := range dirs {
		if err := fs.MkdirAll(d, 0o755); err != nil {
			return nil, errs.Backend("usb gadget", err)
		}
	}

	files := []struct{ name, value string }{
		{"idVendor", fmt.Sprintf("0x%04x", cfg.VendorID)},
		{"idProduct", fmt.Sprintf("0x%04x", cfg.ProductID)},
		{"bcdDevice", "0x0100"},
		{"bcdUSB", "0x0200"},
		{path.Join("strings", langDir, "serialnumber"), cfg.Serial},
		{path.Join("strings", langDir, "manufacturer"), cfg.Manufacturer},
		{path.Join("strings", langDir, "product"), cfg.Product},
		{path.Join("configs", configName, "strings", langDir, "configuration"), "Config 1: Mass Storage"},
		{path.Join("configs", configName, "MaxPower"), strconv.Itoa(cfg.MaxPower)},
	}
	for _, f := range files {
		if err := g.write(path.Join(root, f.name), f.value); err != nil {
			return nil, err
		}
	}

	if l, ok := fs.(afero.Linker); ok {
		link := path.Join(root, "configs", configName, storageFunction)
		if _, err := fs.Stat(link); os.IsNotExist(err) {
			if err := l.SymlinkIfPossible(path.Join(root, "functions", storageFunction), link); err != nil {
				return nil, errs.Backend("usb gadget", err)
			}
		}
	}
	return g, nil
}

// scan picks up LUNs and the UDC binding left by a previous run.
func (g *Gadget) scan() error {
	matches, err := afero.Glob(g.fs, path.Join(g.root, "functions", storageFunction, "lun.*"))
	if err != nil {
		return errs.Backend("usb gadget", err)
	}
	for _, m := range matches {
		i, err := strconv.Atoi(strings.TrimPrefix(path.Base(m), "lun."))
		if err != nil || i < 0 {
			continue
		}
		for len(g.luns) <= i {
			g.luns = append(g.luns, "")
		}
		b, err := afero.ReadFile(g.fs, path.Join(m, "file"))
		if err != nil {
			continue
		}
		g.luns[i] = strings.TrimSpace(string(b))
	}
	if b, err := afero.ReadFile(g.fs, path.Join(g.root, "UDC")); err == nil {
		g.udc = strings.TrimSpace(string(b))
	}
	return nil
}

func (g *Gadget) lunDir(i int) string {
	return path.Join(g.root, "functions", storageFunction, "lun."+strconv.Itoa(i))
}

func (g *Gadget) write(p, value string) error {
	if err := afero.WriteFile(g.fs, p, []byte(value+"\n"), 0o644); err != nil {
		return errs.Backend("usb gadget", err)
	}
	return nil
}

// AddLUN exports the block device at devPath and returns its LUN index.
// Exporting an already exported path returns the existing index.
func (g *Gadget) AddLUN(devPath string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if devPath == "" {
		return 0, errs.Backend("usb gadget", fmt.Errorf("empty backing path"))
	}
	if i := g.indexOf(devPath); i >= 0 {
		return i, nil
	}

	slot := g.indexOf("")
	if slot < 0 {
		slot = len(g.luns)
		if err := g.fs.MkdirAll(g.lunDir(slot), 0o755); err != nil {
			return 0, errs.Backend("usb gadget", err)
		}
		g.luns = append(g.luns, "")
	}

	err := g.rebind(func() error {
		dir := g.lunDir(slot)
		if err := g.write(path.Join(dir, "removable"), "1"); err != nil {
			return err
		}
		if err := g.write(path.Join(dir, "ro"), "0"); err != nil {
			return err
		}
		return g.write(path.Join(dir, "file"), devPath)
	})
	if err != nil {
		return 0, err
	}
	g.luns[slot] = devPath
	return slot, nil
}

// RemoveLUN ejects devPath. Removing a path that is not exported is an error.
func (g *Gadget) RemoveLUN(devPath string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.indexOf(devPath)
	if i < 0 || devPath == "" {
		return errs.Backend("usb gadget", fmt.Errorf("%s is not exported", devPath))
	}
	if err := g.rebind(func() error {
		return g.write(path.Join(g.lunDir(i), "file"), "")
	}); err != nil {
		return err
	}
	g.luns[i] = ""
	return nil
}

// Exported reports whether devPath is currently backing a LUN.
func (g *Gadget) Exported(devPath string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return devPath != "" && g.indexOf(devPath) >= 0
}

// LUNs returns the backing paths of all occupied LUNs in index order.
func (g *Gadget) LUNs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, p := range g.luns {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Enable binds the gadget to the named UDC.
func (g *Gadget) Enable(udc string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if udc == "" {
		return errs.Backend("usb gadget", fmt.Errorf("no UDC given"))
	}
	if err := g.write(path.Join(g.root, "UDC"), udc); err != nil {
		return err
	}
	g.udc = udc
	return nil
}

// Disable unbinds the gadget. Disabling an unbound gadget is a no-op.
func (g *Gadget) Disable() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.udc == "" {
		return nil
	}
	if err := g.write(path.Join(g.root, "UDC"), ""); err != nil {
		return err
	}
	g.udc = ""
	return nil
}

// Enabled reports the UDC the gadget is bound to, if any.
func (g *Gadget) Enabled() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.udc, g.udc != ""
}

// rebind unbinds around fn when the gadget is live; the kernel rejects LUN
// changes on a bound function.
func (g *Gadget) rebind(fn func() error) error {
	udc := g.udc
	if udc == "" {
		return fn()
	}
	if err := g.write(path.Join(g.root, "UDC"), ""); err != nil {
		return err
	}
	ferr := fn()
	if err := g.write(path.Join(g.root, "UDC"), udc); err != nil && ferr == nil {
		ferr = err
	}
	return ferr
}

func (g *Gadget) indexOf(p string) int {
	for i, cur := range g.luns {
		if cur == p {
			return i
		}
	}
	return -1
}
