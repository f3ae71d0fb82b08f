//go:build !linux

package hal

import (
	"context"
	"time"
)

type DeviceConfig struct {
	Framebuffer string
	GPIORoot    string
	Select      int
	Up          int
	Down        int
	Debounce    time.Duration
	Hz          int
}

func RunDevice(context.Context, DeviceConfig, func(HAL) func() error) error {
	return ErrNotImplemented
}
