//go:build !cgo

package hal

import "fmt"

func RunWindow(_, _ int, _ func(h HAL) func() error) error {
	return fmt.Errorf("window mode needs a cgo build, use --headless: %w", ErrNotImplemented)
}
