package sysutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"piso/pisoos/errs"
)

// ErrWaitTimeout is wrapped by WaitForPath when the path never shows up.
var ErrWaitTimeout = errors.New("timed out waiting for path")

// pollInterval backs up the watcher; some sysfs and devtmpfs nodes appear
// without an inotify event.
const pollInterval = 50 * time.Millisecond

// WaitForPath blocks until path exists, ctx is done, or timeout elapses.
func WaitForPath(ctx context.Context, path string, timeout time.Duration) error {
	if exists(path) {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return &errs.ExternalToolError{Tool: "wait", Args: []string{path}, Err: err}
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return &errs.ExternalToolError{Tool: "wait", Args: []string{path}, Err: err}
	}

	// the path may have appeared between the first check and Add
	if exists(path) {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &errs.ExternalToolError{
				Tool: "wait",
				Args: []string{path},
				Err:  fmt.Errorf("%w after %v", ErrWaitTimeout, timeout),
			}
		case ev, ok := <-w.Events:
			if !ok {
				return &errs.ExternalToolError{Tool: "wait", Args: []string{path}, Err: errors.New("watcher closed")}
			}
			if filepath.Clean(ev.Name) == filepath.Clean(path) && ev.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-w.Errors:
			if !ok {
				err = errors.New("watcher closed")
			}
			if err != nil {
				return &errs.ExternalToolError{Tool: "wait", Args: []string{path}, Err: err}
			}
		case <-poll.C:
			if exists(path) {
				return nil
			}
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
