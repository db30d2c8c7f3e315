package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/projecteru2/core/log"
)

// SettingsChangedCode is the process exit code after the settings file
// changed; the supervisor restarts the daemon, which then reloads settings.
const SettingsChangedCode = 42

// ErrSettingsChanged is returned by Monitor.Wait when the settings file changed.
var ErrSettingsChanged = errors.New("settings file changed")

// Monitor watches one file for modification. The parent directory is
// watched so that atomic replacement (rename over the file) is seen too.
type Monitor struct {
	path    string
	watcher *fsnotify.Watcher
}

// NewMonitor starts watching path. Changes made after it returns are reported.
func NewMonitor(path string) (*Monitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return &Monitor{path: filepath.Clean(path), watcher: w}, nil
}

// Wait blocks until the file is created, written, replaced or removed
// (ErrSettingsChanged) or ctx is done (nil). Mode-only changes are ignored.
func (m *Monitor) Wait(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != m.path || ev.Op == fsnotify.Chmod {
				continue
			}
			log.WithFunc("daemon.Monitor.Wait").Infof(ctx, "settings file %s changed (%s), exiting with code %d", m.path, ev.Op, SettingsChangedCode)
			return ErrSettingsChanged
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", m.path, err)
		}
	}
}

// Close stops watching.
func (m *Monitor) Close() error {
	return m.watcher.Close()
}
