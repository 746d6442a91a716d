package manager

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// events arriving within this interval of each other cause a single rescan
const settle_time = 200 * time.Millisecond

func (m *Manager) add_watches(w *fsnotify.Watcher, dirs []string) {
	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return nil
			}
			if err := w.Add(path); err != nil {
				m.logger.Warn("cannot watch color profile directory", "path", path, "err", err)
			}
			return nil
		})
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
		return false
	}
	// new sub-directories are not recognisable by name
	return is_profile_file(event.Name) || filepath.Ext(event.Name) == ""
}

// Watch rescans the search directories whenever a profile is added, changed
// or removed in them, until ctx is done. Directories that do not exist when
// Watch starts are not watched. Watch blocks and returns ctx.Err() when
// cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	dirs, err := m.Config().search_dirs()
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	m.add_watches(w, dirs)

	timer := time.NewTimer(settle_time)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if relevant(event) {
				m.logger.Debug("color profile directory changed", "event", event.String())
				if event.Has(fsnotify.Create) {
					m.add_watches(w, []string{event.Name})
				}
				timer.Reset(settle_time)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("error watching color profile directories", "err", err)
		case <-timer.C:
			if err := m.LoadSettings(); err != nil {
				m.logger.Error("cannot reload color profiles", "err", err)
			}
		}
	}
}
