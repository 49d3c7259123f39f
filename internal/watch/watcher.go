package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/torfstack/assetprint/internal/logging"
)

type Event struct {
	Path string
	Op   fsnotify.Op
}

type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan Event
	// Roots are watched recursively, including directories created later.
	Roots []string
}

// NewWatcher watches every directory below the given roots. Further single
// directories can be added with Add.
func NewWatcher(roots ...string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: watcher,
		Events:  make(chan Event),
		Roots:   roots,
	}

	// NOTE: fsnotify does not recursively watch subdirectories
	for _, root := range roots {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return w.addDir(path)
			}
			return nil
		})
		if err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("could not watch '%s': %w", root, err)
		}
	}

	return w, nil
}

// Add watches a single directory without descending into it.
func (w *Watcher) Add(dir string) error {
	return w.addDir(dir)
}

func (w *Watcher) addDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("add-dir: could not stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil
	}

	if err = w.watcher.Add(path); err != nil {
		return fmt.Errorf("add-dir: could not add directory to watcher: %w", err)
	}
	logging.Debugf("Added directory to watcher: %s", path)
	return nil
}

func (w *Watcher) Close() {
	if err := w.watcher.Close(); err != nil {
		logging.Error("Error closing watcher", err)
	}
}

// Run forwards file system events to Events until ctx is done. Events is
// closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.Events)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.isRoot(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) && w.underRoot(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					err = w.addDir(event.Name)
					if err != nil {
						return fmt.Errorf("add-dir: could not add directory to watcher: %w", err)
					}
				}
			}

			select {
			case w.Events <- Event{Path: event.Name, Op: event.Op}:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logging.Error("FSNotify error", err)
		}
	}
}

func (w *Watcher) underRoot(path string) bool {
	for _, root := range w.Roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) isRoot(path string) bool {
	for _, root := range w.Roots {
		if filepath.Clean(path) == filepath.Clean(root) {
			return true
		}
	}
	return false
}
