package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/torfstack/assetprint/internal/logging"
	"github.com/torfstack/assetprint/internal/watch"
)

// Watch checks the assets once and then again every time the archive or the
// asset directory settles after a change. Each result is passed to onCheck.
// Watch returns when ctx is done.
func (s *Service) Watch(ctx context.Context, onCheck func(CheckResult)) error {
	if s.cfg.ArchivePath == "" {
		return ErrNoArchive
	}
	archivePath := archiveKey(s.cfg.ArchivePath)

	var roots []string
	if s.cfg.AssetDir != "" {
		roots = append(roots, archiveKey(s.cfg.AssetDir))
	}
	w, err := watch.NewWatcher(roots...)
	if err != nil {
		return fmt.Errorf("watch: could not create watcher: %w", err)
	}
	defer w.Close()
	// the archive is usually replaced rather than written in place
	if err = w.Add(filepath.Dir(archivePath)); err != nil {
		return fmt.Errorf("watch: could not watch archive directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	d, err := s.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	check := func() {
		inv, err := s.Inventory()
		if err != nil {
			logging.Error("Could not build inventory", err)
			return
		}
		res, err := record(ctx, d.Queries(), inv, time.Now())
		if err != nil {
			logging.Error("Could not check fingerprint", err)
			return
		}
		logCheck(res)
		if onCheck != nil {
			onCheck(res)
		}
	}
	check()

	debounce := s.cfg.WatchDebounce
	var settled <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				if err := <-runErr; err != nil {
					return fmt.Errorf("watch: error while running watcher: %w", err)
				}
				return nil
			}
			if !s.relevant(archivePath, event) {
				continue
			}
			logging.Debugf("Received %s event: %s", event.Op, event.Path)
			settled = time.After(debounce)

		case <-settled:
			settled = nil
			check()
		}
	}
}

func (s *Service) relevant(archivePath string, event watch.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	if filepath.Clean(event.Path) == archivePath {
		return true
	}
	if s.cfg.AssetDir == "" {
		return false
	}
	rel, err := filepath.Rel(archiveKey(s.cfg.AssetDir), event.Path)
	return err == nil && filepath.IsLocal(rel)
}

func logCheck(res CheckResult) {
	switch res.Status {
	case StatusChanged:
		logging.Infof("Assets changed: %s -> %s", res.Previous.Fingerprint, res.Inventory.Fingerprint())
	case StatusNew:
		logging.Infof("Recorded first fingerprint %s", res.Inventory.Fingerprint())
	case StatusUnchanged:
		logging.Debugf("Assets unchanged (%s)", res.Inventory.Fingerprint())
	}
}
