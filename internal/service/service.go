package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/torfstack/assetprint/internal/archive"
	"github.com/torfstack/assetprint/internal/asset"
	"github.com/torfstack/assetprint/internal/config"
	"github.com/torfstack/assetprint/internal/db"
	"github.com/torfstack/assetprint/internal/fingerprint"
	"github.com/torfstack/assetprint/internal/inventory"
	"github.com/torfstack/assetprint/internal/logging"
)

var ErrNoArchive = errors.New("no archive configured, pass --archive or run 'assetprint init'")

type Service struct {
	cfg config.Config
}

func NewService(cfg config.Config) *Service {
	return &Service{cfg}
}

func (s *Service) Config() config.Config {
	return s.cfg
}

// Inventory enumerates and fingerprints the configured assets. Assets are
// listed from asset_dir when set, otherwise from the archive itself.
func (s *Service) Inventory() (*inventory.Inventory, error) {
	if s.cfg.ArchivePath == "" {
		return nil, ErrNoArchive
	}
	src := inventory.Source{
		BasePath:    s.cfg.AssetRoot,
		ArchivePath: s.cfg.ArchivePath,
		Options: fingerprint.Options{
			Prefix: s.cfg.EntryPrefix,
			Sorted: s.cfg.SortPaths,
		},
	}

	if s.cfg.AssetDir != "" {
		logging.Debugf("Listing assets from directory '%s'", s.cfg.AssetDir)
		src.Lister = asset.NewDirLister(os.DirFS(s.cfg.AssetDir))
		return inventory.Build(src), nil
	}

	a, err := archive.Open(s.cfg.ArchivePath)
	if err != nil {
		// fingerprinting degrades to an unknown result on its own
		logging.Debugf("Listing from archive failed: %s", err)
		src.Lister = asset.ListerFunc(func(string) ([]string, error) { return nil, err })
		return inventory.Build(src), nil
	}
	// Build closes the lister, and with it the archive, after listing
	src.Lister = asset.NewArchiveLister(a, s.cfg.EntryPrefix)
	return inventory.Build(src), nil
}

// Entries lists the directory records of every file in the archive.
func (s *Service) Entries() ([]archive.Entry, error) {
	if s.cfg.ArchivePath == "" {
		return nil, ErrNoArchive
	}
	a, err := archive.Open(s.cfg.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Entries(), nil
}

// ReadAsset returns the content of one packaged asset, addressed like the
// enumerated asset paths.
func (s *Service) ReadAsset(assetPath string) ([]byte, error) {
	if s.cfg.ArchivePath == "" {
		return nil, ErrNoArchive
	}
	a, err := archive.Open(s.cfg.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.ReadFile(asset.Join(s.cfg.EntryPrefix, assetPath))
}

func (s *Service) openDatabase(ctx context.Context) (*db.Database, error) {
	d, err := db.New(ctx, s.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("could not open fingerprint history: %w", err)
	}
	return d, nil
}
