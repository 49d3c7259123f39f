// Package inventory builds the asset list and fingerprint of an application
// package once and serves both read-only afterwards.
package inventory

import (
	"io"
	"slices"

	"github.com/torfstack/assetprint/internal/asset"
	"github.com/torfstack/assetprint/internal/fingerprint"
	"github.com/torfstack/assetprint/internal/logging"
)

type Source struct {
	Lister      asset.Lister
	BasePath    string
	ArchivePath string
	Options     fingerprint.Options
}

type Inventory struct {
	archivePath string
	assets      asset.List
	listingErr  error
	result      fingerprint.Result
}

// Build enumerates the assets and fingerprints them. A Lister that is also an
// io.Closer is closed before fingerprinting starts. Build does not fail:
// listing problems leave a partial list and archive problems leave an empty
// fingerprint, both reported through ListingErr and Result.
func Build(src Source) *Inventory {
	assets, err := asset.Enumerate(src.Lister, src.BasePath)
	if err != nil {
		logging.Warnf("Asset listing below '%s' is incomplete: %s", src.BasePath, err)
	}
	logging.Debugf("Enumerated %d assets below '%s'", len(assets), src.BasePath)
	if c, ok := src.Lister.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logging.Debugf("Could not release asset lister: %s", err)
		}
	}

	res := fingerprint.Build(src.ArchivePath, assets, src.Options)
	switch {
	case res.Err != nil:
		logging.Warnf("Asset fingerprint unknown: %s", res.Err)
	case len(res.Missing) > 0:
		logging.Warnf("%d of %d assets have no archive entry", len(res.Missing), len(assets))
	}

	return &Inventory{
		archivePath: src.ArchivePath,
		assets:      assets,
		listingErr:  err,
		result:      res,
	}
}

func (i *Inventory) ArchivePath() string {
	return i.archivePath
}

// Assets returns a copy of the enumerated asset paths.
func (i *Inventory) Assets() []string {
	return slices.Clone([]string(i.assets))
}

func (i *Inventory) Fingerprint() string {
	return i.result.Value
}

func (i *Inventory) Result() fingerprint.Result {
	r := i.result
	r.Missing = slices.Clone(r.Missing)
	return r
}

func (i *Inventory) ListingErr() error {
	return i.listingErr
}
