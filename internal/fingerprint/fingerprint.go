// Package fingerprint derives a single string summarizing the stored CRC-32
// checksums of a set of archived assets.
package fingerprint

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/torfstack/assetprint/internal/archive"
	"github.com/torfstack/assetprint/internal/logging"
)

const DefaultPrefix = "assets/"

type Options struct {
	// Prefix is prepended to every asset path to form the archive entry name.
	Prefix string
	// Sorted hashes the asset paths in lexical order instead of list order,
	// making the fingerprint independent of the listing order.
	Sorted bool
}

// Result is the outcome of a fingerprint build. An empty Value with a nil Err
// means no listed asset was found; a non-nil Err means the archive could not
// be read and the asset state is unknown.
type Result struct {
	Value   string
	Found   int
	Missing []string
	Err     error
}

// Known reports whether Value can be compared against other fingerprints.
func (r Result) Known() bool {
	return r.Err == nil && r.Value != ""
}

// Build opens the archive at archivePath and concatenates the hexadecimal
// CRC-32 of every listed asset. It never panics and never returns a partial
// fingerprint together with an error.
func Build(archivePath string, assets []string, opts Options) (res Result) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if !strings.HasSuffix(opts.Prefix, "/") {
		opts.Prefix += "/"
	}
	if opts.Sorted {
		assets = slices.Sorted(slices.Values(assets))
	}

	a, err := archive.Open(archivePath)
	if err != nil {
		return Result{Err: err}
	}
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("fingerprint of '%s' aborted: %v", archivePath, r)}
		}
		if err := a.Close(); err != nil {
			logging.Debugf("Could not close archive '%s': %s", archivePath, err)
		}
	}()

	var sb strings.Builder
	for _, p := range assets {
		e, ok := a.Lookup(opts.Prefix + p)
		if !ok {
			logging.Debugf("Asset '%s' has no entry in archive '%s'", p, archivePath)
			res.Missing = append(res.Missing, p)
			continue
		}
		sb.WriteString(Hex(e.CRC32))
		res.Found++
	}
	res.Value = sb.String()
	return res
}

// Hex renders a checksum as lowercase hexadecimal without zero padding.
func Hex(crc uint32) string {
	return strconv.FormatUint(uint64(crc), 16)
}
