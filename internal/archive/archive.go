// Package archive gives read-only access to a zip-format package archive.
//
// Opening an archive reads only its central directory. Entry metadata such as
// the stored CRC-32 is available without decompressing anything.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/torfstack/assetprint/internal/logging"
)

var (
	ErrOpen     = errors.New("could not open archive")
	ErrNotFound = errors.New("entry not found in archive")
)

// Entry is the directory-record metadata of one archived file.
type Entry struct {
	Name             string    `json:"name" yaml:"name"`
	CRC32            uint32    `json:"crc32" yaml:"crc32"`
	CompressedSize   uint64    `json:"compressed_size" yaml:"compressed_size"`
	UncompressedSize uint64    `json:"uncompressed_size" yaml:"uncompressed_size"`
	Modified         time.Time `json:"modified" yaml:"modified"`
}

type Archive struct {
	path   string
	reader *zip.ReadCloser
	files  map[string]*zip.File
	// dirs maps a directory to its immediate children, explicit or implied.
	dirs map[string][]string
}

func Open(p string) (*Archive, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("%w '%s': %w", ErrOpen, p, err)
	}
	a := &Archive{
		path:   p,
		reader: r,
		files:  make(map[string]*zip.File, len(r.File)),
		dirs:   map[string][]string{"": nil},
	}
	a.buildNavigationMap()
	logging.Debugf("Opened archive '%s' with %d entries", p, len(a.files))
	return a, nil
}

func (a *Archive) buildNavigationMap() {
	children := map[string]map[string]struct{}{"": {}}
	addChild := func(dir, name string) {
		if children[dir] == nil {
			children[dir] = make(map[string]struct{})
		}
		children[dir][name] = struct{}{}
	}

	for _, f := range a.reader.File {
		name := Normalize(f.Name)
		if name == "" {
			continue
		}
		isDir := strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir()
		if !isDir {
			if _, dup := a.files[name]; dup {
				logging.Debugf("Duplicate entry '%s' in archive '%s', keeping first", name, a.path)
				continue
			}
			a.files[name] = f
		} else if children[name] == nil {
			children[name] = make(map[string]struct{})
		}

		// register every ancestor so implicit directories are navigable
		for p := name; p != ""; {
			dir, base := path.Split(p)
			dir = strings.TrimSuffix(dir, "/")
			addChild(dir, base)
			p = dir
		}
	}

	for dir, set := range children {
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		slices.Sort(names)
		a.dirs[dir] = names
	}
}

// Normalize converts an entry name to the form used for lookups:
// forward slashes, no leading "./" or "/", no trailing slash.
func Normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	name = strings.Trim(name, "/")
	if name == "" || name == "." {
		return ""
	}
	return path.Clean(name)
}

func (a *Archive) Path() string {
	return a.path
}

// Close releases the underlying file. Calling it more than once is harmless.
func (a *Archive) Close() error {
	if a.reader == nil {
		return nil
	}
	err := a.reader.Close()
	a.reader = nil
	return err
}

// Closed reports whether Close has been called.
func (a *Archive) Closed() bool {
	return a.reader == nil
}

func (a *Archive) Lookup(name string) (Entry, bool) {
	f, ok := a.files[Normalize(name)]
	if !ok {
		return Entry{}, false
	}
	return entryOf(f), true
}

func (a *Archive) Exists(name string) bool {
	_, ok := a.files[Normalize(name)]
	return ok
}

func (a *Archive) Size(name string) (uint64, error) {
	f, ok := a.files[Normalize(name)]
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	return f.UncompressedSize64, nil
}

// Paths returns the names of all file entries in lexical order.
func (a *Archive) Paths() []string {
	paths := make([]string, 0, len(a.files))
	for name := range a.files {
		paths = append(paths, name)
	}
	slices.Sort(paths)
	return paths
}

// Entries returns the metadata of all file entries in lexical order.
func (a *Archive) Entries() []Entry {
	paths := a.Paths()
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		entries = append(entries, entryOf(a.files[p]))
	}
	return entries
}

// Children lists the immediate children of dir. A file has no children; an
// unknown path fails with fs.ErrNotExist.
func (a *Archive) Children(dir string) ([]string, error) {
	dir = Normalize(dir)
	if names, ok := a.dirs[dir]; ok {
		return slices.Clone(names), nil
	}
	if _, ok := a.files[dir]; ok {
		return nil, nil
	}
	return nil, &fs.PathError{Op: "list", Path: dir, Err: fs.ErrNotExist}
}

func (a *Archive) ReadFile(name string) ([]byte, error) {
	f, ok := a.files[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open entry '%s': %w", name, err)
	}
	defer func(rc io.ReadCloser) {
		if err := rc.Close(); err != nil {
			logging.Debugf("Could not close entry '%s': %s", name, err)
		}
	}(rc)

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("could not read entry '%s': %w", name, err)
	}
	return b, nil
}

func entryOf(f *zip.File) Entry {
	return Entry{
		Name:             Normalize(f.Name),
		CRC32:            f.CRC32,
		CompressedSize:   f.CompressedSize64,
		UncompressedSize: f.UncompressedSize64,
		Modified:         f.Modified,
	}
}
