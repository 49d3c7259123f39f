package asset

import (
	"io/fs"
	"path"
	"strings"

	"github.com/torfstack/assetprint/internal/archive"
	"github.com/torfstack/assetprint/internal/logging"
)

// DirLister lists assets from a file system, typically os.DirFS over an
// unpacked assets directory.
type DirLister struct {
	FS fs.FS
}

func NewDirLister(fsys fs.FS) *DirLister {
	return &DirLister{FS: fsys}
}

// List treats a symlink as a leaf and leaves symlinked directories out of a
// directory's children, so link cycles cannot be followed.
func (d *DirLister) List(p string) ([]string, error) {
	p = fsPath(p)
	info, err := fs.Lstat(d.FS, p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	entries, err := fs.ReadDir(d.FS, p)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink != 0 {
			target, err := fs.Stat(d.FS, path.Join(p, e.Name()))
			if err == nil && target.IsDir() {
				logging.Debugf("Skipping symlinked directory '%s'", path.Join(p, e.Name()))
				continue
			}
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// ArchiveLister lists the assets packaged inside an archive below Prefix,
// the way a device's asset manager sees the "assets/" tree of an APK.
type ArchiveLister struct {
	Archive *archive.Archive
	Prefix  string
}

func NewArchiveLister(a *archive.Archive, prefix string) *ArchiveLister {
	return &ArchiveLister{Archive: a, Prefix: prefix}
}

func (l *ArchiveLister) List(p string) ([]string, error) {
	return l.Archive.Children(path.Join(l.Prefix, fsPath(p)))
}

// Close releases the archive once listing is done.
func (l *ArchiveLister) Close() error {
	return l.Archive.Close()
}

func fsPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}
	return p
}
