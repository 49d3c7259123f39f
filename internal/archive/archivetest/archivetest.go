// Package archivetest writes zip fixtures for tests.
package archivetest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// File is one fixture entry. A non-zero CRC is stored verbatim in the
// directory record instead of the checksum of Body, which lets tests pin
// exact fingerprint values. Names ending in "/" become directory records.
type File struct {
	Name string
	Body string
	CRC  uint32
}

// Write creates a zip archive in a fresh temporary directory and returns its path.
func Write(t testing.TB, files ...File) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "app.apk")
	WriteTo(t, p, files...)
	return p
}

// WriteTo creates or truncates the archive at p.
func WriteTo(t testing.TB, p string, files ...File) {
	t.Helper()
	out, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	for _, f := range files {
		switch {
		case strings.HasSuffix(f.Name, "/"):
			_, err = zw.Create(f.Name)
			require.NoError(t, err)
		case f.CRC != 0:
			w, err := zw.CreateRaw(&zip.FileHeader{
				Name:               f.Name,
				Method:             zip.Store,
				CRC32:              f.CRC,
				CompressedSize64:   uint64(len(f.Body)),
				UncompressedSize64: uint64(len(f.Body)),
			})
			require.NoError(t, err)
			_, err = w.Write([]byte(f.Body))
			require.NoError(t, err)
		default:
			w, err := zw.Create(f.Name)
			require.NoError(t, err)
			_, err = w.Write([]byte(f.Body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
}

// WriteText writes a plain file, useful for archives that must fail to open.
func WriteText(t testing.TB, p, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p, []byte(text), 0644))
}
