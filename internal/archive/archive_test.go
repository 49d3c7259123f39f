package archive

import (
	"errors"
	"hash/crc32"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/torfstack/assetprint/internal/archive/archivetest"
)

func fixture(t *testing.T) string {
	return archivetest.Write(t,
		archivetest.File{Name: "AndroidManifest.xml", Body: "<manifest/>"},
		archivetest.File{Name: "assets/data/a.txt", Body: "a", CRC: 0xDEADBEEF},
		archivetest.File{Name: "assets/data/sub/b.txt", Body: "bee"},
		archivetest.File{Name: "assets/data/sub/c.txt", Body: "sea"},
		archivetest.File{Name: "assets/empty/"},
	)
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name string
		path func(*testing.T) string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.apk") },
		},
		{
			name: "not a zip",
			path: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "garbage.apk")
				archivetest.WriteText(t, p, "definitely not a zip")
				return p
			},
		},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				a, err := Open(tt.path(t))
				require.Nil(t, a)
				require.ErrorIs(t, err, ErrOpen)
			},
		)
	}
}

func TestLookup(t *testing.T) {
	a, err := Open(fixture(t))
	require.NoError(t, err)
	defer a.Close()

	e, ok := a.Lookup("assets/data/a.txt")
	require.True(t, ok)
	require.Equal(t, uint32(0xDEADBEEF), e.CRC32)
	require.Equal(t, uint64(1), e.UncompressedSize)

	e, ok = a.Lookup("assets/data/sub/b.txt")
	require.True(t, ok)
	require.Equal(t, crc32.ChecksumIEEE([]byte("bee")), e.CRC32)

	_, ok = a.Lookup("assets/data/missing.txt")
	require.False(t, ok)

	_, ok = a.Lookup("assets/empty")
	require.False(t, ok, "directory records are not files")
}

func TestLookupNormalizesNames(t *testing.T) {
	a, err := Open(fixture(t))
	require.NoError(t, err)
	defer a.Close()

	for _, name := range []string{"./assets/data/a.txt", "/assets/data/a.txt", `assets\data\a.txt`} {
		require.True(t, a.Exists(name), name)
	}
}

func TestChildren(t *testing.T) {
	a, err := Open(fixture(t))
	require.NoError(t, err)
	defer a.Close()

	tests := []struct {
		dir     string
		want    []string
		wantErr error
	}{
		{dir: "", want: []string{"AndroidManifest.xml", "assets"}},
		{dir: "assets", want: []string{"data", "empty"}},
		{dir: "assets/data", want: []string{"a.txt", "sub"}},
		{dir: "assets/data/sub/", want: []string{"b.txt", "c.txt"}},
		{dir: "assets/data/a.txt", want: nil},
		{dir: "assets/empty", want: nil},
		{dir: "assets/nothing", wantErr: fs.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(
			tt.dir, func(t *testing.T) {
				got, err := a.Children(tt.dir)
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
					return
				}
				require.NoError(t, err)
				require.Equal(t, len(tt.want), len(got))
				if len(tt.want) > 0 {
					require.Equal(t, tt.want, got)
				}
			},
		)
	}
}

func TestPathsAndEntries(t *testing.T) {
	a, err := Open(fixture(t))
	require.NoError(t, err)
	defer a.Close()

	want := []string{
		"AndroidManifest.xml",
		"assets/data/a.txt",
		"assets/data/sub/b.txt",
		"assets/data/sub/c.txt",
	}
	require.Equal(t, want, a.Paths())

	entries := a.Entries()
	require.Len(t, entries, len(want))
	for i, e := range entries {
		require.Equal(t, want[i], e.Name)
	}
}

func TestReadFileAndSize(t *testing.T) {
	a, err := Open(fixture(t))
	require.NoError(t, err)
	defer a.Close()

	b, err := a.ReadFile("assets/data/sub/c.txt")
	require.NoError(t, err)
	require.Equal(t, "sea", string(b))

	size, err := a.Size("assets/data/sub/c.txt")
	require.NoError(t, err)
	require.Equal(t, uint64(3), size)

	_, err = a.ReadFile("assets/data/none.txt")
	require.True(t, errors.Is(err, ErrNotFound))

	_, err = a.Size("assets/data/none.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCloseTwice(t *testing.T) {
	a, err := Open(fixture(t))
	require.NoError(t, err)
	require.False(t, a.Closed())
	require.NoError(t, a.Close())
	require.True(t, a.Closed())
	require.NoError(t, a.Close())
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"assets/a.txt":     "assets/a.txt",
		"./assets/a.txt":   "assets/a.txt",
		"/assets/a.txt":    "assets/a.txt",
		`assets\sub\a.txt`: "assets/sub/a.txt",
		"assets/dir/":      "assets/dir",
		"assets//a.txt":    "assets/a.txt",
		"":                 "",
		"/":                "",
		".":                "",
	}
	for in, want := range tests {
		require.Equal(t, want, Normalize(in), in)
	}
}
