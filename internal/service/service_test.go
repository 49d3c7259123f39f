package service

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
	"github.com/torfstack/assetprint/internal/archive"
	"github.com/torfstack/assetprint/internal/archive/archivetest"
	"github.com/torfstack/assetprint/internal/config"
	"github.com/torfstack/assetprint/internal/watch"
)

func testConfig(t *testing.T, archivePath string) config.Config {
	return config.Config{
		ArchivePath:   archivePath,
		AssetRoot:     "data",
		EntryPrefix:   "assets/",
		DatabasePath:  filepath.Join(t.TempDir(), "history.sqlite"),
		WatchDebounce: 50 * time.Millisecond,
	}
}

func testArchive(t *testing.T) string {
	return archivetest.Write(t,
		archivetest.File{Name: "assets/data/a.txt", Body: "a", CRC: 0xDEADBEEF},
		archivetest.File{Name: "assets/data/sub/b.txt", Body: "b", CRC: 0x1},
		archivetest.File{Name: "assets/raw/plain.txt", Body: "plain"},
		archivetest.File{Name: "classes.dex", Body: "dex"},
	)
}

func TestInventory(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, cfg *config.Config)
		assets []string
		value  string
	}{
		{
			name:   "listed from archive",
			assets: []string{"data/a.txt", "data/sub/b.txt"},
			value:  "deadbeef1",
		},
		{
			name: "listed from asset directory",
			setup: func(t *testing.T, cfg *config.Config) {
				dir := t.TempDir()
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "data", "sub"), 0755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "a.txt"), []byte("a"), 0644))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "sub", "b.txt"), []byte("b"), 0644))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "sub", "new.txt"), []byte("n"), 0644))
				cfg.AssetDir = dir
			},
			assets: []string{"data/a.txt", "data/sub/b.txt", "data/sub/new.txt"},
			value:  "deadbeef1",
		},
		{
			name: "archive cannot be opened",
			setup: func(t *testing.T, cfg *config.Config) {
				cfg.ArchivePath = filepath.Join(t.TempDir(), "missing.apk")
			},
			value: "",
		},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				cfg := testConfig(t, testArchive(t))
				if tt.setup != nil {
					tt.setup(t, &cfg)
				}

				inv, err := NewService(cfg).Inventory()
				require.NoError(t, err)
				require.Equal(t, tt.assets, nilIfEmpty(inv.Assets()))
				require.Equal(t, tt.value, inv.Fingerprint())
			},
		)
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestNoArchive(t *testing.T) {
	srv := NewService(testConfig(t, ""))

	_, err := srv.Inventory()
	require.ErrorIs(t, err, ErrNoArchive)
	_, err = srv.Entries()
	require.ErrorIs(t, err, ErrNoArchive)
	_, err = srv.ReadAsset("data/a.txt")
	require.ErrorIs(t, err, ErrNoArchive)
	_, err = srv.Check(context.Background())
	require.ErrorIs(t, err, ErrNoArchive)
	_, err = srv.History(context.Background(), 10)
	require.ErrorIs(t, err, ErrNoArchive)
	require.ErrorIs(t, srv.Watch(context.Background(), nil), ErrNoArchive)
}

func TestEntriesAndReadAsset(t *testing.T) {
	srv := NewService(testConfig(t, testArchive(t)))

	entries, err := srv.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 4)

	b, err := srv.ReadAsset("raw/plain.txt")
	require.NoError(t, err)
	require.Equal(t, "plain", string(b))

	// pinned fixture checksums do not match their bodies
	_, err = srv.ReadAsset("data/sub/b.txt")
	require.ErrorIs(t, err, zip.ErrChecksum)

	_, err = srv.ReadAsset("data/none.txt")
	require.ErrorIs(t, err, archive.ErrNotFound)
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	p := testArchive(t)
	srv := NewService(testConfig(t, p))

	res, err := srv.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusNew, res.Status)
	require.Nil(t, res.Previous)
	require.NotNil(t, res.Recorded)
	require.Equal(t, "deadbeef1", res.Recorded.Fingerprint)
	require.Equal(t, int64(2), res.Recorded.AssetCount)

	res, err = srv.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusUnchanged, res.Status)
	require.Nil(t, res.Recorded)
	require.Equal(t, "deadbeef1", res.Previous.Fingerprint)

	archivetest.WriteTo(t, p,
		archivetest.File{Name: "assets/data/a.txt", Body: "a", CRC: 0xCAFE},
		archivetest.File{Name: "assets/data/sub/b.txt", Body: "b", CRC: 0x1},
	)
	res, err = srv.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusChanged, res.Status)
	require.Equal(t, "deadbeef1", res.Previous.Fingerprint)
	require.Equal(t, "cafe1", res.Recorded.Fingerprint)

	require.NoError(t, os.Remove(p))
	res, err = srv.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusUnknown, res.Status)
	require.Nil(t, res.Recorded)
	require.Equal(t, "cafe1", res.Previous.Fingerprint)

	history, err := srv.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "cafe1", history[0].Fingerprint)
	require.Equal(t, "deadbeef1", history[1].Fingerprint)
	require.Equal(t, srv.ArchiveKey(), history[0].Archive)
}

func TestArchiveKeyIsAbsolute(t *testing.T) {
	srv := NewService(config.Config{ArchivePath: "app.apk"})
	require.True(t, filepath.IsAbs(srv.ArchiveKey()))
	require.Equal(t, "app.apk", filepath.Base(srv.ArchiveKey()))
}

func TestWatch(t *testing.T) {
	p := testArchive(t)
	srv := NewService(testConfig(t, p))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := make(chan CheckResult, 16)
	done := make(chan error, 1)
	go func() {
		done <- srv.Watch(ctx, func(res CheckResult) { results <- res })
	}()

	timeout := time.After(10 * time.Second)
	waitFor := func(status Status) CheckResult {
		for {
			select {
			case res := <-results:
				if res.Status == status {
					return res
				}
			case <-timeout:
				t.Fatalf("no %s check result", status)
			}
		}
	}

	waitFor(StatusNew)
	archivetest.WriteTo(t, p,
		archivetest.File{Name: "assets/data/a.txt", Body: "a", CRC: 0xCAFE},
		archivetest.File{Name: "assets/data/sub/b.txt", Body: "b", CRC: 0x1},
	)
	res := waitFor(StatusChanged)
	require.Equal(t, "cafe1", res.Inventory.Fingerprint())

	cancel()
	require.NoError(t, <-done)
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	srv := NewService(config.Config{ArchivePath: filepath.Join(dir, "app.apk"), AssetDir: filepath.Join(dir, "src")})
	archivePath := srv.ArchiveKey()

	tests := []struct {
		name  string
		event string
		want  bool
	}{
		{name: "archive", event: archivePath, want: true},
		{name: "sibling of archive", event: filepath.Join(dir, "app.apk.tmp"), want: false},
		{name: "asset file", event: filepath.Join(dir, "src", "data", "a.txt"), want: true},
		{name: "outside asset dir", event: filepath.Join(dir, "srcx", "a.txt"), want: false},
	}
	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				e := watchEvent(tt.event)
				require.Equal(t, tt.want, srv.relevant(archivePath, e))
			},
		)
	}
}

func watchEvent(p string) watch.Event {
	return watch.Event{Path: p, Op: fsnotify.Write}
}
