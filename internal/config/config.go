package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/torfstack/assetprint/internal/logging"
	"github.com/torfstack/assetprint/internal/util"
)

var (
	configFilePath       = filepath.Join(util.ConfigDir, "config.toml")
	defaultDatabasePath  = filepath.Join(util.ConfigDir, "history.sqlite")
	defaultAssetRoot     = "data"
	defaultEntryPrefix   = "assets/"
	defaultWatchDebounce = 500 * time.Millisecond
)

type Config struct {
	ArchivePath   string        `toml:"archive_path"`
	AssetRoot     string        `toml:"asset_root"`
	AssetDir      string        `toml:"asset_dir"`
	EntryPrefix   string        `toml:"entry_prefix"`
	SortPaths     bool          `toml:"sort_paths"`
	DatabasePath  string        `toml:"database_path"`
	WatchDebounce time.Duration `toml:"watch_debounce"`
}

// Get loads the config file, persisting the defaults when there is none yet.
func Get() (Config, error) {
	c, found, err := load()
	if err != nil || found {
		return c, err
	}
	c = initialConfig()
	return c, c.persist()
}

// Init prompts for every setting, offering the current values as defaults,
// and persists the result.
func Init() (Config, error) {
	c, found, err := load()
	if err != nil {
		return c, err
	}
	if !found {
		c = initialConfig()
	}
	if err = guidedInitialization(&c); err != nil {
		return c, fmt.Errorf("could not initialize config interactively: %w", err)
	}
	return c, c.persist()
}

func load() (Config, bool, error) {
	c := Config{}
	f, err := os.Open(configFilePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c, false, nil
	case err != nil:
		return c, false, fmt.Errorf("could not open config file for reading '%s': %s", configFilePath, err)
	}
	defer f.Close()

	_, err = toml.NewDecoder(f).Decode(&c)
	if err != nil {
		return c, false, fmt.Errorf("could not decode config file '%s': %s", configFilePath, err)
	}
	c.applyDefaults()
	return c, true, nil
}

func (c *Config) persist() error {
	f, err := util.OpenWithParents(configFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open config file for writing '%s': %w", configFilePath, err)
	}
	defer f.Close()

	logging.Debugf("Persisting config file to '%s'", configFilePath)
	err = toml.NewEncoder(f).Encode(c)
	if err != nil {
		return fmt.Errorf("could not persist config to file '%s': %w", configFilePath, err)
	}

	return nil
}

// applyDefaults fills values a hand-edited config file may leave empty.
func (c *Config) applyDefaults() {
	if c.AssetRoot == "" {
		c.AssetRoot = defaultAssetRoot
	}
	if c.EntryPrefix == "" {
		c.EntryPrefix = defaultEntryPrefix
	}
	if c.DatabasePath == "" {
		c.DatabasePath = defaultDatabasePath
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = defaultWatchDebounce
	}
}

func initialConfig() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

func Path() string {
	return configFilePath
}
