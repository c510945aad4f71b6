package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"coverhue/internal/palette"

	"github.com/pelletier/go-toml/v2"
)

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type CacheConfig struct {
	// MaxEntries bounds the in-memory palette cache, MaxRows the sqlite table.
	MaxEntries int `toml:"max_entries"`
	MaxRows    int `toml:"max_rows"`
}

type WatcherConfig struct {
	Enabled    bool `toml:"enabled"`
	DebounceMS int  `toml:"debounce_ms"`
}

type Config struct {
	LibraryRoots []string               `toml:"library_roots"`
	Palette      palette.ExtractOptions `toml:"palette"`
	Log          LogConfig              `toml:"log"`
	Cache        CacheConfig            `toml:"cache"`
	Watcher      WatcherConfig          `toml:"watcher"`
}

func DefaultConfig() *Config {
	return &Config{
		LibraryRoots: []string{},
		Palette:      palette.DefaultExtractOptions(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			MaxEntries: 2048,
			MaxRows:    20000,
		},
		Watcher: WatcherConfig{
			Enabled:    true,
			DebounceMS: 750,
		},
	}
}

func ReadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := DefaultConfig()
	if err := toml.NewDecoder(f).Decode(c); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	c.normalize()
	return c, nil
}

// LoadOrCreate reads the config at path, writing the defaults there first when the
// file does not exist yet.
func LoadOrCreate(path string) (*Config, error) {
	c, err := ReadConfigFile(path)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	c = DefaultConfig()
	if err := c.WriteConfigFile(path); err != nil {
		return nil, err
	}
	return c, nil
}

var writeLock sync.Mutex

func (c *Config) WriteConfigFile(path string) error {
	writeLock.Lock()
	defer writeLock.Unlock()

	b, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	roots := make([]string, 0, len(c.LibraryRoots))
	seen := make(map[string]struct{}, len(c.LibraryRoots))
	for _, root := range c.LibraryRoots {
		trimmed := strings.TrimSpace(root)
		if trimmed == "" {
			continue
		}
		cleaned := filepath.Clean(trimmed)
		if _, ok := seen[cleaned]; ok {
			continue
		}
		seen[cleaned] = struct{}{}
		roots = append(roots, cleaned)
	}
	c.LibraryRoots = roots

	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = DefaultConfig().Cache.MaxEntries
	}
	if c.Cache.MaxRows <= 0 {
		c.Cache.MaxRows = DefaultConfig().Cache.MaxRows
	}
	if c.Watcher.DebounceMS <= 0 {
		c.Watcher.DebounceMS = DefaultConfig().Watcher.DebounceMS
	}
}
