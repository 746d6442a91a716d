package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the color management preferences
type Config struct {
	// Enabled turns color correction of displayed and printed images on
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// Directories searched recursively for *.icc and *.icm profiles. A
	// leading ~ is the home directory of the user.
	SearchDirs []string `toml:"search_dirs" yaml:"search_dirs"`
	// Product names of the display and output profiles
	DisplayProfile string `toml:"display_profile" yaml:"display_profile"`
	OutputProfile  string `toml:"output_profile" yaml:"output_profile"`
	// File holding the ICC profile of the screen, if any
	ScreenProfile string `toml:"screen_profile" yaml:"screen_profile"`
	// Use the screen profile for the display even if DisplayProfile names
	// another one
	UseScreenProfile bool `toml:"use_screen_profile" yaml:"use_screen_profile"`
	// Re-scan SearchDirs when profiles are added or removed
	Watch bool `toml:"watch" yaml:"watch"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		SearchDirs: []string{"/usr/share/color/icc", "~/.color/icc", "/usr/local/share/color/icc"},
	}
}

type config_format int

const (
	config_toml config_format = iota
	config_yaml
)

func format_of(path string) (config_format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return config_toml, nil
	case ".yaml", ".yml":
		return config_yaml, nil
	}
	return 0, fmt.Errorf("unknown config file format: %s", path)
}

// LoadConfig reads a TOML or YAML config file, chosen by the file
// extension. Settings missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := format_of(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch f {
	case config_toml:
		err = toml.Unmarshal(data, &cfg)
	case config_yaml:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in the format given by its extension
func SaveConfig(path string, cfg Config) error {
	f, err := format_of(path)
	if err != nil {
		return err
	}
	var data []byte
	switch f {
	case config_toml:
		data, err = toml.Marshal(cfg)
	case config_yaml:
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// search_dirs returns SearchDirs with ~ expanded and duplicates removed
func (c Config) search_dirs() ([]string, error) {
	seen := make(map[string]bool, len(c.SearchDirs))
	ans := make([]string, 0, len(c.SearchDirs))
	for _, d := range c.SearchDirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		x, err := homedir.Expand(d)
		if err != nil {
			return nil, fmt.Errorf("cannot expand profile directory %s: %w", d, err)
		}
		x = filepath.Clean(x)
		if !seen[x] {
			seen[x] = true
			ans = append(ans, x)
		}
	}
	return ans, nil
}
