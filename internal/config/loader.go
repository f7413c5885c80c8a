package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitepack"

// XDGConfigFile is the configuration file name inside the XDG config directory.
const XDGConfigFile = "config.yaml"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidSiteKey is returned when a sites entry has no usable host.
	ErrInvalidSiteKey = errors.New("site key must be a host name")

	// ErrDuplicateSite is returned when two sites entries name the same host.
	ErrDuplicateSite = errors.New("site configured more than once")

	// ErrInvalidSiteBound is returned for a negative depth or page limit.
	ErrInvalidSiteBound = errors.New("site depth and maxPages must not be negative")
)

// LoadConfigFile reads the YAML site configuration at path.
//
// Unknown keys are rejected so that a misspelled option does not silently
// fall back to its default. Site keys are reduced to their lowercased
// host, which lets users paste "https://Example.com/" as a key.
func LoadConfigFile(path string) (*File, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the user on purpose
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	defer f.Close()

	var raw File
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := checkBounds("defaults", raw.Defaults); err != nil {
		return nil, err
	}

	cf := &File{
		Defaults: raw.Defaults,
		Sites:    make(map[string]SiteConfig, len(raw.Sites)),
	}
	for key, site := range raw.Sites {
		host := siteKey(key)
		if host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSiteKey, key)
		}
		if _, dup := cf.Sites[host]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSite, host)
		}
		if err := checkBounds(host, site); err != nil {
			return nil, err
		}
		cf.Sites[host] = site
	}
	return cf, nil
}

func checkBounds(name string, sc SiteConfig) error {
	if sc.Depth < 0 || sc.MaxPages < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSiteBound, name)
	}
	return nil
}

// siteKey reduces a sites key to the host ForSite looks up.
func siteKey(key string) string {
	key = strings.TrimSpace(key)
	if !strings.Contains(key, "://") {
		key = "http://" + key
	}
	return hostOf(key)
}

// FindConfigFile returns the configuration file to load, or "" when none
// exists. An explicit configPath is used as-is. Otherwise the lookup order
// is ./.sitepack, $XDG_CONFIG_HOME/sitepack/config.yaml (and the other
// XDG config dirs), then ~/.sitepack.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		if p := filepath.Join(cwd, DefaultConfigFile); fileExists(p) {
			return p
		}
	}

	if p, err := xdg.SearchConfigFile(filepath.Join(AppName, XDGConfigFile)); err == nil {
		return p
	}

	if home, err := os.UserHomeDir(); err == nil {
		if p := filepath.Join(home, DefaultConfigFile); fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
