package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// DirName is the per-workspace configuration directory.
const DirName = ".dirindex"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)

	// ConfigFile returns the file the last Load read, or "" if none.
	ConfigFile() string
}

type loader struct {
	rootDir    string
	fs         afero.Fs
	configFile string
}

// LoaderOption configures a Loader.
type LoaderOption func(*loader)

// WithFs reads the config file from fs instead of the OS file system.
func WithFs(fs afero.Fs) LoaderOption {
	return func(l *loader) { l.fs = fs }
}

// NewLoader creates a new configuration loader for the given workspace root.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{
		rootDir: rootDir,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (DIRINDEX_*)
// 2. Config file (.dirindex/workspace.yml or .dirindex/workspace.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()
	if l.fs != nil {
		v.SetFs(l.fs)
	}

	v.SetConfigName("workspace")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	// Environment overrides only cover scalar settings; modules and
	// libraries come from the file.
	v.SetEnvPrefix("DIRINDEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("watch.enabled")
	v.BindEnv("watch.debounce_ms")
	v.BindEnv("watch.checkout")
	v.BindEnv("cache.lookup_cache_size")

	setDefaults(v)

	l.configFile = ""
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		l.configFile = v.ConfigFileUsed()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (l *loader) ConfigFile() string {
	return l.configFile
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("ignore", defaults.Ignore)

	v.SetDefault("watch.enabled", defaults.Watch.Enabled)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
	v.SetDefault("watch.checkout", defaults.Watch.Checkout)

	v.SetDefault("cache.lookup_cache_size", defaults.Cache.LookupCacheSize)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
