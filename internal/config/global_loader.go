package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadGlobalConfig loads global configuration from ~/.dirindex/config.yml.
// Returns default values if file doesn't exist (not an error).
// Environment variables override file values (DIRINDEX_* prefix).
func LoadGlobalConfig() (*GlobalConfig, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(filepath.Join(home, DirName))

	v.SetEnvPrefix("DIRINDEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindGlobalEnvVars(v)
	setGlobalDefaults(v)

	// Read config (not an error if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateLibraries(cfg.Libraries); err != nil {
		return nil, fmt.Errorf("invalid global configuration: %w", err)
	}

	return cfg, nil
}

// bindGlobalEnvVars binds all environment variables for global config.
func bindGlobalEnvVars(v *viper.Viper) {
	v.BindEnv("verbose")
}

// setGlobalDefaults configures viper with default values for global config.
func setGlobalDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
}
