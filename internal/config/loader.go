package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rommsync/rommsync/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. ROMMSYNC_SERVER_PASSWORD
const EnvPrefix = "ROMMSYNC"

// DefaultConfigPaths returns the directories searched for config.yaml
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "rommsync"))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".rommsync"))
	}

	return paths
}

// DefaultDataDir returns the per-user data directory
func DefaultDataDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "rommsync")
	}
	return ".rommsync"
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.url", "")
	v.SetDefault("server.username", "")
	v.SetDefault("server.password", "")
	v.SetDefault("server.auth", "basic")
	v.SetDefault("server.timeout", 5*time.Minute)
	v.SetDefault("server.retries", 3)
	v.SetDefault("server.retry_delay", 500*time.Millisecond)
	v.SetDefault("server.page_size", 1000)

	v.SetDefault("sync.save_files_dir", "")
	v.SetDefault("sync.save_states_dir", "")
	v.SetDefault("sync.direction", string(domain.Bidirectional))
	v.SetDefault("sync.save_files", true)
	v.SetDefault("sync.save_states", true)
	v.SetDefault("sync.platform", "")
	v.SetDefault("sync.emulator", "")
	v.SetDefault("sync.game", "")
	v.SetDefault("sync.save_file_history_limit", 0)
	v.SetDefault("sync.save_state_history_limit", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.compress", false)

	v.SetDefault("data_dir", DefaultDataDir())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration.
// An explicit path must exist; without one the default locations are
// searched and, when no file is found, defaults plus environment are used.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// search miss: environment only
		case path != "" && errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	return decode(v)
}

// LoadFromString parses configuration from YAML, applying defaults and environment
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
