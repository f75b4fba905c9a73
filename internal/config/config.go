package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rommsync/rommsync/internal/domain"
)

// Config is the complete rommsync configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Log    LogConfig    `mapstructure:"log"`

	// DataDir holds the run history database and the lock file
	DataDir string `mapstructure:"data_dir"`
}

// ServerConfig describes the RomM server connection
type ServerConfig struct {
	URL        string        `mapstructure:"url"`
	Username   string        `mapstructure:"username"`
	Password   string        `mapstructure:"password"`
	Auth       string        `mapstructure:"auth"` // "basic" or "oauth2"
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	PageSize   int           `mapstructure:"page_size"`
}

// SyncConfig holds the device directories and the default request
type SyncConfig struct {
	SaveFilesDir  string `mapstructure:"save_files_dir"`
	SaveStatesDir string `mapstructure:"save_states_dir"`

	Direction  string `mapstructure:"direction"`
	SaveFiles  bool   `mapstructure:"save_files"`
	SaveStates bool   `mapstructure:"save_states"`

	Platform string `mapstructure:"platform"`
	Emulator string `mapstructure:"emulator"`
	Game     string `mapstructure:"game"`

	SaveFileHistoryLimit  int `mapstructure:"save_file_history_limit"`
	SaveStateHistoryLimit int `mapstructure:"save_state_history_limit"`
}

// LogConfig controls logging; File enables a rotating log file
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate checks that the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("%w: server.url is required", domain.ErrConfigInvalid)
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: server.url must be an http(s) URL: %q", domain.ErrConfigInvalid, c.Server.URL)
	}

	switch strings.ToLower(c.Server.Auth) {
	case "", "basic", "oauth2":
	default:
		return fmt.Errorf("%w: server.auth must be 'basic' or 'oauth2', got %q", domain.ErrConfigInvalid, c.Server.Auth)
	}
	if c.Server.Timeout < 0 || c.Server.Retries < 0 || c.Server.RetryDelay < 0 || c.Server.PageSize < 0 {
		return fmt.Errorf("%w: server timeout, retries, retry_delay and page_size cannot be negative", domain.ErrConfigInvalid)
	}

	if _, err := domain.ParseSyncDirection(c.Sync.Direction); err != nil {
		return fmt.Errorf("%w: sync.direction: %v", domain.ErrConfigInvalid, err)
	}
	if !c.Sync.SaveFiles && !c.Sync.SaveStates {
		return fmt.Errorf("%w: at least one of sync.save_files and sync.save_states must be enabled", domain.ErrConfigInvalid)
	}
	if c.Sync.SaveFilesDir == "" && c.Sync.SaveStatesDir == "" {
		return fmt.Errorf("%w: no save directories configured", domain.ErrConfigInvalid)
	}
	if c.Sync.SaveFileHistoryLimit < 0 || c.Sync.SaveStateHistoryLimit < 0 {
		return fmt.Errorf("%w: history limits cannot be negative", domain.ErrConfigInvalid)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log.level %q", domain.ErrConfigInvalid, c.Log.Level)
	}

	return nil
}

// Settings returns the device-side settings with paths expanded
func (c *Config) Settings() domain.Settings {
	return domain.Settings{
		SaveFilesDir:          expandNonEmpty(c.Sync.SaveFilesDir),
		SaveStatesDir:         expandNonEmpty(c.Sync.SaveStatesDir),
		SaveFileHistoryLimit:  c.Sync.SaveFileHistoryLimit,
		SaveStateHistoryLimit: c.Sync.SaveStateHistoryLimit,
	}
}

// Request returns the sync request configured as default
func (c *Config) Request() (domain.SyncRequest, error) {
	direction, err := domain.ParseSyncDirection(c.Sync.Direction)
	if err != nil {
		return domain.SyncRequest{}, err
	}

	return domain.SyncRequest{
		Direction:             direction,
		SaveFiles:             c.Sync.SaveFiles,
		SaveStates:            c.Sync.SaveStates,
		PlatformFilter:        c.Sync.Platform,
		EmulatorFilter:        c.Sync.Emulator,
		GameFilter:            c.Sync.Game,
		SaveFileHistoryLimit:  c.Sync.SaveFileHistoryLimit,
		SaveStateHistoryLimit: c.Sync.SaveStateHistoryLimit,
	}, nil
}

// ResolvedDataDir returns the expanded data directory
func (c *Config) ResolvedDataDir() string {
	return expandNonEmpty(c.DataDir)
}

func expandNonEmpty(path string) string {
	if path == "" {
		return ""
	}
	return ExpandPath(path)
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
