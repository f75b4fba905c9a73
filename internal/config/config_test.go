package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rommsync/rommsync/internal/domain"
)

const validYAML = `
server:
  url: https://romm.example.com
  username: player
  password: secret
sync:
  save_files_dir: /saves/files
  save_states_dir: /saves/states
`

func TestLoadFromString_Defaults(t *testing.T) {
	cfg, err := LoadFromString(validYAML)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if cfg.Server.Auth != "basic" {
		t.Errorf("Auth = %q, want basic", cfg.Server.Auth)
	}
	if cfg.Server.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", cfg.Server.Timeout)
	}
	if cfg.Server.Retries != 3 {
		t.Errorf("Retries = %d, want 3", cfg.Server.Retries)
	}
	if cfg.Server.PageSize != 1000 {
		t.Errorf("PageSize = %d, want 1000", cfg.Server.PageSize)
	}
	if !cfg.Sync.SaveFiles || !cfg.Sync.SaveStates {
		t.Error("both item types should be enabled by default")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log = %s/%s, want info/text", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should default to the user config dir")
	}

	req, err := cfg.Request()
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if req.Direction != domain.Bidirectional {
		t.Errorf("Direction = %s, want bidirectional", req.Direction)
	}
}

func TestLoadFromString_Overrides(t *testing.T) {
	cfg, err := LoadFromString(`
server:
  url: http://192.168.1.10:8080
  auth: oauth2
  timeout: 30s
  retries: 0
  retry_delay: 2s
sync:
  save_files_dir: /saves
  direction: upload
  save_states: false
  platform: snes
  emulator: snes9x
  game: mario
  save_file_history_limit: 5
log:
  level: debug
  format: json
  file: /tmp/rommsync.log
  max_backups: 7
`)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if cfg.Server.Auth != "oauth2" {
		t.Errorf("Auth = %q", cfg.Server.Auth)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Server.Timeout)
	}
	if cfg.Server.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.Server.RetryDelay)
	}
	if cfg.Log.MaxBackups != 7 {
		t.Errorf("MaxBackups = %d, want 7", cfg.Log.MaxBackups)
	}

	req, err := cfg.Request()
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	want := domain.SyncRequest{
		Direction:            domain.UploadOnly,
		SaveFiles:            true,
		SaveStates:           false,
		PlatformFilter:       "snes",
		EmulatorFilter:       "snes9x",
		GameFilter:           "mario",
		SaveFileHistoryLimit: 5,
	}
	if req != want {
		t.Errorf("Request() = %+v, want %+v", req, want)
	}

	settings := cfg.Settings()
	if settings.SaveFilesDir != filepath.Clean("/saves") || settings.SaveStatesDir != "" {
		t.Errorf("Settings() = %+v", settings)
	}
	if settings.SaveFileHistoryLimit != 5 {
		t.Errorf("SaveFileHistoryLimit = %d, want 5", settings.SaveFileHistoryLimit)
	}
}

func TestLoadFromString_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing url", "sync:\n  save_files_dir: /s\n"},
		{"bad scheme", "server:\n  url: ftp://host\nsync:\n  save_files_dir: /s\n"},
		{"no host", "server:\n  url: https://\nsync:\n  save_files_dir: /s\n"},
		{"bad auth", "server:\n  url: https://h\n  auth: token\nsync:\n  save_files_dir: /s\n"},
		{"negative retries", "server:\n  url: https://h\n  retries: -1\nsync:\n  save_files_dir: /s\n"},
		{"bad direction", "server:\n  url: https://h\nsync:\n  save_files_dir: /s\n  direction: sideways\n"},
		{"no types", "server:\n  url: https://h\nsync:\n  save_files_dir: /s\n  save_files: false\n  save_states: false\n"},
		{"no dirs", "server:\n  url: https://h\n"},
		{"negative limit", "server:\n  url: https://h\nsync:\n  save_files_dir: /s\n  save_state_history_limit: -2\n"},
		{"bad log level", "server:\n  url: https://h\nsync:\n  save_files_dir: /s\nlog:\n  level: loud\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			if !errors.Is(err, domain.ErrConfigInvalid) {
				t.Errorf("error = %v, want ErrConfigInvalid", err)
			}
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ROMMSYNC_SERVER_PASSWORD", "from-env")
	t.Setenv("ROMMSYNC_SYNC_DIRECTION", "download")

	cfg, err := LoadFromString(validYAML)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	if cfg.Server.Password != "from-env" {
		t.Errorf("Password = %q, want from-env", cfg.Server.Password)
	}
	if cfg.Sync.Direction != "download" {
		t.Errorf("Direction = %q, want download", cfg.Sync.Direction)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.URL != "https://romm.example.com" {
		t.Errorf("URL = %q", cfg.Server.URL)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Errorf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("ROMMSYNC_TEST_DIR", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/saves", filepath.Join(home, "saves")},
		{"$ROMMSYNC_TEST_DIR/saves", filepath.Clean("/data/saves")},
		{"/abs/./path/", filepath.Clean("/abs/path")},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
