package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rommsync/rommsync/internal/adapter/local"
	"github.com/rommsync/rommsync/internal/adapter/romm"
	"github.com/rommsync/rommsync/internal/config"
	"github.com/rommsync/rommsync/internal/domain"
	"github.com/rommsync/rommsync/internal/logger"
	"github.com/rommsync/rommsync/internal/service"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
	DataDir    string
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is config.yaml in ., ./configs or the user config dir)",
	)
	cmd.PersistentFlags().StringVar(
		&globalFlags.LogLevel,
		"log-level",
		"",
		"override log level (debug, info, warn, error)",
	)
	cmd.PersistentFlags().StringVar(
		&globalFlags.DataDir,
		"data-dir",
		"",
		"override the directory holding run history and the lock file",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress the progress bar",
	)
}

// requestFlags narrow or redirect the configured sync request
type requestFlags struct {
	direction  string
	platform   string
	emulator   string
	game       string
	filesOnly  bool
	statesOnly bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.direction, "direction", "d", "", "sync direction: upload, download or bidirectional")
	cmd.Flags().StringVar(&f.platform, "platform", "", "only sync saves of this platform slug")
	cmd.Flags().StringVar(&f.emulator, "emulator", "", "only sync saves of this emulator")
	cmd.Flags().StringVar(&f.game, "game", "", "only sync saves whose game name contains this text")
	cmd.Flags().BoolVar(&f.filesOnly, "files-only", false, "only sync save files")
	cmd.Flags().BoolVar(&f.statesOnly, "states-only", false, "only sync save states")
	cmd.MarkFlagsMutuallyExclusive("files-only", "states-only")
}

// apply overlays the flags set on the command line onto req
func (f *requestFlags) apply(cmd *cobra.Command, req *domain.SyncRequest) error {
	flags := cmd.Flags()

	if flags.Changed("direction") {
		direction, err := domain.ParseSyncDirection(f.direction)
		if err != nil {
			return err
		}
		req.Direction = direction
	}
	if flags.Changed("platform") {
		req.PlatformFilter = f.platform
	}
	if flags.Changed("emulator") {
		req.EmulatorFilter = f.emulator
	}
	if flags.Changed("game") {
		req.GameFilter = f.game
	}
	if f.filesOnly {
		req.SaveFiles, req.SaveStates = true, false
	}
	if f.statesOnly {
		req.SaveFiles, req.SaveStates = false, true
	}

	return nil
}

// loadConfig loads the configuration and applies global overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.ConfigFile)
	if err != nil {
		return nil, err
	}

	if globalFlags.LogLevel != "" {
		cfg.Log.Level = globalFlags.LogLevel
	}
	if globalFlags.DataDir != "" {
		cfg.DataDir = globalFlags.DataDir
	}

	return cfg, nil
}

// setup loads the configuration and starts the global logger.
// The returned cleanup flushes and closes the logger.
func setup() (*config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Init(loggerConfig(cfg.Log)); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cleanup := func() {
		_ = logger.Shutdown()
	}
	return cfg, cleanup, nil
}

// loggerConfig maps the log section onto the logger configuration
func loggerConfig(lc config.LogConfig) logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = logger.ParseLevel(lc.Level)
	cfg.Format = logger.ParseFormat(lc.Format)

	if lc.File != "" {
		cfg.Outputs = append(cfg.Outputs, logger.OutputConfig{Type: logger.OutputFile})
		cfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       config.ExpandPath(lc.File),
			MaxSizeMB:  lc.MaxSizeMB,
			MaxAgeDays: lc.MaxAgeDays,
			MaxBackups: lc.MaxBackups,
			Compress:   lc.Compress,
		}
	}

	return cfg
}

// rommConfig maps the server section onto the RomM client configuration
func rommConfig(sc config.ServerConfig) romm.Config {
	return romm.Config{
		URL:        sc.URL,
		Username:   sc.Username,
		Password:   sc.Password,
		Auth:       sc.Auth,
		Timeout:    sc.Timeout,
		Retries:    sc.Retries,
		RetryDelay: sc.RetryDelay,
		PageSize:   sc.PageSize,
	}
}

// newService connects to the server and builds the sync service
func newService(ctx context.Context, cfg *config.Config) (*service.SyncService, error) {
	client, err := romm.New(ctx, rommConfig(cfg.Server))
	if err != nil {
		return nil, fmt.Errorf("failed to create RomM client: %w", err)
	}
	return service.NewSyncService(local.New(), client), nil
}

// buildRequest combines the configured request with command flags
func buildRequest(cmd *cobra.Command, cfg *config.Config, flags *requestFlags) (domain.SyncRequest, error) {
	req, err := cfg.Request()
	if err != nil {
		return domain.SyncRequest{}, err
	}
	if err := flags.apply(cmd, &req); err != nil {
		return domain.SyncRequest{}, err
	}
	return req, nil
}
