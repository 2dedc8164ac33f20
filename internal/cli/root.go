// Package cli wires the daemon and history commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipvault/clipvault/internal/blobstore"
	"github.com/clipvault/clipvault/internal/clipboard"
	"github.com/clipvault/clipvault/internal/config"
	"github.com/clipvault/clipvault/internal/history"
	"github.com/clipvault/clipvault/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logLevel string
	cfgFile  string

	paths  *config.Paths
	cfg    *config.Config
	logger *zap.Logger

	// Version information - set by main
	Version   = "dev"
	BuildTime = "unknown"
)

// RootCmd is the base command. Without a subcommand it runs the
// capture daemon in the foreground.
var RootCmd = &cobra.Command{
	Use:   "clipvaultd",
	Short: "Clipvault is a clipboard history daemon",
	Long: `Clipvault watches the system clipboard and keeps a bounded,
searchable history of everything you copy: text, rich text, images,
file lists and colors.

Running clipvaultd without a subcommand starts the capture daemon in
the foreground.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		paths, err = config.GetPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		configPath := cfgFile
		if configPath == "" {
			configPath = paths.ConfigFile
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		logger, err = buildLogger(cfg)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	RootCmd.AddCommand(
		historyCmd,
		searchCmd,
		pinCmd,
		trashCmd,
		restoreCmd,
		deleteCmd,
		emptyTrashCmd,
		clearCmd,
		copyCmd,
		exportCmd,
		importCmd,
		statsCmd,
		versionCmd,
	)
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Log.Format != "json" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

// openCoordinator assembles the store, blob store and coordinator.
// withBackend additionally attaches a clipboard backend for capture
// and write-back. The returned closer releases the store.
func openCoordinator(withBackend bool) (*history.Coordinator, *clipboard.Monitor, func(), error) {
	store, err := storage.Open(storage.Config{
		DBPath: paths.DBFile,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open history store: %w", err)
	}

	blobs := blobstore.New(blobstore.Config{
		ImagesDir:     paths.ImagesDir,
		ThumbnailsDir: paths.ThumbnailsDir,
		Logger:        logger,
	})
	if err := blobs.Init(); err != nil {
		// Fatal to image support only; the rest of the history
		// still works.
		logger.Error("blob store unavailable, image capture disabled", zap.Error(err))
		blobs = nil
	}

	var monitor *clipboard.Monitor
	if withBackend {
		backend, err := clipboard.NewSystemBackend()
		if err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("failed to open clipboard backend: %w", err)
		}
		monitorCfg := clipboard.MonitorConfig{
			Backend:  backend,
			Logger:   logger,
			Interval: time.Duration(cfg.PollingIntervalMs) * time.Millisecond,
		}
		// A typed nil in the interface field would defeat the
		// monitor's nil check.
		if blobs != nil {
			monitorCfg.Blobs = blobs
		}
		monitor = clipboard.NewMonitor(monitorCfg)
	}

	prefs, err := config.LoadPreferences(paths.PrefsFile)
	if err != nil {
		logger.Warn("failed to load preferences, using defaults", zap.Error(err))
		prefs = config.DefaultPreferences()
	}

	coordinator, err := history.New(history.Config{
		Store:     store,
		Blobs:     blobs,
		Monitor:   monitor,
		Logger:    logger,
		Prefs:     prefs,
		PrefsPath: paths.PrefsFile,
	})
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	closer := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close history store", zap.Error(err))
		}
	}
	return coordinator, monitor, closer, nil
}

func runDaemon(ctx context.Context) error {
	logger.Info("starting clipvault daemon",
		zap.String("version", Version),
		zap.String("data_dir", paths.DataDir))

	coordinator, monitor, closeStores, err := openCoordinator(true)
	if err != nil {
		return err
	}
	defer closeStores()

	if err := monitor.Start(); err != nil {
		return fmt.Errorf("failed to start clipboard monitor: %w", err)
	}
	defer monitor.Stop()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		for event := range coordinator.Events() {
			logger.Info("captured",
				zap.String("id", event.ID),
				zap.String("type", string(event.Type)),
				zap.String("preview", event.Preview),
				zap.String("source_app", event.SourceApp))
		}
	}()

	err = coordinator.Run(ctx)
	if err == context.Canceled {
		logger.Info("clipvault daemon shutting down")
		return nil
	}
	return err
}
