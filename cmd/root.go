package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kmahone/strum/internal/config"
	"github.com/kmahone/strum/internal/core"
	"github.com/kmahone/strum/internal/mpv"
	"github.com/kmahone/strum/internal/presence"
	"github.com/kmahone/strum/internal/search"
	"github.com/kmahone/strum/internal/session"
	"github.com/kmahone/strum/internal/store"
	"github.com/kmahone/strum/internal/tabs"
	"github.com/kmahone/strum/internal/track"
	"github.com/kmahone/strum/internal/tui"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	rootLogFile  string
	rootLogLevel string
	rootDataDir  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strum",
	Short: "Terminal audio player backed by mpv",
	Long: `strum is a terminal front end for mpv with yt-dlp search.

It presents three tabs (search results, play history, favorites), plays
tracks through a background mpv process controlled over its IPC socket,
and persists history and favorites between runs.

Configuration lives at ~/.config/strum/config.yaml.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	RunE:    runPlayer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogFile, "log-file", "", "Log file path (default: <data-dir>/strum.log)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&rootDataDir, "data-dir", "", "Data directory for the track store (default: ~/.local/share/strum)")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dataDir := rootDataDir
	if dataDir == "" {
		dataDir = config.GetDataDir()
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// The TUI owns the terminal, so logs always go to a file here.
	logFile := rootLogFile
	if logFile == "" {
		logFile = filepath.Join(dataDir, "strum.log")
	}
	logger := setupLogger(logFile, rootLogLevel)

	logger.Info().
		Str("version", version).
		Str("data_dir", dataDir).
		Msg("Starting strum")

	db, err := store.Open(filepath.Join(dataDir, "strum.db"))
	if err != nil {
		return fmt.Errorf("failed to open track store: %w", err)
	}
	defer db.Close()

	manager := tabs.NewManager()
	if err := loadTabs(cmd.Context(), db, manager); err != nil {
		return fmt.Errorf("failed to load saved tabs: %w", err)
	}

	supervisor := presence.New(cfg.Presence.SidecarCommand(), logger)
	resolver := search.NewResolver(cfg.YTDLPBinary, cfg.SearchLimit, logger)

	open := func(ctx context.Context, t track.Track) (session.Player, error) {
		p, err := mpv.Open(ctx, cfg.MPVBinary, t, logger)
		if err != nil {
			return nil, err
		}
		if err := p.SetVolume(ctx, cfg.Volume); err != nil {
			logger.Warn().Err(err).Msg("Failed to set initial volume")
		}
		return p, nil
	}
	sess := session.New(open, manager, supervisor, cfg.Advance, logger)

	c := core.New(sess, manager, resolver, supervisor, db, logger)

	tuiCfg := tui.DefaultConfig()
	tuiCfg.SeekStep = cfg.SeekStep
	tuiCfg.VolumeStep = cfg.VolumeStep
	app := tui.New(c, tuiCfg, cfg.Volume, logger)

	runErr := app.Run(cmd.Context())

	// Teardown order matters: the sidecar stops before the player so it
	// cannot report a stale now-playing, then the tabs are persisted.
	c.Shutdown()
	if err := saveTabs(context.Background(), db, manager); err != nil {
		logger.Error().Err(err).Msg("Failed to persist tabs")
	}

	if runErr != nil {
		return runErr
	}
	logger.Info().Msg("Stopped")
	return nil
}

// loadTabs restores the persisted history and favorites lists.
func loadTabs(ctx context.Context, db *store.Store, manager *tabs.Manager) error {
	for _, id := range []tabs.ID{tabs.History, tabs.Favorites} {
		tracks, err := db.LoadTab(ctx, id)
		if err != nil {
			return fmt.Errorf("load %s: %w", id, err)
		}
		manager.Import(id, tracks)
	}
	return nil
}

func saveTabs(ctx context.Context, db *store.Store, manager *tabs.Manager) error {
	for _, id := range []tabs.ID{tabs.History, tabs.Favorites} {
		if err := db.SaveTab(ctx, id, manager.Export(id)); err != nil {
			return fmt.Errorf("save %s: %w", id, err)
		}
	}
	return nil
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output; "-" forces stderr.
	var output *os.File
	if logFile != "" && logFile != "-" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
