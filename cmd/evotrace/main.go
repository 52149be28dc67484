package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"evotrace/internal/config"
	"evotrace/internal/evolution"
	"evotrace/internal/logging"
	"evotrace/internal/store"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Logger
	logger *zap.Logger

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "evotrace",
	Short: "evotrace - Temporal code evolution engine",
	Long: `evotrace tracks how code evolves across snapshots: it classifies each
change against its predecessor, assigns semantic versions, learns recurring
development and bug patterns, and projects quality and complexity trends.

Snapshots come from stdin, files, or a watched directory; all state persists
in a local SQLite database under .evotrace/.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		path := configPath
		if path == "" {
			path = filepath.Join(workspace, config.DefaultPath)
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// openEngine builds an engine backed by the configured SQLite store.
// The caller owns Close.
func openEngine() (*evolution.Engine, error) {
	dbPath := cfg.Storage.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workspace, dbPath)
	}
	persister, err := store.NewLocalStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	engine, err := evolution.NewEngine(evolution.Options{
		Retention:         cfg.Engine.Retention,
		PatternTableSize:  cfg.Engine.PatternTableSize,
		HeartbeatInterval: cfg.GetHeartbeatInterval(),
		Persister:         persister,
		SaveOnTrack:       cfg.Storage.SaveOnTrack,
	})
	if err != nil {
		_ = persister.Close()
		return nil, err
	}
	return engine, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.evotrace/config.yaml)")

	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(opportunitiesCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
