package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evotrace/internal/watch"
)

var watchDir string

// watchCmd ingests file saves from a directory tree
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and track file saves as snapshots",
	Long: `Watches a directory tree and submits every save of a recognized source
file as a snapshot. Runs until interrupted; state is persisted on shutdown.

Example:
  evotrace watch --dir ./src`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", ".", "Directory to watch")
}

func runWatch(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watching", zap.String("dir", watchDir))
	fmt.Printf("Watching %s. Ctrl-C to stop.\n", watchDir)

	w := watch.New(engine, cfg.Watch.Extensions, cfg.GetDebounceInterval())
	if err := w.Run(ctx, watchDir); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Printf("Stopped. Current version: v%s\n", engine.CurrentVersion().String())
	return nil
}
