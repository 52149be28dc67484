package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evotrace/internal/types"
	"evotrace/internal/watch"
)

var (
	sessionLanguage string
	sessionDir      string
)

// sessionCmd groups session subcommands
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Coding session tracking",
}

// sessionStartCmd runs a live session over a watched directory
var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a coding session over a watched directory",
	Long: `Starts a coding session and ingests file saves under --dir as snapshots
until interrupted. On Ctrl-C the session ends and its summary is printed and
persisted.`,
	RunE: runSessionStart,
}

// sessionEndCmd ends the active session
var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the active coding session",
	RunE:  runSessionEnd,
}

// sessionStatusCmd shows session state and history
var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session state and recent session summaries",
	RunE:  runSessionStatus,
}

func init() {
	sessionStartCmd.Flags().StringVarP(&sessionLanguage, "language", "l", "", "Session language (required)")
	sessionStartCmd.Flags().StringVarP(&sessionDir, "dir", "d", ".", "Directory to watch during the session")
	_ = sessionStartCmd.MarkFlagRequired("language")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	session, err := engine.StartSession(sessionLanguage, types.WorkspaceProject)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s started (%s). Ctrl-C to end.\n", session.ID, session.Language)
	logger.Info("session started", zap.String("id", session.ID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watch.New(engine, cfg.Watch.Extensions, cfg.GetDebounceInterval())
	if err := w.Run(ctx, sessionDir); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	summary, ok := engine.EndSession()
	if !ok {
		return nil
	}
	printSummary(*summary)
	return nil
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	summary, ok := engine.EndSession()
	if !ok {
		fmt.Println("No active session.")
		return nil
	}
	printSummary(*summary)
	return nil
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if current, ok := engine.ActiveSession(); ok {
		fmt.Printf("Active session %s (%s), started %s, %d snapshots\n",
			current.ID, current.Language,
			current.StartTime.Format(time.RFC3339), len(current.Snapshots))
	} else {
		fmt.Println("No active session.")
	}

	history := engine.SessionHistory()
	if len(history) == 0 {
		return nil
	}
	fmt.Println("Recent sessions:")
	for _, s := range history {
		fmt.Printf("  %s  %-10s  %v  %d snapshots  %d lines\n",
			s.StartTime.Format(time.RFC3339), s.Language,
			s.Duration.Round(time.Second), s.SnapshotCount, s.LinesWritten)
	}
	return nil
}

func printSummary(s types.SessionSummary) {
	fmt.Printf("Session %s ended\n", s.SessionID)
	fmt.Printf("  Duration:       %v\n", s.Duration.Round(time.Second))
	fmt.Printf("  Snapshots:      %d\n", s.SnapshotCount)
	fmt.Printf("  Lines written:  %d\n", s.LinesWritten)
	fmt.Printf("  Avg complexity: %.2f\n", s.AverageComplexity)
}
