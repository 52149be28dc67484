package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evotrace/internal/types"
)

var (
	trackLanguage  string
	trackFile      string
	trackConvID    string
	trackWorkspace string
)

// trackCmd ingests one snapshot from a file or stdin
var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Track a code snapshot and classify its evolution",
	Long: `Reads a code snapshot from --file (or stdin) and runs it through the
engine: the snapshot is diffed against its most recent same-language
predecessor, classified, versioned, and fed into pattern and trend learning.

Example:
  evotrace track --language go --file handler.go
  cat snippet.py | evotrace track --language python`,
	RunE: runTrack,
}

func init() {
	trackCmd.Flags().StringVarP(&trackLanguage, "language", "l", "", "Snapshot language (required)")
	trackCmd.Flags().StringVarP(&trackFile, "file", "f", "", "Read snapshot from file instead of stdin")
	trackCmd.Flags().StringVar(&trackConvID, "conversation", "cli", "Conversation identifier")
	trackCmd.Flags().StringVar(&trackWorkspace, "workspace-type", string(types.WorkspaceChat), "Workspace type: chat, editor, project")
	_ = trackCmd.MarkFlagRequired("language")
}

func runTrack(cmd *cobra.Command, args []string) error {
	code, err := readSnapshot()
	if err != nil {
		return err
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.TrackEvolution(code, trackLanguage, types.ConversationContext{
		ConversationID: trackConvID,
		WorkspaceType:  types.WorkspaceType(trackWorkspace),
	})
	if err != nil {
		return err
	}
	logger.Debug("tracked snapshot",
		zap.String("id", result.Snapshot.ID),
		zap.String("type", string(result.Evolution.Type)))

	fmt.Printf("Snapshot %s (%s)\n", result.Snapshot.ID, result.Snapshot.Language)
	fmt.Printf("  Evolution: %s\n", result.Evolution.Type)
	fmt.Printf("  Changes:   %v\n", result.Evolution.Changes)
	fmt.Printf("  Lines:     +%d -%d  Functions: +%d -%d\n",
		result.Evolution.LinesAdded, result.Evolution.LinesRemoved,
		result.Evolution.FunctionsAdded, result.Evolution.FunctionsRemoved)
	fmt.Printf("  Complexity: %.2f\n", result.Evolution.Complexity)
	fmt.Printf("  Version:    v%s\n", result.Version.String())
	for _, s := range result.Suggestions {
		fmt.Printf("  Suggestion: %s\n", s)
	}
	return nil
}

func readSnapshot() (string, error) {
	if trackFile != "" {
		data, err := os.ReadFile(trackFile)
		if err != nil {
			return "", fmt.Errorf("reading snapshot file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading snapshot from stdin: %w", err)
	}
	return string(data), nil
}
