package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"evotrace/internal/types"
)

var (
	historyLanguage string
	historyLimit    int
)

// historyCmd lists tracked snapshots
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List tracked snapshots, oldest first",
	RunE:  runHistory,
}

var patternsTimeframe time.Duration

// patternsCmd aggregates learned patterns and trends
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Analyze learned patterns and trends over a timeframe",
	RunE:  runPatterns,
}

var (
	predictLanguage string
	predictFile     string
)

// predictCmd suggests likely next steps for a partial snippet
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict likely next steps for a partial snippet",
	Long: `Runs surface heuristics and the learned pattern table over a partial
snippet and prints suggestions with a confidence score. Also lists predicted
issues derived from recurring bug patterns.`,
	RunE: runPredict,
}

var (
	oppLanguage string
	oppFile     string
)

// opportunitiesCmd flags refactoring candidates
var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "Flag surface-level refactoring opportunities in a snippet",
	RunE:  runOpportunities,
}

// statusCmd shows engine status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status and health scores",
	RunE:  runStatus,
}

func init() {
	historyCmd.Flags().StringVarP(&historyLanguage, "language", "l", "", "Filter by language (empty = all)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum snapshots to list")

	patternsCmd.Flags().DurationVar(&patternsTimeframe, "timeframe", 7*24*time.Hour, "Trailing analysis window")

	predictCmd.Flags().StringVarP(&predictLanguage, "language", "l", "", "Snippet language (required)")
	predictCmd.Flags().StringVarP(&predictFile, "file", "f", "", "Read snippet from file instead of stdin")
	_ = predictCmd.MarkFlagRequired("language")

	opportunitiesCmd.Flags().StringVarP(&oppLanguage, "language", "l", "", "Snippet language (required)")
	opportunitiesCmd.Flags().StringVarP(&oppFile, "file", "f", "", "Read snippet from file instead of stdin")
	_ = opportunitiesCmd.MarkFlagRequired("language")
}

func runHistory(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	snapshots := engine.GetHistory(historyLanguage, historyLimit)
	if len(snapshots) == 0 {
		fmt.Println("No snapshots tracked yet.")
		return nil
	}
	for _, s := range snapshots {
		fmt.Printf("%s  %-10s  %4d lines  %s\n",
			s.Timestamp.Format(time.RFC3339), s.Language, lineCountOf(s), s.ID)
	}
	fmt.Printf("\nCurrent version: v%s\n", engine.CurrentVersion().String())
	return nil
}

func lineCountOf(s types.CodeSnapshot) int {
	n := 1
	for _, c := range s.Code {
		if c == '\n' {
			n++
		}
	}
	return n
}

func runPatterns(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	analysis := engine.AnalyzePatterns(patternsTimeframe)

	fmt.Printf("Analysis over %v\n", analysis.Timeframe)
	fmt.Printf("  Snapshots:      %d\n", analysis.SnapshotCount)
	fmt.Printf("  Productivity:   %.1f snapshots/day\n", analysis.Productivity)
	fmt.Printf("  Avg complexity: %.2f\n", analysis.AverageComplexity)
	fmt.Printf("  Quality trend:  %s\n", analysis.QualityTrend)
	fmt.Printf("  Complexity trend: %s\n", analysis.ComplexityTrend)

	if len(analysis.LanguageDistribution) > 0 {
		fmt.Println("  Languages:")
		for lang, n := range analysis.LanguageDistribution {
			fmt.Printf("    %-12s %d\n", lang, n)
		}
	}
	if len(analysis.TopPatterns) > 0 {
		fmt.Println("  Top patterns:")
		for _, p := range analysis.TopPatterns {
			fmt.Printf("    %-30s freq=%d conf=%.1f\n", p.Name, p.Frequency, p.Confidence)
		}
	}
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	code, err := readSnippet(predictFile)
	if err != nil {
		return err
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	pred := engine.PredictNext(types.ConversationContext{ConversationID: "cli"}, code, predictLanguage)
	fmt.Printf("Confidence: %.2f  (%s)\n", pred.Confidence, pred.Reasoning)
	for _, s := range pred.Suggestions {
		fmt.Printf("  - %s\n", s)
	}

	if issues := engine.PredictedIssues(); len(issues) > 0 {
		fmt.Println("\nPredicted issues:")
		for _, issue := range issues {
			fmt.Printf("  [%.0f%%] %s (within %s)\n", issue.Probability*100, issue.Description, issue.Timeline)
		}
	}
	return nil
}

func runOpportunities(cmd *cobra.Command, args []string) error {
	code, err := readSnippet(oppFile)
	if err != nil {
		return err
	}

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ops := engine.RefactoringOpportunities(code, oppLanguage)
	if len(ops) == 0 {
		fmt.Println("No refactoring opportunities found.")
		return nil
	}
	for _, op := range ops {
		if op.Line > 0 {
			fmt.Printf("[%s] %s (line %d): %s\n", op.Severity, op.Kind, op.Line, op.Description)
		} else {
			fmt.Printf("[%s] %s: %s\n", op.Severity, op.Kind, op.Description)
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	scores := engine.Scores()
	fmt.Printf("evotrace %s\n", cfg.Version)
	fmt.Printf("  Snapshots:       %d\n", len(engine.GetHistory("", 0)))
	fmt.Printf("  Current version: v%s\n", engine.CurrentVersion().String())
	fmt.Printf("  Health:          %.2f\n", scores.Health)
	fmt.Printf("  Technical debt:  %.2f\n", scores.TechnicalDebt)
	fmt.Printf("  Maturity:        %.2f\n", scores.Maturity)
	fmt.Printf("  Velocity:        %.2f\n", scores.Velocity)

	if issues := engine.FutureIssues(); len(issues) > 0 {
		fmt.Println("  Chronic issues:")
		for _, issue := range issues {
			fmt.Printf("    [%.0f%%] %s\n", issue.Probability*100, issue.Description)
		}
	}
	return nil
}

func readSnippet(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading snippet file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading snippet from stdin: %w", err)
	}
	return string(data), nil
}
