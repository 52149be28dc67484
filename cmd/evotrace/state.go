package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportPath string
	importPath string
)

// stateCmd groups state export/import subcommands
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Export or import engine state",
}

var stateExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export engine state as versioned YAML",
	RunE:  runStateExport,
}

var stateImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import engine state from a YAML export",
	Long: `Replaces engine state with a previous export. Exports from older
schema versions are migrated forward; newer ones are rejected.`,
	RunE: runStateImport,
}

func init() {
	stateExportCmd.Flags().StringVarP(&exportPath, "out", "o", "", "Output file (default: stdout)")
	stateImportCmd.Flags().StringVarP(&importPath, "in", "i", "", "Input file (required)")
	_ = stateImportCmd.MarkFlagRequired("in")

	stateCmd.AddCommand(stateExportCmd)
	stateCmd.AddCommand(stateImportCmd)
}

func runStateExport(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	out := os.Stdout
	if exportPath != "" {
		f, err := os.Create(exportPath)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return engine.ExportYAML(out)
}

func runStateImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(importPath)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	engine, err := openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.ImportYAML(f); err != nil {
		return err
	}
	if err := engine.Save(); err != nil {
		return err
	}
	fmt.Println("State imported.")
	return nil
}
