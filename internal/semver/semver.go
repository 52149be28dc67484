// Package semver implements the semantic version engine: bump application
// and change-risk analysis. Version intent (major/minor/patch/prerelease)
// is always caller-supplied; this package records the result, it never
// decides intent from the change itself.
package semver

import (
	"strings"

	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// Risk thresholds over a ChangeAnalysis.
const (
	highRiskCoreFiles   = 5
	highRiskLines       = 1000
	mediumRiskCoreFiles = 2
	mediumRiskLines     = 500
)

// Bump applies a caller-supplied version bump to the current version.
//
// Prerelease is deliberately a no-op on the numeric triple: the prerelease
// label is caller-supplied metadata, not an auto-incremented counter.
func Bump(current types.SemanticVersion, bump types.VersionBump) types.SemanticVersion {
	next := current
	switch bump {
	case types.BumpMajor:
		next.Major++
		next.Minor = 0
		next.Patch = 0
	case types.BumpMinor:
		next.Minor++
		next.Patch = 0
	case types.BumpPatch:
		next.Patch++
	case types.BumpPrerelease:
		// Numeric triple unchanged.
	}
	next.Prerelease = current.Prerelease
	next.Build = current.Build

	logging.SemverDebug("Bump %s: %s -> %s", bump, current.String(), next.String())
	return next
}

// coreFileMarkers identify files whose touch raises change risk.
var coreFileMarkers = []string{"main", "core", "engine", "index", "app"}

// isArchitecturalChange reports whether any change kind in the batch implies
// a structural rework rather than local edits.
func isArchitecturalChange(changeTypes []types.ChangeKind) bool {
	for _, ct := range changeTypes {
		if ct == types.ChangeRefactoring {
			return true
		}
	}
	return false
}

// countCoreFiles counts affected files that look like core modules.
func countCoreFiles(files []string) int {
	count := 0
	for _, f := range files {
		name := strings.ToLower(f)
		for _, marker := range coreFileMarkers {
			if strings.Contains(name, marker) {
				count++
				break
			}
		}
	}
	return count
}

// AnalyzeChanges builds a ChangeAnalysis with derived risk level.
//
// Risk: high if any architectural change OR >5 core-file touches OR >1000
// changed lines; medium if >2 core-file touches OR >500 lines; else low.
func AnalyzeChanges(totalChanges, linesChanged int, filesAffected []string, changeTypes []types.ChangeKind, complexity float64) types.ChangeAnalysis {
	coreTouches := countCoreFiles(filesAffected)

	risk := types.RiskLow
	switch {
	case isArchitecturalChange(changeTypes) || coreTouches > highRiskCoreFiles || linesChanged > highRiskLines:
		risk = types.RiskHigh
	case coreTouches > mediumRiskCoreFiles || linesChanged > mediumRiskLines:
		risk = types.RiskMedium
	}

	analysis := types.ChangeAnalysis{
		TotalChanges:  totalChanges,
		LinesChanged:  linesChanged,
		FilesAffected: filesAffected,
		ChangeTypes:   changeTypes,
		Complexity:    types.ClampComplexity(complexity),
		RiskLevel:     risk,
	}

	logging.SemverDebug("Change analysis: changes=%d lines=%d core_files=%d risk=%s",
		totalChanges, linesChanged, coreTouches, risk)
	return analysis
}

// BumpForEvolution maps an evolution record to a default bump intent for
// callers that do not supply one: expansions are minor, reductions and
// refactorings are patch-level; everything else is patch.
func BumpForEvolution(evolution types.CodeEvolution) types.VersionBump {
	switch evolution.Type {
	case types.EvolutionExpansion:
		return types.BumpMinor
	default:
		return types.BumpPatch
	}
}
