// Package types provides shared type definitions used across evotrace packages.
// This package exists to break import cycles between the evolution engine,
// pattern learning, trend analysis, and persistence layers. Types here are
// foundational data structures with no complex dependencies.
package types

import (
	"strconv"
	"time"
)

// =============================================================================
// SNAPSHOTS
// =============================================================================

// WorkspaceType identifies what kind of workspace a snapshot came from.
type WorkspaceType string

const (
	WorkspaceChat    WorkspaceType = "chat"
	WorkspaceEditor  WorkspaceType = "editor"
	WorkspaceProject WorkspaceType = "project"
)

// CodeSnapshot is one immutable capture of code text at a point in time,
// tagged with language and conversation context. Never mutated after creation.
type CodeSnapshot struct {
	ID             string        `json:"id"`
	Code           string        `json:"code"`
	Language       string        `json:"language"`
	Timestamp      time.Time     `json:"timestamp"`
	ConversationID string        `json:"conversation_id"`
	WorkspaceType  WorkspaceType `json:"workspace_type"`
}

// ConversationContext is the host-supplied conversation/workspace context.
type ConversationContext struct {
	ConversationID string        `json:"conversation_id"`
	WorkspaceType  WorkspaceType `json:"workspace_type"`
	RecentMessages []string      `json:"recent_messages,omitempty"`
}

// =============================================================================
// EVOLUTION RECORDS
// =============================================================================

// EvolutionType classifies a snapshot relative to its predecessor.
type EvolutionType string

const (
	EvolutionInitial      EvolutionType = "initial"
	EvolutionExpansion    EvolutionType = "expansion"
	EvolutionReduction    EvolutionType = "reduction"
	EvolutionRefactoring  EvolutionType = "refactoring"
	EvolutionModification EvolutionType = "modification"
)

// ChangeKind tags an individual signal detected in a diff.
type ChangeKind string

const (
	ChangeCreation        ChangeKind = "creation"
	ChangeAddition        ChangeKind = "addition"
	ChangeDeletion        ChangeKind = "deletion"
	ChangeFunctionAdded   ChangeKind = "function_addition"
	ChangeFunctionRemoved ChangeKind = "function_removal"
	ChangeRefactoring     ChangeKind = "refactoring"
	ChangeModification    ChangeKind = "modification"
)

// CodeEvolution is the classified diff between a snapshot and its immediate
// predecessor. Computed once per snapshot; never mutated.
type CodeEvolution struct {
	Type             EvolutionType `json:"type"`
	Changes          []ChangeKind  `json:"changes"`
	Complexity       float64       `json:"complexity"` // [0,1], clamped at construction
	LinesAdded       int           `json:"lines_added"`
	LinesRemoved     int           `json:"lines_removed"`
	FunctionsAdded   int           `json:"functions_added"`
	FunctionsRemoved int           `json:"functions_removed"`
}

// HasChange reports whether the evolution carries the given change kind.
func (e CodeEvolution) HasChange(kind ChangeKind) bool {
	for _, c := range e.Changes {
		if c == kind {
			return true
		}
	}
	return false
}

// =============================================================================
// SEMANTIC VERSIONS
// =============================================================================

// VersionBump is the caller-supplied intent for a version change.
// The engine records the result, it does not decide intent.
type VersionBump string

const (
	BumpMajor      VersionBump = "major"
	BumpMinor      VersionBump = "minor"
	BumpPatch      VersionBump = "patch"
	BumpPrerelease VersionBump = "prerelease"
)

// SemanticVersion is a (major, minor, patch) triple plus optional
// prerelease/build labels. Ordered by the numeric triple only.
type SemanticVersion struct {
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	Prerelease string `json:"prerelease,omitempty"`
	Build      string `json:"build,omitempty"`
}

// String renders the version in semver notation.
func (v SemanticVersion) String() string {
	s := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." + strconv.Itoa(v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// Compare returns -1, 0, or 1 comparing by (major, minor, patch)
// lexicographically. Prerelease and build labels are not compared.
func (v SemanticVersion) Compare(o SemanticVersion) int {
	if v.Major != o.Major {
		return sign(v.Major - o.Major)
	}
	if v.Minor != o.Minor {
		return sign(v.Minor - o.Minor)
	}
	return sign(v.Patch - o.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// RiskLevel grades a change for reporting purposes.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ChangeAnalysis summarizes a batch of changes for version reporting.
// Risk level is derived for reporting only, never fed back into the bump
// decision.
type ChangeAnalysis struct {
	TotalChanges  int          `json:"total_changes"`
	LinesChanged  int          `json:"lines_changed"`
	FilesAffected []string     `json:"files_affected"`
	ChangeTypes   []ChangeKind `json:"change_types"`
	Complexity    float64      `json:"complexity"` // [0,10], clamped at construction
	RiskLevel     RiskLevel    `json:"risk_level"`
}

// VersionRecord is one entry in the append-only version history.
type VersionRecord struct {
	Version   SemanticVersion `json:"version"`
	Bump      VersionBump     `json:"bump"`
	Analysis  ChangeAnalysis  `json:"analysis"`
	CreatedAt time.Time       `json:"created_at"`
}

// =============================================================================
// PATTERNS
// =============================================================================

// DevelopmentPattern is a named, frequency-weighted recurring development
// signature. Mutable accumulator: frequency and lastOccurrence move on merge,
// nothing else does.
type DevelopmentPattern struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Frequency      int       `json:"frequency"`
	Confidence     float64   `json:"confidence"` // [0,1], clamped at construction
	Impact         string    `json:"impact"`
	LastOccurrence time.Time `json:"last_occurrence"`
}

// BugPattern is a recurring bug signature. FirstSeen is immutable;
// OccurrenceCount and LastSeen move on merge.
type BugPattern struct {
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Severity        string    `json:"severity"`
	RootCause       string    `json:"root_cause"`
	Fix             string    `json:"fix"`
	OccurrenceCount int       `json:"occurrence_count"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// =============================================================================
// PREDICTIONS AND TRENDS
// =============================================================================

// PredictedIssue is a probability-scored short-horizon forecast derived from
// bug-pattern occurrence statistics. The predicted-issue list is always
// rebuilt wholesale on each analysis pass, never patched incrementally.
type PredictedIssue struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Probability float64 `json:"probability"` // [0,1], clamped at construction
	Timeline    string  `json:"timeline"`
	Prevention  string  `json:"prevention,omitempty"`
}

// FutureIssue is the longer-horizon counterpart of PredictedIssue, emitted
// only for patterns with higher occurrence counts.
type FutureIssue struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Probability float64 `json:"probability"` // [0,1], clamped at construction
	Mitigation  string  `json:"mitigation,omitempty"`
}

// TrendDirection classifies a time series by its windowed averages.
type TrendDirection string

const (
	TrendImproving  TrendDirection = "improving"
	TrendDeclining  TrendDirection = "declining"
	TrendStable     TrendDirection = "stable"
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
)

// QualityTrend is one point in the append-only quality series.
type QualityTrend struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"` // [0,1], clamped at construction
}

// ComplexityDataPoint is one point in the append-only complexity series.
type ComplexityDataPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Complexity float64   `json:"complexity"` // [0,1], clamped at construction
	Language   string    `json:"language,omitempty"`
}

// PerformanceSnapshot is one point in the append-only performance series.
type PerformanceSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"` // [0,1], clamped at construction
}

// =============================================================================
// SESSIONS
// =============================================================================

// SessionState is the session tracker state machine position.
type SessionState string

const (
	SessionNotStarted SessionState = "not_started"
	SessionActive     SessionState = "active"
	SessionEnded      SessionState = "ended"
)

// CodingSession is the live accumulator for an active coding session.
// Discarded when the session ends; only the summary is retained.
type CodingSession struct {
	ID            string         `json:"id"`
	Language      string         `json:"language"`
	WorkspaceType WorkspaceType  `json:"workspace_type"`
	StartTime     time.Time      `json:"start_time"`
	LastActivity  time.Time      `json:"last_activity"`
	Snapshots     []CodeSnapshot `json:"snapshots"`
}

// SessionSummary is the retained result of an ended session.
type SessionSummary struct {
	SessionID         string        `json:"session_id"`
	Language          string        `json:"language"`
	WorkspaceType     WorkspaceType `json:"workspace_type"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	Duration          time.Duration `json:"duration"`
	SnapshotCount     int           `json:"snapshot_count"`
	LinesWritten      int           `json:"lines_written"`
	AverageComplexity float64       `json:"average_complexity"` // [0,1], clamped at construction
}

// =============================================================================
// ENGINE RESULTS
// =============================================================================

// EvolutionResult is the full outcome of tracking one snapshot.
type EvolutionResult struct {
	Snapshot    CodeSnapshot         `json:"snapshot"`
	Evolution   CodeEvolution        `json:"evolution"`
	Version     SemanticVersion      `json:"version"`
	Patterns    []DevelopmentPattern `json:"patterns,omitempty"`
	Suggestions []string             `json:"suggestions,omitempty"`
}

// PatternAnalysis aggregates learned state over a timeframe.
type PatternAnalysis struct {
	Timeframe            time.Duration        `json:"timeframe"`
	SnapshotCount        int                  `json:"snapshot_count"`
	LanguageDistribution map[string]int       `json:"language_distribution"`
	HourlyDistribution   [24]int              `json:"hourly_distribution"`
	AverageComplexity    float64              `json:"average_complexity"`
	Productivity         float64              `json:"productivity"` // snapshots per day
	TopPatterns          []DevelopmentPattern `json:"top_patterns,omitempty"`
	QualityTrend         TrendDirection       `json:"quality_trend"`
	ComplexityTrend      TrendDirection       `json:"complexity_trend"`
}

// Prediction is the outcome of asking what comes next for a partial snippet.
type Prediction struct {
	Suggestions []string             `json:"suggestions"`
	Confidence  float64              `json:"confidence"` // [0,1], clamped at construction
	Patterns    []DevelopmentPattern `json:"patterns,omitempty"`
	Reasoning   string               `json:"reasoning"`
}

// RefactoringOpportunity flags a surface-level refactoring candidate.
type RefactoringOpportunity struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Line        int    `json:"line,omitempty"`
}

// =============================================================================
// CLAMPING
// =============================================================================

// ClampUnit clamps a score to [0,1]. Applied at construction time for every
// derived score, never lazily at read time.
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampComplexity clamps a raw complexity score to [0,10].
func ClampComplexity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
