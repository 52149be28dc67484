package types

import "fmt"

// =============================================================================
// VERSIONED STATE EXPORT/IMPORT
// =============================================================================
// Engine state crosses the persistence boundary as an explicit versioned
// record, never as an untyped key-value map. Additive schema changes bump
// StateSchemaVersion and extend Migrate.

// StateSchemaVersion is the current export schema version.
const StateSchemaVersion = 2

// StateSnapshot is the full serializable engine state.
type StateSnapshot struct {
	SchemaVersion int `json:"schema_version" yaml:"schema_version"`

	Snapshots      []CodeSnapshot       `json:"snapshots" yaml:"snapshots"`
	Versions       []VersionRecord      `json:"versions" yaml:"versions"`
	Current        SemanticVersion      `json:"current_version" yaml:"current_version"`
	DevPatterns    []DevelopmentPattern `json:"dev_patterns" yaml:"dev_patterns"`
	BugPatterns    []BugPattern         `json:"bug_patterns" yaml:"bug_patterns"`
	Quality        []QualityTrend       `json:"quality" yaml:"quality"`
	Complexity     []ComplexityDataPoint `json:"complexity" yaml:"complexity"`
	Performance    []PerformanceSnapshot `json:"performance" yaml:"performance"`
	SessionHistory []SessionSummary     `json:"session_history" yaml:"session_history"`
}

// Migrate upgrades a decoded StateSnapshot to the current schema version.
// Returns an error for versions newer than this build understands.
func Migrate(s *StateSnapshot) error {
	switch {
	case s.SchemaVersion == 0, s.SchemaVersion == 1:
		// v1 predates session history; nothing to backfill beyond defaults.
		if s.SessionHistory == nil {
			s.SessionHistory = []SessionSummary{}
		}
		s.SchemaVersion = StateSchemaVersion
		return nil
	case s.SchemaVersion == StateSchemaVersion:
		return nil
	default:
		return fmt.Errorf("state schema version %d is newer than supported version %d",
			s.SchemaVersion, StateSchemaVersion)
	}
}
