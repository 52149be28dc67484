package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// =============================================================================
// SQLITE PERSISTENCE
// =============================================================================

// schemaVersion tracks the LocalStore schema. Bumps append statements to
// migrationStatements; existing databases are upgraded in order.
const schemaVersion = 2

// LocalStore persists engine state in SQLite. It is a boundary collaborator:
// the engine loads once at init and saves at shutdown (or on explicit
// checkpoints); it never reads through the store on the hot path.
type LocalStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// NewLocalStore initializes the SQLite database at the given path.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("Initializing LocalStore at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("LocalStore ready (schema v%d)", schemaVersion)
	return store, nil
}

// initialize creates tables and applies pending migrations.
func (s *LocalStore) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_info (
			version INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL,
			language TEXT NOT NULL,
			conversation_id TEXT NOT NULL DEFAULT '',
			workspace_type TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_language ON snapshots(language, created_at)`,
		`CREATE TABLE IF NOT EXISTS versions (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			major INTEGER NOT NULL,
			minor INTEGER NOT NULL,
			patch INTEGER NOT NULL,
			prerelease TEXT NOT NULL DEFAULT '',
			build TEXT NOT NULL DEFAULT '',
			bump TEXT NOT NULL,
			analysis_json TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dev_patterns (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			frequency INTEGER NOT NULL DEFAULT 1,
			confidence REAL NOT NULL DEFAULT 0,
			impact TEXT NOT NULL DEFAULT '',
			last_occurrence DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bug_patterns (
			rowid_alias INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL,
			category TEXT NOT NULL,
			severity TEXT NOT NULL DEFAULT '',
			root_cause TEXT NOT NULL DEFAULT '',
			fix TEXT NOT NULL DEFAULT '',
			occurrence_count INTEGER NOT NULL DEFAULT 1,
			first_seen DATETIME NOT NULL,
			last_seen DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trend_points (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			series TEXT NOT NULL,
			value REAL NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			recorded_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trend_points_series ON trend_points(series, seq)`,
		`CREATE TABLE IF NOT EXISTS session_summaries (
			session_id TEXT PRIMARY KEY,
			language TEXT NOT NULL DEFAULT '',
			workspace_type TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			snapshot_count INTEGER NOT NULL DEFAULT 0,
			lines_written INTEGER NOT NULL DEFAULT 0,
			average_complexity REAL NOT NULL DEFAULT 0
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	return s.migrate()
}

// migrate upgrades older databases in place.
func (s *LocalStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec("INSERT INTO schema_info (version) VALUES (?)", schemaVersion)
		return err
	}
	if err != nil {
		return err
	}

	if version < 2 {
		// v2 added session summaries; the CREATE TABLE above covers new
		// databases, existing ones only need the version bump.
		logging.Store("Migrating store schema v%d -> v%d", version, schemaVersion)
	}
	if version != schemaVersion {
		if _, err := s.db.Exec("UPDATE schema_info SET version = ?", schemaVersion); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logging.Store("Closing LocalStore")
	return s.db.Close()
}

// =============================================================================
// SAVE
// =============================================================================

// SaveState persists the full engine state atomically, replacing previous
// contents. Called at shutdown and explicit checkpoints.
func (s *LocalStore) SaveState(state types.StateSnapshot) error {
	timer := logging.StartTimer(logging.CategoryStore, "SaveState")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"snapshots", "versions", "dev_patterns", "bug_patterns", "trend_points", "session_summaries"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, snap := range state.Snapshots {
		_, err := tx.Exec(
			`INSERT INTO snapshots (id, code, language, conversation_id, workspace_type, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			snap.ID, snap.Code, snap.Language, snap.ConversationID, string(snap.WorkspaceType), snap.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("save snapshot %s: %w", snap.ID, err)
		}
	}

	for _, rec := range state.Versions {
		analysisJSON, err := json.Marshal(rec.Analysis)
		if err != nil {
			return fmt.Errorf("encode analysis: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO versions (major, minor, patch, prerelease, build, bump, analysis_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Version.Major, rec.Version.Minor, rec.Version.Patch,
			rec.Version.Prerelease, rec.Version.Build, string(rec.Bump), string(analysisJSON), rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("save version %s: %w", rec.Version.String(), err)
		}
	}

	for _, p := range state.DevPatterns {
		_, err := tx.Exec(
			`INSERT INTO dev_patterns (id, name, description, frequency, confidence, impact, last_occurrence)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, p.Frequency, p.Confidence, p.Impact, p.LastOccurrence,
		)
		if err != nil {
			return fmt.Errorf("save dev pattern %s: %w", p.Name, err)
		}
	}

	for _, p := range state.BugPatterns {
		_, err := tx.Exec(
			`INSERT INTO bug_patterns (description, category, severity, root_cause, fix, occurrence_count, first_seen, last_seen)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Description, p.Category, p.Severity, p.RootCause, p.Fix, p.OccurrenceCount, p.FirstSeen, p.LastSeen,
		)
		if err != nil {
			return fmt.Errorf("save bug pattern: %w", err)
		}
	}

	insertPoint := func(series string, value float64, language string, at time.Time) error {
		_, err := tx.Exec(
			`INSERT INTO trend_points (series, value, language, recorded_at) VALUES (?, ?, ?, ?)`,
			series, value, language, at,
		)
		return err
	}
	for _, p := range state.Quality {
		if err := insertPoint("quality", p.Score, "", p.Timestamp); err != nil {
			return fmt.Errorf("save quality point: %w", err)
		}
	}
	for _, p := range state.Complexity {
		if err := insertPoint("complexity", p.Complexity, p.Language, p.Timestamp); err != nil {
			return fmt.Errorf("save complexity point: %w", err)
		}
	}
	for _, p := range state.Performance {
		if err := insertPoint("performance", p.Score, "", p.Timestamp); err != nil {
			return fmt.Errorf("save performance point: %w", err)
		}
	}

	for _, sum := range state.SessionHistory {
		_, err := tx.Exec(
			`INSERT INTO session_summaries (session_id, language, workspace_type, started_at, ended_at, duration_ms, snapshot_count, lines_written, average_complexity)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sum.SessionID, sum.Language, string(sum.WorkspaceType), sum.StartTime, sum.EndTime,
			sum.Duration.Milliseconds(), sum.SnapshotCount, sum.LinesWritten, sum.AverageComplexity,
		)
		if err != nil {
			return fmt.Errorf("save session summary %s: %w", sum.SessionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	logging.Store("State saved: snapshots=%d versions=%d dev_patterns=%d bug_patterns=%d",
		len(state.Snapshots), len(state.Versions), len(state.DevPatterns), len(state.BugPatterns))
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// LoadState reads the full persisted state. An empty database yields an
// empty state, not an error.
func (s *LocalStore) LoadState() (types.StateSnapshot, error) {
	timer := logging.StartTimer(logging.CategoryStore, "LoadState")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	state := types.StateSnapshot{SchemaVersion: types.StateSchemaVersion}

	rows, err := s.db.Query(
		`SELECT id, code, language, conversation_id, workspace_type, created_at
		 FROM snapshots ORDER BY created_at, id`)
	if err != nil {
		return state, fmt.Errorf("load snapshots: %w", err)
	}
	for rows.Next() {
		var snap types.CodeSnapshot
		var workspace string
		if err := rows.Scan(&snap.ID, &snap.Code, &snap.Language, &snap.ConversationID, &workspace, &snap.Timestamp); err != nil {
			rows.Close()
			return state, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.WorkspaceType = types.WorkspaceType(workspace)
		state.Snapshots = append(state.Snapshots, snap)
	}
	rows.Close()

	rows, err = s.db.Query(
		`SELECT major, minor, patch, prerelease, build, bump, analysis_json, created_at
		 FROM versions ORDER BY seq`)
	if err != nil {
		return state, fmt.Errorf("load versions: %w", err)
	}
	for rows.Next() {
		var rec types.VersionRecord
		var bump, analysisJSON string
		if err := rows.Scan(&rec.Version.Major, &rec.Version.Minor, &rec.Version.Patch,
			&rec.Version.Prerelease, &rec.Version.Build, &bump, &analysisJSON, &rec.CreatedAt); err != nil {
			rows.Close()
			return state, fmt.Errorf("scan version: %w", err)
		}
		rec.Bump = types.VersionBump(bump)
		if err := json.Unmarshal([]byte(analysisJSON), &rec.Analysis); err != nil {
			logging.StoreDebug("Skipping malformed analysis JSON: %v", err)
		}
		state.Versions = append(state.Versions, rec)
		if rec.Version.Compare(state.Current) > 0 {
			state.Current = rec.Version
		}
	}
	rows.Close()

	rows, err = s.db.Query(
		`SELECT id, name, description, frequency, confidence, impact, last_occurrence
		 FROM dev_patterns ORDER BY last_occurrence`)
	if err != nil {
		return state, fmt.Errorf("load dev patterns: %w", err)
	}
	for rows.Next() {
		var p types.DevelopmentPattern
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Frequency, &p.Confidence, &p.Impact, &p.LastOccurrence); err != nil {
			rows.Close()
			return state, fmt.Errorf("scan dev pattern: %w", err)
		}
		state.DevPatterns = append(state.DevPatterns, p)
	}
	rows.Close()

	rows, err = s.db.Query(
		`SELECT description, category, severity, root_cause, fix, occurrence_count, first_seen, last_seen
		 FROM bug_patterns ORDER BY first_seen`)
	if err != nil {
		return state, fmt.Errorf("load bug patterns: %w", err)
	}
	for rows.Next() {
		var p types.BugPattern
		if err := rows.Scan(&p.Description, &p.Category, &p.Severity, &p.RootCause, &p.Fix, &p.OccurrenceCount, &p.FirstSeen, &p.LastSeen); err != nil {
			rows.Close()
			return state, fmt.Errorf("scan bug pattern: %w", err)
		}
		state.BugPatterns = append(state.BugPatterns, p)
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT series, value, language, recorded_at FROM trend_points ORDER BY seq`)
	if err != nil {
		return state, fmt.Errorf("load trend points: %w", err)
	}
	for rows.Next() {
		var series, language string
		var value float64
		var at time.Time
		if err := rows.Scan(&series, &value, &language, &at); err != nil {
			rows.Close()
			return state, fmt.Errorf("scan trend point: %w", err)
		}
		switch series {
		case "quality":
			state.Quality = append(state.Quality, types.QualityTrend{Timestamp: at, Score: value})
		case "complexity":
			state.Complexity = append(state.Complexity, types.ComplexityDataPoint{Timestamp: at, Complexity: value, Language: language})
		case "performance":
			state.Performance = append(state.Performance, types.PerformanceSnapshot{Timestamp: at, Score: value})
		}
	}
	rows.Close()

	rows, err = s.db.Query(
		`SELECT session_id, language, workspace_type, started_at, ended_at, duration_ms, snapshot_count, lines_written, average_complexity
		 FROM session_summaries ORDER BY started_at`)
	if err != nil {
		return state, fmt.Errorf("load session summaries: %w", err)
	}
	for rows.Next() {
		var sum types.SessionSummary
		var workspace string
		var durationMs int64
		if err := rows.Scan(&sum.SessionID, &sum.Language, &workspace, &sum.StartTime, &sum.EndTime,
			&durationMs, &sum.SnapshotCount, &sum.LinesWritten, &sum.AverageComplexity); err != nil {
			rows.Close()
			return state, fmt.Errorf("scan session summary: %w", err)
		}
		sum.WorkspaceType = types.WorkspaceType(workspace)
		sum.Duration = time.Duration(durationMs) * time.Millisecond
		state.SessionHistory = append(state.SessionHistory, sum)
	}
	rows.Close()

	logging.Store("State loaded: snapshots=%d versions=%d dev_patterns=%d bug_patterns=%d",
		len(state.Snapshots), len(state.Versions), len(state.DevPatterns), len(state.BugPatterns))
	return state, nil
}
