package evolution

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"evotrace/internal/analyzer"
	"evotrace/internal/logging"
	"evotrace/internal/patterns"
	"evotrace/internal/semver"
	"evotrace/internal/session"
	"evotrace/internal/store"
	"evotrace/internal/trends"
	"evotrace/internal/types"
)

// Persister is the durable backing for engine state. The engine loads once
// at construction and saves wholesale on Save/Close.
type Persister interface {
	SaveState(types.StateSnapshot) error
	LoadState() (types.StateSnapshot, error)
	Close() error
}

// Options configures a new Engine. Zero values take defaults.
type Options struct {
	Retention         int           // snapshot/version retention, default store.DefaultRetention
	PatternTableSize  int           // 0 = unbounded
	HeartbeatInterval time.Duration // session heartbeat, default session.DefaultHeartbeatInterval
	Persister         Persister     // nil = in-memory only
	SaveOnTrack       bool          // flush state through the persister after every TrackEvolution
}

// Engine is the facade over snapshot ingestion, diff classification,
// versioning, pattern learning, trend tracking, and session management.
// Safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	snapshots   *store.SnapshotLog
	versions    *store.VersionHistory
	learner     *patterns.Learner
	bugs        *patterns.BugTracker
	trends      *trends.Tracker
	sessions    *session.Tracker
	persist     Persister
	saveOnTrack bool

	now func() time.Time
}

// NewEngine builds an engine and, when a persister is configured, restores
// prior state from it.
func NewEngine(opts Options) (*Engine, error) {
	retention := opts.Retention
	if retention <= 0 {
		retention = store.DefaultRetention
	}
	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = session.DefaultHeartbeatInterval
	}

	learner := patterns.NewLearner()
	bugs := patterns.NewBugTracker()
	if opts.PatternTableSize > 0 {
		learner = patterns.NewBoundedLearner(opts.PatternTableSize)
		bugs = patterns.NewBoundedBugTracker(opts.PatternTableSize)
	}

	e := &Engine{
		snapshots:   store.NewSnapshotLog(retention),
		versions:    store.NewVersionHistory(retention),
		learner:     learner,
		bugs:        bugs,
		trends:      trends.NewTracker(),
		sessions:    session.NewTrackerWithInterval(interval),
		persist:     opts.Persister,
		saveOnTrack: opts.SaveOnTrack,
		now:         time.Now,
	}

	if e.persist != nil {
		state, err := e.persist.LoadState()
		if err != nil {
			return nil, fmt.Errorf("loading engine state: %w", err)
		}
		if err := e.restore(state); err != nil {
			return nil, err
		}
		logging.Engine("Restored state: %d snapshots, %d versions, %d patterns",
			len(state.Snapshots), len(state.Versions), len(state.DevPatterns))
	}

	logging.Boot("Evolution engine ready (retention=%d)", retention)
	return e, nil
}

func (e *Engine) restore(state types.StateSnapshot) error {
	if err := types.Migrate(&state); err != nil {
		return fmt.Errorf("migrating engine state: %w", err)
	}
	e.snapshots.Load(state.Snapshots)
	e.versions.Load(state.Versions, state.Current)
	e.learner.Load(state.DevPatterns)
	e.bugs.Load(state.BugPatterns)
	e.trends.Load(state.Quality, state.Complexity, state.Performance)
	e.sessions.LoadSummaries(state.SessionHistory)
	return nil
}

// TrackEvolution ingests one snapshot: classifies it against its predecessor,
// assigns a version, feeds the pattern learner and trend series, and returns
// the combined result. The snapshot is also attached to the active session,
// if any.
func (e *Engine) TrackEvolution(code, language string, ctx types.ConversationContext) (*types.EvolutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryEngine, "track_evolution")
	defer timer.StopWithThreshold(100 * time.Millisecond)

	now := e.now()
	lang := analyzer.NormalizeLanguage(language)
	snapshot := types.CodeSnapshot{
		ID:             uuid.NewString(),
		Code:           code,
		Language:       lang,
		Timestamp:      now,
		ConversationID: ctx.ConversationID,
		WorkspaceType:  ctx.WorkspaceType,
	}

	history := e.snapshots.Recent(lang, historyWindow)
	evo := Classify(snapshot, history)

	e.snapshots.Append(snapshot)
	e.sessions.AddSnapshot(snapshot)

	version := e.recordVersion(evo, now)

	touched := e.learner.LearnFromChanges(changeBatch(evo), now)
	if evo.HasChange(types.ChangeRefactoring) {
		touched = append(touched, e.learner.RecordRefactorPattern("function extraction", now))
	}

	e.trends.RecordQuality(qualityScore(evo), now)
	e.trends.RecordComplexity(evo.Complexity, lang, now)
	e.trends.RecordPerformance(performanceScore(snapshot.Code), now)

	result := &types.EvolutionResult{
		Snapshot:    snapshot,
		Evolution:   evo,
		Version:     version,
		Patterns:    touched,
		Suggestions: e.suggestionsLocked(evo),
	}

	if e.saveOnTrack && e.persist != nil {
		if err := e.persist.SaveState(e.stateLocked()); err != nil {
			// The in-memory track already happened; a failed flush must
			// not undo it.
			logging.Store("Save-on-track failed: %v", err)
		}
	}

	logging.Snapshot("Tracked %s snapshot %s: %s -> v%s",
		lang, snapshot.ID, evo.Type, version.String())
	return result, nil
}

// recordVersion derives the bump from the evolution, appends the version
// record, and returns the new current version. Caller holds e.mu.
func (e *Engine) recordVersion(evo types.CodeEvolution, now time.Time) types.SemanticVersion {
	bump := semver.BumpForEvolution(evo)
	analysis := semver.AnalyzeChanges(
		len(evo.Changes),
		evo.LinesAdded+evo.LinesRemoved,
		nil,
		evo.Changes,
		evo.Complexity*10,
	)
	next := semver.Bump(e.versions.Current(), bump)
	e.versions.Append(types.VersionRecord{
		Version:   next,
		Bump:      bump,
		Analysis:  analysis,
		CreatedAt: now,
	})
	logging.Semver("Bumped %s to %s (risk=%s)", bump, next.String(), analysis.RiskLevel)
	return next
}

// qualityScore derives a quality estimate from the evolution record. Low
// complexity reads as quality; a refactoring signal earns a small credit.
func qualityScore(evo types.CodeEvolution) float64 {
	score := 1.0 - 0.6*evo.Complexity
	if evo.HasChange(types.ChangeRefactoring) {
		score += 0.1
	}
	return types.ClampUnit(score)
}

// performanceScore estimates tooling responsiveness for a snapshot from its
// size. Large pastes slow every downstream pass.
func performanceScore(code string) float64 {
	const sizeCeiling = 50000.0
	return types.ClampUnit(1.0 - float64(len(code))/sizeCeiling)
}

// suggestionsLocked composes follow-up suggestions from the evolution record
// and current trend directions. Caller holds e.mu.
func (e *Engine) suggestionsLocked(evo types.CodeEvolution) []string {
	var out []string
	if evo.Complexity >= 0.7 {
		out = append(out, "Complexity is high; consider splitting before adding more")
	}
	if evo.Type == types.EvolutionExpansion && evo.FunctionsAdded == 0 && evo.LinesAdded > 30 {
		out = append(out, "Large addition without new functions; extract helpers")
	}
	if e.trends.ComplexityDirection() == types.TrendIncreasing {
		out = append(out, "Complexity trend is increasing across recent snapshots")
	}
	if e.trends.QualityDirection() == types.TrendDeclining {
		out = append(out, "Quality trend is declining; schedule a cleanup pass")
	}
	return out
}

// GetHistory returns up to limit snapshots for the language, oldest first.
// Empty language matches all languages.
func (e *Engine) GetHistory(language string, limit int) []types.CodeSnapshot {
	if language != "" {
		language = analyzer.NormalizeLanguage(language)
	}
	return e.snapshots.Recent(language, limit)
}

// CurrentVersion returns the highest version recorded so far.
func (e *Engine) CurrentVersion() types.SemanticVersion {
	return e.versions.Current()
}

// VersionHistory returns the retained version records, oldest first.
func (e *Engine) VersionHistory() []types.VersionRecord {
	return e.versions.Records()
}

// RecordBug feeds a bug observation into the bug pattern table, merging into
// an existing pattern when one is similar enough.
func (e *Engine) RecordBug(description, category, severity, rootCause, fix string) types.BugPattern {
	return e.bugs.Record(description, category, severity, rootCause, fix, e.now())
}

// PredictedIssues rebuilds the short-horizon issue forecast from the current
// bug pattern table.
func (e *Engine) PredictedIssues() []types.PredictedIssue {
	return trends.PredictIssues(e.bugs.Patterns(), e.now())
}

// FutureIssues rebuilds the long-horizon issue forecast.
func (e *Engine) FutureIssues() []types.FutureIssue {
	return trends.PredictFutureIssues(e.bugs.Patterns())
}

// Scores computes the aggregate health scores over the whole snapshot
// timeline.
func (e *Engine) Scores() trends.Scores {
	e.mu.Lock()
	defer e.mu.Unlock()
	var timeline time.Duration
	all := e.snapshots.All()
	if len(all) > 0 {
		timeline = e.now().Sub(all[0].Timestamp)
	}
	return e.trends.ComputeScores(e.bugs.Patterns(), len(all), timeline)
}

// AnalyzePatterns aggregates learned state over the trailing timeframe:
// language and hour-of-day distributions, average complexity, productivity,
// top patterns, and trend directions.
func (e *Engine) AnalyzePatterns(timeframe time.Duration) types.PatternAnalysis {
	e.mu.Lock()
	defer e.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryEngine, "analyze_patterns")
	defer timer.Stop()

	cutoff := e.now().Add(-timeframe)
	analysis := types.PatternAnalysis{
		Timeframe:            timeframe,
		LanguageDistribution: map[string]int{},
	}

	var complexitySum float64
	for _, s := range e.snapshots.All() {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		analysis.SnapshotCount++
		analysis.LanguageDistribution[s.Language]++
		analysis.HourlyDistribution[s.Timestamp.Hour()]++
		complexitySum += analyzer.Complexity(s.Code, s.Language)
	}
	if analysis.SnapshotCount > 0 {
		analysis.AverageComplexity = complexitySum / float64(analysis.SnapshotCount)
	}
	if days := timeframe.Hours() / 24; days > 0 {
		analysis.Productivity = float64(analysis.SnapshotCount) / days
	}

	analysis.TopPatterns = e.learner.TopPatterns(5)
	analysis.QualityTrend = e.trends.QualityDirection()
	analysis.ComplexityTrend = e.trends.ComplexityDirection()
	return analysis
}

// sessions

// StartSession opens a coding session; fails with session.ErrSessionActive
// if one is already running.
func (e *Engine) StartSession(language string, workspace types.WorkspaceType) (*types.CodingSession, error) {
	return e.sessions.Start(analyzer.NormalizeLanguage(language), workspace)
}

// EndSession closes the active session and returns its summary, or
// (nil, false) when no session is active.
func (e *Engine) EndSession() (*types.SessionSummary, bool) {
	return e.sessions.End()
}

// ActiveSession returns a copy of the live session, if one is running.
func (e *Engine) ActiveSession() (types.CodingSession, bool) {
	return e.sessions.Current()
}

// SessionHistory returns the summaries of ended sessions, oldest first.
func (e *Engine) SessionHistory() []types.SessionSummary {
	return e.sessions.Summaries()
}

// state persistence

// State assembles the full serializable engine state.
func (e *Engine) State() types.StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// stateLocked assembles the state snapshot. Caller holds e.mu.
func (e *Engine) stateLocked() types.StateSnapshot {
	return types.StateSnapshot{
		SchemaVersion:  types.StateSchemaVersion,
		Snapshots:      e.snapshots.All(),
		Versions:       e.versions.Records(),
		Current:        e.versions.Current(),
		DevPatterns:    e.learner.Patterns(),
		BugPatterns:    e.bugs.Patterns(),
		Quality:        e.trends.QualitySeries(),
		Complexity:     e.trends.ComplexitySeries(),
		Performance:    e.trends.PerformanceSeries(),
		SessionHistory: e.sessions.Summaries(),
	}
}

// Save writes the current state through the persister. No-op without one.
func (e *Engine) Save() error {
	if e.persist == nil {
		return nil
	}
	state := e.State()
	if err := e.persist.SaveState(state); err != nil {
		return fmt.Errorf("saving engine state: %w", err)
	}
	logging.Store("Saved state: %d snapshots, %d versions", len(state.Snapshots), len(state.Versions))
	return nil
}

// Close ends any active session, flushes state, and releases the persister.
func (e *Engine) Close() error {
	e.sessions.Close()
	if e.persist == nil {
		return nil
	}
	if err := e.Save(); err != nil {
		return err
	}
	return e.persist.Close()
}

// ExportYAML writes the versioned state snapshot as YAML.
func (e *Engine) ExportYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(e.State()); err != nil {
		return fmt.Errorf("encoding state export: %w", err)
	}
	return nil
}

// ImportYAML replaces engine state from a YAML export, migrating older
// schema versions forward.
func (e *Engine) ImportYAML(r io.Reader) error {
	var state types.StateSnapshot
	if err := yaml.NewDecoder(r).Decode(&state); err != nil {
		return fmt.Errorf("decoding state import: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restore(state)
}
