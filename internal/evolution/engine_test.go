package evolution

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"evotrace/internal/session"
	"evotrace/internal/store"
	"evotrace/internal/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(Options{HeartbeatInterval: time.Hour})
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func chatCtx() types.ConversationContext {
	return types.ConversationContext{
		ConversationID: "conv-1",
		WorkspaceType:  types.WorkspaceChat,
	}
}

func TestTrackEvolutionInitial(t *testing.T) {
	defer goleak.VerifyNone(t)
	e := newTestEngine(t)

	result, err := e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)

	assert.Equal(t, types.EvolutionInitial, result.Evolution.Type)
	assert.Equal(t, []types.ChangeKind{types.ChangeCreation}, result.Evolution.Changes)
	assert.Equal(t, "0.0.1", result.Version.String())
	assert.NotEmpty(t, result.Snapshot.ID)
	assert.Equal(t, "conv-1", result.Snapshot.ConversationID)
}

func TestTrackEvolutionExpansionScenario(t *testing.T) {
	defer goleak.VerifyNone(t)
	e := newTestEngine(t)

	_, err := e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)

	result, err := e.TrackEvolution(swiftCode(3, 30), "swift", chatCtx())
	require.NoError(t, err)

	assert.Equal(t, types.EvolutionExpansion, result.Evolution.Type)
	assert.Equal(t, 2, result.Evolution.FunctionsAdded)
	assert.Equal(t, 20, result.Evolution.LinesAdded)
	// Expansion earns a minor bump on top of the initial patch.
	assert.Equal(t, "0.1.0", result.Version.String())
}

func TestTrackEvolutionEmptyCode(t *testing.T) {
	e := newTestEngine(t)

	// Empty code is degenerate input, never an error: it resolves to the
	// well-defined defaults (initial type, zero counts).
	result, err := e.TrackEvolution("", "go", chatCtx())
	require.NoError(t, err)

	assert.Equal(t, types.EvolutionInitial, result.Evolution.Type)
	assert.Equal(t, 0, result.Evolution.LinesAdded)
	assert.Equal(t, 0.0, result.Evolution.Complexity)
}

func TestLanguagesTrackedSeparately(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.TrackEvolution("def f():\n    pass", "python", chatCtx())
	require.NoError(t, err)

	result, err := e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)

	assert.Equal(t, types.EvolutionInitial, result.Evolution.Type,
		"first swift snapshot must not diff against python history")
}

func TestLanguageAliasNormalized(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.TrackEvolution("package main\n\nfunc a() {}", "golang", chatCtx())
	require.NoError(t, err)

	result, err := e.TrackEvolution("package main\n\nfunc a() {}\nfunc b() {}", "go", chatCtx())
	require.NoError(t, err)

	assert.NotEqual(t, types.EvolutionInitial, result.Evolution.Type,
		"golang and go must share one history")
}

func TestGetHistory(t *testing.T) {
	e := newTestEngine(t)

	for i := 1; i <= 4; i++ {
		_, err := e.TrackEvolution(swiftCode(i, 10*i), "swift", chatCtx())
		require.NoError(t, err)
	}

	history := e.GetHistory("swift", 2)
	require.Len(t, history, 2)
	assert.Equal(t, swiftCode(4, 40), history[1].Code, "most recent last")

	assert.Len(t, e.GetHistory("", 10), 4, "empty language matches all")
	assert.Empty(t, e.GetHistory("rust", 10))
}

func TestAnalyzePatterns(t *testing.T) {
	e := newTestEngine(t)

	for i := 1; i <= 3; i++ {
		_, err := e.TrackEvolution(swiftCode(i, 10+i), "swift", chatCtx())
		require.NoError(t, err)
	}

	analysis := e.AnalyzePatterns(24 * time.Hour)

	assert.Equal(t, 3, analysis.SnapshotCount)
	assert.Equal(t, map[string]int{"swift": 3}, analysis.LanguageDistribution)
	assert.Equal(t, 3, analysis.HourlyDistribution[14])
	assert.InDelta(t, 3.0, analysis.Productivity, 0.001, "3 snapshots over 1 day")
	assert.Greater(t, analysis.AverageComplexity, 0.0)
}

func TestAnalyzePatternsExcludesOldSnapshots(t *testing.T) {
	e := newTestEngine(t)

	old := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return old }
	_, err := e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)

	recent := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return recent }
	_, err = e.TrackEvolution(swiftCode(2, 20), "swift", chatCtx())
	require.NoError(t, err)

	analysis := e.AnalyzePatterns(24 * time.Hour)
	assert.Equal(t, 1, analysis.SnapshotCount)
}

func TestRecordBugFeedsPredictions(t *testing.T) {
	e := newTestEngine(t)

	e.RecordBug("nil pointer dereference in handler", "runtime", "high", "missing nil check", "guard before use")
	e.RecordBug("nil pointer dereference in handler", "runtime", "high", "missing nil check", "guard before use")

	issues := e.PredictedIssues()
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Description, "nil pointer dereference")
	assert.InDelta(t, 0.4, issues[0].Probability, 0.001)

	assert.Empty(t, e.FutureIssues(), "future issues need more than two occurrences")
}

func TestScoresOverTimeline(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)

	scores := e.Scores()
	assert.GreaterOrEqual(t, scores.Health, 0.0)
	assert.LessOrEqual(t, scores.Health, 1.0)
	assert.GreaterOrEqual(t, scores.Maturity, 0.0)
}

func TestSessionDelegation(t *testing.T) {
	defer goleak.VerifyNone(t)
	e := newTestEngine(t)

	_, err := e.StartSession("swift", types.WorkspaceEditor)
	require.NoError(t, err)

	_, err = e.StartSession("swift", types.WorkspaceEditor)
	assert.ErrorIs(t, err, session.ErrSessionActive)

	_, err = e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)

	current, ok := e.ActiveSession()
	require.True(t, ok)
	assert.Len(t, current.Snapshots, 1, "tracked snapshot attaches to the session")

	summary, ok := e.EndSession()
	require.True(t, ok)
	assert.Equal(t, 1, summary.SnapshotCount)
	assert.Len(t, e.SessionHistory(), 1)
}

func TestYAMLExportImportRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)
	_, err = e.TrackEvolution(swiftCode(3, 30), "swift", chatCtx())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.ExportYAML(&buf))

	other := newTestEngine(t)
	require.NoError(t, other.ImportYAML(&buf))

	assert.Equal(t, e.CurrentVersion(), other.CurrentVersion())
	assert.Len(t, other.GetHistory("swift", 10), 2)
	assert.Len(t, other.VersionHistory(), 2)
}

func TestImportRejectsNewerSchema(t *testing.T) {
	e := newTestEngine(t)

	err := e.ImportYAML(bytes.NewBufferString("schema_version: 99\n"))
	assert.Error(t, err)
}

func TestPersistenceAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "evotrace.db")

	first, err := store.NewLocalStore(dbPath)
	require.NoError(t, err)
	e, err := NewEngine(Options{Persister: first, HeartbeatInterval: time.Hour})
	require.NoError(t, err)

	_, err = e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)
	_, err = e.TrackEvolution(swiftCode(3, 30), "swift", chatCtx())
	require.NoError(t, err)
	require.NoError(t, e.Close())

	second, err := store.NewLocalStore(dbPath)
	require.NoError(t, err)
	restored, err := NewEngine(Options{Persister: second, HeartbeatInterval: time.Hour})
	require.NoError(t, err)
	defer restored.Close()

	assert.Equal(t, "0.1.0", restored.CurrentVersion().String())
	assert.Len(t, restored.GetHistory("swift", 10), 2)
}

// captureStore records SaveState calls without touching disk.
type captureStore struct {
	saves int
	last  types.StateSnapshot
}

func (c *captureStore) SaveState(s types.StateSnapshot) error {
	c.saves++
	c.last = s
	return nil
}

func (c *captureStore) LoadState() (types.StateSnapshot, error) {
	return types.StateSnapshot{SchemaVersion: types.StateSchemaVersion}, nil
}

func (c *captureStore) Close() error { return nil }

func TestSaveOnTrackFlushesEachSnapshot(t *testing.T) {
	cs := &captureStore{}
	e, err := NewEngine(Options{Persister: cs, SaveOnTrack: true, HeartbeatInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	_, err = e.TrackEvolution(swiftCode(1, 10), "swift", chatCtx())
	require.NoError(t, err)
	_, err = e.TrackEvolution(swiftCode(3, 30), "swift", chatCtx())
	require.NoError(t, err)

	assert.Equal(t, 2, cs.saves)
	assert.Len(t, cs.last.Snapshots, 2)
	assert.Equal(t, "0.1.0", cs.last.Current.String())
}

func TestPredictNextSurfaceHeuristics(t *testing.T) {
	e := newTestEngine(t)

	pred := e.PredictNext(chatCtx(), "data, err := load()\nprocess(data)", "go")

	require.NotEmpty(t, pred.Suggestions)
	assert.Contains(t, pred.Suggestions[0], "error")
	assert.Greater(t, pred.Confidence, 0.0)
	assert.NotEmpty(t, pred.Reasoning)
}

func TestPredictNextOpenBraces(t *testing.T) {
	e := newTestEngine(t)

	pred := e.PredictNext(chatCtx(), "func handler() {\n\tif ready {\n", "go")

	found := false
	for _, s := range pred.Suggestions {
		if strings.Contains(s, "open block") {
			found = true
		}
	}
	assert.True(t, found, "suggestions = %v", pred.Suggestions)
}

func TestRefactoringOpportunitiesDeepNesting(t *testing.T) {
	e := newTestEngine(t)

	code := "func a() {\nif a {\nif b {\nif c {\nif d {\nx()\n}\n}\n}\n}\n}"
	ops := e.RefactoringOpportunities(code, "go")

	found := false
	for _, op := range ops {
		if op.Kind == "deep_nesting" {
			found = true
		}
	}
	assert.True(t, found, "opportunities = %+v", ops)
}

func TestRefactoringOpportunitiesDuplication(t *testing.T) {
	e := newTestEngine(t)

	line := "total = total + computeRow(row)"
	code := line + "\n" + line + "\n" + line
	ops := e.RefactoringOpportunities(code, "python")

	require.Len(t, ops, 1)
	assert.Equal(t, "duplication", ops[0].Kind)
	assert.Equal(t, 1, ops[0].Line)
}

func TestRefactorSignalLearnsPattern(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.TrackEvolution(swiftCode(1, 20), "swift", chatCtx())
	require.NoError(t, err)
	result, err := e.TrackEvolution(swiftCode(2, 20), "swift", chatCtx())
	require.NoError(t, err)

	require.Equal(t, types.EvolutionExpansion, result.Evolution.Type)
	require.True(t, result.Evolution.HasChange(types.ChangeRefactoring))
	found := false
	for _, p := range result.Patterns {
		if strings.Contains(p.Name, "function extraction") {
			found = true
		}
	}
	assert.True(t, found, "patterns = %+v", result.Patterns)
}
