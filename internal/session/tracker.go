// Package session implements the coding-session state machine:
// NotStarted -> Active -> Ended. At most one session is active at a time;
// the heartbeat is a cancellable periodic timer whose shutdown is guaranteed
// when the session ends or the tracker is torn down.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"evotrace/internal/analyzer"
	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// ErrSessionActive is returned when Start is called while a session is
// already active. The tracker never silently discards the prior session.
var ErrSessionActive = errors.New("a coding session is already active")

// DefaultHeartbeatInterval is how often lastActivity is refreshed while active.
const DefaultHeartbeatInterval = 60 * time.Second

// Tracker owns the session state machine. All mutation is serialized behind
// the mutex.
type Tracker struct {
	mu        sync.Mutex
	state     types.SessionState
	current   *types.CodingSession
	interval  time.Duration
	stopBeat  chan struct{}
	beatDone  chan struct{}
	summaries []types.SessionSummary

	// now is swappable for tests.
	now func() time.Time
}

// NewTracker creates a tracker with the default heartbeat interval.
func NewTracker() *Tracker {
	return NewTrackerWithInterval(DefaultHeartbeatInterval)
}

// NewTrackerWithInterval creates a tracker with a custom heartbeat interval.
func NewTrackerWithInterval(interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Tracker{
		state:    types.SessionNotStarted,
		interval: interval,
		now:      time.Now,
	}
}

// State returns the current state machine position.
func (t *Tracker) State() types.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start begins a new coding session. Returns ErrSessionActive if one is
// already running.
func (t *Tracker) Start(language string, workspace types.WorkspaceType) (*types.CodingSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == types.SessionActive {
		logging.Session("Start rejected: session %s still active", t.current.ID)
		return nil, ErrSessionActive
	}

	now := t.now()
	t.current = &types.CodingSession{
		ID:            uuid.NewString(),
		Language:      language,
		WorkspaceType: workspace,
		StartTime:     now,
		LastActivity:  now,
	}
	t.state = types.SessionActive

	t.stopBeat = make(chan struct{})
	t.beatDone = make(chan struct{})
	go t.heartbeat(t.stopBeat, t.beatDone)

	logging.Session("Session started: id=%s language=%s workspace=%s", t.current.ID, language, workspace)
	return t.current, nil
}

// heartbeat refreshes lastActivity on a fixed interval while active.
// It performs no analysis.
func (t *Tracker) heartbeat(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.state == types.SessionActive && t.current != nil {
				t.current.LastActivity = t.now()
				logging.SessionDebug("Heartbeat: session=%s", t.current.ID)
			}
			t.mu.Unlock()
		}
	}
}

// AddSnapshot appends a snapshot to the active session and refreshes
// lastActivity. A no-op when no session is active.
func (t *Tracker) AddSnapshot(snapshot types.CodeSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != types.SessionActive || t.current == nil {
		return
	}
	t.current.Snapshots = append(t.current.Snapshots, snapshot)
	t.current.LastActivity = t.now()
	logging.SessionDebug("Snapshot added to session %s (total=%d)", t.current.ID, len(t.current.Snapshots))
}

// End stops the heartbeat, computes the summary, and discards the live
// session state. Returns (nil, false) when no session is active; that is
// not an error.
func (t *Tracker) End() (*types.SessionSummary, bool) {
	t.mu.Lock()

	if t.state != types.SessionActive || t.current == nil {
		t.mu.Unlock()
		return nil, false
	}

	stop, done := t.stopBeat, t.beatDone
	t.stopBeat, t.beatDone = nil, nil

	current := t.current
	now := t.now()

	linesWritten := 0
	var complexitySum float64
	for _, s := range current.Snapshots {
		linesWritten += analyzer.LineCount(s.Code)
		complexitySum += analyzer.Complexity(s.Code, s.Language)
	}
	avgComplexity := 0.0
	if len(current.Snapshots) > 0 {
		avgComplexity = complexitySum / float64(len(current.Snapshots))
	}

	summary := types.SessionSummary{
		SessionID:         current.ID,
		Language:          current.Language,
		WorkspaceType:     current.WorkspaceType,
		StartTime:         current.StartTime,
		EndTime:           now,
		Duration:          now.Sub(current.StartTime),
		SnapshotCount:     len(current.Snapshots),
		LinesWritten:      linesWritten,
		AverageComplexity: types.ClampUnit(avgComplexity),
	}

	t.current = nil
	t.state = types.SessionEnded
	t.summaries = append(t.summaries, summary)
	t.mu.Unlock()

	// Stop the heartbeat outside the lock and wait for it to exit so no
	// ticker goroutine outlives the session.
	close(stop)
	<-done

	logging.Session("Session ended: id=%s duration=%v snapshots=%d lines=%d",
		summary.SessionID, summary.Duration, summary.SnapshotCount, summary.LinesWritten)
	return &summary, true
}

// Close tears the tracker down, ending any active session.
func (t *Tracker) Close() {
	t.End()
}

// Current returns a copy of the active session, if any.
func (t *Tracker) Current() (types.CodingSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != types.SessionActive || t.current == nil {
		return types.CodingSession{}, false
	}
	out := *t.current
	out.Snapshots = append([]types.CodeSnapshot(nil), t.current.Snapshots...)
	return out, true
}

// Summaries returns the retained summaries of all ended sessions.
func (t *Tracker) Summaries() []types.SessionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]types.SessionSummary, len(t.summaries))
	copy(out, t.summaries)
	return out
}

// LoadSummaries replaces the summary history from persisted state.
func (t *Tracker) LoadSummaries(summaries []types.SessionSummary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summaries = append([]types.SessionSummary(nil), summaries...)
}
