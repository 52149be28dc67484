// Package store provides snapshot/version retention and SQLite persistence
// for the evolution engine. The in-memory structures are the engine's working
// state; the SQLite LocalStore is the load-on-init / save-on-shutdown
// collaborator.
package store

import (
	"sync"

	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// DefaultRetention is the default bound on retained snapshots and versions.
const DefaultRetention = 100

// =============================================================================
// SNAPSHOT LOG
// =============================================================================

// SnapshotLog is an append-only bounded log of code snapshots. When the
// retention bound is exceeded the oldest entries are evicted FIFO.
type SnapshotLog struct {
	mu        sync.RWMutex
	snapshots []types.CodeSnapshot
	retention int
}

// NewSnapshotLog creates a log bounded at retention entries (<=0 uses the default).
func NewSnapshotLog(retention int) *SnapshotLog {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &SnapshotLog{retention: retention}
}

// Append adds a snapshot, evicting the oldest entries beyond retention.
func (l *SnapshotLog) Append(snapshot types.CodeSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.snapshots = append(l.snapshots, snapshot)
	if over := len(l.snapshots) - l.retention; over > 0 {
		l.snapshots = append([]types.CodeSnapshot(nil), l.snapshots[over:]...)
		logging.SnapshotDebug("Evicted %d snapshots (retention=%d)", over, l.retention)
	}
	logging.SnapshotDebug("Snapshot appended: id=%s language=%s total=%d",
		snapshot.ID, snapshot.Language, len(l.snapshots))
}

// Recent returns up to limit of the most recent snapshots, optionally
// filtered by language (empty string means all), ordered oldest to newest.
func (l *SnapshotLog) Recent(language string, limit int) []types.CodeSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []types.CodeSnapshot
	for _, s := range l.snapshots {
		if language == "" || s.Language == language {
			matched = append(matched, s)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	out := make([]types.CodeSnapshot, len(matched))
	copy(out, matched)
	return out
}

// Latest returns the most recent snapshot for a language, if any.
func (l *SnapshotLog) Latest(language string) (types.CodeSnapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.snapshots) - 1; i >= 0; i-- {
		if l.snapshots[i].Language == language {
			return l.snapshots[i], true
		}
	}
	return types.CodeSnapshot{}, false
}

// All returns a copy of the full log, oldest first.
func (l *SnapshotLog) All() []types.CodeSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.CodeSnapshot, len(l.snapshots))
	copy(out, l.snapshots)
	return out
}

// Len returns the number of retained snapshots.
func (l *SnapshotLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.snapshots)
}

// Load replaces the log from persisted state, honoring retention.
func (l *SnapshotLog) Load(snapshots []types.CodeSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if over := len(snapshots) - l.retention; over > 0 {
		snapshots = snapshots[over:]
	}
	l.snapshots = append([]types.CodeSnapshot(nil), snapshots...)
	logging.SnapshotDebug("Loaded %d snapshots", len(l.snapshots))
}

// =============================================================================
// VERSION HISTORY
// =============================================================================

// VersionHistory is the strictly append-only version log. currentVersion
// only ever increases.
type VersionHistory struct {
	mu        sync.RWMutex
	records   []types.VersionRecord
	current   types.SemanticVersion
	retention int
}

// NewVersionHistory creates a history bounded at retention records.
func NewVersionHistory(retention int) *VersionHistory {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &VersionHistory{retention: retention}
}

// Current returns the current version.
func (h *VersionHistory) Current() types.SemanticVersion {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Append records a new version. Versions that would move currentVersion
// backwards are still recorded in the log but do not lower currentVersion;
// in practice bumps are monotone so this is a safety net for loaded state.
func (h *VersionHistory) Append(record types.VersionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, record)
	if over := len(h.records) - h.retention; over > 0 {
		h.records = append([]types.VersionRecord(nil), h.records[over:]...)
	}
	if record.Version.Compare(h.current) > 0 {
		h.current = record.Version
	}
	logging.SemverDebug("Version recorded: %s (history=%d)", record.Version.String(), len(h.records))
}

// Records returns a copy of the history, oldest first.
func (h *VersionHistory) Records() []types.VersionRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.VersionRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of retained records.
func (h *VersionHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Load replaces the history from persisted state.
func (h *VersionHistory) Load(records []types.VersionRecord, current types.SemanticVersion) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if over := len(records) - h.retention; over > 0 {
		records = records[over:]
	}
	h.records = append([]types.VersionRecord(nil), records...)
	h.current = current
	for _, r := range h.records {
		if r.Version.Compare(h.current) > 0 {
			h.current = r.Version
		}
	}
	logging.SemverDebug("Loaded %d version records, current=%s", len(h.records), h.current.String())
}
