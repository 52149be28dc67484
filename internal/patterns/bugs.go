package patterns

import (
	"strings"
	"time"

	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// =============================================================================
// BUG PATTERN TRACKING
// =============================================================================

// BugTracker owns the bug-pattern table. It reuses the same generic
// upsert-or-merge algorithm as the development-pattern learner, with a
// bug-specific similarity comparator.
type BugTracker struct {
	table *Table[types.BugPattern]
}

// bugPatternSimilar: similarity requires equal category AND overlap on the
// description or the root cause (case-insensitive containment either way).
func bugPatternSimilar(existing, candidate types.BugPattern) bool {
	if existing.Category != candidate.Category {
		return false
	}
	return textOverlap(existing.Description, candidate.Description) ||
		textOverlap(existing.RootCause, candidate.RootCause)
}

func textOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// bugPatternMerge increments occurrenceCount and refreshes lastSeen.
// FirstSeen never changes after the pattern is created.
func bugPatternMerge(existing *types.BugPattern, candidate types.BugPattern) {
	existing.OccurrenceCount += candidate.OccurrenceCount
	if candidate.LastSeen.After(existing.LastSeen) {
		existing.LastSeen = candidate.LastSeen
	}
}

// NewBugTracker creates an unbounded bug tracker.
func NewBugTracker() *BugTracker {
	logging.PatternsDebug("Creating bug-pattern tracker (unbounded)")
	return &BugTracker{table: NewTable(bugPatternSimilar, bugPatternMerge)}
}

// NewBoundedBugTracker caps the table with LRU eviction.
func NewBoundedBugTracker(maxEntries int) *BugTracker {
	logging.PatternsDebug("Creating bug-pattern tracker (cap=%d)", maxEntries)
	return &BugTracker{table: NewBoundedTable(bugPatternSimilar, bugPatternMerge, maxEntries,
		func(p types.BugPattern) time.Time { return p.LastSeen })}
}

// Record registers one bug occurrence, merging into a similar pattern or
// creating a new one. Returns the resulting table entry.
func (bt *BugTracker) Record(description, category, severity, rootCause, fix string, now time.Time) types.BugPattern {
	candidate := types.BugPattern{
		Description:     description,
		Category:        category,
		Severity:        severity,
		RootCause:       rootCause,
		Fix:             fix,
		OccurrenceCount: 1,
		FirstSeen:       now,
		LastSeen:        now,
	}

	entry, merged := bt.table.Upsert(candidate)
	if merged {
		logging.PatternsDebug("Bug pattern recurrence: category=%s count=%d", entry.Category, entry.OccurrenceCount)
	} else {
		logging.Patterns("New bug pattern: category=%s", entry.Category)
	}
	return entry
}

// Patterns returns a copy of all tracked bug patterns.
func (bt *BugTracker) Patterns() []types.BugPattern {
	return bt.table.All()
}

// Load replaces the table contents from persisted state.
func (bt *BugTracker) Load(patterns []types.BugPattern) {
	bt.table.Replace(patterns)
	logging.PatternsDebug("Loaded %d bug patterns", len(patterns))
}
