// Package patterns implements the pattern learning table: fuzzy-merged,
// frequency-weighted accumulators for development patterns and bug patterns.
//
// Development patterns and bug patterns share one merge algorithm. The
// similarity comparator and the merge action are injected into a generic
// table, so the fuzzy "contains" logic is written and tested once.
package patterns

import (
	"sync"
	"time"
)

// =============================================================================
// GENERIC UPSERT-OR-MERGE TABLE
// =============================================================================

// Similarity decides whether a candidate should merge into an existing entry.
type Similarity[T any] func(existing, candidate T) bool

// MergeFunc folds a candidate occurrence into an existing entry in place.
type MergeFunc[T any] func(existing *T, candidate T)

// TouchedAt reports when an entry last occurred; used only when an LRU cap
// is configured.
type TouchedAt[T any] func(entry T) time.Time

// Table is a linear-scan upsert-or-merge table. Scans are O(table size) per
// call, acceptable because tables stay small relative to history retention.
// All mutation is serialized behind the mutex.
type Table[T any] struct {
	mu      sync.RWMutex
	entries []T
	similar Similarity[T]
	merge   MergeFunc[T]

	// maxEntries caps the table with least-recently-occurred eviction.
	// Zero means unbounded; long-running processes can opt into a cap
	// through config.
	maxEntries int
	touchedAt  TouchedAt[T]
}

// NewTable creates an unbounded table with the given comparator and merge.
func NewTable[T any](similar Similarity[T], merge MergeFunc[T]) *Table[T] {
	return &Table[T]{similar: similar, merge: merge}
}

// NewBoundedTable creates a table capped at maxEntries, evicting the entry
// with the oldest touchedAt when full.
func NewBoundedTable[T any](similar Similarity[T], merge MergeFunc[T], maxEntries int, touchedAt TouchedAt[T]) *Table[T] {
	return &Table[T]{
		similar:    similar,
		merge:      merge,
		maxEntries: maxEntries,
		touchedAt:  touchedAt,
	}
}

// Upsert merges the candidate into the first similar entry, or inserts it as
// a new entry. Returns the resulting entry value and whether a merge happened.
func (t *Table[T]) Upsert(candidate T) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.similar(t.entries[i], candidate) {
			t.merge(&t.entries[i], candidate)
			return t.entries[i], true
		}
	}

	if t.maxEntries > 0 && len(t.entries) >= t.maxEntries && t.touchedAt != nil {
		t.evictOldestLocked()
	}

	t.entries = append(t.entries, candidate)
	return candidate, false
}

// evictOldestLocked drops the least-recently-occurred entry. Caller holds the lock.
func (t *Table[T]) evictOldestLocked() {
	if len(t.entries) == 0 {
		return
	}
	oldest := 0
	oldestTime := t.touchedAt(t.entries[0])
	for i := 1; i < len(t.entries); i++ {
		if ts := t.touchedAt(t.entries[i]); ts.Before(oldestTime) {
			oldest = i
			oldestTime = ts
		}
	}
	t.entries = append(t.entries[:oldest], t.entries[oldest+1:]...)
}

// All returns a copy of the table contents.
func (t *Table[T]) All() []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Replace swaps the table contents wholesale (used when loading persisted state).
func (t *Table[T]) Replace(entries []T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make([]T, len(entries))
	copy(t.entries, entries)
}
