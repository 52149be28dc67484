package patterns

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// =============================================================================
// DEVELOPMENT PATTERN LEARNING
// =============================================================================

// Confidence assigned to newly observed patterns by origin.
const (
	bulkPatternConfidence     = 0.7
	refactorPatternConfidence = 0.8
)

// bulkChangeThreshold: more than this many changes of one kind in a batch
// synthesizes a bulk-change pattern candidate.
const bulkChangeThreshold = 1

// Learner owns the development-pattern table.
type Learner struct {
	table *Table[types.DevelopmentPattern]
}

// devPatternSimilar: two patterns are mergeable iff one name contains the
// other, case-insensitively.
func devPatternSimilar(existing, candidate types.DevelopmentPattern) bool {
	a := strings.ToLower(existing.Name)
	b := strings.ToLower(candidate.Name)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// devPatternMerge increments frequency and refreshes lastOccurrence.
// No other field changes on merge.
func devPatternMerge(existing *types.DevelopmentPattern, candidate types.DevelopmentPattern) {
	existing.Frequency += candidate.Frequency
	if candidate.LastOccurrence.After(existing.LastOccurrence) {
		existing.LastOccurrence = candidate.LastOccurrence
	}
}

// NewLearner creates a learner with an unbounded table.
func NewLearner() *Learner {
	logging.PatternsDebug("Creating development-pattern learner (unbounded)")
	return &Learner{table: NewTable(devPatternSimilar, devPatternMerge)}
}

// NewBoundedLearner caps the table with LRU eviction, opt-in via config.
func NewBoundedLearner(maxEntries int) *Learner {
	logging.PatternsDebug("Creating development-pattern learner (cap=%d)", maxEntries)
	return &Learner{table: NewBoundedTable(devPatternSimilar, devPatternMerge, maxEntries,
		func(p types.DevelopmentPattern) time.Time { return p.LastOccurrence })}
}

// LearnFromChanges groups a batch of change kinds and synthesizes a
// bulk-change pattern candidate for any kind occurring more than once.
// Returns the patterns that were touched (merged or inserted) this batch.
func (l *Learner) LearnFromChanges(changes []types.ChangeKind, now time.Time) []types.DevelopmentPattern {
	counts := make(map[types.ChangeKind]int)
	for _, c := range changes {
		counts[c]++
	}

	var touched []types.DevelopmentPattern
	for kind, n := range counts {
		if n <= bulkChangeThreshold {
			continue
		}

		candidate := types.DevelopmentPattern{
			ID:             uuid.NewString(),
			Name:           fmt.Sprintf("bulk %s", kind),
			Description:    fmt.Sprintf("Repeated %s changes applied in a single pass (%d in batch)", kind, n),
			Frequency:      1,
			Confidence:     types.ClampUnit(bulkPatternConfidence),
			Impact:         "medium",
			LastOccurrence: now,
		}

		entry, merged := l.table.Upsert(candidate)
		if merged {
			logging.PatternsDebug("Merged bulk pattern %q (frequency=%d)", entry.Name, entry.Frequency)
		} else {
			logging.Patterns("New bulk pattern learned: %q", entry.Name)
		}
		touched = append(touched, entry)
	}

	return touched
}

// RecordRefactorPattern learns a refactor-reason pattern (confidence 0.8).
func (l *Learner) RecordRefactorPattern(reason string, now time.Time) types.DevelopmentPattern {
	candidate := types.DevelopmentPattern{
		ID:             uuid.NewString(),
		Name:           reason,
		Description:    fmt.Sprintf("Refactoring driven by: %s", reason),
		Frequency:      1,
		Confidence:     types.ClampUnit(refactorPatternConfidence),
		Impact:         "high",
		LastOccurrence: now,
	}

	entry, merged := l.table.Upsert(candidate)
	if merged {
		logging.PatternsDebug("Merged refactor pattern %q (frequency=%d)", entry.Name, entry.Frequency)
	} else {
		logging.Patterns("New refactor pattern learned: %q", entry.Name)
	}
	return entry
}

// Patterns returns a copy of all learned development patterns.
func (l *Learner) Patterns() []types.DevelopmentPattern {
	return l.table.All()
}

// TopPatterns returns up to n patterns ordered by frequency descending.
func (l *Learner) TopPatterns(n int) []types.DevelopmentPattern {
	all := l.table.All()
	// Insertion sort; tables are small.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].Frequency > all[j-1].Frequency; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Load replaces the table contents from persisted state.
func (l *Learner) Load(patterns []types.DevelopmentPattern) {
	l.table.Replace(patterns)
	logging.PatternsDebug("Loaded %d development patterns", len(patterns))
}
