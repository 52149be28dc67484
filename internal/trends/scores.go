package trends

import (
	"time"

	"evotrace/internal/types"
)

// =============================================================================
// AGGREGATE SCORES
// =============================================================================
// Health, technical debt, maturity, and velocity are pure weighted
// combinations of current state. They are recomputed on read, not cached.

// Scores is a read-side aggregate over the tracker and pattern tables.
type Scores struct {
	Health        float64 `json:"health"`         // [0,1]
	TechnicalDebt float64 `json:"technical_debt"` // [0,1], higher is worse
	Maturity      float64 `json:"maturity"`       // [0,1]
	Velocity      float64 `json:"velocity"`       // [0,1]
}

func seriesAvg(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ComputeScores derives the aggregate scores from the tracker series and the
// current bug-pattern table.
func (t *Tracker) ComputeScores(bugPatterns []types.BugPattern, snapshotCount int, timeline time.Duration) Scores {
	t.mu.RLock()
	quality := make([]float64, len(t.quality))
	for i, p := range t.quality {
		quality[i] = p.Score
	}
	complexity := make([]float64, len(t.complexity))
	for i, p := range t.complexity {
		complexity[i] = p.Complexity
	}
	performance := make([]float64, len(t.performance))
	for i, p := range t.performance {
		performance[i] = p.Score
	}
	t.mu.RUnlock()

	avgQuality := seriesAvg(quality)
	avgComplexity := seriesAvg(complexity)
	avgPerformance := seriesAvg(performance)

	// Open bug mass: recurring patterns weigh more.
	var bugMass float64
	for _, bp := range bugPatterns {
		bugMass += float64(bp.OccurrenceCount)
	}
	bugPressure := types.ClampUnit(bugMass / 20.0)

	health := types.ClampUnit(0.4*avgQuality + 0.3*avgPerformance + 0.3*(1.0-bugPressure))
	debt := types.ClampUnit(0.5*avgComplexity + 0.5*bugPressure)

	// Maturity grows with accumulated history.
	maturity := types.ClampUnit(float64(snapshotCount) / 50.0)

	// Velocity: snapshots per day normalized against a 10/day ceiling.
	velocity := 0.0
	if timeline > 0 {
		perDay := float64(snapshotCount) / (timeline.Hours() / 24.0)
		velocity = types.ClampUnit(perDay / 10.0)
	}

	return Scores{
		Health:        health,
		TechnicalDebt: debt,
		Maturity:      maturity,
		Velocity:      velocity,
	}
}
