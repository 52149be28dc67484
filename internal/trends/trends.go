// Package trends maintains the rolling quality, complexity, and performance
// series and derives trend directions, predicted issues, and aggregate
// scores from them.
//
// Series are append-only and never retroactively edited. Direction uses a
// symmetric windowed comparison; aggregate scores are recomputed on every
// read so they always reflect current state without explicit invalidation.
package trends

import (
	"sync"
	"time"

	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// Direction margins per series.
const (
	qualityMargin     = 0.05
	performanceMargin = 0.1
	trendWindow       = 3
)

// Tracker owns the time series. Mutation is serialized behind the mutex;
// reads copy out.
type Tracker struct {
	mu          sync.RWMutex
	quality     []types.QualityTrend
	complexity  []types.ComplexityDataPoint
	performance []types.PerformanceSnapshot
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// =============================================================================
// SERIES APPENDS
// =============================================================================

// RecordQuality appends a quality point. Score is clamped at construction.
func (t *Tracker) RecordQuality(score float64, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quality = append(t.quality, types.QualityTrend{Timestamp: ts, Score: types.ClampUnit(score)})
	logging.TrendsDebug("Quality point recorded: score=%.3f n=%d", score, len(t.quality))
}

// RecordComplexity appends a complexity point. Clamped at construction.
func (t *Tracker) RecordComplexity(complexity float64, language string, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.complexity = append(t.complexity, types.ComplexityDataPoint{
		Timestamp:  ts,
		Complexity: types.ClampUnit(complexity),
		Language:   language,
	})
	logging.TrendsDebug("Complexity point recorded: value=%.3f n=%d", complexity, len(t.complexity))
}

// RecordPerformance appends a performance point. Clamped at construction.
func (t *Tracker) RecordPerformance(score float64, ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.performance = append(t.performance, types.PerformanceSnapshot{Timestamp: ts, Score: types.ClampUnit(score)})
	logging.TrendsDebug("Performance point recorded: score=%.3f n=%d", score, len(t.performance))
}

// =============================================================================
// DIRECTION
// =============================================================================

// windowedDelta returns recentAvg - olderAvg. The series is split at the
// midpoint; the earliest min(3, half) points form the older window and the
// latest min(3, half) points form the recent window. Requires >= 3 points.
//
// For [0.5, 0.5, 0.9] this yields older avg 0.5 (first point) and recent
// avg 0.7 (last two points), delta 0.2.
func windowedDelta(values []float64) (float64, bool) {
	n := len(values)
	if n < 3 {
		return 0, false
	}

	mid := n / 2
	olderW := mid
	if olderW > trendWindow {
		olderW = trendWindow
	}
	recentW := n - mid
	if recentW > trendWindow {
		recentW = trendWindow
	}

	var older, recent float64
	for i := 0; i < olderW; i++ {
		older += values[i]
	}
	for i := n - recentW; i < n; i++ {
		recent += values[i]
	}
	older /= float64(olderW)
	recent /= float64(recentW)
	return recent - older, true
}

// classify maps a delta and margin to improving/declining/stable.
func classify(delta, margin float64) types.TrendDirection {
	switch {
	case delta > margin:
		return types.TrendImproving
	case delta < -margin:
		return types.TrendDeclining
	default:
		return types.TrendStable
	}
}

// QualityDirection classifies the quality series (margin 0.05).
// Fewer than 3 points is stable by convention, not an error.
func (t *Tracker) QualityDirection() types.TrendDirection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	values := make([]float64, len(t.quality))
	for i, p := range t.quality {
		values[i] = p.Score
	}
	delta, ok := windowedDelta(values)
	if !ok {
		return types.TrendStable
	}
	return classify(delta, qualityMargin)
}

// ComplexityDirection classifies the complexity series. Complexity uses a
// plain greater-than comparison (no margin) and reads as
// increasing/decreasing rather than improving/declining.
func (t *Tracker) ComplexityDirection() types.TrendDirection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	values := make([]float64, len(t.complexity))
	for i, p := range t.complexity {
		values[i] = p.Complexity
	}
	delta, ok := windowedDelta(values)
	if !ok {
		return types.TrendStable
	}
	switch {
	case delta > 0:
		return types.TrendIncreasing
	case delta < 0:
		return types.TrendDecreasing
	default:
		return types.TrendStable
	}
}

// PerformanceDirection classifies the performance series (margin 0.1).
func (t *Tracker) PerformanceDirection() types.TrendDirection {
	t.mu.RLock()
	defer t.mu.RUnlock()

	values := make([]float64, len(t.performance))
	for i, p := range t.performance {
		values[i] = p.Score
	}
	delta, ok := windowedDelta(values)
	if !ok {
		return types.TrendStable
	}
	return classify(delta, performanceMargin)
}

// =============================================================================
// SERIES ACCESS
// =============================================================================

// QualitySeries returns a copy of the quality series.
func (t *Tracker) QualitySeries() []types.QualityTrend {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.QualityTrend, len(t.quality))
	copy(out, t.quality)
	return out
}

// ComplexitySeries returns a copy of the complexity series.
func (t *Tracker) ComplexitySeries() []types.ComplexityDataPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.ComplexityDataPoint, len(t.complexity))
	copy(out, t.complexity)
	return out
}

// PerformanceSeries returns a copy of the performance series.
func (t *Tracker) PerformanceSeries() []types.PerformanceSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.PerformanceSnapshot, len(t.performance))
	copy(out, t.performance)
	return out
}

// Load replaces all series from persisted state.
func (t *Tracker) Load(quality []types.QualityTrend, complexity []types.ComplexityDataPoint, performance []types.PerformanceSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.quality = append([]types.QualityTrend(nil), quality...)
	t.complexity = append([]types.ComplexityDataPoint(nil), complexity...)
	t.performance = append([]types.PerformanceSnapshot(nil), performance...)
	logging.TrendsDebug("Loaded series: quality=%d complexity=%d performance=%d",
		len(t.quality), len(t.complexity), len(t.performance))
}
