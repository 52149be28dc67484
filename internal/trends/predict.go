package trends

import (
	"fmt"
	"time"

	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// =============================================================================
// ISSUE PREDICTION
// =============================================================================
// Predicted and future issue lists are rebuilt wholesale from the current
// bug-pattern table on every pass. Incremental patching would be a behavior
// change: a pattern dropping below threshold must make its prediction vanish
// on the next pass.

// Prediction thresholds and scaling.
const (
	predictedIssueMinOccurrences = 1 // strictly greater
	futureIssueMinOccurrences    = 2 // strictly greater
	predictedProbabilityCap      = 0.8
	predictedProbabilityScale    = 5.0
	futureProbabilityScale       = 10.0
)

// timelineFor buckets a prediction horizon by how recently the pattern has
// been seen.
func timelineFor(lastSeen, now time.Time) string {
	age := now.Sub(lastSeen)
	switch {
	case age < 7*24*time.Hour:
		return "3 days"
	case age < 30*24*time.Hour:
		return "2 weeks"
	default:
		return "1 month"
	}
}

// PredictIssues rebuilds the predicted-issue list from the bug-pattern table.
// Every pattern with occurrenceCount > 1 yields one issue with
// probability = min(0.8, occurrences/5).
func PredictIssues(bugPatterns []types.BugPattern, now time.Time) []types.PredictedIssue {
	issues := make([]types.PredictedIssue, 0)
	for _, bp := range bugPatterns {
		if bp.OccurrenceCount <= predictedIssueMinOccurrences {
			continue
		}

		probability := float64(bp.OccurrenceCount) / predictedProbabilityScale
		if probability > predictedProbabilityCap {
			probability = predictedProbabilityCap
		}

		issues = append(issues, types.PredictedIssue{
			Description: fmt.Sprintf("Recurrence of: %s", bp.Description),
			Category:    bp.Category,
			Probability: types.ClampUnit(probability),
			Timeline:    timelineFor(bp.LastSeen, now),
			Prevention:  bp.Fix,
		})
	}

	logging.TrendsDebug("Predicted issues rebuilt: %d from %d bug patterns", len(issues), len(bugPatterns))
	return issues
}

// PredictFutureIssues rebuilds the longer-horizon list. Every pattern with
// occurrenceCount > 2 yields one issue with probability = min(0.8, occ/10).
func PredictFutureIssues(bugPatterns []types.BugPattern) []types.FutureIssue {
	issues := make([]types.FutureIssue, 0)
	for _, bp := range bugPatterns {
		if bp.OccurrenceCount <= futureIssueMinOccurrences {
			continue
		}

		probability := float64(bp.OccurrenceCount) / futureProbabilityScale
		if probability > predictedProbabilityCap {
			probability = predictedProbabilityCap
		}

		issues = append(issues, types.FutureIssue{
			Description: fmt.Sprintf("Chronic pattern: %s", bp.Description),
			Category:    bp.Category,
			Probability: types.ClampUnit(probability),
			Mitigation:  bp.Fix,
		})
	}

	logging.TrendsDebug("Future issues rebuilt: %d from %d bug patterns", len(issues), len(bugPatterns))
	return issues
}
