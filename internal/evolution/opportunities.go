package evolution

import (
	"fmt"
	"strings"

	"evotrace/internal/analyzer"
	"evotrace/internal/types"
)

const (
	longUnitLines     = 60
	deepNestingLevel  = 4
	duplicateMinLen   = 12
	duplicateMinCount = 3
	highComplexity    = 0.7
)

// RefactoringOpportunities flags surface-level refactoring candidates in a
// code snippet: long units, deep nesting, duplicated lines, and overall
// complexity. Token heuristics only, no parsing.
func (e *Engine) RefactoringOpportunities(code, language string) []types.RefactoringOpportunity {
	lang := analyzer.NormalizeLanguage(language)
	var out []types.RefactoringOpportunity

	if lines := analyzer.NonBlankLines(code); lines > longUnitLines {
		out = append(out, types.RefactoringOpportunity{
			Kind:        "long_unit",
			Description: fmt.Sprintf("%d non-blank lines in one unit; extract smaller pieces", lines),
			Severity:    "medium",
		})
	}

	if depth := analyzer.MaxNestingDepth(code); depth > deepNestingLevel {
		severity := "medium"
		if depth > deepNestingLevel+2 {
			severity = "high"
		}
		out = append(out, types.RefactoringOpportunity{
			Kind:        "deep_nesting",
			Description: fmt.Sprintf("Nesting reaches depth %d; flatten with early returns", depth),
			Severity:    severity,
		})
	}

	out = append(out, duplicateLineOpportunities(code)...)

	if c := analyzer.Complexity(code, lang); c >= highComplexity {
		out = append(out, types.RefactoringOpportunity{
			Kind:        "high_complexity",
			Description: fmt.Sprintf("Complexity score %.2f; split into smaller functions", c),
			Severity:    "high",
		})
	}
	return out
}

// duplicateLineOpportunities reports lines repeated often enough to suggest
// extraction. Short lines (braces, returns) are ignored.
func duplicateLineOpportunities(code string) []types.RefactoringOpportunity {
	counts := map[string]int{}
	firstLine := map[string]int{}
	for i, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < duplicateMinLen {
			continue
		}
		counts[trimmed]++
		if counts[trimmed] == 1 {
			firstLine[trimmed] = i + 1
		}
	}

	var out []types.RefactoringOpportunity
	for line, n := range counts {
		if n < duplicateMinCount {
			continue
		}
		out = append(out, types.RefactoringOpportunity{
			Kind:        "duplication",
			Description: fmt.Sprintf("Line repeated %d times: %q", n, line),
			Severity:    "low",
			Line:        firstLine[line],
		})
	}
	return out
}
