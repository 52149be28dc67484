package evolution

import (
	"fmt"
	"strings"

	"evotrace/internal/analyzer"
	"evotrace/internal/types"
)

// PredictNext inspects a partial snippet with surface heuristics and the
// learned pattern table and suggests likely next steps. Purely advisory.
func (e *Engine) PredictNext(ctx types.ConversationContext, partialCode, language string) types.Prediction {
	lang := analyzer.NormalizeLanguage(language)
	suggestions := snippetSuggestions(partialCode, lang)
	top := e.learner.TopPatterns(3)

	for _, p := range top {
		if p.Frequency > 2 {
			suggestions = append(suggestions, fmt.Sprintf("Recurring habit: %s (seen %d times)", p.Name, p.Frequency))
		}
	}

	confidence := types.ClampUnit(0.2 + 0.1*float64(len(suggestions)) + 0.05*float64(len(top)))
	reasoning := fmt.Sprintf("%d surface signals in a %s snippet, %d learned patterns consulted",
		len(suggestions), lang, len(top))

	return types.Prediction{
		Suggestions: suggestions,
		Confidence:  confidence,
		Patterns:    top,
		Reasoning:   reasoning,
	}
}

// snippetSuggestions runs the surface heuristics over a partial snippet.
func snippetSuggestions(code, language string) []string {
	var out []string

	if delta := analyzer.OpenBraceDelta(code); delta > 0 {
		out = append(out, fmt.Sprintf("Close %d open block(s)", delta))
	}
	if strings.Contains(code, "TODO") || strings.Contains(code, "FIXME") {
		out = append(out, "Resolve TODO/FIXME markers before moving on")
	}
	if language == "go" && strings.Contains(code, "err :=") && !strings.Contains(code, "if err != nil") {
		out = append(out, "Handle the returned error")
	}
	if analyzer.FunctionCount(code, language) == 0 && analyzer.NonBlankLines(code) > 5 {
		out = append(out, "Wrap the snippet in a function")
	}
	if analyzer.Complexity(code, language) >= 0.7 {
		out = append(out, "Split the snippet before growing it further")
	}
	return out
}
