// Package analyzer implements the surface-heuristic code analyzer.
//
// Everything here is a pure function of (text, language): no AST, no parser,
// just token and substring counting against fixed per-language tables. That
// keeps the analyzer total over its input domain, deterministic, and safe to
// call from any goroutine without coordination.
package analyzer

import (
	"strings"
)

// =============================================================================
// PER-LANGUAGE TOKEN TABLES
// =============================================================================

// functionTokens maps a normalized language name to the substrings that
// indicate a function definition. Unknown languages fall into the "other"
// bucket, which has no function tokens but still counts the generic
// conditional and loop tokens below.
var functionTokens = map[string][]string{
	"go":         {"func "},
	"python":     {"def ", "lambda "},
	"javascript": {"function ", " => "},
	"typescript": {"function ", " => "},
	"swift":      {"func "},
	"kotlin":     {"fun "},
	"java":       {"void ", "public ", "private ", "protected "},
	"rust":       {"fn "},
	"ruby":       {"def "},
	"c":          {"void ", "int ", "char ", "float ", "double "},
	"cpp":        {"void ", "int ", "auto ", "template"},
}

// conditionalTokens are counted for every language, including "other".
var conditionalTokens = []string{"if ", "else", "switch", "case", "when", "guard "}

// loopTokens are counted for every language, including "other".
var loopTokens = []string{"for ", "while ", "repeat", "forEach", ".map(", ".filter("}

// languageAliases normalizes common spellings to table keys.
var languageAliases = map[string]string{
	"golang": "go",
	"js":     "javascript",
	"ts":     "typescript",
	"py":     "python",
	"c++":    "cpp",
	"rb":     "ruby",
	"rs":     "rust",
}

// NormalizeLanguage lowercases and resolves aliases; anything without a
// function-token table resolves to "other".
func NormalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if alias, ok := languageAliases[lang]; ok {
		lang = alias
	}
	if _, ok := functionTokens[lang]; !ok {
		return "other"
	}
	return lang
}

// =============================================================================
// COUNTS
// =============================================================================

// FunctionCount counts function-definition tokens for the language.
// The "other" bucket yields zero.
func FunctionCount(text, language string) int {
	tokens, ok := functionTokens[NormalizeLanguage(language)]
	if !ok {
		return 0
	}
	count := 0
	for _, token := range tokens {
		count += strings.Count(text, token)
	}
	return count
}

// ConditionalCount counts conditional tokens. Language-independent.
func ConditionalCount(text string) int {
	count := 0
	for _, token := range conditionalTokens {
		count += strings.Count(text, token)
	}
	return count
}

// LoopCount counts loop tokens. Language-independent.
func LoopCount(text string) int {
	count := 0
	for _, token := range loopTokens {
		count += strings.Count(text, token)
	}
	return count
}

// NonBlankLines counts lines that contain at least one non-whitespace rune.
func NonBlankLines(text string) int {
	if text == "" {
		return 0
	}
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}

// LineCount counts all lines, blank or not. Empty text is zero lines.
func LineCount(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

// =============================================================================
// COMPLEXITY
// =============================================================================

// Complexity scores text into [0,1]:
//
//	min(1.0, 0.01*nonBlankLines + 0.1*functions + 0.05*conditionals + 0.08*loops)
//
// The weights are fixed; the clamp happens here at construction, never at
// read time.
func Complexity(text, language string) float64 {
	score := 0.01*float64(NonBlankLines(text)) +
		0.1*float64(FunctionCount(text, language)) +
		0.05*float64(ConditionalCount(text)) +
		0.08*float64(LoopCount(text))
	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// MaxNestingDepth estimates block nesting from brace/indent structure.
// Used by the refactoring-opportunity scanner; still a surface heuristic.
func MaxNestingDepth(text string) int {
	depth, maxDepth := 0, 0
	for _, ch := range text {
		switch ch {
		case '{':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return maxDepth
}

// OpenBraceDelta returns opened-minus-closed braces; positive means the
// snippet is structurally unfinished.
func OpenBraceDelta(text string) int {
	return strings.Count(text, "{") - strings.Count(text, "}")
}
