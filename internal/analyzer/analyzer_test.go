package analyzer

import (
	"strings"
	"testing"
)

func TestComplexityBounds(t *testing.T) {
	texts := []string{
		"",
		"x",
		"func a() {}\nfunc b() {}\n",
		strings.Repeat("func x() { if a { for i := range b { } } }\n", 500),
	}

	for _, text := range texts {
		got := Complexity(text, "go")
		if got < 0 || got > 1 {
			t.Errorf("Complexity out of [0,1]: %v for %d-byte input", got, len(text))
		}
	}
}

func TestComplexityEmpty(t *testing.T) {
	if got := Complexity("", "go"); got != 0 {
		t.Errorf("Complexity(\"\") = %v, want 0", got)
	}
}

func TestComplexityFormula(t *testing.T) {
	// 2 non-blank lines, 1 function, 1 conditional ("if "), 0 loops:
	// 0.01*2 + 0.1*1 + 0.05*1 = 0.17
	text := "func a() {\nif x {}"
	got := Complexity(text, "go")
	want := 0.17
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Complexity = %v, want %v", got, want)
	}
}

func TestFunctionCount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		language string
		want     int
	}{
		{"go funcs", "func a() {}\nfunc b() {}", "go", 2},
		{"python defs", "def a():\n    pass\ndef b():\n    pass", "python", 2},
		{"js arrow and function", "function a() {}\nconst b = (x) => x", "javascript", 2},
		{"swift funcs", "func render() {}\n", "swift", 1},
		{"unknown language", "func a() {}\nfunction b() {}", "cobol", 0},
		{"alias golang", "func a() {}", "golang", 1},
		{"empty", "", "go", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FunctionCount(tt.text, tt.language); got != tt.want {
				t.Errorf("FunctionCount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnknownLanguageStillCountsGenerics(t *testing.T) {
	text := "if x then\nwhile y do\nend"
	if got := FunctionCount(text, "lua"); got != 0 {
		t.Errorf("FunctionCount for unknown language = %d, want 0", got)
	}
	if got := ConditionalCount(text); got == 0 {
		t.Error("ConditionalCount should count generic tokens regardless of language")
	}
	if got := LoopCount(text); got == 0 {
		t.Error("LoopCount should count generic tokens regardless of language")
	}
}

func TestConditionalCount(t *testing.T) {
	text := "if a {\n} else {\nswitch b {\ncase 1:\n}"
	// "if " x1, "else" x1, "switch" x1, "case" x1
	if got := ConditionalCount(text); got != 4 {
		t.Errorf("ConditionalCount = %d, want 4", got)
	}
}

func TestLoopCount(t *testing.T) {
	text := "for i := 0; ; i++ {\nwhile (true) {\nitems.forEach(fn)"
	// "for " x1, "while " x1, "forEach" x1
	if got := LoopCount(text); got != 3 {
		t.Errorf("LoopCount = %d, want 3", got)
	}
}

func TestNonBlankLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one line", "hello", 1},
		{"blank lines skipped", "a\n\n  \nb\n", 2},
		{"trailing newline", "a\nb\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NonBlankLines(tt.text); got != tt.want {
				t.Errorf("NonBlankLines = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLineCount(t *testing.T) {
	if got := LineCount(""); got != 0 {
		t.Errorf("LineCount(\"\") = %d, want 0", got)
	}
	if got := LineCount("a"); got != 1 {
		t.Errorf("LineCount single = %d, want 1", got)
	}
	if got := LineCount("a\nb\nc"); got != 3 {
		t.Errorf("LineCount = %d, want 3", got)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Go", "go"},
		{"golang", "go"},
		{"JS", "javascript"},
		{"py", "python"},
		{"C++", "cpp"},
		{"brainfuck", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaxNestingDepth(t *testing.T) {
	if got := MaxNestingDepth("func a() { if b { for { } } }"); got != 3 {
		t.Errorf("MaxNestingDepth = %d, want 3", got)
	}
	if got := MaxNestingDepth("no braces"); got != 0 {
		t.Errorf("MaxNestingDepth = %d, want 0", got)
	}
}

func TestOpenBraceDelta(t *testing.T) {
	if got := OpenBraceDelta("func a() {"); got != 1 {
		t.Errorf("OpenBraceDelta = %d, want 1", got)
	}
	if got := OpenBraceDelta("{}"); got != 0 {
		t.Errorf("OpenBraceDelta = %d, want 0", got)
	}
}
