package evolution

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"evotrace/internal/types"
)

// swiftCode builds a swift snippet with the given function and total line
// counts.
func swiftCode(funcs, lines int) string {
	var b strings.Builder
	for i := 0; i < funcs; i++ {
		fmt.Fprintf(&b, "func f%d() {}\n", i)
	}
	for i := funcs; i < lines-1; i++ {
		fmt.Fprintf(&b, "let x%d = %d\n", i, i)
	}
	b.WriteString("let done = true")
	return b.String()
}

func snapAt(code, language string) types.CodeSnapshot {
	return types.CodeSnapshot{
		ID:        "test",
		Code:      code,
		Language:  language,
		Timestamp: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestClassifyInitial(t *testing.T) {
	evo := Classify(snapAt(swiftCode(1, 10), "swift"), nil)

	if evo.Type != types.EvolutionInitial {
		t.Fatalf("type = %s, want initial", evo.Type)
	}
	if len(evo.Changes) != 1 || evo.Changes[0] != types.ChangeCreation {
		t.Errorf("changes = %v, want [creation]", evo.Changes)
	}
	if evo.LinesRemoved != 0 || evo.FunctionsRemoved != 0 {
		t.Errorf("initial snapshot reported removals: %+v", evo)
	}
	if evo.LinesAdded != 10 {
		t.Errorf("linesAdded = %d, want 10", evo.LinesAdded)
	}
}

func TestClassifyExpansion(t *testing.T) {
	prev := snapAt(swiftCode(1, 10), "swift")
	curr := snapAt(swiftCode(3, 30), "swift")

	evo := Classify(curr, []types.CodeSnapshot{prev})

	if evo.Type != types.EvolutionExpansion {
		t.Fatalf("type = %s, want expansion", evo.Type)
	}
	if evo.FunctionsAdded != 2 {
		t.Errorf("functionsAdded = %d, want 2", evo.FunctionsAdded)
	}
	if evo.LinesAdded != 20 {
		t.Errorf("linesAdded = %d, want 20", evo.LinesAdded)
	}
	if !evo.HasChange(types.ChangeAddition) || !evo.HasChange(types.ChangeFunctionAdded) {
		t.Errorf("changes = %v, want addition and function_addition", evo.Changes)
	}
}

func TestClassifyReduction(t *testing.T) {
	prev := snapAt(swiftCode(3, 30), "swift")
	curr := snapAt(swiftCode(2, 18), "swift")

	evo := Classify(curr, []types.CodeSnapshot{prev})

	if evo.Type != types.EvolutionReduction {
		t.Fatalf("type = %s, want reduction", evo.Type)
	}
	if evo.LinesRemoved != 12 {
		t.Errorf("linesRemoved = %d, want 12", evo.LinesRemoved)
	}
	if evo.FunctionsRemoved != 1 {
		t.Errorf("functionsRemoved = %d, want 1", evo.FunctionsRemoved)
	}
}

func TestClassifyFunctionGrowthIsExpansion(t *testing.T) {
	// Same line count, one more function: extract-method signature. The
	// refactoring signal lands in the change set, but function addition
	// outranks it for the type.
	prev := snapAt(swiftCode(1, 20), "swift")
	curr := snapAt(swiftCode(2, 20), "swift")

	evo := Classify(curr, []types.CodeSnapshot{prev})

	if evo.Type != types.EvolutionExpansion {
		t.Fatalf("type = %s, want expansion", evo.Type)
	}
	if !evo.HasChange(types.ChangeRefactoring) {
		t.Errorf("changes = %v, want refactoring signal", evo.Changes)
	}
}

func TestClassifyFunctionGrowthOutranksLineLoss(t *testing.T) {
	// More functions but fewer lines: function addition still wins the
	// type over the line deletion and the refactoring signal.
	prev := snapAt(swiftCode(2, 30), "swift")
	curr := snapAt(swiftCode(3, 24), "swift")

	evo := Classify(curr, []types.CodeSnapshot{prev})

	if evo.Type != types.EvolutionExpansion {
		t.Fatalf("type = %s, want expansion", evo.Type)
	}
	if evo.FunctionsAdded != 1 {
		t.Errorf("functionsAdded = %d, want 1", evo.FunctionsAdded)
	}
	if evo.LinesRemoved != 6 {
		t.Errorf("linesRemoved = %d, want 6", evo.LinesRemoved)
	}
}

func TestClassifyAdditionOutranksRefactoring(t *testing.T) {
	// Functions grew faster than lines, but lines still grew: the
	// refactoring signal is recorded while the type stays expansion.
	prev := snapAt(swiftCode(1, 20), "swift")
	curr := snapAt(swiftCode(2, 23), "swift")

	evo := Classify(curr, []types.CodeSnapshot{prev})

	if evo.Type != types.EvolutionExpansion {
		t.Fatalf("type = %s, want expansion", evo.Type)
	}
	if !evo.HasChange(types.ChangeRefactoring) {
		t.Errorf("changes = %v, want refactoring signal recorded", evo.Changes)
	}
}

func TestClassifyModification(t *testing.T) {
	prev := snapAt("let a = 1\nlet b = 2", "swift")
	curr := snapAt("let a = 9\nlet b = 8", "swift")

	evo := Classify(curr, []types.CodeSnapshot{prev})

	if evo.Type != types.EvolutionModification {
		t.Fatalf("type = %s, want modification", evo.Type)
	}
	if len(evo.Changes) != 1 || evo.Changes[0] != types.ChangeModification {
		t.Errorf("changes = %v, want [modification]", evo.Changes)
	}
}

func TestChangeBatchExpandsFunctionSignals(t *testing.T) {
	evo := types.CodeEvolution{
		Type:           types.EvolutionExpansion,
		Changes:        []types.ChangeKind{types.ChangeAddition, types.ChangeFunctionAdded},
		FunctionsAdded: 3,
	}

	batch := changeBatch(evo)

	funcAdds := 0
	for _, c := range batch {
		if c == types.ChangeFunctionAdded {
			funcAdds++
		}
	}
	if funcAdds != 3 {
		t.Errorf("function_addition count = %d, want 3", funcAdds)
	}
}
