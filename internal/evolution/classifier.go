// Package evolution implements the temporal code evolution engine: diff
// classification between successive snapshots, version assignment, pattern
// learning, trend tracking, and issue prediction, behind one facade.
package evolution

import (
	"evotrace/internal/analyzer"
	"evotrace/internal/logging"
	"evotrace/internal/types"
)

// historyWindow is how many prior same-language snapshots the classifier
// receives, oldest to newest. Only the most recent one is diffed against.
const historyWindow = 5

// refactorLineFactor: the refactoring heuristic fires when function count
// grew while lines grew by less than this factor per new function — the
// "extract method" signature of functions growing faster than lines.
const refactorLineFactor = 5

// Classify compares a new snapshot against its most recent same-language
// predecessor and produces the evolution record. It is total: any input
// yields a record, degrading to modification when no signal fires.
func Classify(current types.CodeSnapshot, history []types.CodeSnapshot) types.CodeEvolution {
	complexity := analyzer.Complexity(current.Code, current.Language)

	if len(history) == 0 {
		logging.EvolutionDebug("Initial snapshot for language=%s", current.Language)
		return types.CodeEvolution{
			Type:       types.EvolutionInitial,
			Changes:    []types.ChangeKind{types.ChangeCreation},
			Complexity: types.ClampUnit(complexity),
			LinesAdded: analyzer.LineCount(current.Code),
		}
	}

	previous := history[len(history)-1]

	oldLines := analyzer.LineCount(previous.Code)
	newLines := analyzer.LineCount(current.Code)
	oldFuncs := analyzer.FunctionCount(previous.Code, previous.Language)
	newFuncs := analyzer.FunctionCount(current.Code, current.Language)

	lineDelta := newLines - oldLines
	funcDelta := newFuncs - oldFuncs

	var changes []types.ChangeKind
	evo := types.CodeEvolution{
		Complexity: types.ClampUnit(complexity),
	}

	if lineDelta > 0 {
		changes = append(changes, types.ChangeAddition)
		evo.LinesAdded = lineDelta
	} else if lineDelta < 0 {
		changes = append(changes, types.ChangeDeletion)
		evo.LinesRemoved = -lineDelta
	}

	if funcDelta > 0 {
		changes = append(changes, types.ChangeFunctionAdded)
		evo.FunctionsAdded = funcDelta
	} else if funcDelta < 0 {
		changes = append(changes, types.ChangeFunctionRemoved)
		evo.FunctionsRemoved = -funcDelta
	}

	refactoring := funcDelta > 0 && lineDelta < refactorLineFactor*funcDelta
	if refactoring {
		changes = append(changes, types.ChangeRefactoring)
	}

	if len(changes) == 0 {
		changes = append(changes, types.ChangeModification)
	}
	evo.Changes = changes

	// Type priority: additions win over deletions, deletions over the
	// refactoring signal, refactoring over generic modification. The
	// refactoring signal still lands in the change set either way.
	switch {
	case evo.HasChange(types.ChangeAddition) || evo.HasChange(types.ChangeFunctionAdded):
		evo.Type = types.EvolutionExpansion
	case evo.HasChange(types.ChangeDeletion) || evo.HasChange(types.ChangeFunctionRemoved):
		evo.Type = types.EvolutionReduction
	case refactoring:
		evo.Type = types.EvolutionRefactoring
	default:
		evo.Type = types.EvolutionModification
	}

	logging.EvolutionDebug("Classified %s: lines %+d funcs %+d refactor=%v",
		evo.Type, lineDelta, funcDelta, refactoring)
	return evo
}

// changeBatch expands an evolution record into the change batch the pattern
// learner consumes: function-level signals repeat per function so repeated
// changes of one kind can cross the bulk threshold.
func changeBatch(evo types.CodeEvolution) []types.ChangeKind {
	var batch []types.ChangeKind
	for i := 0; i < evo.FunctionsAdded; i++ {
		batch = append(batch, types.ChangeFunctionAdded)
	}
	for i := 0; i < evo.FunctionsRemoved; i++ {
		batch = append(batch, types.ChangeFunctionRemoved)
	}
	for _, c := range evo.Changes {
		switch c {
		case types.ChangeFunctionAdded, types.ChangeFunctionRemoved:
			// Already expanded above.
		default:
			batch = append(batch, c)
		}
	}
	return batch
}
