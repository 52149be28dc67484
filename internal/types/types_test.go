package types

import (
	"testing"
)

func TestSemanticVersionString(t *testing.T) {
	tests := []struct {
		name    string
		version SemanticVersion
		want    string
	}{
		{"plain", SemanticVersion{Major: 1, Minor: 2, Patch: 3}, "1.2.3"},
		{"zero", SemanticVersion{}, "0.0.0"},
		{"prerelease", SemanticVersion{Major: 2, Minor: 0, Patch: 0, Prerelease: "beta.1"}, "2.0.0-beta.1"},
		{"build", SemanticVersion{Major: 1, Minor: 0, Patch: 0, Build: "abc123"}, "1.0.0+abc123"},
		{"both", SemanticVersion{Major: 1, Minor: 0, Patch: 1, Prerelease: "rc.2", Build: "x"}, "1.0.1-rc.2+x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.version.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSemanticVersionCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b SemanticVersion
		want int
	}{
		{"equal", SemanticVersion{1, 2, 3, "", ""}, SemanticVersion{1, 2, 3, "", ""}, 0},
		{"major wins", SemanticVersion{2, 0, 0, "", ""}, SemanticVersion{1, 9, 9, "", ""}, 1},
		{"minor wins", SemanticVersion{1, 3, 0, "", ""}, SemanticVersion{1, 2, 9, "", ""}, 1},
		{"patch", SemanticVersion{1, 2, 2, "", ""}, SemanticVersion{1, 2, 3, "", ""}, -1},
		{"prerelease ignored", SemanticVersion{1, 0, 0, "alpha", ""}, SemanticVersion{1, 0, 0, "beta", ""}, 0},
		{"build ignored", SemanticVersion{1, 0, 0, "", "a"}, SemanticVersion{1, 0, 0, "", "b"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestClampUnit(t *testing.T) {
	if got := ClampUnit(-0.5); got != 0 {
		t.Errorf("ClampUnit(-0.5) = %v, want 0", got)
	}
	if got := ClampUnit(1.5); got != 1 {
		t.Errorf("ClampUnit(1.5) = %v, want 1", got)
	}
	if got := ClampUnit(0.42); got != 0.42 {
		t.Errorf("ClampUnit(0.42) = %v, want 0.42", got)
	}
}

func TestClampComplexity(t *testing.T) {
	if got := ClampComplexity(12.0); got != 10 {
		t.Errorf("ClampComplexity(12) = %v, want 10", got)
	}
	if got := ClampComplexity(-1); got != 0 {
		t.Errorf("ClampComplexity(-1) = %v, want 0", got)
	}
}

func TestHasChange(t *testing.T) {
	e := CodeEvolution{Changes: []ChangeKind{ChangeAddition, ChangeFunctionAdded}}
	if !e.HasChange(ChangeAddition) {
		t.Error("expected ChangeAddition present")
	}
	if e.HasChange(ChangeDeletion) {
		t.Error("did not expect ChangeDeletion")
	}
}

func TestStateMigrate(t *testing.T) {
	s := &StateSnapshot{SchemaVersion: 1}
	if err := Migrate(s); err != nil {
		t.Fatalf("Migrate v1 failed: %v", err)
	}
	if s.SchemaVersion != StateSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", s.SchemaVersion, StateSchemaVersion)
	}
	if s.SessionHistory == nil {
		t.Error("SessionHistory should be backfilled to empty slice")
	}

	future := &StateSnapshot{SchemaVersion: StateSchemaVersion + 1}
	if err := Migrate(future); err == nil {
		t.Error("expected error for future schema version")
	}
}
