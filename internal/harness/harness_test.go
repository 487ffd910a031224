package harness

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/transmute/internal/lineage"
)

func inlineScenario(steps []Step, assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline",
		Source:      SourceSpec{Format: "poscar", Text: inlinePOSCAR},
		Steps:       steps,
		Assertions:  assertions,
	}
}

func members(n int) *int { return &n }

func TestRun_Supercell(t *testing.T) {
	result, err := Run(inlineScenario([]Step{{
		Op: OpAppend,
		Transformation: &TransformationSpec{
			Name:     "SupercellTransformation",
			InitArgs: map[string]any{"scaling": []any{2, 1, 1}},
		},
		Expect: &ExpectClause{Members: members(1)},
	}},
		Assertion{Type: AssertFormulas, Formulas: []string{"Cl2 Na2"}},
		Assertion{Type: AssertHistoryLength, Member: 0, Count: 2},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "SupercellTransformation", result.Trace[0].Transformation)
	assert.Equal(t, 1, result.Forest.Len())
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	result, err := Run(inlineScenario([]Step{{Op: OpUndo}}))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, "empty_history", result.Trace[0].Error)
}

func TestRun_MissingExpectedErrorFails(t *testing.T) {
	result, err := Run(inlineScenario([]Step{{
		Op:             OpAppend,
		Transformation: &TransformationSpec{Name: "SubstitutionTransformation", InitArgs: map[string]any{"species_map": map[string]any{"Na": "K"}}},
		Expect:         &ExpectClause{Error: "invalid_operation"},
	}}))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "got success")
}

func TestRun_WrongErrorName(t *testing.T) {
	result, err := Run(inlineScenario([]Step{{Op: OpRedo, Expect: &ExpectClause{Error: "branching_outcome"}}}))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "got empty_history")
}

func TestRun_TransformationFailureLeavesForest(t *testing.T) {
	result, err := Run(inlineScenario([]Step{{
		Op:             OpAppend,
		Transformation: &TransformationSpec{Name: "RemoveSpeciesTransformation", InitArgs: map[string]any{"species_to_remove": []any{"Na", "Cl"}}},
		Expect:         &ExpectClause{Error: "invalid_operation", Members: members(1)},
	}},
		Assertion{Type: AssertHistoryLength, Count: 1},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"Cl1 Na1"}, result.Trace[0].Formulas)
}

func TestRun_UndecodableTransformation(t *testing.T) {
	_, err := Run(inlineScenario([]Step{{
		Op:             OpAppend,
		Transformation: &TransformationSpec{Name: "Teleport"},
	}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[0]")
}

func TestRun_BadSource(t *testing.T) {
	s := inlineScenario([]Step{{Op: OpUndo}})
	s.Source.Text = "not a poscar"
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load source")
}

func TestRun_AssertionFailures(t *testing.T) {
	result, err := Run(inlineScenario([]Step{{Op: OpDedupe}},
		Assertion{Type: AssertMemberCount, Count: 3},
		Assertion{Type: AssertFormulas, Formulas: []string{"X"}},
		Assertion{Type: AssertRedoDepth, Member: 5},
	))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 3)
}

func TestRun_ClearRedoFalse(t *testing.T) {
	keep := false
	sub := &TransformationSpec{Name: "SubstitutionTransformation", InitArgs: map[string]any{"species_map": map[string]any{"Na": "K"}}}
	result, err := Run(inlineScenario([]Step{
		{Op: OpAppend, Transformation: sub},
		{Op: OpUndo},
		{Op: OpAppend, Transformation: sub, ClearRedo: &keep},
	},
		Assertion{Type: AssertRedoDepth, Count: 1},
		Assertion{Type: AssertHistoryLength, Count: 2},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestErrorName(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{lineage.ErrEmptyHistory, "empty_history"},
		{fmt.Errorf("wrapped: %w", lineage.ErrBranchingOutcome), "branching_outcome"},
		{&lineage.MemberError{Index: 1, Err: lineage.ErrInvalidOperation}, "invalid_operation"},
		{fmt.Errorf("plain"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorName(tt.err))
		})
	}
}
