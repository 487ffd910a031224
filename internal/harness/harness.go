package harness

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
	"github.com/roach88/transmute/internal/source"
	"github.com/roach88/transmute/internal/structure"
	"github.com/roach88/transmute/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a fixed provenance clock.
type Harness struct {
	clock  *testutil.FixedClock
	logger *slog.Logger
}

// New creates a harness whose clock starts at testutil.Epoch and whose
// logger discards output.
func New() *Harness {
	return &Harness{
		clock:  testutil.NewFixedClock(testutil.Epoch),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Run executes a scenario with a fresh harness.
func Run(s *Scenario) (*Result, error) {
	return New().Run(s)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the source structure into a one-member forest
//  2. Apply each step, recording a trace event and checking its expect clause
//  3. Evaluate assertions against the final forest
//
// Expectation and assertion failures are collected in Result.Errors. An
// error is returned only when the scenario itself cannot run, for example
// an unreadable source or an undecodable transformation.
func (h *Harness) Run(s *Scenario) (*Result, error) {
	h.clock.Reset(testutil.Epoch)

	text := s.Source.Text
	if s.Source.Path != "" {
		data, err := os.ReadFile(s.Source.Path)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		text = string(data)
	}
	l, err := source.Load(source.Format(s.Source.Format), text, h.clock)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}

	forest := lineage.ForestOf(l)
	result := NewResult()
	result.Forest = forest

	for i, step := range s.Steps {
		event := TraceEvent{Seq: int64(i + 1), Op: step.Op}
		stepErr, err := h.apply(forest, step, &event)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		event.Members = forest.Len()
		event.Formulas = formulas(forest)
		if stepErr != nil {
			event.Error = ErrorName(stepErr)
		}
		result.Trace = append(result.Trace, event)
		h.logger.Debug("step applied", "seq", event.Seq, "op", event.Op, "members", event.Members, "error", event.Error)

		checkExpect(result, i, step, event, stepErr)
	}

	for i, a := range s.Assertions {
		if err := evaluateAssertion(forest, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}

// apply runs one step. stepErr is the forest operation's own failure,
// which scenarios may expect; err means the step could not be attempted.
func (h *Harness) apply(forest *lineage.Forest, step Step, event *TraceEvent) (stepErr, err error) {
	switch step.Op {
	case OpAppend:
		t, err := decodeTransformation(step.Transformation)
		if err != nil {
			return nil, err
		}
		event.Transformation = step.Transformation.Name
		clearRedo := step.ClearRedo == nil || *step.ClearRedo
		return forest.AppendTransformation(t, clearRedo), nil
	case OpUndo:
		return forest.Undo(), nil
	case OpRedo:
		return forest.Redo(), nil
	case OpDedupe:
		forest.Dedupe(nil)
		return nil, nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func decodeTransformation(spec *TransformationSpec) (lineage.Transformation, error) {
	args, err := record.FromAny(spec.InitArgs)
	if err != nil {
		return nil, fmt.Errorf("init_args: %w", err)
	}
	obj := record.NewObject(record.O("name", record.String(spec.Name)))
	if argObj, ok := args.(record.Object); ok {
		obj["init_args"] = argObj
	}
	return structure.DecodeTransformation(obj)
}

func checkExpect(result *Result, i int, step Step, event TraceEvent, stepErr error) {
	want := ""
	if step.Expect != nil {
		want = step.Expect.Error
	}
	switch {
	case want == "" && stepErr != nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, stepErr))
	case want != "" && stepErr == nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got success", i, step.Op, want))
	case want != "" && event.Error != want:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %s (%v)", i, step.Op, want, event.Error, stepErr))
	}
	if step.Expect != nil && step.Expect.Members != nil && *step.Expect.Members != event.Members {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %d members, got %d", i, step.Op, *step.Expect.Members, event.Members))
	}
}

func evaluateAssertion(forest *lineage.Forest, a Assertion) error {
	switch a.Type {
	case AssertMemberCount:
		if forest.Len() != a.Count {
			return fmt.Errorf("member_count: expected %d, got %d", a.Count, forest.Len())
		}
	case AssertFormulas:
		got := formulas(forest)
		if !slices.Equal(got, a.Formulas) {
			return fmt.Errorf("formulas: expected %v, got %v", a.Formulas, got)
		}
	case AssertHistoryLength, AssertRedoDepth:
		m, err := forest.Member(a.Member)
		if err != nil {
			return fmt.Errorf("%s: %w", a.Type, err)
		}
		got := m.Len()
		if a.Type == AssertRedoDepth {
			got = m.RedoDepth()
		}
		if got != a.Count {
			return fmt.Errorf("%s of member %d: expected %d, got %d", a.Type, a.Member, a.Count, got)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// formulas returns each member's current formula. Artifacts other than
// structures are listed by their digest.
func formulas(forest *lineage.Forest) []string {
	currents := forest.Currents()
	out := make([]string, len(currents))
	for i, a := range currents {
		if s, ok := a.(*structure.Structure); ok {
			out[i] = s.Formula()
			continue
		}
		out[i] = lineage.ArtifactDigest(a)
	}
	return out
}
