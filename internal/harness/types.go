package harness

import (
	"errors"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
)

// TraceEvent records the forest after one step.
type TraceEvent struct {
	Seq            int64
	Op             string
	Transformation string // append only
	Error          string // error name when the step failed
	Members        int
	Formulas       []string // current formula of each member
}

// Record converts the event to a record for canonical serialization.
func (e TraceEvent) Record() record.Object {
	obj := record.NewObject(
		record.O("seq", record.Int(e.Seq)),
		record.O("op", record.String(e.Op)),
		record.O("members", record.Int(int64(e.Members))),
		record.O("formulas", record.Strings(e.Formulas...)),
	)
	if e.Transformation != "" {
		obj["transformation"] = record.String(e.Transformation)
	}
	if e.Error != "" {
		obj["error"] = record.String(e.Error)
	}
	return obj
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool

	// Trace has one event per step.
	Trace []TraceEvent

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string

	// Forest is the final forest.
	Forest *lineage.Forest
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// namedErrors maps the error names used in scenarios and traces to the
// lineage sentinels.
var namedErrors = []struct {
	name string
	err  error
}{
	{"empty_history", lineage.ErrEmptyHistory},
	{"index_out_of_range", lineage.ErrIndexOutOfRange},
	{"invalid_operation", lineage.ErrInvalidOperation},
	{"branching_outcome", lineage.ErrBranchingOutcome},
	{"length_mismatch", lineage.ErrLengthMismatch},
	{"malformed_record", lineage.ErrMalformedRecord},
}

// ErrorName returns the scenario name of err's lineage sentinel, or
// "other" when err wraps none of them.
func ErrorName(err error) string {
	for _, ne := range namedErrors {
		if errors.Is(err, ne.err) {
			return ne.name
		}
	}
	return "other"
}

func knownErrorName(name string) bool {
	for _, ne := range namedErrors {
		if ne.name == name {
			return true
		}
	}
	return false
}
