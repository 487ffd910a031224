package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/transmute/internal/source"
)

// Scenario defines a lineage scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Source is the structure the forest starts from.
	Source SourceSpec `yaml:"source"`

	// Steps are applied to the forest in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final forest.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SourceSpec names the input structure. Exactly one of Path and Text is set.
type SourceSpec struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path,omitempty"`
	Text   string `yaml:"text,omitempty"`
}

// Step is one forest operation.
type Step struct {
	// Op is append, undo, redo or dedupe.
	Op string `yaml:"op"`

	// Transformation is required for append.
	Transformation *TransformationSpec `yaml:"transformation,omitempty"`

	// ClearRedo controls append; nil means true.
	ClearRedo *bool `yaml:"clear_redo,omitempty"`

	// Expect checks the outcome of this step. If nil the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// TransformationSpec is a transformation record in YAML form.
type TransformationSpec struct {
	Name     string         `yaml:"name"`
	InitArgs map[string]any `yaml:"init_args"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Members is the expected member count after the step.
	Members *int `yaml:"members,omitempty"`

	// Error is the expected error name (see ErrorName). Empty means success.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final forest.
type Assertion struct {
	// Type is member_count, formulas, history_length or redo_depth.
	Type string `yaml:"type"`

	// Member is the member index (history_length, redo_depth).
	Member int `yaml:"member,omitempty"`

	// Count is the expected number (member_count, history_length, redo_depth).
	Count int `yaml:"count,omitempty"`

	// Formulas are the expected current formulas (formulas).
	Formulas []string `yaml:"formulas,omitempty"`
}

// Step operations.
const (
	OpAppend = "append"
	OpUndo   = "undo"
	OpRedo   = "redo"
	OpDedupe = "dedupe"
)

// Assertion type constants.
const (
	AssertMemberCount   = "member_count"
	AssertFormulas      = "formulas"
	AssertHistoryLength = "history_length"
	AssertRedoDepth     = "redo_depth"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative source path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if p := scenario.Source.Path; p != "" && !filepath.IsAbs(p) {
		scenario.Source.Path = filepath.Join(filepath.Dir(path), p)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch source.Format(s.Source.Format) {
	case source.FormatCIF, source.FormatPOSCAR:
	default:
		return fmt.Errorf("source.format must be %q or %q", source.FormatCIF, source.FormatPOSCAR)
	}
	if (s.Source.Path == "") == (s.Source.Text == "") {
		return fmt.Errorf("source needs exactly one of path and text")
	}
	if s.Source.Path != "" {
		if _, err := os.Stat(s.Source.Path); os.IsNotExist(err) {
			return fmt.Errorf("source file not found: %s", s.Source.Path)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpAppend:
			if step.Transformation == nil || step.Transformation.Name == "" {
				return fmt.Errorf("steps[%d]: append requires a transformation name", i)
			}
		case OpUndo, OpRedo, OpDedupe:
			if step.Transformation != nil {
				return fmt.Errorf("steps[%d]: %s takes no transformation", i, step.Op)
			}
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			if !knownErrorName(step.Expect.Error) {
				return fmt.Errorf("steps[%d]: unknown error name %q", i, step.Expect.Error)
			}
		}
	}

	for i, a := range s.Assertions {
		switch a.Type {
		case AssertMemberCount, AssertFormulas, AssertHistoryLength, AssertRedoDepth:
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}

	return nil
}
