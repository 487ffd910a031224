package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inlinePOSCAR = `toy
1.0
3 0 0
0 3 0
0 0 3
Na Cl
1 1
Direct
0 0 0
0.5 0.5 0.5
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "li_fanout.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "li_fanout", scenario.Name)
	assert.Equal(t, "poscar", scenario.Source.Format)
	assert.Equal(t, filepath.Join("testdata", "structures", "Li2O.POSCAR"), scenario.Source.Path)
	require.Len(t, scenario.Steps, 9)
	assert.Equal(t, OpAppend, scenario.Steps[0].Op)
	assert.Equal(t, "SubstitutionTransformation", scenario.Steps[0].Transformation.Name)
	assert.Equal(t, map[string]any{"Li": "Na"}, scenario.Steps[0].Transformation.InitArgs["species_map"])
	require.NotNil(t, scenario.Steps[4].Expect)
	assert.Equal(t, "branching_outcome", scenario.Steps[4].Expect.Error)
	assert.Len(t, scenario.Assertions, 4)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "has a typo"
source: { format: poscar, text: "x" }
step:
  - op: undo
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing name", `
description: d
source: { format: poscar, text: "x" }
steps: [{ op: undo }]
`, "name is required"},
		{"missing description", `
name: n
source: { format: poscar, text: "x" }
steps: [{ op: undo }]
`, "description is required"},
		{"bad format", `
name: n
description: d
source: { format: xyz, text: "x" }
steps: [{ op: undo }]
`, "source.format"},
		{"both path and text", `
name: n
description: d
source: { format: cif, text: "x", path: "y" }
steps: [{ op: undo }]
`, "exactly one of path and text"},
		{"missing source file", `
name: n
description: d
source: { format: cif, path: "absent.cif" }
steps: [{ op: undo }]
`, "source file not found"},
		{"no steps", `
name: n
description: d
source: { format: poscar, text: "x" }
steps: []
`, "steps list is required"},
		{"append without transformation", `
name: n
description: d
source: { format: poscar, text: "x" }
steps: [{ op: append }]
`, "requires a transformation"},
		{"undo with transformation", `
name: n
description: d
source: { format: poscar, text: "x" }
steps: [{ op: undo, transformation: { name: X } }]
`, "takes no transformation"},
		{"unknown op", `
name: n
description: d
source: { format: poscar, text: "x" }
steps: [{ op: rewind }]
`, "unknown op"},
		{"unknown error name", `
name: n
description: d
source: { format: poscar, text: "x" }
steps: [{ op: undo, expect: { error: kaboom } }]
`, "unknown error name"},
		{"unknown assertion", `
name: n
description: d
source: { format: poscar, text: "x" }
steps: [{ op: undo }]
assertions: [{ type: vibes }]
`, "unknown type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
