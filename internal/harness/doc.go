// Package harness runs lineage scenarios described in YAML and records a
// deterministic trace for golden comparison.
//
// # Scenario Format
//
//	name: li_fanout
//	description: "What this scenario validates"
//	source:
//	  format: poscar            # or cif
//	  path: structures/POSCAR   # relative to the scenario file, or
//	  text: |                   # inline text
//	    ...
//	steps:
//	  - op: append
//	    transformation:
//	      name: SubstitutionTransformation
//	      init_args: { species_map: { Li: Na } }
//	    expect: { members: 1 }
//	  - op: undo
//	  - op: redo
//	    expect: { error: branching_outcome }
//	  - op: dedupe
//	assertions:
//	  - type: member_count
//	    count: 1
//	  - type: formulas
//	    formulas: ["Li2"]
//
// # Operations
//
//   - append: forest append of one transformation (clear_redo defaults to true)
//   - undo, redo: forest-wide, all-or-nothing
//   - dedupe: drop members whose current artifact record repeats an earlier one
//
// # Assertion Types
//
//   - member_count: number of forest members
//   - formulas: current formula of every member, in order
//   - history_length: Len() of one member
//   - redo_depth: RedoDepth() of one member
//
// # Deterministic Testing
//
// Provenance time comes from a fixed clock (testutil.FixedClock) and errors
// are traced by name rather than message, so identical scenarios produce
// byte-identical traces.
package harness
