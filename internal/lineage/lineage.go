package lineage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Lineage is one artifact's full history: every intermediate state, the
// transformations between them, a redo buffer and the provenance of the
// first state.
//
// Invariant: len(transformations) == len(artifacts)-1, and artifacts is
// never empty.
type Lineage struct {
	provenance      Provenance
	artifacts       []Artifact
	transformations []Transformation
	redo            []Transformation // most recently undone last
}

// New creates a Lineage starting at initial. A non-nil seed supplies the
// provenance and the steps that led up to initial. ops are then applied in
// order; the first failing op aborts construction.
func New(initial Artifact, seed *Seed, ops ...Transformation) (*Lineage, error) {
	if initial == nil {
		return nil, ErrNilArtifact
	}
	l := &Lineage{}
	if seed != nil {
		l.provenance = seed.Provenance
		for i, s := range seed.Steps {
			if s.Input == nil || s.Transformation == nil {
				return nil, fmt.Errorf("%w: seed step %d is incomplete", ErrNilArtifact, i)
			}
			l.artifacts = append(l.artifacts, s.Input)
			l.transformations = append(l.transformations, s.Transformation)
		}
	}
	l.artifacts = append(l.artifacts, initial)
	if err := l.Extend(ops...); err != nil {
		return nil, err
	}
	return l, nil
}

// AppendTransformation applies t to the current artifact and records the
// result. The outcome must be a single artifact; branching outcomes fail
// with ErrBranchingOutcome. When clearRedo is true the redo buffer is
// emptied. On error the lineage is unchanged and the transformation's error
// is returned as is.
func (l *Lineage) AppendTransformation(t Transformation, clearRedo bool) error {
	next, err := applySingle(t, l.Current())
	if err != nil {
		return err
	}
	l.push(next, t, clearRedo)
	return nil
}

// Extend appends each transformation in order, clearing the redo buffer.
// It stops at the first failure; transformations applied before it remain.
func (l *Lineage) Extend(ts ...Transformation) error {
	for _, t := range ts {
		if err := l.AppendTransformation(t, true); err != nil {
			return err
		}
	}
	return nil
}

// Undo removes the last artifact and moves its transformation onto the
// redo buffer.
func (l *Lineage) Undo() error {
	n := len(l.transformations)
	if n == 0 {
		return fmt.Errorf("%w: already at oldest change", ErrEmptyHistory)
	}
	l.redo = append(l.redo, l.transformations[n-1])
	l.transformations = l.transformations[:n-1]
	l.artifacts = l.artifacts[:len(l.artifacts)-1]
	return nil
}

// Redo replays the most recently undone transformation. Further redo
// entries are kept. If the replay fails the entry stays on the buffer.
func (l *Lineage) Redo() error {
	n := len(l.redo)
	if n == 0 {
		return fmt.Errorf("%w: already at latest change", ErrEmptyHistory)
	}
	if err := l.AppendTransformation(l.redo[n-1], false); err != nil {
		return err
	}
	l.redo = l.redo[:n-1]
	return nil
}

// Current returns the final artifact.
func (l *Lineage) Current() Artifact {
	return l.artifacts[len(l.artifacts)-1]
}

// Len returns the number of artifacts, one more than the number of
// transformations.
func (l *Lineage) Len() int {
	return len(l.artifacts)
}

// At returns the i-th artifact and the transformations that produced it.
func (l *Lineage) At(i int) (Artifact, []Transformation, error) {
	if i < 0 || i >= len(l.artifacts) {
		return nil, nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(l.artifacts))
	}
	return l.artifacts[i], append([]Transformation(nil), l.transformations[:i]...), nil
}

// Artifacts returns a copy of every artifact state, oldest first.
func (l *Lineage) Artifacts() []Artifact {
	return append([]Artifact(nil), l.artifacts...)
}

// Transformations returns a copy of the applied transformations.
func (l *Lineage) Transformations() []Transformation {
	return append([]Transformation(nil), l.transformations...)
}

// RedoDepth returns how many transformations can currently be redone.
func (l *Lineage) RedoDepth() int {
	return len(l.redo)
}

// Provenance returns the lineage's provenance.
func (l *Lineage) Provenance() Provenance {
	return l.provenance
}

// Seed returns the lineage's history in the form New accepts, so that
// New(l.Current(), l.Seed()) continues from the same state.
func (l *Lineage) Seed() *Seed {
	steps := make([]Step, len(l.transformations))
	for i, t := range l.transformations {
		steps[i] = Step{Input: l.artifacts[i], Transformation: t}
	}
	return &Seed{Provenance: l.provenance, Steps: steps}
}

// Clone returns an independent copy of l. Artifacts and transformations are
// shared as immutable values; every slice is copied.
func (l *Lineage) Clone() *Lineage {
	return &Lineage{
		provenance:      l.provenance,
		artifacts:       append([]Artifact(nil), l.artifacts...),
		transformations: append([]Transformation(nil), l.transformations...),
		redo:            append([]Transformation(nil), l.redo...),
	}
}

// String renders the current artifact, the provenance and the applied
// transformations.
func (l *Lineage) String() string {
	var b strings.Builder
	b.WriteString("Current artifact\n------------\n")
	b.WriteString(describe(l.Current()))
	b.WriteString("\n\nSource\n------------\n")
	src, _ := json.Marshal(l.provenance.Record())
	b.Write(src)
	b.WriteString("\n\nTransformation history\n------------")
	for _, t := range l.transformations {
		rec, _ := json.Marshal(t.Record())
		b.WriteByte('\n')
		b.Write(rec)
	}
	return b.String()
}

func describe(a Artifact) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	data, _ := json.Marshal(a.Record())
	return string(data)
}

func (l *Lineage) push(a Artifact, t Transformation, clearRedo bool) {
	l.artifacts = append(l.artifacts, a)
	l.transformations = append(l.transformations, t)
	if clearRedo {
		l.redo = nil
	}
}

// applySingle applies t and requires a single artifact back.
func applySingle(t Transformation, a Artifact) (Artifact, error) {
	out, err := apply(t, a)
	if err != nil {
		return nil, err
	}
	if out.branching {
		return nil, fmt.Errorf("%w: got %d", ErrBranchingOutcome, len(out.artifacts))
	}
	return out.artifacts[0], nil
}

func apply(t Transformation, a Artifact) (Outcome, error) {
	if t == nil {
		return Outcome{}, fmt.Errorf("%w: nil transformation", ErrInvalidOperation)
	}
	out, err := t.Apply(a)
	if err != nil {
		return Outcome{}, err
	}
	if err := out.validate(); err != nil {
		return Outcome{}, err
	}
	return out, nil
}
