package lineage

import (
	"fmt"

	"github.com/roach88/transmute/internal/record"
)

// Artifact is the object a lineage tracks. Artifacts are treated as
// immutable: transformations return new values instead of modifying input.
type Artifact interface {
	// Record returns the artifact's serialized fields.
	Record() record.Object
}

// Transformation consumes one artifact and produces one or more.
type Transformation interface {
	// Apply transforms a. Rejections should wrap ErrInvalidOperation.
	Apply(a Artifact) (Outcome, error)

	// Record returns the transformation's serialized form.
	Record() record.Object
}

// Outcome is the result of applying a Transformation: either a single
// artifact or a branching sequence of zero or more artifacts.
type Outcome struct {
	artifacts []Artifact
	branching bool
}

// One returns a single-artifact outcome.
func One(a Artifact) Outcome {
	return Outcome{artifacts: []Artifact{a}}
}

// Many returns a branching outcome. An empty Many prunes the member it was
// applied to.
func Many(as ...Artifact) Outcome {
	return Outcome{artifacts: append([]Artifact(nil), as...), branching: true}
}

// Branching reports whether the outcome is a sequence.
func (o Outcome) Branching() bool {
	return o.branching
}

// Artifacts returns a copy of the produced artifacts.
func (o Outcome) Artifacts() []Artifact {
	return append([]Artifact(nil), o.artifacts...)
}

func (o Outcome) validate() error {
	if !o.branching && len(o.artifacts) != 1 {
		return fmt.Errorf("%w: transformation returned no artifact", ErrNilArtifact)
	}
	for i, a := range o.artifacts {
		if a == nil {
			return fmt.Errorf("%w: outcome[%d]", ErrNilArtifact, i)
		}
	}
	return nil
}

// Provenance describes where the first artifact of a lineage came from.
// It is immutable: accessors return copies.
type Provenance struct {
	fields record.Object
}

// Provenance keys written by the source adapters.
const (
	KeySource       = "source"
	KeyDatetime     = "datetime"
	KeyOriginalFile = "original_file"
)

// NewProvenance creates a Provenance from a copy of fields.
func NewProvenance(fields record.Object) Provenance {
	return Provenance{fields: fields.Clone()}
}

// Record returns a copy of the provenance fields.
func (p Provenance) Record() record.Object {
	return p.fields.Clone()
}

// Get returns a copy of the value stored under key.
func (p Provenance) Get(key string) (record.Value, bool) {
	v, ok := p.fields[key]
	if !ok {
		return nil, false
	}
	return record.Clone(v), true
}

// Source returns the origin tag, or "" when unset.
func (p Provenance) Source() string {
	s, _ := p.fields.Str(KeySource)
	return s
}

// IsZero reports whether the provenance carries no fields.
func (p Provenance) IsZero() bool {
	return len(p.fields) == 0
}

// Step is one applied transformation together with the artifact it was
// applied to.
type Step struct {
	Input          Artifact
	Transformation Transformation
}

// Seed is prior history a new Lineage continues from.
type Seed struct {
	Provenance Provenance
	Steps      []Step
}

// ArtifactDigest returns the content digest of a's record, or "" when the
// record cannot be canonicalized.
func ArtifactDigest(a Artifact) string {
	if a == nil {
		return ""
	}
	d, err := record.Digest(record.DomainArtifact, a.Record())
	if err != nil {
		return ""
	}
	return d
}

// SameRecord reports whether a and b serialize identically. It is the
// default equivalence for Forest.Dedupe.
func SameRecord(a, b Artifact) bool {
	return record.Equal(a.Record(), b.Record())
}
