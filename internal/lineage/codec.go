package lineage

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/transmute/internal/record"
)

// Keys of a serialized lineage record.
const (
	KeyHistory        = "history"
	KeyVersion        = "version"
	KeyInputStructure = "input_structure"
)

// Codec converts lineages to and from records.
//
// The record is the final artifact's own fields plus:
//
//	"history": [provenance, {...t1..., "input_structure": a0}, ...]
//	"version": Version
type Codec struct {
	// Version is written to every record. Empty means record.FormatVersion.
	Version string

	// DecodeArtifact rebuilds an artifact from its record.
	DecodeArtifact func(record.Object) (Artifact, error)

	// DecodeTransformation rebuilds a transformation from its record.
	DecodeTransformation func(record.Object) (Transformation, error)
}

func (c Codec) version() string {
	if c.Version == "" {
		return record.FormatVersion
	}
	return c.Version
}

// Encode serializes l.
func (c Codec) Encode(l *Lineage) record.Object {
	rec := l.Current().Record().Clone()
	history := make(record.Array, 0, len(l.transformations)+1)
	history = append(history, l.provenance.Record())
	for i, t := range l.transformations {
		step := t.Record().Clone()
		step[KeyInputStructure] = l.artifacts[i].Record().Clone()
		history = append(history, step)
	}
	rec[KeyHistory] = history
	rec[KeyVersion] = record.String(c.version())
	return rec
}

// Decode rebuilds a lineage from rec and then applies extra.
func (c Codec) Decode(rec record.Object, extra ...Transformation) (*Lineage, error) {
	if c.DecodeArtifact == nil || c.DecodeTransformation == nil {
		return nil, fmt.Errorf("decode lineage: codec has no decoders")
	}
	history, ok := rec.Arr(KeyHistory)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q array", ErrMalformedRecord, KeyHistory)
	}
	if _, ok := rec.Str(KeyVersion); !ok {
		return nil, fmt.Errorf("%w: missing %q string", ErrMalformedRecord, KeyVersion)
	}
	final, err := c.DecodeArtifact(rec.Without(KeyHistory, KeyVersion))
	if err != nil {
		return nil, fmt.Errorf("%w: final artifact: %w", ErrMalformedRecord, err)
	}

	seed := &Seed{}
	if len(history) > 0 {
		src, ok := history[0].(record.Object)
		if !ok {
			return nil, fmt.Errorf("%w: history[0] is not an object", ErrMalformedRecord)
		}
		seed.Provenance = NewProvenance(src)
	}
	for i := 1; i < len(history); i++ {
		step, err := c.decodeStep(history[i])
		if err != nil {
			return nil, fmt.Errorf("%w: history[%d]: %w", ErrMalformedRecord, i, err)
		}
		seed.Steps = append(seed.Steps, step)
	}
	return New(final, seed, extra...)
}

func (c Codec) decodeStep(v record.Value) (Step, error) {
	obj, ok := v.(record.Object)
	if !ok {
		return Step{}, fmt.Errorf("step is not an object")
	}
	in, ok := obj.Obj(KeyInputStructure)
	if !ok {
		return Step{}, fmt.Errorf("missing %q", KeyInputStructure)
	}
	a, err := c.DecodeArtifact(in)
	if err != nil {
		return Step{}, fmt.Errorf("input artifact: %w", err)
	}
	t, err := c.DecodeTransformation(obj.Without(KeyInputStructure))
	if err != nil {
		return Step{}, fmt.Errorf("transformation: %w", err)
	}
	return Step{Input: a, Transformation: t}, nil
}

// Marshal encodes l as JSON with sorted keys.
func (c Codec) Marshal(l *Lineage) ([]byte, error) {
	return json.Marshal(c.Encode(l))
}

// Unmarshal decodes JSON produced by Marshal and then applies extra.
func (c Codec) Unmarshal(data []byte, extra ...Transformation) (*Lineage, error) {
	rec, err := record.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return c.Decode(rec, extra...)
}

// EncodeAll serializes every member of f in order.
func (c Codec) EncodeAll(f *Forest) []record.Object {
	out := make([]record.Object, len(f.members))
	for i, m := range f.members {
		out[i] = c.Encode(m)
	}
	return out
}
