package structure

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
)

// Registry errors
var (
	// ErrUnknownTransformation indicates a record naming no registered
	// transformation.
	ErrUnknownTransformation = errors.New("unknown transformation")

	// ErrInvalidArgs indicates init_args that do not fit the transformation.
	ErrInvalidArgs = errors.New("invalid transformation arguments")
)

type decoder func(args record.Object) (lineage.Transformation, error)

var decoders = map[string]decoder{
	NameSubstitution:  decodeSubstitution,
	NameRemoveSpecies: decodeRemoveSpecies,
	NameSupercell:     decodeSupercell,
	NamePartialRemove: decodePartialRemove,
}

// Names lists the registered transformation names in sorted order.
func Names() []string {
	names := make([]string, 0, len(decoders))
	for n := range decoders {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// DecodeTransformation rebuilds a transformation from its record:
// {"name": ..., "init_args": {...}}. Other keys are ignored.
func DecodeTransformation(obj record.Object) (lineage.Transformation, error) {
	name, ok := obj.Str("name")
	if !ok {
		return nil, fmt.Errorf("%w: record has no name", ErrUnknownTransformation)
	}
	dec, ok := decoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransformation, name)
	}
	args, ok := obj.Obj("init_args")
	if !ok {
		args = record.Object{}
	}
	t, err := dec(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

// Codec returns a lineage codec for structures at the current format version.
func Codec() lineage.Codec {
	return lineage.Codec{
		Version:              record.FormatVersion,
		DecodeArtifact:       DecodeArtifact,
		DecodeTransformation: DecodeTransformation,
	}
}

func decodeSubstitution(args record.Object) (lineage.Transformation, error) {
	m, ok := args.Obj("species_map")
	if !ok || len(m) == 0 {
		return nil, fmt.Errorf("%w: species_map must be a non-empty object", ErrInvalidArgs)
	}
	out := make(map[string]string, len(m))
	for from, v := range m {
		to, ok := v.(record.String)
		if !ok || to == "" {
			return nil, fmt.Errorf("%w: species_map[%q] must be a symbol", ErrInvalidArgs, from)
		}
		out[from] = string(to)
	}
	return Substitution{SpeciesMap: out}, nil
}

func decodeRemoveSpecies(args record.Object) (lineage.Transformation, error) {
	arr, ok := args.Arr("species_to_remove")
	if !ok || len(arr) == 0 {
		return nil, fmt.Errorf("%w: species_to_remove must be a non-empty list", ErrInvalidArgs)
	}
	species := make([]string, len(arr))
	for i, v := range arr {
		s, ok := v.(record.String)
		if !ok {
			return nil, fmt.Errorf("%w: species_to_remove[%d] must be a symbol", ErrInvalidArgs, i)
		}
		species[i] = string(s)
	}
	return RemoveSpecies{Species: species}, nil
}

func decodeSupercell(args record.Object) (lineage.Transformation, error) {
	arr, ok := args.Arr("scaling")
	if !ok || len(arr) != 3 {
		return nil, fmt.Errorf("%w: scaling must list 3 integers", ErrInvalidArgs)
	}
	var t Supercell
	for i, v := range arr {
		n, ok := record.Integer(v)
		if !ok {
			return nil, fmt.Errorf("%w: scaling[%d] must be an integer", ErrInvalidArgs, i)
		}
		t.Scaling[i] = int(n)
	}
	return t, nil
}

func decodePartialRemove(args record.Object) (lineage.Transformation, error) {
	specie, ok := args.Str("specie_to_remove")
	if !ok || specie == "" {
		return nil, fmt.Errorf("%w: specie_to_remove must be a symbol", ErrInvalidArgs)
	}
	frac, ok := record.Number(args["fraction_to_remove"])
	if !ok {
		return nil, fmt.Errorf("%w: fraction_to_remove must be a number", ErrInvalidArgs)
	}
	t := PartialRemove{Specie: specie, Fraction: frac}
	if v, present := args["max_results"]; present {
		n, ok := record.Integer(v)
		if !ok || n < 0 {
			return nil, fmt.Errorf("%w: max_results must be a non-negative integer", ErrInvalidArgs)
		}
		t.MaxResults = int(n)
	}
	return t, nil
}
