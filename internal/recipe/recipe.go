// Package recipe compiles CUE transformation pipelines.
//
// A recipe lists transformation records in the order they are applied:
//
//	description: "swap iron for manganese, then double along c"
//	steps: [
//		{name: "SubstitutionTransformation", init_args: species_map: Fe: "Mn"},
//		{name: "SupercellTransformation", init_args: scaling: [1, 1, 2]},
//	]
//
// Documents are checked against an embedded schema before any step is
// decoded, so argument errors carry the CUE source position.
package recipe

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
	"github.com/roach88/transmute/internal/structure"
)

//go:embed schema.cue
var schemaSource string

// Recipe is a compiled pipeline.
type Recipe struct {
	Description string
	Steps       []lineage.Transformation
}

// CompileError reports a recipe that failed to parse, validate or decode.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Compile parses and validates a recipe held in memory.
func Compile(src []byte) (*Recipe, error) {
	return compile("recipe.cue", src)
}

// Load reads and compiles the recipe at path.
func Load(path string) (*Recipe, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe: %w", err)
	}
	return compile(path, src)
}

func compile(filename string, src []byte) (*Recipe, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("recipe schema: %w", err)
	}

	doc := ctx.CompileBytes(src, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := schema.LookupPath(cue.ParsePath("#Recipe")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	r := &Recipe{}
	if d := v.LookupPath(cue.ParsePath("description")); d.Exists() {
		desc, err := d.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		r.Description = desc
	}

	iter, err := v.LookupPath(cue.ParsePath("steps")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		step := iter.Value()
		rv, err := toRecord(step)
		if err != nil {
			return nil, err
		}
		obj, _ := rv.(record.Object)
		t, err := structure.DecodeTransformation(obj)
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("steps[%d]", i),
				Message: err.Error(),
				Pos:     step.Pos(),
				Err:     err,
			}
		}
		r.Steps = append(r.Steps, t)
	}
	return r, nil
}

// toRecord converts a concrete CUE value into a record value.
func toRecord(v cue.Value) (record.Value, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.Kind() {
	case cue.NullKind:
		return record.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return record.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return record.Int(n), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return record.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return record.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := record.Array{}
		for iter.Next() {
			item, err := toRecord(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := record.Object{}
		for iter.Next() {
			item, err := toRecord(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = item
		}
		return obj, nil
	}
	return nil, &CompileError{
		Field:   v.Path().String(),
		Message: fmt.Sprintf("unsupported value of kind %s", v.Kind()),
		Pos:     v.Pos(),
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
			Err:     err,
		}
	}
	return err
}
