package lineage

import (
	"fmt"

	"github.com/roach88/transmute/internal/record"
)

// num is a minimal artifact: a single integer.
type num int

func (n num) Record() record.Object {
	return record.NewObject(record.O("value", record.Int(n)))
}

func decodeNum(obj record.Object) (Artifact, error) {
	v, ok := record.Integer(obj["value"])
	if !ok {
		return nil, fmt.Errorf("value missing")
	}
	return num(v), nil
}

// add is a one-to-one transformation.
type add struct{ by int }

func (t add) Apply(a Artifact) (Outcome, error) {
	return One(a.(num) + num(t.by)), nil
}

func (t add) Record() record.Object {
	return record.NewObject(record.O("name", record.String("add")), record.O("by", record.Int(t.by)))
}

// split replaces n with n*10+1 .. n*10+ways.
type split struct{ ways int }

func (t split) Apply(a Artifact) (Outcome, error) {
	out := make([]Artifact, t.ways)
	for i := range out {
		out[i] = a.(num)*10 + num(i+1)
	}
	return Many(out...), nil
}

func (t split) Record() record.Object {
	return record.NewObject(record.O("name", record.String("split")), record.O("ways", record.Int(t.ways)))
}

// rejectValue fails for one input value and passes everything else through.
type rejectValue struct{ value int }

func (t rejectValue) Apply(a Artifact) (Outcome, error) {
	if a.(num) == num(t.value) {
		return Outcome{}, fmt.Errorf("%w: cannot process %d", ErrInvalidOperation, t.value)
	}
	return One(a), nil
}

func (t rejectValue) Record() record.Object {
	return record.NewObject(record.O("name", record.String("reject")), record.O("value", record.Int(t.value)))
}

func decodeOp(obj record.Object) (Transformation, error) {
	name, _ := obj.Str("name")
	switch name {
	case "add":
		by, _ := record.Integer(obj["by"])
		return add{by: int(by)}, nil
	case "split":
		ways, _ := record.Integer(obj["ways"])
		return split{ways: int(ways)}, nil
	case "reject":
		v, _ := record.Integer(obj["value"])
		return rejectValue{value: int(v)}, nil
	}
	return nil, fmt.Errorf("unknown transformation %q", name)
}

var testCodec = Codec{
	Version:              "test",
	DecodeArtifact:       decodeNum,
	DecodeTransformation: decodeOp,
}

func values(as []Artifact) []int {
	out := make([]int, len(as))
	for i, a := range as {
		out[i] = int(a.(num))
	}
	return out
}
