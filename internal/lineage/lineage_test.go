package lineage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/transmute/internal/record"
)

func newLineage(t *testing.T, ops ...Transformation) *Lineage {
	t.Helper()
	l, err := New(num(1), nil, ops...)
	require.NoError(t, err)
	return l
}

func TestNewAppliesTransformations(t *testing.T) {
	l := newLineage(t, add{1}, add{10})

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, num(12), l.Current())
	assert.Equal(t, []int{1, 2, 12}, values(l.Artifacts()))
	assert.Len(t, l.Transformations(), 2)
}

func TestNewRejectsNilInitial(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrNilArtifact)
}

func TestNewWithSeed(t *testing.T) {
	seed := &Seed{
		Provenance: NewProvenance(record.NewObject(record.O(KeySource, record.String("test")))),
		Steps: []Step{
			{Input: num(1), Transformation: add{1}},
			{Input: num(2), Transformation: add{2}},
		},
	}

	l, err := New(num(4), seed, add{3})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 4, 7}, values(l.Artifacts()))
	assert.Equal(t, "test", l.Provenance().Source())
	assert.Len(t, l.Transformations(), 3)
}

func TestLengthInvariant(t *testing.T) {
	l := newLineage(t)
	check := func() {
		assert.Equal(t, len(l.Transformations())+1, l.Len())
		assert.Equal(t, len(l.Artifacts()), l.Len())
	}

	check()
	require.NoError(t, l.Extend(add{1}, add{2}))
	check()
	require.NoError(t, l.Undo())
	check()
	require.NoError(t, l.Redo())
	check()
}

func TestUndoExhaustsHistory(t *testing.T) {
	l := newLineage(t, add{1}, add{2}, add{3})

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Undo(), "undo %d", i)
	}
	err := l.Undo()
	assert.ErrorIs(t, err, ErrEmptyHistory)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, num(1), l.Current())
}

func TestUndoRedoScenario(t *testing.T) {
	l := newLineage(t)
	require.NoError(t, l.AppendTransformation(add{1}, true))
	require.NoError(t, l.AppendTransformation(add{2}, true))
	assert.Equal(t, 3, l.Len())

	require.NoError(t, l.Undo())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, num(2), l.Current())
	assert.Equal(t, 1, l.RedoDepth())

	require.NoError(t, l.Redo())
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, num(4), l.Current())
	assert.Equal(t, 0, l.RedoDepth())
}

func TestRedoThenUndoRoundTrip(t *testing.T) {
	l := newLineage(t, add{1}, add{2})
	require.NoError(t, l.Undo())

	artifacts := l.Artifacts()
	transformations := l.Transformations()

	require.NoError(t, l.Redo())
	require.NoError(t, l.Undo())

	assert.Equal(t, artifacts, l.Artifacts())
	assert.Equal(t, transformations, l.Transformations())
	assert.Equal(t, 1, l.RedoDepth())
}

func TestMultipleRedosKeepBuffer(t *testing.T) {
	l := newLineage(t, add{1}, add{2}, add{3})
	require.NoError(t, l.Undo())
	require.NoError(t, l.Undo())
	require.NoError(t, l.Undo())
	assert.Equal(t, 3, l.RedoDepth())

	require.NoError(t, l.Redo())
	require.NoError(t, l.Redo())
	require.NoError(t, l.Redo())

	assert.Equal(t, []int{1, 2, 4, 7}, values(l.Artifacts()))
	assert.ErrorIs(t, l.Redo(), ErrEmptyHistory)
}

func TestAppendClearsRedo(t *testing.T) {
	l := newLineage(t, add{1}, add{2})
	require.NoError(t, l.Undo())

	require.NoError(t, l.AppendTransformation(add{5}, true))

	assert.ErrorIs(t, l.Redo(), ErrEmptyHistory)
}

func TestAppendKeepRedo(t *testing.T) {
	l := newLineage(t, add{1}, add{2})
	require.NoError(t, l.Undo())

	require.NoError(t, l.AppendTransformation(add{5}, false))

	assert.Equal(t, 1, l.RedoDepth())
}

func TestRedoOnFreshLineage(t *testing.T) {
	l := newLineage(t)
	assert.ErrorIs(t, l.Redo(), ErrEmptyHistory)
}

func TestFailedAppendLeavesStateUnchanged(t *testing.T) {
	l := newLineage(t, add{1})
	require.NoError(t, l.Undo())
	require.NoError(t, l.AppendTransformation(add{1}, false))

	err := l.AppendTransformation(rejectValue{2}, true)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, "invalid operation: cannot process 2", err.Error())
	assert.Equal(t, []int{1, 2}, values(l.Artifacts()))
	assert.Equal(t, 1, l.RedoDepth())
}

func TestAppendRejectsBranchingOutcome(t *testing.T) {
	l := newLineage(t)

	err := l.AppendTransformation(split{3}, true)

	assert.ErrorIs(t, err, ErrBranchingOutcome)
	assert.Equal(t, 1, l.Len())
}

func TestExtendStopsAtFirstFailure(t *testing.T) {
	l := newLineage(t)

	err := l.Extend(add{1}, rejectValue{2}, add{100})

	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, []int{1, 2}, values(l.Artifacts()))
}

func TestRedoFailureKeepsEntry(t *testing.T) {
	l, err := New(num(3), nil, rejectValue{4})
	require.NoError(t, err)
	require.NoError(t, l.Undo())
	require.NoError(t, l.AppendTransformation(add{1}, false))

	err = l.Redo()

	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, []int{3, 4}, values(l.Artifacts()))
	assert.Equal(t, 1, l.RedoDepth())
}

func TestAt(t *testing.T) {
	l := newLineage(t, add{1}, add{2})

	a, ts, err := l.At(1)
	require.NoError(t, err)
	assert.Equal(t, num(2), a)
	assert.Equal(t, []Transformation{add{1}}, ts)

	a, ts, err = l.At(0)
	require.NoError(t, err)
	assert.Equal(t, num(1), a)
	assert.Empty(t, ts)

	_, _, err = l.At(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, _, err = l.At(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAccessorsReturnCopies(t *testing.T) {
	l := newLineage(t, add{1})

	arts := l.Artifacts()
	arts[0] = num(99)
	ts := l.Transformations()
	ts[0] = add{99}

	assert.Equal(t, []int{1, 2}, values(l.Artifacts()))
	assert.Equal(t, add{1}, l.Transformations()[0])
}

func TestSeedContinuesLineage(t *testing.T) {
	l := newLineage(t, add{1}, add{2})

	cont, err := New(l.Current(), l.Seed(), add{3})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 4, 7}, values(cont.Artifacts()))
	assert.Equal(t, 3, l.Len())
}

func TestCloneIsIndependent(t *testing.T) {
	l := newLineage(t, add{1}, add{2})
	require.NoError(t, l.Undo())

	c := l.Clone()
	require.NoError(t, c.AppendTransformation(add{10}, true))

	assert.Equal(t, []int{1, 2}, values(l.Artifacts()))
	assert.Equal(t, 1, l.RedoDepth())
	assert.Equal(t, 0, c.RedoDepth())
}

func TestNilOutcome(t *testing.T) {
	l := newLineage(t)

	err := l.AppendTransformation(nilResult{}, true)

	assert.True(t, errors.Is(err, ErrNilArtifact))
	assert.Equal(t, 1, l.Len())
}

func TestString(t *testing.T) {
	l := newLineage(t, add{1})

	s := l.String()

	assert.Contains(t, s, "Current artifact")
	assert.Contains(t, s, `{"value":2}`)
	assert.Contains(t, s, `{"by":1,"name":"add"}`)
}

type nilResult struct{}

func (nilResult) Apply(Artifact) (Outcome, error) { return One(nil), nil }
func (nilResult) Record() record.Object          { return record.Object{} }
