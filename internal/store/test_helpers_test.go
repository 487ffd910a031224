package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/transmute/internal/lineage"
	"github.com/roach88/transmute/internal/record"
	"github.com/roach88/transmute/internal/structure"
	"github.com/roach88/transmute/internal/testutil"
)

// createTestStore creates a new store in a temp directory with
// predictable entry IDs.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequentialIDs("entry").Next))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestLineage builds a Li2O cell with one provenance field and the
// given transformations applied.
func createTestLineage(t *testing.T, source string, ops ...lineage.Transformation) *lineage.Lineage {
	t.Helper()
	lat := structure.Lattice{{4, 0, 0}, {0, 4, 0}, {0, 0, 4}}
	s, err := structure.New(lat, []structure.Site{
		{Species: "Li", Coords: [3]float64{0, 0, 0}},
		{Species: "Li", Coords: [3]float64{0.5, 0.5, 0}},
		{Species: "O", Coords: [3]float64{0.5, 0, 0.5}},
	})
	if err != nil {
		t.Fatalf("structure.New() failed: %v", err)
	}
	seed := &lineage.Seed{Provenance: lineage.NewProvenance(record.NewObject(
		record.O(lineage.KeySource, record.String(source)),
	))}
	l, err := lineage.New(s, seed, ops...)
	if err != nil {
		t.Fatalf("lineage.New() failed: %v", err)
	}
	return l
}
